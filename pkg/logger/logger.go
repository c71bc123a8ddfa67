// Package logger provides structured logging with per-job targets
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Logger is the logging surface used across benchrunner. The target is
// usually a job's display name, e.g. "fib.0 -tc 4".
type Logger interface {
	Info(message string, fields ...Field)
	Error(message string, fields ...Field)
	Warn(message string, fields ...Field)
	Debug(message string, fields ...Field)
	Success(message string, fields ...Field)
	WithTarget(target string) Logger
}

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

// WithField creates a new field
func WithField(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// WithError creates an "error" field
func WithError(err error) Field {
	return Field{Key: "error", Value: err}
}

const (
	targetKey  = "target"
	successKey = "_success"
)

// CustomFormatter renders "⏱  [time] LEVEL: [target] message {k=v, ...}"
// with sorted fields
type CustomFormatter struct {
	TimestampFormat string
	DisableColors   bool
}

type levelStyle struct {
	text  string
	color *color.Color
}

var (
	styleError   = levelStyle{"ERROR", color.New(color.FgRed, color.Bold)}
	styleWarn    = levelStyle{"WARN", color.New(color.FgYellow, color.Bold)}
	styleInfo    = levelStyle{"INFO", color.New(color.FgCyan)}
	styleDebug   = levelStyle{"DEBUG", color.New(color.FgWhite, color.Faint)}
	styleSuccess = levelStyle{"OK", color.New(color.FgGreen, color.Bold)}
)

func (f *CustomFormatter) paint(c *color.Color, s string) string {
	if f.DisableColors {
		return s
	}
	return c.Sprint(s)
}

// Format implements logrus.Formatter
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	style := styleInfo
	switch entry.Level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		style = styleError
	case logrus.WarnLevel:
		style = styleWarn
	case logrus.DebugLevel, logrus.TraceLevel:
		style = styleDebug
	}

	var target string
	keys := make([]string, 0, len(entry.Data))
	for k, v := range entry.Data {
		switch k {
		case targetKey:
			target = fmt.Sprint(v)
		case successKey:
			style = styleSuccess
		default:
			keys = append(keys, k)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⏱  [%s] %s: ", entry.Time.Format(f.TimestampFormat), f.paint(style.color, style.text))
	if target != "" {
		fmt.Fprintf(&b, "[%s] ", f.paint(color.New(color.FgBlue), target))
	}
	b.WriteString(entry.Message)

	if len(keys) > 0 {
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, entry.Data[k]))
		}
		b.WriteString(f.paint(color.New(color.FgWhite, color.Faint), " {"+strings.Join(pairs, ", ")+"}"))
	}

	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// TargetLogger implements Logger on top of a logrus entry
type TargetLogger struct {
	entry *logrus.Entry
}

func newLogger(output io.Writer, logFile, logLevel string, disableColors bool) Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&CustomFormatter{
		TimestampFormat: "15:04:05",
		DisableColors:   disableColors,
	})

	log.SetOutput(output)
	if logFile != "" {
		// the file gets the same lines; open errors fall back to output only
		if file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			log.SetOutput(io.MultiWriter(output, file))
		}
	}

	return &TargetLogger{entry: logrus.NewEntry(log)}
}

// CreateLogger creates a logger writing to stderr and, if logFile is set,
// appending to that file as well. Stdout is left to command output.
func CreateLogger(logFile string, logLevel string) Logger {
	return newLogger(os.Stderr, logFile, logLevel, false)
}

// CreateLoggerWithOutput creates an uncolored logger writing to output
func CreateLoggerWithOutput(logFile string, logLevel string, output io.Writer) Logger {
	return newLogger(output, logFile, logLevel, true)
}

// Discard returns a logger that drops everything
func Discard() Logger {
	return CreateLoggerWithOutput("", "error", io.Discard)
}

// WithTarget returns a logger prefixing every entry with target
func (l *TargetLogger) WithTarget(target string) Logger {
	return &TargetLogger{entry: l.entry.WithField(targetKey, target)}
}

func (l *TargetLogger) with(fields []Field) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return l.entry.WithFields(data)
}

// Info logs an info message
func (l *TargetLogger) Info(message string, fields ...Field) {
	l.with(fields).Info(message)
}

// Error logs an error message
func (l *TargetLogger) Error(message string, fields ...Field) {
	l.with(fields).Error(message)
}

// Warn logs a warning message
func (l *TargetLogger) Warn(message string, fields ...Field) {
	l.with(fields).Warn(message)
}

// Debug logs a debug message
func (l *TargetLogger) Debug(message string, fields ...Field) {
	l.with(fields).Debug(message)
}

// Success logs at info level, tagged OK
func (l *TargetLogger) Success(message string, fields ...Field) {
	l.with(fields).WithField(successKey, true).Info("✅ " + message)
}
