//go:build !windows

package cli_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benchrunner/benchrunner/pkg/cli"
)

const suiteConfig = `version: "1"
project:
  name: clitest
benchmarks:
  alpha:
    command: sh -c 'echo alpha > "$0"'
    expected_runtime: 1.5
  beta:
    command: sh -c 'echo beta > "$0"'
    expected_runtime: 2
    repeats: 2
  gamma:
    command: sh -c 'exit 1'
    execute: false
`

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "benchmarks.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// execute runs one command line against a fresh CLI with notifications off
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	config := cli.NewConfig()
	config.Version = "1.2.3"
	c := cli.NewCLIWithOutput(config, &out, &errOut)
	err := c.Execute(append(args, "--notify=false"))
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "benchrunner v1.2.3") {
		t.Errorf("unexpected version output: %q", out)
	}
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmarks.yaml")

	if _, _, err := execute(t, "init", "--config", path); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file was not created: %v", err)
	}

	out, _, err := execute(t, "validate", "--config", path)
	if err != nil {
		t.Fatalf("generated config does not validate: %v", err)
	}
	if !strings.Contains(out, "is valid") {
		t.Errorf("unexpected validate output: %q", out)
	}

	if _, _, err := execute(t, "init", "--config", path); err == nil {
		t.Error("expected second init to refuse overwriting the file")
	}
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr bool
	}{
		{name: "valid", config: suiteConfig},
		{
			name:    "unsupported version",
			config:  "version: \"9\"\nbenchmarks:\n  a:\n    command: \"true\"\n",
			wantErr: true,
		},
		{
			name:    "empty command",
			config:  "benchmarks:\n  a:\n    command: \"\"\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.config)
			_, _, err := execute(t, "validate", "--config", path)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlanCommand(t *testing.T) {
	path := writeConfig(t, suiteConfig)

	out, _, err := execute(t, "plan", "--config", path, "--threads", "4")
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}

	for _, name := range []string{"alpha -tc 1", "alpha -tc 4", "beta.0 -tc 1", "beta.1 -tc 4"} {
		if !strings.Contains(out, name) {
			t.Errorf("plan is missing job %q:\n%s", name, out)
		}
	}
	if strings.Contains(out, "gamma") {
		t.Errorf("plan contains a disabled benchmark:\n%s", out)
	}
	if !strings.Contains(out, "6 jobs on 4 threads, expected runtime 11s") {
		t.Errorf("unexpected plan summary:\n%s", out)
	}
}

func TestPlanCommand_OnlyFilter(t *testing.T) {
	path := writeConfig(t, suiteConfig)

	out, _, err := execute(t, "plan", "--config", path, "--threads", "1", "--only", "be*")
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if strings.Contains(out, "alpha") {
		t.Errorf("--only did not filter alpha:\n%s", out)
	}
	if !strings.Contains(out, "2 jobs on 1 threads") {
		t.Errorf("unexpected plan summary:\n%s", out)
	}
}

func TestPlanCommand_ThreadsFromEnvironment(t *testing.T) {
	path := writeConfig(t, suiteConfig)
	t.Setenv("BENCHRUNNER_THREADS", "2")

	out, _, err := execute(t, "plan", "--config", path)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if !strings.Contains(out, "on 2 threads") {
		t.Errorf("BENCHRUNNER_THREADS was ignored:\n%s", out)
	}
}

func TestRunCommand(t *testing.T) {
	requireShell(t)
	path := writeConfig(t, suiteConfig)
	dir := filepath.Dir(path)

	out, _, err := execute(t, "run", "--config", path, "--threads", "1")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}

	for _, name := range []string{"alpha.single_core.result.txt", "beta.single_core.0.result.txt", "beta.single_core.1.result.txt"} {
		if _, err := os.Stat(filepath.Join(dir, "results", name)); err != nil {
			t.Errorf("result file %s missing: %v", name, err)
		}
	}
	if !strings.Contains(out, "saved (done)") {
		t.Errorf("run report was not saved:\n%s", out)
	}

	runs, err := os.ReadDir(filepath.Join(dir, ".benchrunner", "runs"))
	if err != nil {
		t.Fatalf("failed to read runs directory: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run report, got %d", len(runs))
	}
	runID := strings.TrimSuffix(runs[0].Name(), ".json")

	out, _, err = execute(t, "history", "--config", path)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, runID) || !strings.Contains(out, "done") {
		t.Errorf("history does not list the run:\n%s", out)
	}

	out, _, err = execute(t, "history", runID, "--config", path, "--json")
	if err != nil {
		t.Fatalf("history %s failed: %v", runID, err)
	}
	if !strings.Contains(out, fmt.Sprintf("%q", runID)) {
		t.Errorf("report JSON does not contain the run id:\n%s", out)
	}
}

func TestRunCommand_FailingBenchmark(t *testing.T) {
	requireShell(t)
	path := writeConfig(t, `benchmarks:
  broken:
    command: sh -c 'exit 3'
  fine:
    command: sh -c 'echo ok > "$0"'
`)

	_, _, err := execute(t, "run", "--config", path, "--threads", "1")
	if !errors.Is(err, cli.ErrRunFailed) {
		t.Fatalf("expected ErrRunFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "1 of 2 jobs failed") {
		t.Errorf("unexpected error message: %v", err)
	}
	if code := cli.ExitCode(err); code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}

	if _, err := os.Stat(filepath.Join(filepath.Dir(path), "results", "fine.single_core.result.txt")); err != nil {
		t.Errorf("queue did not continue after the failing job: %v", err)
	}
}

func TestCleanCommand(t *testing.T) {
	path := writeConfig(t, suiteConfig)
	results := filepath.Join(filepath.Dir(path), "results")
	if err := os.MkdirAll(results, 0755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(results, "alpha.single_core.result.txt")
	keep := filepath.Join(results, "notes.txt")
	for _, f := range []string{stale, keep} {
		if err := os.WriteFile(f, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if _, _, err := execute(t, "clean", "--config", path, "--threads", "1"); err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("expected %s to be removed", stale)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("clean removed a file outside the queue: %v", err)
	}
}

func TestHistoryCommand_Empty(t *testing.T) {
	path := writeConfig(t, suiteConfig)

	out, _, err := execute(t, "history", "--config", path)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "No runs recorded yet") {
		t.Errorf("unexpected history output: %q", out)
	}
}

func TestMissingConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	if _, _, err := execute(t, "plan", "--config", path); err == nil {
		t.Error("expected an error for a missing definitions file")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{cli.ErrRunCanceled, 130},
		{fmt.Errorf("wrapped: %w", cli.ErrRunFailed), 1},
		{errors.New("boom"), 1},
	}
	for _, tt := range tests {
		if got := cli.ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
