package utils

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// PatternMatcher selects benchmark ids with glob patterns. Ids are not
// paths, so `*` also matches '/'.
type PatternMatcher struct {
	patterns []string
	globs    []glob.Glob
}

// NewPatternMatcher compiles patterns. Besides `*` and `?` it accepts
// `[...]` and `[!...]` classes, `{a,b}` alternatives and backslash escapes.
// Blank patterns are ignored.
func NewPatternMatcher(patterns []string) (*PatternMatcher, error) {
	pm := &PatternMatcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		pm.patterns = append(pm.patterns, p)
		pm.globs = append(pm.globs, g)
	}
	return pm, nil
}

// Empty reports whether no pattern was configured
func (pm *PatternMatcher) Empty() bool {
	return len(pm.globs) == 0
}

// Patterns returns the accepted patterns
func (pm *PatternMatcher) Patterns() []string {
	return pm.patterns
}

// Match reports whether id matches any pattern
func (pm *PatternMatcher) Match(id string) bool {
	for _, g := range pm.globs {
		if g.Match(id) {
			return true
		}
	}
	return false
}

// Filter keeps the ids matching any pattern, preserving order
func (pm *PatternMatcher) Filter(ids []string) []string {
	var out []string
	for _, id := range ids {
		if pm.Match(id) {
			out = append(out, id)
		}
	}
	return out
}

// IsGlobPattern reports whether pattern uses any wildcard
func IsGlobPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
