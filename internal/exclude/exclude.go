// Package exclude compiles path exclusion rules from a line-oriented rule
// file. Rules are loaded once at startup and never change afterwards.
package exclude

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Engine matches absolute paths against the compiled rule set. It is
// immutable after Load and safe for concurrent use.
type Engine struct {
	rules    []*regexp.Regexp
	patterns []string
}

// Load reads the rule file at path and compiles one case-insensitive
// pattern per non-blank line. A missing file is created empty so the next
// run finds it; a pattern that fails to compile is a startup error rather
// than a silently skipped rule.
func Load(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read exclusion rules: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create rules directory: %w", err)
		}
		if err := os.WriteFile(path, nil, 0644); err != nil {
			return nil, fmt.Errorf("failed to create empty rules file: %w", err)
		}
		return &Engine{}, nil
	}

	engine := &Engine{}
	for i, line := range strings.Split(string(data), "\n") {
		pattern := strings.TrimSpace(line)
		if pattern == "" {
			continue
		}

		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclusion pattern on line %d (%q): %w", i+1, pattern, err)
		}
		engine.rules = append(engine.rules, re)
		engine.patterns = append(engine.patterns, pattern)
	}

	return engine, nil
}

// Match reports whether any rule matches the path. Patterns are unanchored
// unless the rule itself anchors them.
func (e *Engine) Match(path string) bool {
	for _, re := range e.rules {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// Len returns the number of loaded rules.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Patterns returns the raw rule lines as loaded, for startup logging.
func (e *Engine) Patterns() []string {
	return e.patterns
}
