// Package eligibility decides whether a changed file should be versioned.
// Checks run in a fixed order: engine state, temporary and self-generated
// names, hidden directories, the extension allowlist and finally the
// exclusion rules. The first failing check decides the denial reason.
package eligibility

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ngpepin/create-file-versions/internal/version"
)

// Reason explains why a path was denied.
type Reason string

const (
	ReasonDisabled  Reason = "disabled"
	ReasonTemporary Reason = "temporary file"
	ReasonHiddenDir Reason = "hidden directory"
	ReasonExtension Reason = "extension not allowed"
	ReasonExcluded  Reason = "excluded"
)

// Decision is the outcome of an eligibility check.
type Decision struct {
	Eligible bool
	Reason   Reason
}

// EnabledReader reports the current on/off state of the versioning engine.
type EnabledReader interface {
	Enabled() bool
}

// RuleMatcher reports whether a path matches an exclusion rule.
type RuleMatcher interface {
	Match(path string) bool
}

// lockMarker prefixes the lock files office suites drop next to open
// documents.
const lockMarker = "~$"

// numericIndexRe matches filenames carrying a bare three-digit index right
// before the extension, the scheme version copies use. The index must not
// follow another digit, so years and longer counters pass.
var numericIndexRe = regexp.MustCompile(`(?:^|[^0-9])[0-9]{3}\.[^.]+$`)

// Filter applies the eligibility checks for one watched tree
type Filter struct {
	root       string
	extensions map[string]struct{}
	state      EnabledReader
	rules      RuleMatcher
}

// New creates a filter for the tree rooted at root. Extension matching is
// case-insensitive.
func New(root string, extensions []string, state EnabledReader, rules RuleMatcher) *Filter {
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	return &Filter{
		root:       root,
		extensions: exts,
		state:      state,
		rules:      rules,
	}
}

// Check runs all eligibility checks against path.
func (f *Filter) Check(path string) Decision {
	if !f.state.Enabled() {
		return denied(ReasonDisabled)
	}

	if isTemporaryName(filepath.Base(path)) {
		return denied(ReasonTemporary)
	}

	if f.insideHiddenDir(path) {
		return denied(ReasonHiddenDir)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := f.extensions[ext]; !ok {
		return denied(ReasonExtension)
	}

	if f.rules.Match(path) {
		return denied(ReasonExcluded)
	}

	return Decision{Eligible: true}
}

func denied(r Reason) Decision {
	return Decision{Reason: r}
}

// isTemporaryName reports whether name looks like a lock file, a version
// copy or another self-generated artifact.
func isTemporaryName(name string) bool {
	if strings.HasPrefix(name, lockMarker) {
		return true
	}
	if strings.Contains(name, version.Marker) {
		return true
	}
	return numericIndexRe.MatchString(name)
}

// insideHiddenDir reports whether any directory strictly between the
// watched root and the filename is hidden. The root itself and the filename
// are exempt.
func (f *Filter) insideHiddenDir(path string) bool {
	rel, err := filepath.Rel(f.root, filepath.Dir(path))
	if err != nil || rel == "." {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	for _, segment := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}
