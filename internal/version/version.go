// Package version creates point-in-time copies of changed files. Version
// copies live next to their source as hidden files whose names embed a
// marker and a three-digit index, e.g. "report.docx" becomes
// ".report~~~~001.docx".
package version

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Marker separates the source basename from the version index. Filenames
// containing it are recognized as version copies and never versioned again.
const Marker = "~~~~"

// maxIndex is the highest version index the three-digit scheme can hold.
const maxIndex = 999

// ErrNoFreeSlot is returned when all indexes for a source file are taken.
var ErrNoFreeSlot = errors.New("no free version slot")

var versionNameRe = regexp.MustCompile(`^\.(.+)` + regexp.QuoteMeta(Marker) + `([0-9]{3})((?:\.[^.]*)?)$`)

// versionPath builds the name of the index'th version copy of src.
func versionPath(src string, index int) string {
	dir := filepath.Dir(src)
	ext := filepath.Ext(src)
	base := strings.TrimSuffix(filepath.Base(src), ext)
	return filepath.Join(dir, fmt.Sprintf(".%s%s%03d%s", base, Marker, index, ext))
}

// NextVersionPath returns the first unused version name for src, probing
// indexes upward from 001.
func NextVersionPath(src string) (string, error) {
	for i := 1; i <= maxIndex; i++ {
		candidate := versionPath(src, i)
		_, err := os.Stat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to probe version name %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("exhausted version indexes for %s: %w", src, ErrNoFreeSlot)
}

// IsVersionName reports whether name (a path or bare filename) follows the
// version copy naming scheme.
func IsVersionName(name string) bool {
	return versionNameRe.MatchString(filepath.Base(name))
}

// ParseVersionName splits a version copy filename into the source basename
// (without extension), the version index and the extension. ok is false
// when name does not follow the naming scheme.
func ParseVersionName(name string) (base string, index int, ext string, ok bool) {
	m := versionNameRe.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return "", 0, "", false
	}
	index, _ = strconv.Atoi(m[2])
	return m[1], index, m[3], true
}
