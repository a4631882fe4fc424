package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreFileName is the per-device file holding extra ignore patterns.
const IgnoreFileName = ".usbbignore"

// markerPattern identifies device marker files: 32 lowercase hex characters + ".usbb".
var markerPattern = regexp.MustCompile(`^[0-9a-f]{32}\.usbb$`)

// IsMarkerFileName reports whether name is a device marker file name.
func IsMarkerFileName(name string) bool {
	return markerPattern.MatchString(name)
}

// systemDirectories are never descended into, on any platform.
var systemDirectories = map[string]bool{
	"$recycle.bin":              true,
	"system volume information": true,
	"lost+found":                true,
}

// systemFiles are filesystem droppings that never represent user data.
var systemFiles = map[string]bool{
	".ds_store":   true,
	"._.ds_store": true,
	"thumbs.db":   true,
	"desktop.ini": true,
	".localized":  true,
}

// IgnoreRules decides which entries the walker skips.
//
// IsIgnoredPath is checked before an entry is stat'ed, with the path relative
// to the walk root. IsIgnoredDirectory filters recursion and IsIgnoredFile
// filters the per-file callback; both receive the entry's base name.
type IgnoreRules struct {
	IsIgnoredPath      func(relativePath string) bool
	IsIgnoredDirectory func(name string) bool
	IsIgnoredFile      func(name string) bool
}

// DefaultIgnoreRules skips hidden and system directories, device marker
// files and OS metadata files, plus anything matched by patterns.
func DefaultIgnoreRules(patterns []string) IgnoreRules {
	matcher := NewIgnoreMatcher(patterns)
	return IgnoreRules{
		IsIgnoredPath: matcher.Match,
		IsIgnoredDirectory: func(name string) bool {
			return strings.HasPrefix(name, ".") || systemDirectories[strings.ToLower(name)]
		},
		IsIgnoredFile: func(name string) bool {
			return IsMarkerFileName(name) || name == IgnoreFileName ||
				systemFiles[strings.ToLower(name)] || strings.HasSuffix(name, tempSuffix)
		},
	}
}

func (r IgnoreRules) ignoredPath(relativePath string) bool {
	return r.IsIgnoredPath != nil && r.IsIgnoredPath(relativePath)
}

func (r IgnoreRules) ignoredDirectory(name string) bool {
	return r.IsIgnoredDirectory != nil && r.IsIgnoredDirectory(name)
}

func (r IgnoreRules) ignoredFile(name string) bool {
	return r.IsIgnoredFile != nil && r.IsIgnoredFile(name)
}

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool // true = match against relative path; false = match against basename only
}

// IgnoreMatcher checks file paths against a set of ignore patterns.
// Patterns without '/' match against the file's basename only.
// Patterns with '/' match against the full relative path from the device root.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		patterns = append(patterns, ignorePattern{
			pattern:   raw,
			matchPath: strings.Contains(raw, "/"),
		})
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether the given relative path should be ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if len(m.patterns) == 0 {
		return false
	}

	normalized := filepath.ToSlash(relativePath)
	basename := filepath.Base(relativePath)

	for _, p := range m.patterns {
		var matched bool
		var err error
		if p.matchPath {
			matched, err = filepath.Match(p.pattern, normalized)
		} else {
			matched, err = filepath.Match(p.pattern, basename)
		}
		if err != nil {
			// Malformed patterns never match.
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
