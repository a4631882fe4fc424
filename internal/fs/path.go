package fs

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// RequiresDriveLetter reports whether backup roots must be addressed through
// a drive letter so free space can be queried.
var RequiresDriveLetter = runtime.GOOS == "windows"

// HasDriveLetter reports whether p starts with a "X:" volume.
func HasDriveLetter(p string) bool {
	vol := filepath.VolumeName(p)
	return len(vol) == 2 && vol[1] == ':'
}

// RelativePath returns target relative to root in posix form.
func RelativePath(root, target string) (string, error) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", fmt.Errorf("calculating relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not inside %s", target, root)
	}
	return filepath.ToSlash(rel), nil
}

// Join resolves a posix relative path against a native root.
func Join(root string, relativePath ...string) string {
	parts := []string{root}
	for _, p := range relativePath {
		parts = append(parts, filepath.FromSlash(p))
	}
	return filepath.Join(parts...)
}

// NormalizeRelative cleans a user supplied posix path and strips leading
// separators. A trailing "/" is kept because it marks a folder.
func NormalizeRelative(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	folder := strings.HasSuffix(p, "/")
	p = strings.TrimLeft(path.Clean("/"+p), "/")
	if folder && p != "" {
		p += "/"
	}
	return p
}

// SanitizeName turns a free-form label into a single safe path segment.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, ". ")
	if name == "" {
		return "_"
	}
	return name
}

// UniqueFilename returns p if nothing exists there, otherwise the first free
// "name 001.ext", "name 002.ext", ... sibling.
func UniqueFilename(p string) (string, error) {
	if _, err := os.Lstat(p); os.IsNotExist(err) {
		return p, nil
	} else if err != nil {
		return "", fmt.Errorf("stat %s: %w", p, err)
	}

	dir := filepath.Dir(p)
	ext := filepath.Ext(p)
	base := strings.TrimSuffix(filepath.Base(p), ext)
	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s %03d%s", base, n, ext))
		_, err := os.Lstat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
	}
}

// Exists reports whether p can be stat'ed.
func Exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
