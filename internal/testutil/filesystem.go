package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"usbb-go/internal/fs"
)

// WriteFile creates root/rel (rel uses "/" separators) with content and
// returns its absolute path. Parent directories are created as needed.
func WriteFile(t *testing.T, root, rel string, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("creating directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", rel, err)
	}
	return p
}

// WriteFileAt is WriteFile with a fixed modification time.
func WriteFileAt(t *testing.T, root, rel string, content string, mtime time.Time) string {
	t.Helper()
	p := WriteFile(t, root, rel, content)
	SetMtime(t, p, mtime)
	return p
}

// SetMtime changes the modification time of path.
func SetMtime(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("setting times on %s: %v", path, err)
	}
}

// MoveFile renames root/from to root/to, keeping times and inode.
func MoveFile(t *testing.T, root, from, to string) {
	t.Helper()
	dest := filepath.Join(root, filepath.FromSlash(to))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		t.Fatalf("creating directory for %s: %v", to, err)
	}
	if err := os.Rename(filepath.Join(root, filepath.FromSlash(from)), dest); err != nil {
		t.Fatalf("moving %s to %s: %v", from, to, err)
	}
}

// RemoveFile deletes root/rel.
func RemoveFile(t *testing.T, root, rel string) {
	t.Helper()
	if err := os.Remove(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
		t.Fatalf("removing %s: %v", rel, err)
	}
}

// ReadFile returns the content of root/rel.
func ReadFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("reading %s: %v", rel, err)
	}
	return string(data)
}

// FixedDiskSpace returns a free-space query that always reports free bytes
// out of total.
func FixedDiskSpace(free, total int64) func(string) (*fs.Space, error) {
	return func(string) (*fs.Space, error) {
		return &fs.Space{Free: free, Total: total}, nil
	}
}
