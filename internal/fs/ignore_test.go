package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsMarkerFileName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"0123456789abcdef0123456789abcdef.usbb", true},
		{"0123456789ABCDEF0123456789ABCDEF.usbb", false},
		{"0123456789abcdef.usbb", false},
		{"0123456789abcdef0123456789abcdef.usbb.bak", false},
		{"notes.usbb", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsMarkerFileName(tt.name); got != tt.want {
				t.Errorf("IsMarkerFileName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestDefaultIgnoreRules(t *testing.T) {
	rules := DefaultIgnoreRules([]string{"*.log", "cache/*"})

	t.Run("skips hidden and system directories", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{".git", ".Trashes", "$RECYCLE.BIN", "System Volume Information"} {
			if !rules.IsIgnoredDirectory(name) {
				t.Errorf("IsIgnoredDirectory(%q) = false, want true", name)
			}
		}
		if rules.IsIgnoredDirectory("Photos") {
			t.Error("IsIgnoredDirectory(Photos) = true, want false")
		}
	})

	t.Run("skips markers, temp files and os metadata", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{
			"0123456789abcdef0123456789abcdef.usbb",
			".DS_Store",
			"Thumbs.db",
			IgnoreFileName,
			"video.mp4" + tempSuffix,
		} {
			if !rules.IsIgnoredFile(name) {
				t.Errorf("IsIgnoredFile(%q) = false, want true", name)
			}
		}
		if rules.IsIgnoredFile("IMG_0001.JPG") {
			t.Error("IsIgnoredFile(IMG_0001.JPG) = true, want false")
		}
	})

	t.Run("applies configured patterns to relative paths", func(t *testing.T) {
		t.Parallel()
		if !rules.IsIgnoredPath(filepath.Join("sub", "debug.log")) {
			t.Error("expected *.log to be ignored in a subdirectory")
		}
		if !rules.IsIgnoredPath(filepath.Join("cache", "thumb.bin")) {
			t.Error("expected cache/* to be ignored")
		}
		if rules.IsIgnoredPath(filepath.Join("photos", "thumb.bin")) {
			t.Error("photos/thumb.bin should not be ignored")
		}
	})

	t.Run("zero value rules ignore nothing", func(t *testing.T) {
		t.Parallel()
		var empty IgnoreRules
		if empty.ignoredPath("a") || empty.ignoredDirectory(".git") || empty.ignoredFile("x") {
			t.Error("zero IgnoreRules should not ignore anything")
		}
	})
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		relativePath string
		want         bool
	}{
		{
			name:         "basename glob matches file in root",
			patterns:     []string{"*.log"},
			relativePath: "app.log",
			want:         true,
		},
		{
			name:         "basename glob matches file in subdirectory",
			patterns:     []string{"*.log"},
			relativePath: filepath.Join("sub", "app.log"),
			want:         true,
		},
		{
			name:         "basename glob does not match different extension",
			patterns:     []string{"*.log"},
			relativePath: "app.txt",
			want:         false,
		},
		{
			name:         "path pattern matches exact relative path",
			patterns:     []string{"DCIM/.thumbnails"},
			relativePath: filepath.Join("DCIM", ".thumbnails"),
			want:         true,
		},
		{
			name:         "path pattern does not match wrong path",
			patterns:     []string{"DCIM/cache"},
			relativePath: filepath.Join("Music", "cache"),
			want:         false,
		},
		{
			name:         "comment and blank lines are skipped",
			patterns:     []string{"", "# *.jpg", "  "},
			relativePath: "a.jpg",
			want:         false,
		},
		{
			name:         "malformed pattern is skipped",
			patterns:     []string{"[", "*.tmp"},
			relativePath: "data.tmp",
			want:         true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewIgnoreMatcher(tt.patterns)
			if got := m.Match(tt.relativePath); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.relativePath, got, tt.want)
			}
		})
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("reads patterns from file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), IgnoreFileName)
		if err := os.WriteFile(path, []byte("*.log\n# comment\n\nbuild/output\n"), 0644); err != nil {
			t.Fatalf("writing test file: %v", err)
		}

		patterns, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if len(patterns) != 4 {
			t.Fatalf("expected 4 raw lines, got %d", len(patterns))
		}
		if m := NewIgnoreMatcher(patterns); len(m.patterns) != 2 {
			t.Errorf("expected 2 parsed patterns, got %d", len(m.patterns))
		}
	})

	t.Run("returns nil for missing file", func(t *testing.T) {
		t.Parallel()
		patterns, err := ParseIgnoreFile(filepath.Join(t.TempDir(), IgnoreFileName))
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if patterns != nil {
			t.Errorf("expected nil patterns, got %v", patterns)
		}
	})
}
