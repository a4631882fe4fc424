package fs

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

func TestRelativePath(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "media", "card")

	got, err := RelativePath(root, filepath.Join(root, "DCIM", "100", "a.jpg"))
	if err != nil {
		t.Fatalf("RelativePath() error = %v", err)
	}
	if got != "DCIM/100/a.jpg" {
		t.Errorf("RelativePath() = %q, want DCIM/100/a.jpg", got)
	}

	if _, err := RelativePath(root, filepath.Join(string(filepath.Separator), "media", "other")); err == nil {
		t.Error("expected error for path outside root")
	}
}

func TestNormalizeRelative(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"f1/f2/", "f1/f2/"},
		{"/f1/f2/", "f1/f2/"},
		{"f1/./f2/../f2/a.txt", "f1/f2/a.txt"},
		{`f1\f2\`, "f1/f2/"},
		{"/", ""},
		{"", ""},
		{"/out", "out"},
	}
	for _, tt := range tests {
		if got := NormalizeRelative(tt.in); got != tt.want {
			t.Errorf("NormalizeRelative(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Camera", "Camera"},
		{"My/Phone: 2", "My_Phone_ 2"},
		{"  ..  ", "_"},
		{"", "_"},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUniqueFilename(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "report.pdf")

	got, err := UniqueFilename(p)
	if err != nil || got != p {
		t.Fatalf("UniqueFilename() = %q, %v; want %q", got, err, p)
	}

	os.WriteFile(p, nil, 0644)
	got, err = UniqueFilename(p)
	if err != nil {
		t.Fatalf("UniqueFilename() error = %v", err)
	}
	if want := filepath.Join(dir, "report 001.pdf"); got != want {
		t.Errorf("UniqueFilename() = %q, want %q", got, want)
	}
}

func TestHasDriveLetter(t *testing.T) {
	if HasDriveLetter("/mnt/backup") {
		t.Error("posix path reported as having a drive letter")
	}
}

func TestDiskSpace(t *testing.T) {
	space, err := DiskSpace(t.TempDir())
	if err == ErrSpaceUnsupported {
		t.Skip("disk space not supported")
	}
	if err != nil {
		t.Fatalf("DiskSpace() error = %v", err)
	}
	if space.Total <= 0 || space.Free < 0 || space.Free > space.Total {
		t.Errorf("DiskSpace() = %+v", space)
	}
}
