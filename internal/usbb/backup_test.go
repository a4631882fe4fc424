package usbb_test

import (
	"path/filepath"
	"testing"

	"usbb-go/internal/fs"
	"usbb-go/internal/testutil"
	"usbb-go/internal/usbb"
)

// countingSpace reports a fixed free size and counts the queries made for
// one device path. before runs ahead of the first counted query.
type countingSpace struct {
	path   string
	free   int64
	calls  int
	before func()
}

func (c *countingSpace) diskSpace(path string) (*fs.Space, error) {
	if c.path != "" && path == c.path {
		c.calls++
		if c.before != nil {
			c.before()
			c.before = nil
		}
	}
	return &fs.Space{Free: c.free, Total: 100}, nil
}

func TestService_Backup(t *testing.T) {
	t.Run("copies each content once", func(t *testing.T) {
		e := newEnv(t)
		src := e.source(t, "Camera")
		bak := e.backup(t, "Vault")
		testutil.WriteFile(t, src.Path, "a.txt", "hello")
		testutil.WriteFile(t, src.Path, "b.txt", "world")
		testutil.WriteFile(t, src.Path, "dup/a-copy.txt", "hello")

		if err := e.svc.Backup(t.Context(), e.log, []string{src.ID}, bak.ID); err != nil {
			t.Fatalf("Backup() error = %v", err)
		}

		if got := testutil.ReadFile(t, bak.Path, "Camera/a.txt"); got != "hello" {
			t.Errorf("Camera/a.txt = %q", got)
		}
		if got := testutil.ReadFile(t, bak.Path, "Camera/b.txt"); got != "world" {
			t.Errorf("Camera/b.txt = %q", got)
		}
		if fs.Exists(filepath.Join(bak.Path, "Camera", "dup", "a-copy.txt")) {
			t.Error("duplicate content copied twice")
		}

		files := e.files(t, bak)
		if len(files) != 2 {
			t.Fatalf("backup has %d records, want 2", len(files))
		}
		if f := files["Camera/a.txt"]; f == nil || f.Hash != testutil.SHA256Hex([]byte("hello")) || f.DeviceType != usbb.DeviceTypeBackup {
			t.Errorf("Camera/a.txt record = %+v", f)
		}

		pending, _ := e.catalog.GetSourceFilesPendingBackup(src.ID)
		if len(pending) != 0 {
			t.Errorf("%d files still pending", len(pending))
		}
		stored, _ := e.catalog.GetDevice(src.ID)
		if stored.LastBackupDate == nil || !stored.LastBackupDate.Equal(e.clock.Now()) {
			t.Errorf("LastBackupDate = %v", stored.LastBackupDate)
		}
		meta, _ := usbb.ReadMetaFile(bak.Path)
		if len(meta.Files) != 2 {
			t.Errorf("backup meta-file lists %d files, want 2", len(meta.Files))
		}
	})

	t.Run("second run copies nothing", func(t *testing.T) {
		e := newEnv(t)
		src := e.source(t, "Camera")
		bak := e.backup(t, "Vault")
		testutil.WriteFile(t, src.Path, "a.txt", "hello")

		for i := 0; i < 2; i++ {
			if err := e.svc.Backup(t.Context(), e.log, []string{src.ID}, bak.ID); err != nil {
				t.Fatalf("Backup() run %d error = %v", i, err)
			}
		}
		if n := len(e.files(t, bak)); n != 1 {
			t.Errorf("backup has %d records, want 1", n)
		}
		if fs.Exists(filepath.Join(bak.Path, "Camera", "a 001.txt")) {
			t.Error("file copied again under a new name")
		}
	})

	t.Run("content shared by two sources is copied once", func(t *testing.T) {
		e := newEnv(t)
		cam := e.source(t, "Camera")
		phone := e.source(t, "Phone")
		bak := e.backup(t, "Vault")
		testutil.WriteFile(t, cam.Path, "img.jpg", "pixels")
		testutil.WriteFile(t, phone.Path, "img.jpg", "pixels")

		if err := e.svc.Backup(t.Context(), e.log, []string{cam.ID, phone.ID}, bak.ID); err != nil {
			t.Fatalf("Backup() error = %v", err)
		}
		if n := len(e.files(t, bak)); n != 1 {
			t.Errorf("backup has %d records, want 1", n)
		}
		for _, d := range []*usbb.Device{cam, phone} {
			stored, _ := e.catalog.GetDevice(d.ID)
			if stored.LastBackupDate == nil {
				t.Errorf("%s has no LastBackupDate", d.Name)
			}
		}
	})

	t.Run("existing target gets a numbered name", func(t *testing.T) {
		e := newEnv(t)
		src := e.source(t, "Camera")
		bak := e.backup(t, "Vault")
		testutil.WriteFile(t, src.Path, "a.txt", "new")
		testutil.WriteFile(t, bak.Path, "Camera/a.txt", "old")

		if err := e.svc.Backup(t.Context(), e.log, []string{src.ID}, bak.ID); err != nil {
			t.Fatalf("Backup() error = %v", err)
		}
		if got := testutil.ReadFile(t, bak.Path, "Camera/a.txt"); got != "old" {
			t.Errorf("existing file overwritten: %q", got)
		}
		if got := testutil.ReadFile(t, bak.Path, "Camera/a 001.txt"); got != "new" {
			t.Errorf("Camera/a 001.txt = %q", got)
		}
	})

	t.Run("files larger than free space are skipped", func(t *testing.T) {
		e := newEnv(t, usbb.WithDiskSpace(testutil.FixedDiskSpace(3, 100)))
		src := e.source(t, "Camera")
		bak := e.backup(t, "Vault")
		testutil.WriteFile(t, src.Path, "big.txt", "too large")
		testutil.WriteFile(t, src.Path, "small.txt", "ok")

		if err := e.svc.Backup(t.Context(), e.log, []string{src.ID}, bak.ID); err != nil {
			t.Fatalf("Backup() error = %v", err)
		}
		files := e.files(t, bak)
		if len(files) != 1 || files["Camera/small.txt"] == nil {
			t.Errorf("backup files = %v, want only small.txt", files)
		}
		if !e.log.Contains("warn", "not enough free space") {
			t.Error("missing free space warning")
		}
		stored, _ := e.catalog.GetDevice(src.ID)
		if stored.LastBackupDate != nil {
			t.Error("LastBackupDate set although a file is still pending")
		}
	})

	t.Run("offline source is skipped", func(t *testing.T) {
		e := newEnv(t)
		src := e.source(t, "Camera")
		bak := e.backup(t, "Vault")
		testutil.WriteFile(t, src.Path, "a.txt", "hello")
		testutil.RemoveFile(t, src.Path, usbb.MetaFileName(src.ID))

		if err := e.svc.Backup(t.Context(), e.log, []string{src.ID}, bak.ID); err != nil {
			t.Fatalf("Backup() error = %v", err)
		}
		if n := len(e.files(t, bak)); n != 0 {
			t.Errorf("backup has %d records, want 0", n)
		}
	})

	t.Run("backup device must exist and be online", func(t *testing.T) {
		e := newEnv(t)
		src := e.source(t, "Camera")
		bak := e.backup(t, "Vault")

		err := e.svc.Backup(t.Context(), e.log, []string{src.ID}, src.ID)
		if usbb.CodeOf(err) != usbb.ErrDeviceDoesNotExist {
			t.Errorf("source as backup: error = %v, want deviceDoesNotExist", err)
		}

		testutil.RemoveFile(t, bak.Path, usbb.MetaFileName(bak.ID))
		err = e.svc.Backup(t.Context(), e.log, []string{src.ID}, bak.ID)
		if usbb.CodeOf(err) != usbb.ErrDeviceIsNotOnline {
			t.Errorf("offline backup: error = %v, want deviceIsNotOnline", err)
		}
	})

	t.Run("free space is tracked across copies", func(t *testing.T) {
		space := &countingSpace{free: 8}
		e := newEnv(t, usbb.WithDiskSpace(space.diskSpace))
		src := e.source(t, "Camera")
		bak := e.backup(t, "Vault")
		testutil.WriteFile(t, src.Path, "a.txt", "alpha")
		testutil.WriteFile(t, src.Path, "b.txt", "bravo")
		space.path = bak.Path

		if err := e.svc.Backup(t.Context(), e.log, []string{src.ID}, bak.ID); err != nil {
			t.Fatalf("Backup() error = %v", err)
		}
		if n := len(e.files(t, bak)); n != 1 {
			t.Errorf("backup has %d records, want 1", n)
		}
		if !e.log.Contains("warn", "not enough free space on backup device") {
			t.Errorf("missing free space warning:\n%s", e.log)
		}
		// One query for the copy pass and one for the final stats refresh.
		if space.calls != 2 {
			t.Errorf("free space queried %d times, want 2", space.calls)
		}
	})

	t.Run("failed copy does not stop the run", func(t *testing.T) {
		space := &countingSpace{free: 1 << 20}
		e := newEnv(t, usbb.WithDiskSpace(space.diskSpace))
		src := e.source(t, "Camera")
		bak := e.backup(t, "Vault")
		testutil.WriteFile(t, src.Path, "a.txt", "alpha")
		testutil.WriteFile(t, src.Path, "b.txt", "bravo")
		space.path = bak.Path
		space.before = func() { testutil.RemoveFile(t, src.Path, "a.txt") }

		if err := e.svc.Backup(t.Context(), e.log, []string{src.ID}, bak.ID); err != nil {
			t.Fatalf("Backup() error = %v", err)
		}
		files := e.files(t, bak)
		if len(files) != 1 || files["Camera/b.txt"] == nil {
			t.Errorf("backup files = %v, want only b.txt", files)
		}
		if !e.log.Contains("error", "backing up file") {
			t.Errorf("missing copy error:\n%s", e.log)
		}
		// The failed copy triggers a fresh free space query.
		if space.calls != 3 {
			t.Errorf("free space queried %d times, want 3", space.calls)
		}
		stored, _ := e.catalog.GetDevice(src.ID)
		if stored.LastBackupDate != nil {
			t.Error("LastBackupDate set although a file is still pending")
		}
	})

	t.Run("source changed after scan is copied with a warning", func(t *testing.T) {
		space := &countingSpace{free: 1 << 20}
		e := newEnv(t, usbb.WithDiskSpace(space.diskSpace))
		src := e.source(t, "Camera")
		bak := e.backup(t, "Vault")
		testutil.WriteFile(t, src.Path, "a.txt", "alpha")
		space.path = bak.Path
		space.before = func() { testutil.WriteFile(t, src.Path, "a.txt", "ALPHA") }

		if err := e.svc.Backup(t.Context(), e.log, []string{src.ID}, bak.ID); err != nil {
			t.Fatalf("Backup() error = %v", err)
		}
		if !e.log.Contains("warn", "hash mismatch after copy") {
			t.Errorf("missing hash mismatch warning:\n%s", e.log)
		}
		if got := testutil.ReadFile(t, bak.Path, "Camera/a.txt"); got != "ALPHA" {
			t.Errorf("Camera/a.txt = %q", got)
		}
		files := e.files(t, bak)
		if f := files["Camera/a.txt"]; f == nil || f.Hash != testutil.SHA256Hex([]byte("ALPHA")) {
			t.Errorf("Camera/a.txt record = %+v, want the copied content's hash", f)
		}
	})
}
