package usbb_test

import (
	"context"
	"errors"
	"os"
	"runtime"
	"testing"
	"time"

	"usbb-go/internal/database"
	"usbb-go/internal/testutil"
	"usbb-go/internal/usbb"
)

// unplugCatalog runs unplug before the first file is added, standing in for a
// device that is removed while it is being scanned.
type unplugCatalog struct {
	*database.SQLiteCatalog
	unplug func()
}

func (c *unplugCatalog) AddFile(file *usbb.File) error {
	if c.unplug != nil {
		c.unplug()
		c.unplug = nil
	}
	return c.SQLiteCatalog.AddFile(file)
}

func writeTree(t *testing.T, root string) {
	t.Helper()
	testutil.WriteFile(t, root, "a.txt", "alpha")
	testutil.WriteFile(t, root, "b.txt", "bravo")
	testutil.WriteFile(t, root, "f1/c.txt", "charlie")
	testutil.WriteFile(t, root, "f1/f2/d.txt", "delta")
	testutil.WriteFile(t, root, "f1/f2/e.txt", "echo")
}

func TestService_ScanDevice(t *testing.T) {
	t.Run("records every file once", func(t *testing.T) {
		e := newEnv(t)
		d := e.source(t, "Camera")
		writeTree(t, d.Path)

		stats := e.scan(t, d, false)
		if stats.Added != 5 || stats.Deleted != 0 || stats.Errors != 0 {
			t.Errorf("stats = %+v, want 5 added", stats)
		}

		files := e.files(t, d)
		if len(files) != 5 {
			t.Fatalf("got %d records, want 5", len(files))
		}
		d2 := files["f1/f2/d.txt"]
		if d2 == nil {
			t.Fatal("missing record for f1/f2/d.txt")
		}
		if d2.Hash != testutil.SHA256Hex([]byte("delta")) || d2.Size != 5 || d2.DeviceType != usbb.DeviceTypeSource {
			t.Errorf("record = %+v", d2)
		}
		if d2.ID != usbb.FileID(d.ID, usbb.Fingerprint{
			RelativePath: d2.RelativePath, MtimeMs: d2.MtimeMs, BirthtimeMs: d2.BirthtimeMs, Size: d2.Size,
		}) {
			t.Error("record id is not derived from its fingerprint")
		}

		meta, _ := usbb.ReadMetaFile(d.Path)
		if len(meta.Files) != 5 {
			t.Errorf("meta-file lists %d files, want 5", len(meta.Files))
		}
		stored, _ := e.catalog.GetDevice(d.ID)
		if stored.LastScanDate == nil || !stored.LastScanDate.Equal(e.clock.Now()) {
			t.Errorf("LastScanDate = %v", stored.LastScanDate)
		}
	})

	t.Run("rescan of an unchanged tree changes nothing", func(t *testing.T) {
		e := newEnv(t)
		d := e.source(t, "Camera")
		writeTree(t, d.Path)
		e.scan(t, d, false)
		before := e.files(t, d)

		e.clock.Advance(time.Hour)
		stats := e.scan(t, d, false)
		if stats.Unchanged != 5 || stats.Added != 0 || stats.Deleted != 0 {
			t.Errorf("stats = %+v, want 5 unchanged", stats)
		}
		for rel, f := range e.files(t, d) {
			if !f.EditDate.Equal(before[rel].EditDate) {
				t.Errorf("%s edit date changed", rel)
			}
		}
	})

	t.Run("removed file is marked deleted", func(t *testing.T) {
		e := newEnv(t)
		d := e.source(t, "Camera")
		writeTree(t, d.Path)
		e.scan(t, d, false)

		testutil.RemoveFile(t, d.Path, "f1/c.txt")
		stats := e.scan(t, d, false)
		if stats.Deleted != 1 {
			t.Errorf("Deleted = %d, want 1", stats.Deleted)
		}

		all, _ := e.catalog.GetFilesByDevice(d.ID, true)
		deleted := 0
		for _, f := range all {
			if f.Deleted {
				deleted++
				if f.RelativePath != "f1/c.txt" {
					t.Errorf("wrong file deleted: %s", f.RelativePath)
				}
			}
		}
		if deleted != 1 {
			t.Errorf("%d deleted records, want 1", deleted)
		}
		meta, _ := usbb.ReadMetaFile(d.Path)
		if len(meta.Files) != 4 {
			t.Errorf("meta-file lists %d files, want 4", len(meta.Files))
		}
	})

	t.Run("edited file gets a new record", func(t *testing.T) {
		e := newEnv(t)
		d := e.source(t, "Camera")
		p := testutil.WriteFile(t, d.Path, "notes.txt", "v1")
		testutil.SetMtime(t, p, baseTime)
		e.scan(t, d, false)

		testutil.WriteFile(t, d.Path, "notes.txt", "v2 longer")
		testutil.SetMtime(t, p, baseTime.Add(time.Minute))
		stats := e.scan(t, d, false)
		if stats.Added != 1 || stats.Deleted != 1 {
			t.Errorf("stats = %+v, want 1 added and 1 deleted", stats)
		}
		if got := e.files(t, d)["notes.txt"]; got == nil || got.Hash != testutil.SHA256Hex([]byte("v2 longer")) {
			t.Errorf("notes.txt record = %+v", got)
		}
	})

	t.Run("moved file reuses its hash", func(t *testing.T) {
		e := newEnv(t)
		d := e.source(t, "Camera")
		testutil.WriteFileAt(t, d.Path, "2023/photo.jpg", "pixels", baseTime)
		e.scan(t, d, false)
		oldHash := e.files(t, d)["2023/photo.jpg"].Hash

		testutil.MoveFile(t, d.Path, "2023/photo.jpg", "archive/photo.jpg")
		stats := e.scan(t, d, false)
		if stats.Moved != 1 || stats.Added != 0 || stats.Deleted != 0 {
			t.Errorf("stats = %+v, want 1 moved", stats)
		}

		moved := e.files(t, d)["archive/photo.jpg"]
		if moved == nil || moved.Hash != oldHash {
			t.Fatalf("moved record = %+v", moved)
		}
		all, _ := e.catalog.GetFilesByDevice(d.ID, true)
		if len(all) != 1 {
			t.Errorf("got %d records including deleted, want 1", len(all))
		}
		if !e.log.Contains("info", "file moved") {
			t.Error("move not logged")
		}
	})

	t.Run("full scan rehashes moved files", func(t *testing.T) {
		e := newEnv(t)
		d := e.source(t, "Camera")
		testutil.WriteFileAt(t, d.Path, "2023/photo.jpg", "pixels", baseTime)
		e.scan(t, d, false)

		testutil.MoveFile(t, d.Path, "2023/photo.jpg", "archive/photo.jpg")
		stats := e.scan(t, d, true)
		if stats.Moved != 0 || stats.Added != 1 || stats.Deleted != 1 {
			t.Errorf("stats = %+v, want 1 added and 1 deleted", stats)
		}
		all, _ := e.catalog.GetFilesByDevice(d.ID, true)
		if len(all) != 2 {
			t.Errorf("got %d records including deleted, want 2", len(all))
		}
	})

	t.Run("moved file with a twin is recorded once", func(t *testing.T) {
		e := newEnv(t)
		d := e.source(t, "Camera")
		testutil.WriteFileAt(t, d.Path, "a/img.jpg", "same", baseTime)
		testutil.WriteFileAt(t, d.Path, "b/img.jpg", "same", baseTime)
		e.scan(t, d, false)

		testutil.MoveFile(t, d.Path, "a/img.jpg", "c/img.jpg")
		stats := e.scan(t, d, false)
		// Detected as a move only when the twins differ in birthtime.
		if stats.Moved+stats.Added != 1 {
			t.Errorf("stats = %+v, want the file recorded once", stats)
		}
		if e.files(t, d)["c/img.jpg"] == nil {
			t.Error("c/img.jpg not recorded")
		}
	})

	t.Run("file that reappears is undeleted", func(t *testing.T) {
		e := newEnv(t)
		d := e.source(t, "Camera")
		testutil.WriteFile(t, d.Path, "a.txt", "alpha")
		e.scan(t, d, false)
		id := e.files(t, d)["a.txt"].ID

		// Hidden directories are not scanned.
		testutil.MoveFile(t, d.Path, "a.txt", ".stash/a.txt")
		if stats := e.scan(t, d, false); stats.Deleted != 1 {
			t.Fatalf("Deleted = %d, want 1", stats.Deleted)
		}

		testutil.MoveFile(t, d.Path, ".stash/a.txt", "a.txt")
		stats := e.scan(t, d, false)
		if stats.Undeleted != 1 || stats.Added != 0 {
			t.Errorf("stats = %+v, want 1 undeleted", stats)
		}
		f, _ := e.catalog.GetFile(id)
		if f == nil || f.Deleted {
			t.Errorf("record = %+v, want undeleted", f)
		}
	})

	t.Run("ignore patterns from config and device", func(t *testing.T) {
		e := newEnv(t, usbb.WithIgnorePatterns([]string{"*.tmp"}))
		d := e.source(t, "Camera")
		testutil.WriteFile(t, d.Path, "keep.txt", "k")
		testutil.WriteFile(t, d.Path, "scratch.tmp", "t")
		testutil.WriteFile(t, d.Path, "cache/thumb.bin", "c")
		testutil.WriteFile(t, d.Path, ".git/config", "g")
		testutil.WriteFile(t, d.Path, ".usbbignore", "cache/*\n")

		e.scan(t, d, false)
		files := e.files(t, d)
		if len(files) != 1 || files["keep.txt"] == nil {
			t.Errorf("files = %v, want only keep.txt", files)
		}
	})

	t.Run("cancelled scan deletes nothing", func(t *testing.T) {
		e := newEnv(t)
		d := e.source(t, "Camera")
		writeTree(t, d.Path)
		e.scan(t, d, false)
		testutil.RemoveFile(t, d.Path, "a.txt")

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		_, err := e.svc.ScanDevice(ctx, e.log, d, false)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("ScanDevice() error = %v, want context.Canceled", err)
		}
		if n := len(e.files(t, d)); n != 5 {
			t.Errorf("%d undeleted records, want 5", n)
		}
	})
}

func TestService_ScanDevice_unreadable(t *testing.T) {
	t.Run("device unplugged during scan keeps its records", func(t *testing.T) {
		e := newEnv(t)
		d := e.source(t, "Camera")
		writeTree(t, d.Path)
		e.scan(t, d, false)
		before, _ := e.catalog.GetDevice(d.ID)
		testutil.WriteFile(t, d.Path, "0new.txt", "new")

		catalog := &unplugCatalog{SQLiteCatalog: e.catalog, unplug: func() {
			if err := os.Rename(d.Path, d.Path+"-unplugged"); err != nil {
				t.Fatalf("Rename() error = %v", err)
			}
		}}
		svc := usbb.NewService(catalog, e.log, e.clock, testutil.NewStubIDGenerator(),
			usbb.WithDiskSpace(testutil.FixedDiskSpace(1<<30, 1<<31)))
		e.clock.Advance(time.Hour)

		stats, err := svc.ScanDevice(t.Context(), e.log, d, false)
		if usbb.CodeOf(err) != usbb.ErrDeviceIsNotOnline {
			t.Fatalf("ScanDevice() error = %v, want %s", err, usbb.ErrDeviceIsNotOnline)
		}
		if stats.Deleted != 0 || stats.Errors == 0 {
			t.Errorf("stats = %+v, want errors and no deletions", stats)
		}
		files := e.files(t, d)
		for _, rel := range []string{"a.txt", "b.txt", "f1/c.txt", "f1/f2/d.txt", "f1/f2/e.txt"} {
			if files[rel] == nil {
				t.Errorf("%s was marked deleted", rel)
			}
		}
		after, _ := e.catalog.GetDevice(d.ID)
		if !after.LastScanDate.Equal(*before.LastScanDate) {
			t.Errorf("LastScanDate = %v, want unchanged %v", after.LastScanDate, before.LastScanDate)
		}
		if !e.log.Contains("warn", "device went offline during scan") {
			t.Errorf("expected an offline warning:\n%s", e.log)
		}
	})

	t.Run("unreadable folder keeps the records under it", func(t *testing.T) {
		if runtime.GOOS == "windows" || os.Geteuid() == 0 {
			t.Skip("directory permissions are not enforced")
		}
		e := newEnv(t)
		d := e.source(t, "Camera")
		writeTree(t, d.Path)
		e.scan(t, d, false)
		testutil.RemoveFile(t, d.Path, "a.txt")

		locked := d.Path + "/f1/f2"
		if err := os.Chmod(locked, 0o000); err != nil {
			t.Fatalf("Chmod() error = %v", err)
		}
		t.Cleanup(func() { os.Chmod(locked, 0o755) })

		stats := e.scan(t, d, false)
		if stats.Deleted != 1 || stats.Errors != 1 {
			t.Errorf("stats = %+v, want 1 deleted and 1 error", stats)
		}
		files := e.files(t, d)
		if files["a.txt"] != nil {
			t.Error("a.txt was not marked deleted")
		}
		if files["f1/f2/d.txt"] == nil || files["f1/f2/e.txt"] == nil {
			t.Errorf("records under the unreadable folder were deleted: %v", files)
		}
	})
}

func TestService_ScanDevices(t *testing.T) {
	e := newEnv(t)
	online := e.source(t, "Camera")
	offline := e.source(t, "Phone")
	testutil.WriteFile(t, online.Path, "a.txt", "alpha")
	testutil.WriteFile(t, offline.Path, "b.txt", "bravo")
	testutil.RemoveFile(t, offline.Path, usbb.MetaFileName(offline.ID))

	if err := e.svc.ScanDevices(t.Context(), e.log, []string{"missing", offline.ID, online.ID}, false); err != nil {
		t.Fatalf("ScanDevices() error = %v", err)
	}
	if len(e.files(t, online)) != 1 {
		t.Error("online device was not scanned")
	}
	if len(e.files(t, offline)) != 0 {
		t.Error("offline device was scanned")
	}
	if e.log.Count("warn") < 2 {
		t.Errorf("expected warnings for skipped devices:\n%s", e.log)
	}
}
