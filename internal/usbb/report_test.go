package usbb_test

import (
	"context"
	"testing"

	"usbb-go/internal/testutil"
	"usbb-go/internal/usbb"
)

func TestService_Report(t *testing.T) {
	t.Run("source device", func(t *testing.T) {
		e := newEnv(t)
		src := e.source(t, "Camera")
		bak := e.backup(t, "Vault")
		testutil.WriteFile(t, src.Path, "a.txt", "hello")
		testutil.WriteFile(t, src.Path, "b.txt", "world")
		testutil.WriteFile(t, bak.Path, "a.txt", "hello")
		e.scan(t, src, false)
		e.scan(t, bak, false)

		r, err := e.svc.Report(t.Context(), src.ID, false)
		if err != nil {
			t.Fatalf("Report() error = %v", err)
		}
		if !r.Online || r.Files != 2 || r.TotalSize != 10 {
			t.Errorf("report = %+v", r)
		}
		if len(r.BackedUp) != 1 || r.BackedUp[0].RelativePath != "a.txt" {
			t.Errorf("BackedUp = %v", r.BackedUp)
		}
		if len(r.PendingBackup) != 1 || r.PendingBackup[0].RelativePath != "b.txt" {
			t.Errorf("PendingBackup = %v", r.PendingBackup)
		}
	})

	t.Run("backup device", func(t *testing.T) {
		e := newEnv(t)
		src := e.source(t, "Camera")
		bak := e.backup(t, "Vault")
		testutil.WriteFile(t, src.Path, "a.txt", "hello")
		testutil.WriteFile(t, bak.Path, "a.txt", "hello")
		testutil.WriteFile(t, bak.Path, "a2.txt", "hello")
		testutil.WriteFile(t, bak.Path, "old.txt", "gone from sources")
		e.scan(t, src, false)
		e.scan(t, bak, false)

		r, err := e.svc.Report(t.Context(), bak.ID, false)
		if err != nil {
			t.Fatalf("Report() error = %v", err)
		}
		if len(r.Duplicates) != 1 || r.Duplicates[0].RelativePath != "a2.txt" {
			t.Errorf("Duplicates = %v", r.Duplicates)
		}
		if len(r.Orphaned) != 1 || r.Orphaned[0].RelativePath != "old.txt" {
			t.Errorf("Orphaned = %v", r.Orphaned)
		}

		info, err := e.svc.RefreshDeviceStats(bak)
		if err != nil {
			t.Fatalf("RefreshDeviceStats() error = %v", err)
		}
		if info.OrphanSize != int64(len("gone from sources")) || info.FreeSpace != 1<<30 || info.TotalSpace != 1<<31 {
			t.Errorf("space info = %+v", info)
		}
	})

	t.Run("verify finds modified and missing files", func(t *testing.T) {
		e := newEnv(t)
		src := e.source(t, "Camera")
		testutil.WriteFileAt(t, src.Path, "edited.txt", "hello", baseTime)
		testutil.WriteFile(t, src.Path, "gone.txt", "bye")
		testutil.WriteFile(t, src.Path, "fine.txt", "ok")
		e.scan(t, src, false)

		testutil.WriteFileAt(t, src.Path, "edited.txt", "jello", baseTime)
		testutil.RemoveFile(t, src.Path, "gone.txt")

		r, err := e.svc.Report(t.Context(), src.ID, true)
		if err != nil {
			t.Fatalf("Report() error = %v", err)
		}
		if len(r.Modified) != 1 || r.Modified[0].RelativePath != "edited.txt" {
			t.Errorf("Modified = %v", r.Modified)
		}
		if len(r.Missing) != 1 || r.Missing[0].RelativePath != "gone.txt" {
			t.Errorf("Missing = %v", r.Missing)
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		e := newEnv(t)
		if _, err := e.svc.Report(t.Context(), "nope", false); usbb.CodeOf(err) != usbb.ErrDeviceDoesNotExist {
			t.Errorf("error = %v, want deviceDoesNotExist", err)
		}
	})
}

func TestService_RefreshAllDeviceStats(t *testing.T) {
	e := newEnv(t)
	src := e.source(t, "Camera")
	e.backup(t, "Vault")
	testutil.WriteFile(t, src.Path, "a.txt", "hello")
	e.scan(t, src, false)

	n, err := e.svc.RefreshAllDeviceStats(e.log)
	if err != nil || n != 2 {
		t.Fatalf("RefreshAllDeviceStats() = %d, %v; want 2", n, err)
	}
	stored, _ := e.catalog.GetDevice(src.ID)
	if stored.UsedSize != 5 || stored.FreeSpace != 1<<30 {
		t.Errorf("stored stats = used %d free %d", stored.UsedSize, stored.FreeSpace)
	}
}

func TestDeviceMonitor_Serve(t *testing.T) {
	e := newEnv(t)
	src := e.source(t, "Camera")
	testutil.WriteFile(t, src.Path, "a.txt", "hello")
	e.scan(t, src, false)

	m := usbb.NewDeviceMonitor(e.svc, e.log, 0)
	if m.String() != "device-monitor" {
		t.Errorf("String() = %q", m.String())
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if err := m.Serve(ctx); err == nil {
		t.Error("Serve() returned nil after cancellation")
	}
	stored, _ := e.catalog.GetDevice(src.ID)
	if stored.UsedSize != 5 {
		t.Errorf("UsedSize = %d, want initial refresh to run", stored.UsedSize)
	}
}
