package usbb_test

import (
	"testing"
	"time"

	"usbb-go/internal/database"
	"usbb-go/internal/testutil"
	"usbb-go/internal/usbb"
)

var baseTime = time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

type env struct {
	catalog *database.SQLiteCatalog
	clock   *testutil.StubClock
	log     *testutil.RecordingLogger
	svc     *usbb.Service
}

func newEnv(t *testing.T, opts ...usbb.Option) *env {
	t.Helper()
	catalog := testutil.NewTestCatalog(t)
	clock := testutil.FixedClock()
	log := testutil.NewRecordingLogger()
	opts = append([]usbb.Option{usbb.WithDiskSpace(testutil.FixedDiskSpace(1<<30, 1<<31))}, opts...)
	svc := usbb.NewService(catalog, log, clock, testutil.NewStubIDGenerator(), opts...)
	return &env{catalog: catalog, clock: clock, log: log, svc: svc}
}

func (e *env) source(t *testing.T, name string) *usbb.Device {
	t.Helper()
	d, err := e.svc.CreateSource(t.TempDir(), name, "")
	if err != nil {
		t.Fatalf("CreateSource() error = %v", err)
	}
	return d
}

func (e *env) backup(t *testing.T, name string) *usbb.Device {
	t.Helper()
	d, err := e.svc.CreateBackup(t.TempDir(), name, "")
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	return d
}

func (e *env) scan(t *testing.T, d *usbb.Device, full bool) *usbb.ScanStats {
	t.Helper()
	stats, err := e.svc.ScanDevice(t.Context(), e.log, d, full)
	if err != nil {
		t.Fatalf("ScanDevice() error = %v\n%s", err, e.log)
	}
	return stats
}

func (e *env) files(t *testing.T, d *usbb.Device) map[string]*usbb.File {
	t.Helper()
	files, err := e.catalog.GetFilesByDevice(d.ID, false)
	if err != nil {
		t.Fatalf("GetFilesByDevice() error = %v", err)
	}
	out := make(map[string]*usbb.File, len(files))
	for _, f := range files {
		out[f.RelativePath] = f
	}
	return out
}
