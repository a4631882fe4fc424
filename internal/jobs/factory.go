package jobs

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/goccy/go-json"

	"usbb-go/internal/usbb"
)

// ScanParams selects the devices a scan job walks.
type ScanParams struct {
	DeviceIDs []string `json:"deviceIds"`
	FullScan  bool     `json:"fullScan"`
}

// BackupParams selects the sources copied to one backup device.
type BackupParams struct {
	SourceDeviceIDs []string `json:"sourceDeviceIds"`
	BackupDeviceID  string   `json:"backupDeviceId"`
}

// DedupParams selects the backup devices to deduplicate.
type DedupParams struct {
	DeviceIDs []string `json:"deviceIds"`
}

// Factory builds jobs that run service operations. Job ids are
// "<name>-<n>" with n increasing for the life of the Factory.
type Factory struct {
	svc  *usbb.Service
	next atomic.Int64
}

// NewFactory creates a Factory for svc.
func NewFactory(svc *usbb.Service) *Factory {
	return &Factory{svc: svc}
}

func (f *Factory) newJob(name, description string, params any, run Func) *Job {
	data, _ := json.Marshal(params)
	return &Job{
		ID:          fmt.Sprintf("%s-%d", name, f.next.Add(1)),
		Name:        name,
		Description: description,
		Context:     data,
		Run:         run,
	}
}

// deviceNames renders device ids as their names, keeping the id for devices
// that cannot be found.
func (f *Factory) deviceNames(ids ...string) string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		d, err := f.svc.GetDevice(id)
		if err != nil || d == nil {
			names = append(names, id)
			continue
		}
		names = append(names, d.Name)
	}
	return strings.Join(names, ", ")
}

func (f *Factory) NewScanJob(p ScanParams) *Job {
	desc := "Scan " + f.deviceNames(p.DeviceIDs...)
	if p.FullScan {
		desc = "Full scan " + f.deviceNames(p.DeviceIDs...)
	}
	return f.newJob("scan", desc, p, func(ctx context.Context, log usbb.Logger) error {
		return f.svc.ScanDevices(ctx, log, p.DeviceIDs, p.FullScan)
	})
}

func (f *Factory) NewBackupJob(p BackupParams) *Job {
	desc := fmt.Sprintf("Back up %s to %s", f.deviceNames(p.SourceDeviceIDs...), f.deviceNames(p.BackupDeviceID))
	return f.newJob("backup", desc, p, func(ctx context.Context, log usbb.Logger) error {
		return f.svc.Backup(ctx, log, p.SourceDeviceIDs, p.BackupDeviceID)
	})
}

func (f *Factory) NewRestoreJob(req usbb.RestoreRequest) *Job {
	desc := fmt.Sprintf("Restore %s from %s to %s", strings.Join(req.Paths, ", "),
		f.deviceNames(req.BackupDeviceID), f.deviceNames(req.SourceDeviceID))
	return f.newJob("restore", desc, req, func(ctx context.Context, log usbb.Logger) error {
		_, err := f.svc.Restore(ctx, log, req)
		return err
	})
}

func (f *Factory) NewDedupJob(p DedupParams) *Job {
	return f.newJob("dedup", "Remove duplicates on "+f.deviceNames(p.DeviceIDs...), p, func(ctx context.Context, log usbb.Logger) error {
		return f.svc.RemoveDuplicates(ctx, log, p.DeviceIDs)
	})
}
