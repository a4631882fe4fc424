package usbb

import (
	"context"
	"errors"
	"os"

	"usbb-go/internal/fs"
	"usbb-go/internal/metrics"
)

// RemoveDuplicates deletes, on each backup device, every file whose content
// already exists earlier in the device's file list. The first occurrence of
// each hash is kept. Per-file failures are logged and skipped.
func (s *Service) RemoveDuplicates(ctx context.Context, log Logger, deviceIDs []string) error {
	for _, id := range deviceIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		device, err := s.requireDevice(id, DeviceTypeBackup)
		if err != nil {
			log.Error("cannot deduplicate device", "device_id", id, "error", err)
			continue
		}
		if _, err := s.dedupDevice(ctx, log, device); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			log.Error("deduplicating device", "device", device.Name, "error", err)
		}
	}
	return nil
}

func (s *Service) dedupDevice(ctx context.Context, log Logger, device *Device) (int, error) {
	files, err := s.catalog.GetFilesByDevice(device.ID, false)
	if err != nil {
		return 0, err
	}

	defer func() {
		if err := s.WriteMetaFile(device); err != nil {
			log.Error("writing meta-file", "device", device.Name, "error", err)
		}
		if _, err := s.RefreshDeviceStats(device); err != nil {
			log.Warn("refreshing device stats", "device", device.Name, "error", err)
		}
	}()

	removed := 0
	seen := make(map[string]string, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		kept, dup := seen[f.Hash]
		if !dup {
			seen[f.Hash] = f.RelativePath
			continue
		}

		p := fs.Join(device.Path, f.RelativePath)
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Error("removing duplicate", "path", f.RelativePath, "error", err)
			continue
		}
		if err := s.catalog.HardDeleteFile(f.ID); err != nil {
			log.Error("removing duplicate record", "path", f.RelativePath, "error", err)
			continue
		}
		removed++
		metrics.DuplicatesRemoved.Inc()
		log.Info("duplicate removed", "path", f.RelativePath, "kept", kept)
	}

	log.Info("deduplication complete", "device", device.Name, "removed", removed)
	return removed, nil
}
