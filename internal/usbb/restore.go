package usbb

import (
	"context"
	"fmt"
	"path"
	"strings"

	"usbb-go/internal/fs"
	"usbb-go/internal/metrics"
)

// RestoreRequest names backup-side paths to copy back to a source device.
// A path ending in "/" denotes a folder and restores its whole subtree.
type RestoreRequest struct {
	BackupDeviceID string   `json:"backupDeviceId"`
	SourceDeviceID string   `json:"sourceDeviceId"`
	Destination    string   `json:"destination"`
	Paths          []string `json:"paths"`
}

// RestoreStats summarises a restore run.
type RestoreStats struct {
	Restored int
	Skipped  int
	Failed   int
}

type restoreItem struct {
	file   *File
	target string // relative to the source device root
}

// Restore copies the requested files from the backup device to
// Destination on the source device. A single file lands at
// Destination/<basename>; a folder lands at Destination/<folder name>/<rest>.
// Files whose content already exists on a source device are skipped. Device
// stats and the source meta-file are refreshed even when the run fails.
func (s *Service) Restore(ctx context.Context, log Logger, req RestoreRequest) (*RestoreStats, error) {
	backup, err := s.requireDevice(req.BackupDeviceID, DeviceTypeBackup)
	if err != nil {
		return nil, err
	}
	source, err := s.requireDevice(req.SourceDeviceID, DeviceTypeSource)
	if err != nil {
		return nil, err
	}

	stats := &RestoreStats{}
	defer func() {
		if _, err := s.RefreshDeviceStats(source); err != nil {
			log.Warn("refreshing device stats", "device", source.Name, "error", err)
		}
		if err := s.WriteMetaFile(source); err != nil {
			log.Error("writing meta-file", "device", source.Name, "error", err)
		}
	}()

	dest := strings.TrimSuffix(fs.NormalizeRelative(req.Destination), "/")
	for _, requested := range req.Paths {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		items, err := s.resolveRestore(backup, requested, dest)
		if err != nil {
			stats.Failed++
			log.Error("resolving restore path", "path", requested, "error", err)
			continue
		}
		if len(items) == 0 {
			stats.Failed++
			log.Error("nothing to restore at path", "path", requested)
			continue
		}
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			restored, err := s.restoreFile(log, backup, source, item)
			switch {
			case err != nil:
				stats.Failed++
				log.Error("restoring file", "path", item.file.RelativePath, "error", err)
			case restored:
				stats.Restored++
			default:
				stats.Skipped++
			}
		}
	}

	log.Info("restore complete", "from", backup.Name, "to", source.Name,
		"restored", stats.Restored, "skipped", stats.Skipped, "failed", stats.Failed)
	return stats, nil
}

// resolveRestore expands a requested path into backup records and their
// targets on the source device.
func (s *Service) resolveRestore(backup *Device, requested, dest string) ([]restoreItem, error) {
	norm := fs.NormalizeRelative(requested)
	folder := norm == "" || strings.HasSuffix(norm, "/")

	files, err := s.catalog.FindFilesByPathPrefix(backup.ID, norm)
	if err != nil {
		return nil, fmt.Errorf("finding files under %q: %w", norm, err)
	}

	var items []restoreItem
	if !folder {
		for _, f := range files {
			if f.RelativePath == norm {
				items = append(items, restoreItem{file: f, target: path.Join(dest, path.Base(norm))})
			}
		}
		return items, nil
	}

	base := ""
	if norm != "" {
		base = path.Base(strings.TrimSuffix(norm, "/"))
	}
	for _, f := range files {
		rest := strings.TrimPrefix(f.RelativePath, norm)
		items = append(items, restoreItem{file: f, target: path.Join(dest, base, rest)})
	}
	return items, nil
}

// restoreFile copies one backup file to the source device. It reports false
// without error when the file was skipped on purpose.
func (s *Service) restoreFile(log Logger, backup, source *Device, item restoreItem) (bool, error) {
	f := item.file
	src := fs.Join(backup.Path, f.RelativePath)
	if !fs.Exists(src) {
		return false, fmt.Errorf("backup file is missing: %s", src)
	}

	existing, err := s.catalog.FindFilesByHashAndDeviceType(f.Hash, DeviceTypeSource)
	if err != nil {
		return false, fmt.Errorf("checking source devices for content: %w", err)
	}
	if len(existing) > 0 {
		log.Info("content already on a source device, skipping",
			"path", f.RelativePath, "existing", existing[0].RelativePath)
		return false, nil
	}

	res, err := fs.CopyWithHash(src, fs.Join(source.Path, item.target), fs.CopyOptions{Overwrite: true})
	if err != nil {
		return false, err
	}
	mismatch := res.Hash != f.Hash
	if mismatch {
		log.Warn("hash mismatch after restore", "path", item.target, "expected", f.Hash, "actual", res.Hash)
	}
	metrics.RecordCopy("restore", res.Size, mismatch)

	record, err := s.recordCopy(source, res)
	if err != nil {
		return true, err
	}

	// The overwritten file, if any, is no longer on disk.
	sameTarget, err := s.catalog.FindFilesByPathPrefix(source.ID, record.RelativePath)
	if err != nil {
		return true, fmt.Errorf("finding replaced records: %w", err)
	}
	var replaced []string
	for _, other := range sameTarget {
		if other.RelativePath == record.RelativePath && other.ID != record.ID {
			replaced = append(replaced, other.ID)
		}
	}
	if len(replaced) > 0 {
		if err := s.catalog.DeleteFiles(replaced, s.clock.Now()); err != nil {
			return true, fmt.Errorf("marking replaced records deleted: %w", err)
		}
	}

	log.Debug("file restored", "path", f.RelativePath, "to", record.RelativePath)
	return true, nil
}
