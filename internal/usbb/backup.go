package usbb

import (
	"context"
	"fmt"
	"math"
	"os"

	"usbb-go/internal/fs"
	"usbb-go/internal/metrics"
)

// BackupStats summarises one source device's backup pass.
type BackupStats struct {
	Pending   int
	Copied    int
	Skipped   int // content already copied earlier in the run
	Failed    int
	BytesDone int64
}

// Backup copies every source file whose content is not yet on any backup
// device to the backup device. All involved devices are rescanned first.
// Problems with a single source device or file are logged and the run moves
// on; only an unusable backup device fails the whole run.
func (s *Service) Backup(ctx context.Context, log Logger, sourceIDs []string, backupID string) error {
	backup, err := s.requireDevice(backupID, DeviceTypeBackup)
	if err != nil {
		return err
	}

	scanIDs := append(append([]string{}, sourceIDs...), backupID)
	if err := s.ScanDevices(ctx, log, scanIDs, false); err != nil {
		return err
	}

	copied := make(map[string]bool)
	for _, id := range sourceIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.backupSource(ctx, log, id, backup, copied); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			log.Error("backup of device failed", "device_id", id, "error", err)
		}
	}

	if _, err := s.RefreshDeviceStats(backup); err != nil {
		log.Warn("refreshing backup device stats", "device", backup.Name, "error", err)
	}
	return nil
}

// backupSource runs the copy pass for one source device. copied holds the
// hashes already copied to the backup device during this run.
func (s *Service) backupSource(ctx context.Context, log Logger, sourceID string, backup *Device, copied map[string]bool) (*BackupStats, error) {
	source, err := s.catalog.GetDevice(sourceID)
	if err != nil {
		return nil, fmt.Errorf("loading device: %w", err)
	}
	if source == nil || !source.IsSource() {
		return nil, Errorf(ErrDeviceDoesNotExist, "source device %s does not exist", sourceID)
	}
	if !s.IsOnline(source) {
		log.Warn("source device is not online, skipping", "device", source.Name)
		return nil, nil
	}

	pending, err := s.catalog.GetSourceFilesPendingBackup(source.ID)
	if err != nil {
		return nil, fmt.Errorf("finding files to back up: %w", err)
	}
	stats := &BackupStats{Pending: len(pending)}
	log.Info("backing up device", "device", source.Name, "to", backup.Name, "files", len(pending))

	defer func() {
		if err := s.WriteMetaFile(backup); err != nil {
			log.Error("writing backup meta-file", "device", backup.Name, "error", err)
		}
	}()

	free := s.freeSpace(log, backup)
	targetRoot := fs.SanitizeName(source.Name)

	for _, f := range pending {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if copied[f.Hash] {
			stats.Skipped++
			log.Debug("content already copied in this run", "path", f.RelativePath)
			continue
		}
		if f.Size > free {
			stats.Failed++
			log.Warn("not enough free space on backup device", "path", f.RelativePath, "size", f.Size, "free", free)
			continue
		}

		size, err := s.copyToBackup(log, source, backup, targetRoot, f)
		if err != nil {
			stats.Failed++
			log.Error("backing up file", "path", f.RelativePath, "error", err)
			free = s.freeSpace(log, backup)
			continue
		}
		copied[f.Hash] = true
		free -= size
		stats.Copied++
		stats.BytesDone += size
	}

	remaining, err := s.catalog.GetSourceFilesPendingBackup(source.ID)
	if err != nil {
		return stats, fmt.Errorf("checking remaining files: %w", err)
	}
	if len(remaining) == 0 {
		if err := s.catalog.UpdateLastBackupDate(source.ID, s.clock.Now()); err != nil {
			return stats, fmt.Errorf("updating last backup date: %w", err)
		}
	} else {
		log.Warn("files left without a backup", "device", source.Name, "count", len(remaining))
	}

	log.Info("device backed up", "device", source.Name,
		"copied", stats.Copied, "skipped", stats.Skipped, "failed", stats.Failed, "bytes", stats.BytesDone)
	return stats, nil
}

// copyToBackup copies one source file to <backup>/<targetRoot>/<path> and
// records the copy. It returns the number of bytes written.
func (s *Service) copyToBackup(log Logger, source, backup *Device, targetRoot string, f *File) (int64, error) {
	src := fs.Join(source.Path, f.RelativePath)
	dest := fs.Join(backup.Path, targetRoot, f.RelativePath)

	res, err := fs.CopyWithHash(src, dest, fs.CopyOptions{AppendSuffix: true})
	if err != nil {
		return 0, err
	}
	mismatch := res.Hash != f.Hash
	if mismatch {
		log.Warn("hash mismatch after copy", "path", f.RelativePath, "expected", f.Hash, "actual", res.Hash)
	}
	metrics.RecordCopy("backup", res.Size, mismatch)

	record, err := s.recordCopy(backup, res)
	if err != nil {
		return res.Size, err
	}
	log.Debug("file backed up", "path", f.RelativePath, "to", record.RelativePath)
	return res.Size, nil
}

// recordCopy stats a freshly copied file and inserts its record. A record
// that already exists is undeleted instead.
func (s *Service) recordCopy(device *Device, res *fs.CopyResult) (*File, error) {
	rel, err := fs.RelativePath(device.Path, res.Path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(res.Path)
	if err != nil {
		return nil, err
	}
	fp := Fingerprint{
		RelativePath: rel,
		MtimeMs:      fs.MtimeMs(info),
		BirthtimeMs:  fs.BirthtimeMs(res.Path, info),
		Size:         info.Size(),
	}
	now := s.clock.Now()
	record := &File{
		ID:           FileID(device.ID, fp),
		DeviceID:     device.ID,
		DeviceType:   device.DeviceType,
		RelativePath: rel,
		MtimeMs:      fp.MtimeMs,
		BirthtimeMs:  fp.BirthtimeMs,
		Size:         fp.Size,
		Hash:         res.Hash,
		AddDate:      now,
		EditDate:     now,
	}

	existing, err := s.catalog.GetFile(record.ID)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", rel, err)
	}
	if existing != nil {
		if existing.Deleted {
			if err := s.catalog.UndeleteFile(record.ID, now); err != nil {
				return nil, fmt.Errorf("undeleting %s: %w", rel, err)
			}
		}
		return existing, nil
	}
	if err := s.catalog.AddFile(record); err != nil {
		return nil, fmt.Errorf("adding %s: %w", rel, err)
	}
	return record, nil
}

// freeSpace queries the backup device's free bytes. Platforms without a
// free-space query are treated as unlimited.
func (s *Service) freeSpace(log Logger, device *Device) int64 {
	space, err := s.diskSpace(device.Path)
	if err != nil {
		log.Debug("free space unknown", "device", device.Name, "error", err)
		return math.MaxInt64
	}
	return space.Free
}
