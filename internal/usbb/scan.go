package usbb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"usbb-go/internal/fs"
	"usbb-go/internal/metrics"
)

// ScanStats summarises what a scan changed in the catalog.
type ScanStats struct {
	Added     int
	Moved     int
	Undeleted int
	Deleted   int
	Unchanged int
	Errors    int
}

// ScanDevices scans each device in turn. Missing and offline devices are
// skipped with a warning. Only cancellation ends the run early.
func (s *Service) ScanDevices(ctx context.Context, log Logger, ids []string, fullScan bool) error {
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		device, err := s.catalog.GetDevice(id)
		if err != nil {
			log.Error("loading device", "device_id", id, "error", err)
			continue
		}
		if device == nil {
			log.Warn("device does not exist, skipping scan", "device_id", id)
			continue
		}
		if !s.IsOnline(device) {
			log.Warn("device is not online, skipping scan", "device", device.Name)
			continue
		}

		if _, err := s.ScanDevice(ctx, log, device, fullScan); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			log.Error("scan failed", "device", device.Name, "error", err)
		}
	}
	return nil
}

// ScanDevice reconciles the device's file tree with its catalog records.
//
// Files whose fingerprint is already cataloged are left untouched. New
// fingerprints are hashed and inserted, except that outside a full scan a
// single undeleted record with the same basename, size and times whose path
// has vanished is treated as a move: its hash is reused and the old record is
// hard-deleted. Records not seen during the walk are soft-deleted, unless the
// walk was stopped early. A device that goes offline during the walk, or whose
// root cannot be listed, keeps all its records; records under any other
// directory that could not be listed are kept as well.
func (s *Service) ScanDevice(ctx context.Context, log Logger, device *Device, fullScan bool) (*ScanStats, error) {
	log.Info("scanning device", "device", device.Name, "path", device.Path, "full_scan", fullScan)

	patterns, err := fs.ParseIgnoreFile(fs.Join(device.Path, fs.IgnoreFileName))
	if err != nil {
		log.Warn("reading ignore file", "device", device.Name, "error", err)
	}
	rules := fs.DefaultIgnoreRules(append(append([]string{}, s.ignorePatterns...), patterns...))

	ids, err := s.catalog.GetFileIDsByDevice(device.ID)
	if err != nil {
		return nil, fmt.Errorf("loading file ids: %w", err)
	}
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	stats := &ScanStats{}
	seen := make(map[string]bool, len(ids))
	sc := &scanner{svc: s, log: log, device: device, fullScan: fullScan, known: known, seen: seen, stats: stats}

	var unreadDirs []string
	rootUnread := false
	walkErr := fs.NewWalker(rules, log).Walk(ctx, device.Path, func(err error, v *fs.Visit) error {
		if err != nil {
			stats.Errors++
			var we *fs.WalkError
			if errors.As(err, &we) {
				log.Error("cannot read path", "path", we.Path, "op", we.Op, "error", we.Err)
				if we.Op == "readdir" {
					rel, relErr := fs.RelativePath(device.Path, we.Path)
					if relErr != nil || rel == "." {
						rootUnread = true
					} else {
						unreadDirs = append(unreadDirs, rel+"/")
					}
				}
			} else {
				log.Error("walk error", "error", err)
			}
			return nil
		}
		if err := sc.visit(v); err != nil {
			stats.Errors++
			return err
		}
		return nil
	})
	if walkErr != nil {
		log.Warn("scan stopped before completion", "device", device.Name, "error", walkErr)
		return stats, walkErr
	}
	if rootUnread || !s.IsOnline(device) {
		log.Warn("device went offline during scan, keeping catalog records", "device", device.Name)
		return stats, Errorf(ErrDeviceIsNotOnline, "device %s went offline during scan", device.Name)
	}

	missing, err := s.missingFiles(device, known, seen, unreadDirs)
	if err != nil {
		return stats, err
	}
	now := s.clock.Now()
	if len(missing) > 0 {
		if err := s.catalog.DeleteFiles(missing, now); err != nil {
			return stats, fmt.Errorf("marking missing files deleted: %w", err)
		}
		stats.Deleted = len(missing)
		metrics.FilesMarkedDeleted.Add(float64(len(missing)))
	}

	if err := s.catalog.UpdateScanDate(device.ID, now); err != nil {
		return stats, fmt.Errorf("updating scan date: %w", err)
	}
	if err := s.WriteMetaFile(device); err != nil {
		return stats, err
	}

	log.Info("scan complete", "device", device.Name,
		"added", stats.Added, "moved", stats.Moved, "undeleted", stats.Undeleted,
		"deleted", stats.Deleted, "unchanged", stats.Unchanged, "errors", stats.Errors)
	return stats, nil
}

// missingFiles returns the ids of known records the walk did not see, leaving
// out those under a directory that could not be listed.
func (s *Service) missingFiles(device *Device, known, seen map[string]bool, unreadDirs []string) ([]string, error) {
	var missing []string
	for id := range known {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 || len(unreadDirs) == 0 {
		return missing, nil
	}

	files, err := s.catalog.GetFilesByDevice(device.ID, false)
	if err != nil {
		return nil, fmt.Errorf("loading files: %w", err)
	}
	unread := make(map[string]bool)
	for _, f := range files {
		for _, dir := range unreadDirs {
			if strings.HasPrefix(f.RelativePath, dir) {
				unread[f.ID] = true
				break
			}
		}
	}
	kept := missing[:0]
	for _, id := range missing {
		if !unread[id] {
			kept = append(kept, id)
		}
	}
	return kept, nil
}

type scanner struct {
	svc      *Service
	log      Logger
	device   *Device
	fullScan bool
	known    map[string]bool // undeleted ids before the scan
	seen     map[string]bool
	stats    *ScanStats
}

func (sc *scanner) visit(v *fs.Visit) error {
	rel, err := fs.RelativePath(sc.device.Path, v.Path)
	if err != nil {
		return err
	}
	fp := Fingerprint{
		RelativePath: rel,
		MtimeMs:      fs.MtimeMs(v.Info),
		BirthtimeMs:  fs.BirthtimeMs(v.Path, v.Info),
		Size:         v.Info.Size(),
	}
	id := FileID(sc.device.ID, fp)
	sc.seen[id] = true

	if sc.known[id] {
		sc.stats.Unchanged++
		return nil
	}

	catalog := sc.svc.catalog
	existing, err := catalog.GetFile(id)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", rel, err)
	}
	if existing != nil {
		if err := catalog.UndeleteFile(id, sc.svc.clock.Now()); err != nil {
			return fmt.Errorf("undeleting %s: %w", rel, err)
		}
		sc.stats.Undeleted++
		sc.log.Debug("file reappeared", "path", rel)
		return nil
	}

	if !sc.fullScan {
		moved, err := sc.detectMove(id, fp, v.Filename)
		if err != nil {
			return err
		}
		if moved {
			return nil
		}
	}

	hash, err := fs.HashFile(v.Path)
	if err != nil {
		return err
	}
	metrics.FilesHashed.Inc()

	if err := catalog.AddFile(sc.newRecord(id, fp, hash)); err != nil {
		return fmt.Errorf("adding %s: %w", rel, err)
	}
	sc.stats.Added++
	sc.log.Debug("file added", "path", rel, "size", fp.Size)
	return nil
}

// detectMove reuses the record of a file that vanished from another path.
func (sc *scanner) detectMove(id string, fp Fingerprint, filename string) (bool, error) {
	candidates, err := sc.svc.catalog.FindSimilarFiles(sc.device.ID, fp.Size, filename, fp.BirthtimeMs, fp.MtimeMs)
	if err != nil {
		return false, fmt.Errorf("finding similar files: %w", err)
	}
	if len(candidates) != 1 {
		return false, nil
	}
	old := candidates[0]
	if fs.Exists(fs.Join(sc.device.Path, old.RelativePath)) {
		return false, nil
	}

	if err := sc.svc.catalog.AddFile(sc.newRecord(id, fp, old.Hash)); err != nil {
		return false, fmt.Errorf("adding %s: %w", fp.RelativePath, err)
	}
	if err := sc.svc.catalog.HardDeleteFile(old.ID); err != nil {
		return false, fmt.Errorf("removing moved record %s: %w", old.RelativePath, err)
	}
	delete(sc.known, old.ID)

	sc.stats.Moved++
	metrics.FilesMoved.Inc()
	sc.log.Info("file moved", "from", old.RelativePath, "to", fp.RelativePath)
	return true, nil
}

func (sc *scanner) newRecord(id string, fp Fingerprint, hash string) *File {
	now := sc.svc.clock.Now()
	return &File{
		ID:           id,
		DeviceID:     sc.device.ID,
		DeviceType:   sc.device.DeviceType,
		RelativePath: fp.RelativePath,
		MtimeMs:      fp.MtimeMs,
		BirthtimeMs:  fp.BirthtimeMs,
		Size:         fp.Size,
		Hash:         hash,
		AddDate:      now,
		EditDate:     now,
	}
}
