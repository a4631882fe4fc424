package usbb

import (
	"context"
	"fmt"

	"usbb-go/internal/fs"
)

// DeviceReport classifies a device's file records.
type DeviceReport struct {
	Device *Device `json:"device"`
	Online bool    `json:"online"`

	Files     int   `json:"files"`
	TotalSize int64 `json:"totalSize"`

	// Source devices
	BackedUp      []*File `json:"backedUp,omitempty"`
	PendingBackup []*File `json:"pendingBackup,omitempty"`

	// Backup devices
	Orphaned   []*File `json:"orphaned,omitempty"`
	Duplicates []*File `json:"duplicates,omitempty"`

	// Deleted lists soft-deleted records whose path is not in use anymore.
	Deleted []*File `json:"deleted,omitempty"`

	// Modified lists files whose content no longer matches the recorded hash
	// although size and times are unchanged. Only filled by a verifying report.
	Modified []*File `json:"modified,omitempty"`
	Missing  []*File `json:"missing,omitempty"`
}

// Report builds a DeviceReport. With verify set, every undeleted file of an
// online device is re-read to find content changes that a scan cannot see.
func (s *Service) Report(ctx context.Context, deviceID string, verify bool) (*DeviceReport, error) {
	device, err := s.GetDevice(deviceID)
	if err != nil {
		return nil, err
	}

	all, err := s.catalog.GetFilesByDevice(device.ID, true)
	if err != nil {
		return nil, fmt.Errorf("loading files: %w", err)
	}

	report := &DeviceReport{Device: device, Online: s.IsOnline(device)}
	live := make(map[string]bool)
	var undeleted []*File
	for _, f := range all {
		if !f.Deleted {
			undeleted = append(undeleted, f)
			live[f.RelativePath] = true
			report.Files++
			report.TotalSize += f.Size
		}
	}
	for _, f := range all {
		if f.Deleted && !live[f.RelativePath] {
			report.Deleted = append(report.Deleted, f)
		}
	}

	switch device.DeviceType {
	case DeviceTypeSource:
		pending, err := s.catalog.GetSourceFilesPendingBackup(device.ID)
		if err != nil {
			return nil, fmt.Errorf("finding files to back up: %w", err)
		}
		isPending := make(map[string]bool, len(pending))
		for _, f := range pending {
			isPending[f.ID] = true
		}
		report.PendingBackup = pending
		for _, f := range undeleted {
			if !isPending[f.ID] {
				report.BackedUp = append(report.BackedUp, f)
			}
		}
	case DeviceTypeBackup:
		seen := make(map[string]bool)
		for _, f := range undeleted {
			if seen[f.Hash] {
				report.Duplicates = append(report.Duplicates, f)
				continue
			}
			seen[f.Hash] = true
			sources, err := s.catalog.FindFilesByHashAndDeviceType(f.Hash, DeviceTypeSource)
			if err != nil {
				return nil, fmt.Errorf("finding source copies: %w", err)
			}
			if len(sources) == 0 {
				report.Orphaned = append(report.Orphaned, f)
			}
		}
	}

	if verify && report.Online {
		for _, f := range undeleted {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			p := fs.Join(device.Path, f.RelativePath)
			if !fs.Exists(p) {
				report.Missing = append(report.Missing, f)
				continue
			}
			hash, err := fs.HashFile(p)
			if err != nil {
				return nil, err
			}
			if hash != f.Hash {
				report.Modified = append(report.Modified, f)
			}
		}
	}
	return report, nil
}
