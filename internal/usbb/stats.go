package usbb

import (
	"fmt"

	"usbb-go/internal/metrics"
)

// RefreshDeviceStats recomputes a device's used and orphan sizes from the
// catalog and, when the device is online, its free and total space.
func (s *Service) RefreshDeviceStats(device *Device) (*SpaceInfo, error) {
	usage, err := s.catalog.GetDeviceUsage(device.ID)
	if err != nil {
		return nil, fmt.Errorf("computing device usage: %w", err)
	}

	info := SpaceInfo{
		FreeSpace:  device.FreeSpace,
		TotalSpace: device.TotalSpace,
		UsedSize:   usage.UsedSize,
		OrphanSize: usage.OrphanSize,
	}
	if s.IsOnline(device) {
		if space, err := s.diskSpace(device.Path); err == nil {
			info.FreeSpace = space.Free
			info.TotalSpace = space.Total
		}
	}

	if err := s.catalog.UpdateSpaceInfo(device.ID, info); err != nil {
		return nil, fmt.Errorf("updating space info: %w", err)
	}
	device.FreeSpace, device.TotalSpace = info.FreeSpace, info.TotalSpace
	device.UsedSize, device.OrphanSize = info.UsedSize, info.OrphanSize

	metrics.RecordDeviceSpace(device.Name, info.UsedSize, info.FreeSpace, info.OrphanSize)
	return &info, nil
}

// RefreshAllDeviceStats refreshes every registered device and returns the
// number refreshed.
func (s *Service) RefreshAllDeviceStats(log Logger) (int, error) {
	devices, err := s.catalog.GetDevices()
	if err != nil {
		return 0, fmt.Errorf("listing devices: %w", err)
	}
	n := 0
	for _, d := range devices {
		if _, err := s.RefreshDeviceStats(d); err != nil {
			log.Warn("refreshing device stats", "device", d.Name, "error", err)
			continue
		}
		n++
	}
	return n, nil
}
