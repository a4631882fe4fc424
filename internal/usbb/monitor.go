package usbb

import (
	"context"
	"time"
)

// DeviceMonitor periodically refreshes the stats of every device. It runs
// as a supervised service.
type DeviceMonitor struct {
	svc      *Service
	log      Logger
	interval time.Duration
}

// NewDeviceMonitor creates a DeviceMonitor that refreshes every interval.
func NewDeviceMonitor(svc *Service, log Logger, interval time.Duration) *DeviceMonitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &DeviceMonitor{svc: svc, log: log, interval: interval}
}

// Serve refreshes once immediately and then on every tick until ctx ends.
func (m *DeviceMonitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		n, err := m.svc.RefreshAllDeviceStats(m.log)
		if err != nil {
			m.log.Error("refreshing device stats", "error", err)
		} else {
			m.log.Debug("device stats refreshed", "devices", n)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *DeviceMonitor) String() string { return "device-monitor" }
