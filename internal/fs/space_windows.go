//go:build windows

package fs

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// DiskSpace reports free and total bytes of the volume holding path.
func DiskSpace(path string) (*Space, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, fmt.Errorf("encoding path: %w", err)
	}
	var free, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(p, &free, &total, &totalFree); err != nil {
		return nil, fmt.Errorf("querying free space of %s: %w", path, err)
	}
	return &Space{Free: int64(free), Total: int64(total)}, nil
}
