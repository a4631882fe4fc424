//go:build !linux && !darwin && !freebsd && !windows

package fs

// DiskSpace is not available on this platform.
func DiskSpace(path string) (*Space, error) {
	return nil, ErrSpaceUnsupported
}
