//go:build linux || darwin || freebsd

package fs

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DiskSpace reports free and total bytes of the filesystem holding path.
func DiskSpace(path string) (*Space, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return nil, fmt.Errorf("statfs %s: %w", path, err)
	}
	bsize := uint64(st.Bsize)
	return &Space{
		Free:  int64(uint64(st.Bavail) * bsize),
		Total: int64(uint64(st.Blocks) * bsize),
	}, nil
}
