//go:build linux

package fs

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

// BirthtimeMs returns the creation time of path in milliseconds, or 0 when
// the filesystem does not record one.
func BirthtimeMs(path string, _ fs.FileInfo) int64 {
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &stx); err != nil {
		return 0
	}
	if stx.Mask&unix.STATX_BTIME == 0 {
		return 0
	}
	return stx.Btime.Sec*1000 + int64(stx.Btime.Nsec)/1_000_000
}
