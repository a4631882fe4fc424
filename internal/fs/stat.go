package fs

import (
	"errors"
	"io/fs"
)

// ErrSpaceUnsupported is returned by DiskSpace on platforms without a
// free-space query.
var ErrSpaceUnsupported = errors.New("disk space query not supported on this platform")

// Space is the capacity of the filesystem holding a path, in bytes.
type Space struct {
	Free  int64
	Total int64
}

// MtimeMs returns the modification time floored to milliseconds.
func MtimeMs(info fs.FileInfo) int64 {
	return info.ModTime().UnixMilli()
}
