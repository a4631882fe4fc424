//go:build windows

package fs

import (
	"io/fs"
	"syscall"
)

// BirthtimeMs returns the creation time recorded in info, or 0.
func BirthtimeMs(_ string, info fs.FileInfo) int64 {
	data, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return 0
	}
	return data.CreationTime.Nanoseconds() / 1_000_000
}
