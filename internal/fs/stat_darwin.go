//go:build darwin

package fs

import (
	"io/fs"
	"syscall"
)

// BirthtimeMs returns the creation time recorded in info, or 0.
func BirthtimeMs(_ string, info fs.FileInfo) int64 {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0
	}
	return st.Birthtimespec.Sec*1000 + st.Birthtimespec.Nsec/1_000_000
}
