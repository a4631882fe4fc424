//go:build !linux && !darwin && !windows

package fs

import "io/fs"

// BirthtimeMs is always 0 where creation times are not available.
func BirthtimeMs(_ string, _ fs.FileInfo) int64 {
	return 0
}
