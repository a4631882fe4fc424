package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// tempSuffix marks in-flight copies and meta-file writes.
const tempSuffix = ".usbb.tmp"

// ErrDestinationExists is returned by CopyWithHash when the destination
// exists and no collision policy was selected.
var ErrDestinationExists = errors.New("destination already exists")

// CopyOptions selects what happens when the destination already exists.
// Overwrite and AppendSuffix are mutually exclusive.
type CopyOptions struct {
	// Overwrite replaces an existing destination file.
	Overwrite bool
	// AppendSuffix writes to the next free "name 001.ext" style name instead.
	AppendSuffix bool
}

// CopyResult describes a completed copy.
type CopyResult struct {
	Path string // final destination, which differs from the requested one with AppendSuffix
	Hash string // SHA-256 of the bytes read from the source
	Size int64
}

// CopyWithHash copies src to dest while hashing the source stream, so the
// content is read exactly once. Data is written to a temporary sibling that
// is renamed into place only after it is complete; a failed copy removes the
// temporary file. The source modification time is preserved.
func CopyWithHash(src, dest string, opts CopyOptions) (*CopyResult, error) {
	if opts.Overwrite && opts.AppendSuffix {
		return nil, fmt.Errorf("overwrite and append-suffix are mutually exclusive")
	}

	in, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, fmt.Errorf("creating destination directory: %w", err)
	}

	switch {
	case opts.AppendSuffix:
		dest, err = UniqueFilename(dest)
		if err != nil {
			return nil, err
		}
	case !opts.Overwrite:
		if _, err := os.Lstat(dest); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrDestinationExists, dest)
		}
	}

	tmpPath := dest + tempSuffix
	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	h := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, h), in)
	if err != nil {
		out.Close()
		return nil, fmt.Errorf("copying data: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return nil, fmt.Errorf("syncing temp file: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chtimes(tmpPath, time.Now(), srcInfo.ModTime()); err != nil {
		return nil, fmt.Errorf("setting file times: %w", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return nil, fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return &CopyResult{
		Path: dest,
		Hash: hex.EncodeToString(h.Sum(nil)),
		Size: written,
	}, nil
}

// WriteFileAtomic writes data to a temporary sibling of path and renames it
// into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + tempSuffix
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
