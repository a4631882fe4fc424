package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
)

// ErrWalkAborted is returned by Walk when a callback called Visit.Abort.
var ErrWalkAborted = errors.New("walk aborted")

// Logger receives errors returned by walk callbacks.
type Logger interface {
	Error(msg string, args ...any)
}

// WalkError reports a path the walker could not read or stat.
type WalkError struct {
	Op   string // "readdir" or "stat"
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WalkError) Unwrap() error { return e.Err }

// Visit describes a regular file handed to a WalkFunc.
type Visit struct {
	Path       string // absolute path of the file
	Filename   string
	ParentPath string
	Info       fs.FileInfo

	// Abort stops the walk once the callback returns. Files already being
	// processed complete normally.
	Abort func()
}

// WalkFunc is called once per visited file, or with a *WalkError (and a nil
// Visit) for paths that could not be read. A returned error is logged and
// does not stop the walk.
type WalkFunc func(err error, v *Visit) error

// Walker traverses a directory tree depth-first, handling every regular file
// of a directory before descending into its subdirectories.
type Walker struct {
	rules  IgnoreRules
	logger Logger
}

// NewWalker creates a Walker. logger may be nil.
func NewWalker(rules IgnoreRules, logger Logger) *Walker {
	return &Walker{rules: rules, logger: logger}
}

// Walk visits every non-ignored regular file under root.
//
// Per-path failures never end the walk; they are passed to fn. Walk returns
// a non-nil error only when it was stopped early, either by ctx or by a
// callback calling Abort, in which case the remaining entries of the current
// directory and all pending directories are skipped.
func (w *Walker) Walk(ctx context.Context, root string, fn WalkFunc) error {
	var aborted atomic.Bool
	abort := func() { aborted.Store(true) }
	stopped := func() bool { return aborted.Load() || ctx.Err() != nil }

	stack := []string{root}
	for len(stack) > 0 {
		if stopped() {
			return w.stopErr(ctx)
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			w.call(fn, &WalkError{Op: "readdir", Path: dir, Err: err}, nil)
			continue
		}

		var subdirs []string
		for _, entry := range entries {
			if stopped() {
				return w.stopErr(ctx)
			}

			p := filepath.Join(dir, entry.Name())
			if rel, err := filepath.Rel(root, p); err == nil && w.rules.ignoredPath(rel) {
				continue
			}

			info, err := os.Lstat(p)
			if err != nil {
				w.call(fn, &WalkError{Op: "stat", Path: p, Err: err}, nil)
				continue
			}

			switch {
			case info.IsDir():
				if !w.rules.ignoredDirectory(entry.Name()) {
					subdirs = append(subdirs, p)
				}
			case info.Mode().IsRegular():
				if w.rules.ignoredFile(entry.Name()) {
					continue
				}
				w.call(fn, nil, &Visit{
					Path:       p,
					Filename:   entry.Name(),
					ParentPath: dir,
					Info:       info,
					Abort:      abort,
				})
			}
		}

		stack = append(stack, subdirs...)
	}

	if stopped() {
		return w.stopErr(ctx)
	}
	return nil
}

func (w *Walker) call(fn WalkFunc, walkErr error, v *Visit) {
	if err := fn(walkErr, v); err != nil && w.logger != nil {
		path := ""
		if v != nil {
			path = v.Path
		}
		w.logger.Error("walk callback failed", "path", path, "error", err)
	}
}

func (w *Walker) stopErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrWalkAborted
}
