// Package logging builds the process logger on zerolog and adapts it to the
// usbb.Logger interface used by the domain code.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"usbb-go/internal/usbb"
)

// FileName is the log file written inside Config.Dir.
const FileName = "usbb.log"

// Config selects level, format and destinations of the process logger.
type Config struct {
	// Level is debug, info, warn or error. Default: info.
	Level string

	// Format is json, console or auto. auto picks console when Output is a
	// terminal.
	Format string

	// Dir, when set, receives a JSON copy of every line in FileName.
	Dir string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// New creates the process logger. The returned closer releases the log
// file and is never nil.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	tty := isTerminal(out)
	var console io.Writer = out
	if useConsole(cfg.Format, tty) {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05", NoColor: !tty}
	}

	var closer io.Closer = nopCloser{}
	w := console
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(cfg.Dir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("opening log file: %w", err)
		}
		closer = f
		w = zerolog.MultiLevelWriter(console, f)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	return logger, closer, nil
}

func useConsole(format string, tty bool) bool {
	switch strings.ToLower(format) {
	case "console":
		return true
	case "json":
		return false
	}
	return tty
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ParseLevel maps a level name to a zerolog level. Unknown names mean info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Adapter exposes a zerolog.Logger as a usbb.Logger. Args are alternating
// key/value pairs.
type Adapter struct {
	l zerolog.Logger
}

var _ usbb.Logger = (*Adapter)(nil)

// NewAdapter wraps l.
func NewAdapter(l zerolog.Logger) *Adapter {
	return &Adapter{l: l}
}

func (a *Adapter) Debug(msg string, args ...any) { emit(a.l.Debug(), msg, args) }
func (a *Adapter) Info(msg string, args ...any)  { emit(a.l.Info(), msg, args) }
func (a *Adapter) Warn(msg string, args ...any)  { emit(a.l.Warn(), msg, args) }
func (a *Adapter) Error(msg string, args ...any) { emit(a.l.Error(), msg, args) }

func emit(e *zerolog.Event, msg string, args []any) {
	if e == nil {
		return
	}
	if len(args)%2 == 1 {
		args = append(args[:len(args):len(args)], "!MISSING")
	}
	e.Fields(args).Msg(msg)
}
