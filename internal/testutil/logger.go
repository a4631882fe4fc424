package testutil

import (
	"fmt"
	"strings"
	"sync"
)

// LogLine is one call recorded by RecordingLogger.
type LogLine struct {
	Level   string
	Message string
	Args    []any
}

// RecordingLogger keeps every log call for assertions. Safe for concurrent use.
type RecordingLogger struct {
	mu    sync.Mutex
	lines []LogLine
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (l *RecordingLogger) Debug(msg string, args ...any) { l.record("debug", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.record("error", msg, args) }

func (l *RecordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, LogLine{Level: level, Message: msg, Args: args})
}

// Lines returns a copy of everything logged so far.
func (l *RecordingLogger) Lines() []LogLine {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogLine(nil), l.lines...)
}

// Count returns the number of lines logged at level.
func (l *RecordingLogger) Count(level string) int {
	n := 0
	for _, line := range l.Lines() {
		if line.Level == level {
			n++
		}
	}
	return n
}

// Contains reports whether any line at level has a message containing substr.
func (l *RecordingLogger) Contains(level, substr string) bool {
	for _, line := range l.Lines() {
		if line.Level == level && strings.Contains(line.Message, substr) {
			return true
		}
	}
	return false
}

// String renders the log for test failure messages.
func (l *RecordingLogger) String() string {
	var b strings.Builder
	for _, line := range l.Lines() {
		fmt.Fprintf(&b, "%s %s %v\n", line.Level, line.Message, line.Args)
	}
	return b.String()
}
