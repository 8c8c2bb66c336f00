// Package pkg provides utilities shared by modhook and the hosts that embed
// its plugin loader.
package pkg

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ModLog is a best-effort, append-only text log. Every method is safe to call
// on a log with no target, and I/O failures are only reported through slog.
type ModLog interface {
	Path() string
	Reset(header string)
	Log(format string, args ...any)
	LogWithDate(format string, args ...any)
	Close() error
}

type modLogImpl struct {
	path string
	file *os.File
	mu   sync.Mutex
	now  func() time.Time
}

// NewModLog returns a log writing to path. An empty path yields a log that
// discards everything.
func NewModLog(path string) ModLog {
	return &modLogImpl{path: path, now: time.Now}
}

// Path implements ModLog.
func (l *modLogImpl) Path() string {
	return l.path
}

// Reset truncates the log and writes header as its first line.
func (l *modLogImpl) Reset(header string) {
	if l == nil || l.path == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Warn("failed to reset mod log", "path", l.path, "error", err)
		return
	}

	l.file = file
	l.writeLocked(header)
}

// Log implements ModLog.
func (l *modLogImpl) Log(format string, args ...any) {
	if l == nil || l.path == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.writeLocked(fmt.Sprintf(format, args...))
}

// LogWithDate prefixes the line with the local time.
func (l *modLogImpl) LogWithDate(format string, args ...any) {
	if l == nil || l.path == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stamp := l.now().Format("[2006-01-02 15:04:05] ")
	l.writeLocked(stamp + fmt.Sprintf(format, args...))
}

// Close implements ModLog.
func (l *modLogImpl) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	err := l.file.Close()
	l.file = nil

	if err != nil {
		slog.Warn("failed to close mod log", "path", l.path, "error", err)
	}

	return err
}

func (l *modLogImpl) writeLocked(line string) {
	if l.file == nil {
		file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			slog.Warn("failed to open mod log", "path", l.path, "error", err)
			return
		}

		l.file = file
	}

	if _, err := fmt.Fprintln(l.file, line); err != nil {
		slog.Warn("failed to write mod log", "path", l.path, "error", err)
	}
}
