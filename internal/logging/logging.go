// Package logging provides the file-backed log streams shared by all
// commands: leveled general logs plus a dedicated audit stream for
// collision and duplicate decisions.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger is the minimal logging surface packages depend on. Args follow
// the slog convention of alternating keys and values.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Nop discards all records. Useful in tests.
type Nop struct{}

func (Nop) Debug(msg string, args ...any) {}
func (Nop) Info(msg string, args ...any)  {}
func (Nop) Warn(msg string, args ...any)  {}
func (Nop) Error(msg string, args ...any) {}

var _ Logger = Nop{}

// Set bundles the log streams of one run. Log routes records by level
// into info.log, warning.log and error.log; Audit appends every
// collision/duplicate decision to audit.log with structured fields.
type Set struct {
	Log   Logger
	Audit Logger

	files []*os.File
}

// New opens the four append-only log files under dir, creating the
// directory if needed.
func New(dir string) (*Set, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	s := &Set{}
	open := func(name string) (*os.File, error) {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}
		s.files = append(s.files, f)
		return f, nil
	}

	info, err := open("info.log")
	if err != nil {
		return nil, err
	}
	warning, err := open("warning.log")
	if err != nil {
		return nil, err
	}
	errlog, err := open("error.log")
	if err != nil {
		return nil, err
	}
	audit, err := open("audit.log")
	if err != nil {
		return nil, err
	}

	s.Log = Adapt(slog.New(&splitHandler{mu: &sync.Mutex{}, info: info, warn: warning, errw: errlog}))
	s.Audit = Adapt(slog.New(&lineHandler{mu: &sync.Mutex{}, w: audit}))
	return s, nil
}

// Close flushes and closes all underlying files.
func (s *Set) Close() error {
	var errs []error
	for _, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.files = nil
	return errors.Join(errs...)
}

// Adapt wraps a *slog.Logger in the Logger interface.
func Adapt(l *slog.Logger) Logger {
	return slogAdapter{l}
}

type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }

// splitHandler routes each record to every file whose threshold it meets:
// info.log receives Info and above, warning.log Warn and above, error.log
// only errors. The streams stay independently greppable.
type splitHandler struct {
	mu    *sync.Mutex
	info  io.Writer
	warn  io.Writer
	errw  io.Writer
	attrs []slog.Attr
}

func (h *splitHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (h *splitHandler) Handle(_ context.Context, r slog.Record) error {
	line := formatRecord(r, h.attrs)

	h.mu.Lock()
	defer h.mu.Unlock()
	var first error
	write := func(w io.Writer) {
		if _, err := w.Write(line); err != nil && first == nil {
			first = err
		}
	}
	if r.Level >= slog.LevelInfo {
		write(h.info)
	}
	if r.Level >= slog.LevelWarn {
		write(h.warn)
	}
	if r.Level >= slog.LevelError {
		write(h.errw)
	}
	return first
}

func (h *splitHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

func (h *splitHandler) WithGroup(string) slog.Handler { return h }

// lineHandler appends every record to a single writer.
type lineHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	attrs []slog.Attr
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	line := formatRecord(r, h.attrs)
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(line)
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

func (h *lineHandler) WithGroup(string) slog.Handler { return h }

// formatRecord renders one line: ts<TAB>LEVEL<TAB>msg<TAB>k=v ...
func formatRecord(r slog.Record, attrs []slog.Attr) []byte {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf := make([]byte, 0, 128)
	buf = append(buf, ts.Format(time.RFC3339)...)
	buf = append(buf, '\t')
	buf = append(buf, r.Level.String()...)
	buf = append(buf, '\t')
	buf = append(buf, r.Message...)
	appendAttr := func(a slog.Attr) {
		buf = append(buf, '\t')
		buf = append(buf, a.Key...)
		buf = append(buf, '=')
		buf = append(buf, a.Value.String()...)
	}
	for _, a := range attrs {
		appendAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(a)
		return true
	})
	buf = append(buf, '\n')
	return buf
}
