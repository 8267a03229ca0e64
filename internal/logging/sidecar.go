package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Sidecar is the scoped sink the import driver installs around a run. Error
// records are teed into "<basename>_error.log" next to the input file and
// counted; warning records are teed to stderr. Close detaches the sink on
// every exit path: a run that logged no errors leaves no sidecar file behind.
type Sidecar struct {
	path       string
	file       *os.File
	warnWriter io.Writer
	base       slog.Handler

	mu     sync.Mutex
	errors int
}

// NewSidecar creates the sidecar file for inputPath and returns the sink.
// The returned logger fans records out to base and the sidecar.
func NewSidecar(inputPath string, base *slog.Logger) (*Sidecar, error) {
	ext := filepath.Ext(inputPath)
	path := strings.TrimSuffix(inputPath, ext) + "_error.log"
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create error sidecar: %w", err)
	}
	return &Sidecar{
		path:       path,
		file:       file,
		warnWriter: os.Stderr,
		base:       base.Handler(),
	}, nil
}

// Logger returns the logger callers use inside the sidecar scope.
func (s *Sidecar) Logger() *slog.Logger {
	return slog.New(Fanout(s.base, (*sidecarHandler)(s)))
}

// Errors reports how many error records the sink received.
func (s *Sidecar) Errors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors
}

// Path returns the sidecar file location.
func (s *Sidecar) Path() string {
	return s.path
}

// Close detaches the sink. A sidecar that recorded no errors is removed.
func (s *Sidecar) Close() error {
	if err := s.file.Close(); err != nil {
		return err
	}
	if s.Errors() == 0 {
		return os.Remove(s.path)
	}
	return nil
}

// sidecarHandler is the Sidecar viewed as a slog.Handler. A separate type
// keeps the handler methods off the Sidecar's public surface.
type sidecarHandler Sidecar

func (h *sidecarHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelWarn
}

func (h *sidecarHandler) Handle(_ context.Context, record slog.Record) error {
	var buf bytes.Buffer
	buf.WriteString(strings.TrimSpace(record.Message))
	record.Attrs(func(attr slog.Attr) bool {
		buf.WriteString("  ")
		buf.WriteString(attr.Key)
		buf.WriteByte('=')
		buf.WriteString(attr.Value.Resolve().String())
		return true
	})
	buf.WriteByte('\n')

	if record.Level >= slog.LevelError {
		h.mu.Lock()
		h.errors++
		h.mu.Unlock()
		_, err := h.file.Write(buf.Bytes())
		return err
	}
	_, err := h.warnWriter.Write(buf.Bytes())
	return err
}

func (h *sidecarHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *sidecarHandler) WithGroup(string) slog.Handler      { return h }
