// Package aafconv drives the external AAF-to-XMEML converter through a
// submit/await/release interface. A conversion runs as a child process; the
// caller awaits the handle and releases it on success and failure paths
// both. Releasing a handle aborts a running conversion, and every operation
// on a released handle fails with services.ErrConverterReleased.
package aafconv

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"slate/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps the converter binary.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs a converter client.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("converter binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Handle tracks one submitted conversion.
type Handle struct {
	ID string

	done   chan struct{}
	cancel context.CancelFunc

	mu       sync.Mutex
	err      error
	released bool
}

// Submit starts converting src into destDir and returns a handle to await.
func (c *Client) Submit(ctx context.Context, src, destDir string) (*Handle, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errors.New("source path required")
	}
	if strings.TrimSpace(destDir) == "" {
		return nil, errors.New("destination directory required")
	}

	var runCtx context.Context
	var cancel context.CancelFunc
	if c.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}

	handle := &Handle{
		ID:     uuid.NewString(),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go func() {
		defer close(handle.done)
		err := c.exec.Run(runCtx, c.binary, []string{src, destDir})
		handle.mu.Lock()
		handle.err = err
		handle.mu.Unlock()
	}()
	return handle, nil
}

// Await blocks until the conversion completes and returns its outcome.
func (h *Handle) Await() error {
	h.mu.Lock()
	released := h.released
	h.mu.Unlock()
	if released {
		return services.ErrConverterReleased
	}

	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return services.ErrConverterReleased
	}
	if h.err != nil {
		return services.Wrap(services.ErrExternalTool, "convert", "run", "", h.err)
	}
	return nil
}

// Release aborts a running conversion and invalidates the handle. It is the
// scoped cleanup of both success and failure paths and may be called more
// than once.
func (h *Handle) Release() {
	h.mu.Lock()
	already := h.released
	h.released = true
	h.mu.Unlock()
	if already {
		return
	}
	h.cancel()
}

// OutputPath is where the converter writes its result for src: the same
// base name with an .xml suffix, inside destDir.
func OutputPath(src, destDir string) string {
	base := filepath.Base(src)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(destDir, base+".xml")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
