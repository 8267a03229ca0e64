package aafconv_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"slate/internal/services"
	"slate/internal/services/aafconv"
)

type stubExecutor struct {
	mu     sync.Mutex
	err    error
	block  chan struct{}
	binary string
	args   []string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string) error {
	s.mu.Lock()
	s.binary = binary
	s.args = append([]string(nil), args...)
	block := s.block
	s.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func TestSubmitAwaitRelease(t *testing.T) {
	exec := &stubExecutor{}
	client, err := aafconv.New("aafconvert", 10, aafconv.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	handle, err := client.Submit(context.Background(), "/edits/foo.aaf", "/tmp/out")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if handle.ID == "" {
		t.Fatal("expected handle id")
	}
	if err := handle.Await(); err != nil {
		t.Fatalf("Await: %v", err)
	}
	handle.Release()

	exec.mu.Lock()
	defer exec.mu.Unlock()
	if exec.binary != "aafconvert" {
		t.Fatalf("binary: %q", exec.binary)
	}
	if len(exec.args) != 2 || exec.args[0] != "/edits/foo.aaf" || exec.args[1] != "/tmp/out" {
		t.Fatalf("args: %v", exec.args)
	}
}

func TestAwaitAfterReleaseFails(t *testing.T) {
	exec := &stubExecutor{}
	client, err := aafconv.New("aafconvert", 10, aafconv.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	handle, err := client.Submit(context.Background(), "a.aaf", t.TempDir())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	handle.Release()
	if err := handle.Await(); !errors.Is(err, services.ErrConverterReleased) {
		t.Fatalf("expected ErrConverterReleased, got %v", err)
	}
	// Release is idempotent.
	handle.Release()
}

func TestReleaseAbortsRunningConversion(t *testing.T) {
	exec := &stubExecutor{block: make(chan struct{})}
	client, err := aafconv.New("aafconvert", 0, aafconv.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	handle, err := client.Submit(context.Background(), "a.aaf", t.TempDir())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		handle.Release()
	}()
	if err := handle.Await(); !errors.Is(err, services.ErrConverterReleased) {
		t.Fatalf("expected ErrConverterReleased, got %v", err)
	}
}

func TestAwaitSurfacesToolFailure(t *testing.T) {
	exec := &stubExecutor{err: errors.New("exit status 3")}
	client, err := aafconv.New("aafconvert", 10, aafconv.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	handle, err := client.Submit(context.Background(), "a.aaf", t.TempDir())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	defer handle.Release()
	if err := handle.Await(); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := aafconv.New("   ", 10); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestOutputPath(t *testing.T) {
	got := aafconv.OutputPath("/edits/foo.aaf", "/tmp/conv")
	if got != filepath.Join("/tmp/conv", "foo.xml") {
		t.Fatalf("OutputPath: %q", got)
	}
}
