package services_test

import (
	"errors"
	"testing"

	"slate/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	err := services.Wrap(services.ErrUnsupportedRate, "import", "set frame rate", "timebase 23", nil)
	if !errors.Is(err, services.ErrUnsupportedRate) {
		t.Fatalf("marker lost: %v", err)
	}
	want := "unsupported frame rate: import: set frame rate: timebase 23"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestWrapChainsCause(t *testing.T) {
	cause := errors.New("exec: not found")
	err := services.Wrap(services.ErrExternalTool, "convert", "run", "", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "bad input", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected default validation marker, got %v", err)
	}
}

func TestFatalClassification(t *testing.T) {
	fatal := []error{
		services.ErrTranslatorUnavailable,
		services.ErrUnsupportedRate,
		services.ErrImportFailed,
		services.ErrConverterReleased,
	}
	for _, sentinel := range fatal {
		if !services.Fatal(services.Wrap(sentinel, "x", "y", "", nil)) {
			t.Fatalf("expected %v to be fatal", sentinel)
		}
	}
	if services.Fatal(services.Wrap(services.ErrNotFound, "x", "y", "", nil)) {
		t.Fatal("not-found should not be fatal")
	}
}
