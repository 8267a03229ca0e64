// Package services carries the error taxonomy shared by the import and
// export drivers and the external converter client.
package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRateUnspecified marks an element carrying no usable frame rate.
	ErrRateUnspecified = errors.New("frame rate unspecified")
	// ErrUnsupportedRate marks a rate outside the scene's named set.
	ErrUnsupportedRate = errors.New("unsupported frame rate")
	// ErrTranslatorUnavailable marks an input format with no usable translator.
	ErrTranslatorUnavailable = errors.New("translator unavailable")
	// ErrConverterReleased marks use of a conversion handle after release.
	ErrConverterReleased = errors.New("converter handle released")
	// ErrImportFailed marks an import whose error sink received messages.
	ErrImportFailed = errors.New("import failed")
	// ErrExternalTool marks a failure inside a wrapped external binary.
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks rejected caller input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing entity or file.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes driver context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether an error should abort the surrounding operation
// rather than be logged and skipped.
func Fatal(err error) bool {
	switch {
	case errors.Is(err, ErrTranslatorUnavailable),
		errors.Is(err, ErrUnsupportedRate),
		errors.Is(err, ErrImportFailed),
		errors.Is(err, ErrConverterReleased):
		return true
	default:
		return false
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "driver failure"
	}
	return strings.Join(parts, ": ")
}
