package xmeml

import (
	"path/filepath"
	"strings"
)

// NormalizePathURL converts a document pathurl into a plain filesystem path:
// the "file://localhost" prefix is stripped, then "file://", each at most
// once, and "%20" escapes become literal spaces. No other decoding happens.
func NormalizePathURL(pathURL string) string {
	path := strings.Replace(pathURL, "file://localhost", "", 1)
	path = strings.Replace(path, "file://", "", 1)
	return strings.ReplaceAll(path, "%20", " ")
}

// FormatPathURL converts an absolute filesystem path to the document form:
// a "file://" prefix with spaces percent-encoded.
func FormatPathURL(path string) string {
	return "file://" + strings.ReplaceAll(path, " ", "%20")
}

// IsAbsolutePath reports whether a normalized pathurl names an absolute
// location. Relative paths are written with a warning but never rejected.
func IsAbsolutePath(path string) bool {
	return filepath.IsAbs(path)
}
