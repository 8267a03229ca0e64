// Package textutil normalizes clip names into identifiers a scene accepts.
package textutil

import (
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold decomposes characters and drops combining marks, so accented
// names map onto their plain ASCII spelling before the 7-bit check.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SceneName converts a clip name into a scene-safe identifier: the last path
// component with extensions stripped and every character outside
// [A-Za-z0-9_] replaced by an underscore. The second return is false when
// the name does not reduce to 7-bit ASCII and the caller must fall back to
// a default.
func SceneName(clipName string) (string, bool) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(clipName), "\\", "/"))
	base = stripExtensions(base)

	folded, _, err := transform.String(asciiFold, base)
	if err != nil {
		return "", false
	}
	for _, r := range folded {
		if r > unicode.MaxASCII {
			return "", false
		}
	}

	var b strings.Builder
	for _, r := range folded {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name := b.String()
	if strings.Trim(name, "_") == "" {
		return "", true
	}
	return name, true
}

func stripExtensions(name string) string {
	for {
		ext := path.Ext(name)
		if ext == "" || ext == name {
			return name
		}
		name = strings.TrimSuffix(name, ext)
	}
}
