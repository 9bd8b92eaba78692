package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxIDLen = 100

// DeriveID turns a display name into a path-safe identifier:
// "Válvula Ñ 1" becomes "valvula-n-1". It is idempotent. A name without
// any letters or digits derives the empty string.
func DeriveID(name string) string {
	stripped, _, err := transform.String(stripMarks(), strings.ToLower(name))
	if err != nil {
		stripped = strings.ToLower(name)
	}

	var b strings.Builder
	b.Grow(len(stripped))
	pendingHyphen := false
	for _, r := range stripped {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	id := b.String()
	if len(id) > maxIDLen {
		id = strings.TrimRight(id[:maxIDLen], "-")
	}
	return id
}

// stripMarks decomposes and drops combining marks. A fresh chain per call
// since transform.Transformer values carry state.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// validID reports whether a caller-supplied identifier is path-safe.
func validID(id string) bool {
	if id == "" || len(id) > maxIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == '~':
		default:
			return false
		}
	}
	return id != "." && id != ".."
}
