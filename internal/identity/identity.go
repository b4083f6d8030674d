// Package identity derives the canonical key that names a document in every
// backend: it is the object-store blob name, the explicit search-index
// document id and the metadata row's canonical_key, all verbatim. Letting the
// search engine assign its own id makes deletion structurally impossible, so
// the key is always assigned here and pushed down.
package identity

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Keys are restricted to the intersection of what all three backends accept.
const allowed = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-"

// NewKey derives a canonical key from an uploaded file's original name:
// a 12-hex random prefix (collision protection), an underscore, then the
// sanitized name stem. The extension is dropped; the search engine rejects
// periods in document ids.
func NewKey(originalName string) string {
	base := path.Base(strings.ReplaceAll(originalName, "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))
	prefix := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return fmt.Sprintf("%s_%s", prefix, Sanitize(stem))
}

// Sanitize replaces every byte outside [A-Za-z0-9_-] with an underscore.
// Multi-byte runes sanitize to one underscore per byte; the exact width does
// not matter, only that the result stays inside the allowed set.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(allowed, s[i]) >= 0 {
			b.WriteByte(s[i])
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Valid reports whether key is non-empty and uses only allowed characters.
func Valid(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		if strings.IndexByte(allowed, key[i]) < 0 {
			return false
		}
	}
	return true
}
