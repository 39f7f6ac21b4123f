package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Normalize canonicalizes text before hashing so line ending and edge
// whitespace differences do not split the cache.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

// Fingerprint derives the cache key for a piece of source text translated
// between two languages by a model under a glossary version. Every field is
// length prefixed so no two argument lists share a digest input.
func Fingerprint(text, sourceLang, targetLang, model, glossaryVersion string) string {
	h := sha256.New()
	for _, part := range []string{Normalize(text), sourceLang, targetLang, model, glossaryVersion} {
		h.Write([]byte(strconv.Itoa(len(part))))
		h.Write([]byte{':'})
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
