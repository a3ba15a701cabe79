// Package newsid derives short deterministic identifiers from URLs and
// narration text. IDs are stable across sessions for the same input, which
// makes them usable as cache and dedup keys. Collisions are tolerated:
// two inputs folding to the same token silently share a cache slot.
package newsid

import (
	"strconv"
	"unicode/utf16"
)

const (
	articlePrefix = "news-"
	audioPrefix   = "audio-"
)

// ForURL hashes a canonical article URL into a short alphanumeric token.
func ForURL(u string) string {
	return articlePrefix + fold(u)
}

// ForText hashes narration text into the audio cache key.
func ForText(text string) string {
	return audioPrefix + fold(text)
}

// fold iterates the UTF-16 code units of s, folding each into a 32-bit
// rolling hash (hash*31 + code, wrapping), then renders the absolute value
// in base 36.
func fold(s string) string {
	var hash int32
	for _, code := range utf16.Encode([]rune(s)) {
		hash = hash*31 + int32(code)
	}

	v := int64(hash)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}
