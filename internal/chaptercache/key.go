package chaptercache

import (
	"strconv"
	"strings"

	"biblestudy/internal/bible"
)

// Prefix namespaces persistent cache entries in the key-value store.
const Prefix = "bible-cache-"

// Key normalizes a chapter request into the cache key shared by every tier:
// book and translation are lowercased with whitespace removed.
func Key(book string, chapter int, translation string) string {
	var sb strings.Builder
	sb.WriteString(bible.NormalizeName(book))
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(chapter))
	sb.WriteByte('|')
	sb.WriteString(bible.NormalizeName(translation))
	return sb.String()
}

// PersistentKey returns the store key for a cache key.
func PersistentKey(key string) string {
	return Prefix + key
}
