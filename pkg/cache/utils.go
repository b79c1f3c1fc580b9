package cache

import "strings"

// keyEscaper rewrites characters that would collide with the key
// separator, so distinct parts can never produce the same key.
var keyEscaper = strings.NewReplacer(":", "_", "/", "-")

// BuildKey joins parts with ":" after escaping separator characters
// inside each part.
func BuildKey(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = keyEscaper.Replace(p)
	}
	return strings.Join(escaped, ":")
}
