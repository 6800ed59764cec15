package textutil

import (
	"strings"
	"unicode"
)

// SanitizeFileName makes name safe to create on Windows and Unix shares.
// Separators, colons and asterisks become dashes; quotes, angle brackets,
// pipes, question marks and control characters are dropped.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/', r == '\\', r == ':', r == '*':
			b.WriteByte('-')
		case r == '?', r == '"', r == '<', r == '>', r == '|', unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// EntryBaseName returns the last path element of an archive entry name.
// Archives built on Windows use backslashes, so both separators count.
func EntryBaseName(entry string) string {
	entry = strings.TrimRight(strings.TrimSpace(entry), `/\`)
	if idx := strings.LastIndexAny(entry, `/\`); idx >= 0 {
		entry = entry[idx+1:]
	}
	switch entry {
	case ".", "..":
		return ""
	}
	return SanitizeFileName(entry)
}
