package textutil

import (
	"strings"
	"unicode"
)

// SanitizeFileComponent replaces every rune outside [A-Za-z0-9_-] with an
// underscore, one for one. Non-ASCII letters are replaced too, so an accented
// three-letter word becomes three underscores. Empty input yields empty output.
func SanitizeFileComponent(value string) string {
	if value == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// CollapseWhitespace replaces each run of whitespace with sep. Leading and
// trailing runs are replaced as well; callers trim first when they need to.
func CollapseWhitespace(value, sep string) string {
	var b strings.Builder
	b.Grow(len(value))
	inSpace := false
	for _, r := range value {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteString(sep)
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// SplitExt splits name into stem and extension. The extension starts at the
// last dot of the final path element and keeps that dot. Leading dots never
// start an extension, so ".profile" has no extension.
func SplitExt(name string) (string, string) {
	base := name
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		base = name[idx+1:]
	}
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 {
		return name, ""
	}
	if strings.Trim(base[:dot], ".") == "" {
		return name, ""
	}
	cut := len(name) - len(base) + dot
	return name[:cut], name[cut:]
}
