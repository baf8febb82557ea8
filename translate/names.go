package translate

import (
	"strings"
	"unicode"
)

// pascalCase converts a name hint into a Pascal-case identifier. Any
// non-alphanumeric character acts as a word separator; existing capitals
// are kept. A hint with no usable characters becomes "Schema".
func pascalCase(hint string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range hint {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
		} else {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return "Schema"
	}
	if unicode.IsDigit(rune(out[0])) {
		return "Schema" + out
	}
	return out
}

// isIdentifier reports whether s is usable as a named-enumeration member:
// a letter or underscore followed by letters, digits, or underscores.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_':
		case unicode.IsLetter(r) && r <= unicode.MaxASCII:
		case unicode.IsDigit(r) && r <= unicode.MaxASCII:
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// isTopLevelUnion reports whether expr contains the union operator at
// parenthesis depth zero, i.e. whether wrapping it in an array suffix
// would change its meaning without parentheses.
func isTopLevelUnion(expr string) bool {
	depth := 0
	for _, r := range expr {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case '|':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}
