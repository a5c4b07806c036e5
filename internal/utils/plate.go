package utils

import (
	"strings"
	"unicode"
)

// NormalizePlate reduces a raw plate reading to its canonical form:
// uppercase letters and digits only. Separators, whitespace and any
// other noise from the OCR stage are stripped.
func NormalizePlate(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(strings.TrimSpace(raw)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
