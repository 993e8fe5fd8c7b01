package otp

import "strings"

const CodeLength = 4

// SanitizeCode keeps the digits of input and caps them at CodeLength.
func SanitizeCode(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r < '0' || r > '9' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == CodeLength {
			break
		}
	}
	return b.String()
}

// Translator resolves message keys for the active language.
type Translator interface {
	T(key string) string
}
