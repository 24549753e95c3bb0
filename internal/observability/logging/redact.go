package logging

import (
	"strings"
	"unicode/utf8"
)

const redactedValue = "[REDACTED]"

// MaskID keeps the last four characters of an identifier such as a phone
// or national ID number.
func MaskID(s string) string {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return ""
	}
	if n <= 4 {
		return redactedValue
	}
	r := []rune(s)
	return strings.Repeat("*", n-4) + string(r[n-4:])
}

// MaskEmail keeps the first letter of the local part and the domain
func MaskEmail(s string) string {
	s = strings.TrimSpace(s)
	at := strings.LastIndex(s, "@")
	if at <= 0 {
		if s == "" {
			return ""
		}
		return redactedValue
	}
	first, _ := utf8.DecodeRuneInString(s)
	return string(first) + "***" + s[at:]
}
