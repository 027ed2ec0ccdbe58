// Package phone normalizes discovered phone numbers, classifies caller-ID
// text, and drives rate-limited validation through the lookup provider.
package phone

import "strings"

// Normalize converts a raw phone string to E.164. A 10-digit number is
// assumed domestic and prefixed with +1; an 11-digit number already
// carrying a leading 1 gets the +. Anything else is passed through
// unchanged and reported as non-standard.
func Normalize(raw string) (e164 string, standard bool) {
	digits := stripNonDigits(raw)
	switch {
	case len(digits) == 10:
		return "+1" + digits, true
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits, true
	default:
		return raw, false
	}
}

// Last10 returns the last 10 digits of a number for suffix-based dedup,
// tolerating formatting drift between raw digits and E.164.
func Last10(number string) string {
	digits := stripNonDigits(number)
	if len(digits) <= 10 {
		return digits
	}
	return digits[len(digits)-10:]
}

// SameNumber reports whether two numbers share the same last-10-digit
// suffix.
func SameNumber(a, b string) bool {
	return Last10(a) != "" && Last10(a) == Last10(b)
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
