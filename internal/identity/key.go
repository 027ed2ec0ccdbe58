// Package identity canonicalizes owner identities and resolves skip-trace
// candidates against the expected owner.
package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// keySeparator joins normalized key components. It never appears in
// postal or name data, so keys cannot collide across field boundaries.
const keySeparator = "|"

var stripDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// normalizeComponent trims, lowercases, strips diacritics, and collapses
// interior whitespace so formatting drift between sources cannot split an
// identity.
func normalizeComponent(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if out, _, err := transform.String(stripDiacritics, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}

// Key builds the deterministic matching key for a contact identity from
// (first name, last name, mailing address). Empty components still yield
// a well-formed key; it just won't match any real record.
func Key(firstName, lastName, mailingAddress string) string {
	return strings.Join([]string{
		normalizeComponent(firstName),
		normalizeComponent(lastName),
		normalizeComponent(mailingAddress),
	}, keySeparator)
}

// PropertyKey builds the deterministic matching key for a property
// identity from (address, city, state, zip).
func PropertyKey(address, city, state, zip string) string {
	return strings.Join([]string{
		normalizeComponent(address),
		normalizeComponent(city),
		normalizeComponent(state),
		normalizeComponent(zip),
	}, keySeparator)
}

// SameName reports whether two full names are equal under normalization.
// Used to decide whether a second-owner field actually names a second
// person.
func SameName(a, b string) bool {
	return normalizeComponent(a) == normalizeComponent(b)
}
