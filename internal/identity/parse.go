package identity

import "strings"

// ParseRelativeName splits a provider relative's single name string into
// (first, last). Middle tokens fold into the last name, matching how the
// provider renders "First Middle Last". A single token is treated as a
// first name with no last name.
func ParseRelativeName(full string) (first, last string) {
	fields := strings.Fields(strings.TrimSpace(full))
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], fields[len(fields)-1]
	}
}
