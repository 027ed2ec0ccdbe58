package phone

import "strings"

// Classification is the coarse caller-ID label persisted on a Lookup.
type Classification string

const (
	ClassIDMatch     Classification = "IDMATCH"
	ClassWireless    Classification = "WC"
	ClassNoID        Classification = "NoID"
	ClassWrongNumber Classification = "Wrong Number"
)

// usStateTokens holds lowercase US state name tokens. A caller name made
// up entirely of these is carrier filler, not an identity.
var usStateTokens = map[string]bool{
	"alabama": true, "alaska": true, "arizona": true, "arkansas": true,
	"california": true, "colorado": true, "connecticut": true, "delaware": true,
	"florida": true, "georgia": true, "hawaii": true, "idaho": true,
	"illinois": true, "indiana": true, "iowa": true, "kansas": true,
	"kentucky": true, "louisiana": true, "maine": true, "maryland": true,
	"massachusetts": true, "michigan": true, "minnesota": true, "mississippi": true,
	"missouri": true, "montana": true, "nebraska": true, "nevada": true,
	"new": true, "hampshire": true, "jersey": true, "mexico": true, "york": true,
	"north": true, "carolina": true, "dakota": true, "ohio": true,
	"oklahoma": true, "oregon": true, "pennsylvania": true, "rhode": true,
	"island": true, "south": true, "tennessee": true, "texas": true,
	"utah": true, "vermont": true, "virginia": true, "washington": true,
	"west": true, "wisconsin": true, "wyoming": true,
}

// Classify labels the caller-ID text returned by the lookup provider
// against the contact's first/last name. The label is derived once per
// Lookup and shared by every Phone referencing it.
func Classify(callerName, firstName, lastName string) Classification {
	tokens := strings.Fields(strings.ToLower(callerName))
	if len(tokens) == 0 {
		return ClassNoID
	}

	first := strings.ToLower(strings.TrimSpace(firstName))
	last := strings.ToLower(strings.TrimSpace(lastName))

	hasWireless := false
	hasCaller := false
	allStates := true
	for _, tok := range tokens {
		if tok == first || tok == last {
			return ClassIDMatch
		}
		if strings.Contains(tok, "wireless") {
			hasWireless = true
		}
		if strings.Contains(tok, "caller") {
			hasCaller = true
		}
		if !usStateTokens[tok] {
			allStates = false
		}
	}

	if hasWireless && hasCaller {
		return ClassWireless
	}
	if allStates {
		return ClassNoID
	}
	return ClassWrongNumber
}
