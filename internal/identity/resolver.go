package identity

import (
	"strings"

	"github.com/sells-group/skiptrace-cli/pkg/skiptrace"
)

// Match scores for candidate name records, in precedence order: exact
// identity beats first-name-only evidence, which beats a liveness signal,
// which beats an unscored candidate.
const (
	ScoreExact       = 100
	ScoreFirstOnly   = 70
	ScoreNotDeceased = 40
	ScoreFallback    = 10
)

// Expected is the owner identity we are trying to locate in the provider
// response.
type Expected struct {
	FirstName string
	LastName  string
}

// Match is the outcome of resolving a provider response against an
// expected identity. Name is a resolved copy: when only the first name
// matched, the provider's last name is considered unreliable and the
// expected last name is substituted. Provider data is never mutated.
type Match struct {
	Candidate skiptrace.Identity
	Name      skiptrace.Name
	Score     int
}

// score rates one candidate name record against the expected identity and
// returns the resolved name to use if this record wins.
func score(name skiptrace.Name, expected Expected) (skiptrace.Name, int) {
	firstEq := strings.EqualFold(strings.TrimSpace(name.FirstName), strings.TrimSpace(expected.FirstName))
	lastEq := strings.EqualFold(strings.TrimSpace(name.LastName), strings.TrimSpace(expected.LastName))

	switch {
	case firstEq && lastEq:
		return name, ScoreExact
	case firstEq:
		resolved := name
		resolved.LastName = expected.LastName
		return resolved, ScoreFirstOnly
	case name.Deceased != nil && !*name.Deceased:
		return name, ScoreNotDeceased
	default:
		return name, ScoreFallback
	}
}

// Resolve selects the single highest-scoring (candidate, name) pair across
// all candidate identity blocks. Ties keep the first pair encountered, so
// resolution is deterministic for a given response. Returns false when the
// response has no candidates; the caller then synthesizes a contact from
// the expected fields alone.
func Resolve(candidates []skiptrace.Identity, expected Expected) (*Match, bool) {
	var best *Match
	for _, cand := range candidates {
		for _, name := range cand.Names {
			resolved, s := score(name, expected)
			if best == nil || s > best.Score {
				best = &Match{Candidate: cand, Name: resolved, Score: s}
			}
		}
		// A candidate block with no name records can still win by default
		// when nothing scores higher.
		if len(cand.Names) == 0 && best == nil {
			best = &Match{
				Candidate: cand,
				Name:      skiptrace.Name{FirstName: expected.FirstName, LastName: expected.LastName},
				Score:     ScoreFallback,
			}
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// MatchesName reports whether any name record on the candidate matches the
// given first/last name case-insensitively. Used by the ownership resolver
// to find a second owner among top-level candidates.
func MatchesName(cand skiptrace.Identity, firstName, lastName string) bool {
	for _, n := range cand.Names {
		if strings.EqualFold(strings.TrimSpace(n.FirstName), strings.TrimSpace(firstName)) &&
			strings.EqualFold(strings.TrimSpace(n.LastName), strings.TrimSpace(lastName)) {
			return true
		}
	}
	return false
}
