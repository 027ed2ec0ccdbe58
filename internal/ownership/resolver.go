// Package ownership resolves the secondary people attached to an owner
// record: the co-owner named in the owner-2 field and the relatives
// returned by the search provider.
package ownership

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/skiptrace-cli/internal/identity"
	"github.com/sells-group/skiptrace-cli/internal/model"
	"github.com/sells-group/skiptrace-cli/internal/phone"
	"github.com/sells-group/skiptrace-cli/pkg/skiptrace"
)

// Store is the slice of persistence the resolver needs. Satisfied by
// store.Store.
type Store interface {
	FindContactByIdentity(ctx context.Context, identityKey string) (*model.Contact, error)
	FindContactByID(ctx context.Context, id string) (*model.Contact, error)
	CreateContact(ctx context.Context, c *model.Contact, identityKey string) error
	UpdateContact(ctx context.Context, c *model.Contact) error
	CreatePhone(ctx context.Context, p *model.Phone) error
	FindRelation(ctx context.Context, contactID, relatedContactID string) (*model.Relation, error)
	CreateRelation(ctx context.Context, r *model.Relation) error
	IncrementRelation(ctx context.Context, relationID string) error
}

// Resolver finds or creates the contacts surrounding a primary owner.
// One Resolver (and its registry) spans a whole batch run.
type Resolver struct {
	store    Store
	registry *Registry
	policy   phone.Policy
}

func NewResolver(st Store, registry *Registry, policy phone.Policy) *Resolver {
	return &Resolver{store: st, registry: registry, policy: policy}
}

// CoOwner is a resolved second owner: the contact plus the lookup queue
// entries for its first phones.
type CoOwner struct {
	Contact *model.Contact
	Queued  []phone.Request
}

// Relative is a resolved relative contact with its discovered phones in
// provider order.
type Relative struct {
	Contact *model.Contact
	Phones  []string
}

// FindOrCreateContact resolves a contact through the in-run registry.
func (r *Resolver) FindOrCreateContact(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	resolved, created, err := r.registry.FindOrCreate(ctx, r.store, c)
	if err != nil {
		return nil, err
	}
	if created {
		zap.L().Debug("contact created",
			zap.String("component", "ownership"),
			zap.String("contact_id", resolved.ID),
		)
	}
	return resolved, nil
}

// ResolveSecondOwner inspects the owner record's second-owner field and,
// when it names a person distinct from the primary, finds or creates that
// contact and collects its phones from the provider response. Phones come
// from the union of matching top-level candidates and matching relative
// entries across all candidates. The first MaxPersistedPhones are stored;
// the first MaxSecondOwnerPhones are queued for validation with ordinal
// tags on the co-owner's own contact.
//
// Returns (nil, nil) when there is no distinct second owner.
func (r *Resolver) ResolveSecondOwner(ctx context.Context, owner *model.Owner, candidates []skiptrace.Identity) (*CoOwner, error) {
	raw := strings.TrimSpace(owner.SecondOwner)
	if raw == "" {
		return nil, nil
	}
	first, last := identity.ParseRelativeName(raw)
	if first == "" {
		return nil, nil
	}
	primaryFull := owner.FirstName + " " + owner.LastName
	if identity.SameName(raw, primaryFull) {
		return nil, nil
	}

	contact, err := r.FindOrCreateContact(ctx, &model.Contact{
		FirstName:      first,
		LastName:       last,
		MailingAddress: owner.MailingAddress,
		MailingCity:    owner.MailingCity,
		MailingState:   owner.MailingState,
		MailingZip:     owner.MailingZip,
	})
	if err != nil {
		return nil, err
	}

	numbers := collectSecondOwnerPhones(candidates, first, last)
	if err := r.persistPhones(ctx, contact.ID, numbers, r.policy.MaxPersistedPhones); err != nil {
		return nil, err
	}

	co := &CoOwner{Contact: contact}
	for i, n := range numbers {
		if i >= r.policy.MaxSecondOwnerPhones {
			break
		}
		co.Queued = append(co.Queued, phone.Request{
			Contact: contact,
			Number:  n,
			Tag:     phone.OrdinalTag("DS", i),
		})
	}

	zap.L().Info("second owner resolved",
		zap.String("component", "ownership"),
		zap.String("contact_id", contact.ID),
		zap.Int("phones_found", len(numbers)),
		zap.Int("phones_queued", len(co.Queued)),
	)
	return co, nil
}

// collectSecondOwnerPhones gathers the union of phones for the named
// person across the whole response: top-level candidate blocks whose name
// records match, and relative entries on any candidate whose parsed name
// matches. Order is provider order, deduplicated by last-10 suffix.
func collectSecondOwnerPhones(candidates []skiptrace.Identity, firstName, lastName string) []string {
	var numbers []string
	for _, cand := range candidates {
		if identity.MatchesName(cand, firstName, lastName) {
			for _, p := range cand.Phones {
				numbers = appendNumber(numbers, p.Number)
			}
		}
		for _, rel := range cand.Relatives {
			rf, rl := identity.ParseRelativeName(rel.Name)
			if strings.EqualFold(rf, firstName) && strings.EqualFold(rl, lastName) {
				for _, p := range rel.Phones {
					numbers = appendNumber(numbers, p.Number)
				}
			}
		}
	}
	return numbers
}

// ProcessRelatives finds or creates a contact for every relative on the
// matched candidate, persists up to MaxPersistedPhones phones each, and
// records the symmetric relation to the primary contact. Runs on repeat
// occurrences of a primary too, so confirmations accumulate.
func (r *Resolver) ProcessRelatives(ctx context.Context, primary *model.Contact, relatives []skiptrace.Relative) ([]Relative, error) {
	var out []Relative
	for _, rel := range relatives {
		first, last := identity.ParseRelativeName(rel.Name)
		if first == "" {
			continue
		}

		contact, err := r.FindOrCreateContact(ctx, &model.Contact{
			FirstName:      first,
			LastName:       last,
			MailingAddress: primary.MailingAddress,
			MailingCity:    primary.MailingCity,
			MailingState:   primary.MailingState,
			MailingZip:     primary.MailingZip,
			Age:            rel.Age,
		})
		if err != nil {
			return nil, err
		}
		if contact.ID == primary.ID {
			continue
		}

		var numbers []string
		for _, p := range rel.Phones {
			numbers = appendNumber(numbers, p.Number)
		}
		if err := r.persistPhones(ctx, contact.ID, numbers, r.policy.MaxPersistedPhones); err != nil {
			return nil, err
		}

		if err := r.recordRelation(ctx, primary.ID, contact.ID); err != nil {
			return nil, err
		}
		out = append(out, Relative{Contact: contact, Phones: numbers})
	}
	return out, nil
}

// recordRelation upserts the symmetric edge between two contacts: an
// existing edge in either direction gets a confirmation bump, otherwise a
// fresh edge is created with one confirmation.
func (r *Resolver) recordRelation(ctx context.Context, contactID, relatedID string) error {
	existing, err := r.store.FindRelation(ctx, contactID, relatedID)
	if err != nil {
		return eris.Wrap(err, "ownership: find relation")
	}
	if existing != nil {
		return r.store.IncrementRelation(ctx, existing.ID)
	}
	return r.store.CreateRelation(ctx, &model.Relation{
		ContactID:        contactID,
		RelatedContactID: relatedID,
	})
}

// persistPhones stores up to limit normalized numbers for a contact.
// Duplicate numbers are absorbed by the store's unique constraint.
func (r *Resolver) persistPhones(ctx context.Context, contactID string, numbers []string, limit int) error {
	for i, n := range numbers {
		if i >= limit {
			break
		}
		if err := r.store.CreatePhone(ctx, &model.Phone{
			ContactID: contactID,
			Number:    n,
		}); err != nil {
			return eris.Wrap(err, "ownership: persist phone")
		}
	}
	return nil
}

// appendNumber normalizes raw and appends it unless non-standard or a
// last-10 duplicate of a number already collected.
func appendNumber(numbers []string, raw string) []string {
	e164, standard := phone.Normalize(raw)
	if !standard {
		return numbers
	}
	for _, n := range numbers {
		if phone.SameNumber(n, e164) {
			return numbers
		}
	}
	return append(numbers, e164)
}
