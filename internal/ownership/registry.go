package ownership

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/skiptrace-cli/internal/identity"
	"github.com/sells-group/skiptrace-cli/internal/model"
)

// Registry deduplicates contacts within one batch run by identity key.
// The first occurrence of a key in a run refreshes the stored contact
// with the freshly resolved fields; later occurrences reuse it
// unchanged, so a repeat record cannot overwrite what the first writer
// resolved. Safe for concurrent records.
type Registry struct {
	mu   sync.Mutex
	seen map[string]string // identity key -> contact id
}

func NewRegistry() *Registry {
	return &Registry{seen: make(map[string]string)}
}

type contactStore interface {
	FindContactByIdentity(ctx context.Context, identityKey string) (*model.Contact, error)
	FindContactByID(ctx context.Context, id string) (*model.Contact, error)
	CreateContact(ctx context.Context, c *model.Contact, identityKey string) error
	UpdateContact(ctx context.Context, c *model.Contact) error
}

// FindOrCreate resolves a contact by identity key, consulting the in-run
// registry first, then the store, creating only when neither has seen the
// identity. A contact found in the store on its first in-run occurrence
// is refreshed with c's resolved fields before being returned. The
// registry lock also serializes racing creators for the same key inside
// one run.
func (r *Registry) FindOrCreate(ctx context.Context, st contactStore, c *model.Contact) (*model.Contact, bool, error) {
	key := identity.Key(c.FirstName, c.LastName, c.MailingAddress)

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.seen[key]; ok {
		existing, err := st.FindContactByID(ctx, id)
		if err != nil {
			return nil, false, eris.Wrap(err, "ownership: reload registered contact")
		}
		if existing != nil {
			return existing, false, nil
		}
	}

	existing, err := st.FindContactByIdentity(ctx, key)
	if err != nil {
		return nil, false, eris.Wrap(err, "ownership: find contact")
	}
	if existing != nil {
		if mergeContact(existing, c) {
			if err := st.UpdateContact(ctx, existing); err != nil {
				return nil, false, eris.Wrap(err, "ownership: refresh contact")
			}
		}
		r.seen[key] = existing.ID
		return existing, false, nil
	}

	if err := st.CreateContact(ctx, c, key); err != nil {
		return nil, false, eris.Wrap(err, "ownership: create contact")
	}
	r.seen[key] = c.ID
	return c, true, nil
}

// mergeContact folds fresh resolved fields into a stored contact. Only
// informative values are taken: zero values never clear stored data, and
// a deceased flag can be set but not unset.
func mergeContact(existing, fresh *model.Contact) bool {
	changed := false
	if fresh.FirstName != "" && fresh.FirstName != existing.FirstName {
		existing.FirstName = fresh.FirstName
		changed = true
	}
	if fresh.LastName != "" && fresh.LastName != existing.LastName {
		existing.LastName = fresh.LastName
		changed = true
	}
	if fresh.Age != 0 && fresh.Age != existing.Age {
		existing.Age = fresh.Age
		changed = true
	}
	if fresh.Deceased && !existing.Deceased {
		existing.Deceased = true
		changed = true
	}
	return changed
}
