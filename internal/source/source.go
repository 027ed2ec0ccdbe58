package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/skiptrace-cli/internal/model"
)

// OwnerSource yields the owner identity for a pipeline record. The
// resolution core never branches on which backend produced the data.
type OwnerSource interface {
	FindOwnerIdentity(ctx context.Context, ownerID string) (*model.Owner, error)
}

// PropertySource yields the property identity for a pipeline record.
type PropertySource interface {
	FindPropertyIdentity(ctx context.Context, propertyID string) (*model.Property, error)
}

// ownerStore and propertyStore are the store slices the adapters need.
type ownerStore interface {
	FindOwnerByID(ctx context.Context, id string) (*model.Owner, error)
}

type propertyStore interface {
	FindPropertyByID(ctx context.Context, id string) (*model.Property, error)
}

// StoreOwnerSource adapts the persistence layer to OwnerSource.
type StoreOwnerSource struct {
	store ownerStore
}

func NewStoreOwnerSource(st ownerStore) *StoreOwnerSource {
	return &StoreOwnerSource{store: st}
}

func (s *StoreOwnerSource) FindOwnerIdentity(ctx context.Context, ownerID string) (*model.Owner, error) {
	o, err := s.store.FindOwnerByID(ctx, ownerID)
	if err != nil {
		return nil, eris.Wrap(err, "source: find owner")
	}
	if o == nil {
		return nil, eris.Errorf("source: owner %s not found", ownerID)
	}
	return o, nil
}

// StorePropertySource adapts the persistence layer to PropertySource.
type StorePropertySource struct {
	store propertyStore
}

func NewStorePropertySource(st propertyStore) *StorePropertySource {
	return &StorePropertySource{store: st}
}

func (s *StorePropertySource) FindPropertyIdentity(ctx context.Context, propertyID string) (*model.Property, error) {
	p, err := s.store.FindPropertyByID(ctx, propertyID)
	if err != nil {
		return nil, eris.Wrap(err, "source: find property")
	}
	if p == nil {
		return nil, eris.Errorf("source: property %s not found", propertyID)
	}
	return p, nil
}
