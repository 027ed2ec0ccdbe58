// Package store defines the persistence interface for the skip-trace
// pipeline and its Postgres and SQLite implementations. Uniqueness is
// enforced by the store's constraints, not in-process locking: concurrent
// records converge through upsert-by-unique-key.
package store

import (
	"context"

	"github.com/sells-group/skiptrace-cli/internal/model"
)

// Store is the persistence contract for the resolution and validation
// pipeline. The pipeline never issues raw queries beyond these primitives.
type Store interface {
	// Owners and properties are the pre-existing candidate pool produced
	// by ingestion; read-only here.
	FindOwnerByID(ctx context.Context, id string) (*model.Owner, error)
	FindPropertyByID(ctx context.Context, id string) (*model.Property, error)

	// Contacts
	FindContactByIdentity(ctx context.Context, identityKey string) (*model.Contact, error)
	FindContactByID(ctx context.Context, id string) (*model.Contact, error)
	CreateContact(ctx context.Context, c *model.Contact, identityKey string) error
	UpdateContact(ctx context.Context, c *model.Contact) error

	// Phones
	ListPhonesByContact(ctx context.Context, contactID string) ([]model.Phone, error)
	CreatePhone(ctx context.Context, p *model.Phone) error

	// Lookups, shared by number. Upsert returns the winning row so a
	// concurrent second writer converges on the first writer's result.
	FindLookupByNumber(ctx context.Context, number string) (*model.Lookup, error)
	UpsertLookup(ctx context.Context, l *model.Lookup) (*model.Lookup, error)

	// Relations. FindRelation checks both edge directions.
	FindRelation(ctx context.Context, contactID, relatedContactID string) (*model.Relation, error)
	CreateRelation(ctx context.Context, r *model.Relation) error
	IncrementRelation(ctx context.Context, relationID string) error

	// Ownerships, unique per (property, contact).
	UpsertOwnership(ctx context.Context, o *model.Ownership) error

	// Property details, unique per property.
	FindPropertyDetailsByProperty(ctx context.Context, propertyID string) (*model.PropertyDetails, error)
	UpsertPropertyDetails(ctx context.Context, d *model.PropertyDetails) (*model.PropertyDetails, error)

	// Pipeline records
	ListRecordsByStage(ctx context.Context, stage model.Stage, limit int) ([]model.PipelineRecord, error)
	UpdateRecordStage(ctx context.Context, recordID string, stage model.Stage) error
	AttachRecordResolution(ctx context.Context, recordID, contactID, propertyDetailsID string) error
	CountRecordsByStage(ctx context.Context) (map[model.Stage]int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
