package model

import "time"

// Contact is the canonical person record. Identity is the normalized
// (first name, last name, mailing address) tuple; see identity.Key.
type Contact struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	MailingAddress string    `json:"mailing_address"`
	MailingCity    string    `json:"mailing_city,omitempty"`
	MailingState   string    `json:"mailing_state,omitempty"`
	MailingZip     string    `json:"mailing_zip,omitempty"`
	Age            int       `json:"age,omitempty"`
	Deceased       bool      `json:"deceased"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Phone belongs to exactly one Contact. Number is stored in E.164.
// ValidationTag carries the ordinal source tag ("DS1", "R1", ...).
type Phone struct {
	ID            string    `json:"id"`
	ContactID     string    `json:"contact_id"`
	Number        string    `json:"number"`
	Type          string    `json:"type,omitempty"`
	Status        string    `json:"status,omitempty"`
	ValidationTag string    `json:"validation_tag,omitempty"`
	LookupID      string    `json:"lookup_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Lookup is the cached result of one external phone-intelligence call,
// keyed by E.164 number. Many Phones may reference the same Lookup; a
// number that already has a Lookup is never re-queried.
type Lookup struct {
	ID             string    `json:"id"`
	Number         string    `json:"number"`
	CallerName     string    `json:"caller_name,omitempty"`
	CallerType     string    `json:"caller_type,omitempty"`
	Carrier        string    `json:"carrier,omitempty"`
	CountryCode    string    `json:"country_code,omitempty"`
	NationalFormat string    `json:"national_format,omitempty"`
	Portable       bool      `json:"portable"`
	RecordType     string    `json:"record_type,omitempty"`
	Classification string    `json:"classification,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Relation is a bidirectional edge between two Contacts. The edge is
// stored once; lookups must check both directions before insert.
type Relation struct {
	ID               string    `json:"id"`
	ContactID        string    `json:"contact_id"`
	RelatedContactID string    `json:"related_contact_id"`
	Confirmations    int       `json:"confirmations"`
	Bidirectional    bool      `json:"bidirectional"`
	CreatedAt        time.Time `json:"created_at"`
}

// Ownership is an edge between a Property and a Contact, unique per
// (property, contact) pair.
type Ownership struct {
	ID            string    `json:"id"`
	PropertyID    string    `json:"property_id"`
	ContactID     string    `json:"contact_id"`
	IsPrimary     bool      `json:"is_primary"`
	OwnershipType string    `json:"ownership_type,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
