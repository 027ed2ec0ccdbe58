package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/skiptrace-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local
// development and single-operator runs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS owners (
	id              TEXT PRIMARY KEY,
	first_name      TEXT NOT NULL,
	last_name       TEXT NOT NULL,
	second_owner    TEXT,
	mailing_address TEXT NOT NULL,
	mailing_city    TEXT,
	mailing_state   TEXT,
	mailing_zip     TEXT,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS properties (
	id         TEXT PRIMARY KEY,
	address    TEXT NOT NULL,
	city       TEXT NOT NULL,
	state      TEXT NOT NULL,
	zip        TEXT NOT NULL,
	owner2     TEXT,
	lists      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (address, city, state, zip)
);

CREATE TABLE IF NOT EXISTS property_details (
	id              TEXT PRIMARY KEY,
	property_id     TEXT NOT NULL UNIQUE REFERENCES properties(id),
	bedrooms        INTEGER,
	bathrooms       REAL,
	square_feet     INTEGER,
	year_built      INTEGER,
	assessed_value  REAL,
	tax_delinquent  INTEGER,
	tax_amount_owed REAL,
	lien_amount     REAL,
	last_sale_date  DATETIME,
	last_sale_price REAL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS contacts (
	id              TEXT PRIMARY KEY,
	identity_key    TEXT NOT NULL UNIQUE,
	first_name      TEXT NOT NULL,
	last_name       TEXT NOT NULL,
	mailing_address TEXT NOT NULL,
	mailing_city    TEXT,
	mailing_state   TEXT,
	mailing_zip     TEXT,
	age             INTEGER,
	deceased        INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS lookups (
	id              TEXT PRIMARY KEY,
	number          TEXT NOT NULL UNIQUE,
	caller_name     TEXT,
	caller_type     TEXT,
	carrier         TEXT,
	country_code    TEXT,
	national_format TEXT,
	portable        INTEGER NOT NULL DEFAULT 0,
	record_type     TEXT,
	classification  TEXT,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS phones (
	id             TEXT PRIMARY KEY,
	contact_id     TEXT NOT NULL REFERENCES contacts(id),
	number         TEXT NOT NULL,
	type           TEXT,
	status         TEXT,
	validation_tag TEXT,
	lookup_id      TEXT REFERENCES lookups(id),
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (contact_id, number)
);

CREATE TABLE IF NOT EXISTS relations (
	id                 TEXT PRIMARY KEY,
	contact_id         TEXT NOT NULL REFERENCES contacts(id),
	related_contact_id TEXT NOT NULL REFERENCES contacts(id),
	confirmations      INTEGER NOT NULL DEFAULT 1,
	bidirectional      INTEGER NOT NULL DEFAULT 0,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (contact_id, related_contact_id)
);

CREATE TABLE IF NOT EXISTS ownerships (
	id             TEXT PRIMARY KEY,
	property_id    TEXT NOT NULL REFERENCES properties(id),
	contact_id     TEXT NOT NULL REFERENCES contacts(id),
	is_primary     INTEGER NOT NULL DEFAULT 0,
	ownership_type TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (property_id, contact_id)
);

CREATE TABLE IF NOT EXISTS pipeline_records (
	id                  TEXT PRIMARY KEY,
	owner_id            TEXT NOT NULL REFERENCES owners(id),
	property_id         TEXT NOT NULL REFERENCES properties(id),
	stage               TEXT NOT NULL DEFAULT 'SENT_TO_SEARCH',
	decision            TEXT,
	contact_id          TEXT REFERENCES contacts(id),
	property_details_id TEXT REFERENCES property_details(id),
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_contacts_identity_key ON contacts(identity_key);
CREATE INDEX IF NOT EXISTS idx_phones_contact_id ON phones(contact_id);
CREATE INDEX IF NOT EXISTS idx_relations_contact_id ON relations(contact_id);
CREATE INDEX IF NOT EXISTS idx_relations_related_contact_id ON relations(related_contact_id);
CREATE INDEX IF NOT EXISTS idx_pipeline_records_stage ON pipeline_records(stage);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Owners / Properties ---

func (s *SQLiteStore) FindOwnerByID(ctx context.Context, id string) (*model.Owner, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, COALESCE(second_owner, ''), mailing_address,
		       COALESCE(mailing_city, ''), COALESCE(mailing_state, ''), COALESCE(mailing_zip, ''), created_at
		FROM owners WHERE id = ?`, id)

	var o model.Owner
	if err := row.Scan(&o.ID, &o.FirstName, &o.LastName, &o.SecondOwner, &o.MailingAddress,
		&o.MailingCity, &o.MailingState, &o.MailingZip, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find owner")
	}
	return &o, nil
}

func (s *SQLiteStore) FindPropertyByID(ctx context.Context, id string) (*model.Property, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, address, city, state, zip, COALESCE(owner2, ''),
		       COALESCE(lists, '[]'), created_at, updated_at
		FROM properties WHERE id = ?`, id)

	var p model.Property
	var listsJSON string
	if err := row.Scan(&p.ID, &p.Address, &p.City, &p.State, &p.Zip, &p.Owner2,
		&listsJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find property")
	}
	if err := json.Unmarshal([]byte(listsJSON), &p.Lists); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode property lists")
	}
	return &p, nil
}

// --- Contacts ---

const sqliteContactColumns = `id, identity_key, first_name, last_name, mailing_address,
	COALESCE(mailing_city, ''), COALESCE(mailing_state, ''), COALESCE(mailing_zip, ''),
	COALESCE(age, 0), deceased, created_at, updated_at`

func (s *SQLiteStore) scanContactRow(row *sql.Row) (*model.Contact, error) {
	var c model.Contact
	var identityKey string
	if err := row.Scan(&c.ID, &identityKey, &c.FirstName, &c.LastName, &c.MailingAddress,
		&c.MailingCity, &c.MailingState, &c.MailingZip, &c.Age, &c.Deceased,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStore) FindContactByIdentity(ctx context.Context, identityKey string) (*model.Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteContactColumns+` FROM contacts WHERE identity_key = ?`, identityKey)
	c, err := s.scanContactRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find contact by identity")
	}
	return c, nil
}

func (s *SQLiteStore) FindContactByID(ctx context.Context, id string) (*model.Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteContactColumns+` FROM contacts WHERE id = ?`, id)
	c, err := s.scanContactRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find contact by id")
	}
	return c, nil
}

func (s *SQLiteStore) CreateContact(ctx context.Context, c *model.Contact, identityKey string) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (id, identity_key, first_name, last_name, mailing_address,
			mailing_city, mailing_state, mailing_zip, age, deceased, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, identityKey, c.FirstName, c.LastName, c.MailingAddress,
		c.MailingCity, c.MailingState, c.MailingZip, c.Age, c.Deceased, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return eris.Wrap(err, "sqlite: create contact")
	}
	return nil
}

func (s *SQLiteStore) UpdateContact(ctx context.Context, c *model.Contact) error {
	c.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE contacts SET first_name = ?, last_name = ?, age = ?, deceased = ?, updated_at = ?
		WHERE id = ?`,
		c.FirstName, c.LastName, c.Age, c.Deceased, c.UpdatedAt, c.ID)
	if err != nil {
		return eris.Wrap(err, "sqlite: update contact")
	}
	return nil
}

// --- Phones ---

func (s *SQLiteStore) ListPhonesByContact(ctx context.Context, contactID string) ([]model.Phone, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contact_id, number, COALESCE(type, ''), COALESCE(status, ''),
		       COALESCE(validation_tag, ''), COALESCE(lookup_id, ''), created_at
		FROM phones WHERE contact_id = ? ORDER BY created_at`, contactID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list phones")
	}
	defer rows.Close()

	var phones []model.Phone
	for rows.Next() {
		var p model.Phone
		if err := rows.Scan(&p.ID, &p.ContactID, &p.Number, &p.Type, &p.Status,
			&p.ValidationTag, &p.LookupID, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan phone")
		}
		phones = append(phones, p)
	}
	return phones, rows.Err()
}

func (s *SQLiteStore) CreatePhone(ctx context.Context, p *model.Phone) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO phones (id, contact_id, number, type, status, validation_tag, lookup_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (contact_id, number) DO UPDATE SET
			type = COALESCE(phones.type, excluded.type),
			status = COALESCE(phones.status, excluded.status),
			validation_tag = COALESCE(phones.validation_tag, excluded.validation_tag),
			lookup_id = COALESCE(phones.lookup_id, excluded.lookup_id)`,
		p.ID, p.ContactID, p.Number, sqliteNilIfEmpty(p.Type), sqliteNilIfEmpty(p.Status),
		sqliteNilIfEmpty(p.ValidationTag), sqliteNilIfEmpty(p.LookupID), p.CreatedAt)
	if err != nil {
		return eris.Wrap(err, "sqlite: create phone")
	}
	return nil
}

// --- Lookups ---

func (s *SQLiteStore) FindLookupByNumber(ctx context.Context, number string) (*model.Lookup, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, number, COALESCE(caller_name, ''), COALESCE(caller_type, ''), COALESCE(carrier, ''),
		       COALESCE(country_code, ''), COALESCE(national_format, ''), portable,
		       COALESCE(record_type, ''), COALESCE(classification, ''), created_at
		FROM lookups WHERE number = ?`, number)

	var l model.Lookup
	if err := row.Scan(&l.ID, &l.Number, &l.CallerName, &l.CallerType, &l.Carrier,
		&l.CountryCode, &l.NationalFormat, &l.Portable, &l.RecordType, &l.Classification,
		&l.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find lookup")
	}
	return &l, nil
}

func (s *SQLiteStore) UpsertLookup(ctx context.Context, l *model.Lookup) (*model.Lookup, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	l.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookups (id, number, caller_name, caller_type, carrier, country_code,
			national_format, portable, record_type, classification, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (number) DO NOTHING`,
		l.ID, l.Number, sqliteNilIfEmpty(l.CallerName), sqliteNilIfEmpty(l.CallerType),
		sqliteNilIfEmpty(l.Carrier), sqliteNilIfEmpty(l.CountryCode),
		sqliteNilIfEmpty(l.NationalFormat), l.Portable,
		sqliteNilIfEmpty(l.RecordType), sqliteNilIfEmpty(l.Classification), l.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert lookup")
	}

	// Converge on whichever row won the insert race.
	return s.FindLookupByNumber(ctx, l.Number)
}

// --- Relations ---

func (s *SQLiteStore) FindRelation(ctx context.Context, contactID, relatedContactID string) (*model.Relation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, contact_id, related_contact_id, confirmations, bidirectional, created_at
		FROM relations
		WHERE (contact_id = ? AND related_contact_id = ?)
		   OR (contact_id = ? AND related_contact_id = ?)`,
		contactID, relatedContactID, relatedContactID, contactID)

	var r model.Relation
	if err := row.Scan(&r.ID, &r.ContactID, &r.RelatedContactID, &r.Confirmations,
		&r.Bidirectional, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find relation")
	}
	return &r, nil
}

func (s *SQLiteStore) CreateRelation(ctx context.Context, r *model.Relation) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Confirmations == 0 {
		r.Confirmations = 1
	}
	r.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relations (id, contact_id, related_contact_id, confirmations, bidirectional, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (contact_id, related_contact_id) DO NOTHING`,
		r.ID, r.ContactID, r.RelatedContactID, r.Confirmations, r.Bidirectional, r.CreatedAt)
	if err != nil {
		return eris.Wrap(err, "sqlite: create relation")
	}
	return nil
}

func (s *SQLiteStore) IncrementRelation(ctx context.Context, relationID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE relations SET confirmations = confirmations + 1, bidirectional = 1
		WHERE id = ?`, relationID)
	if err != nil {
		return eris.Wrap(err, "sqlite: increment relation")
	}
	return nil
}

// --- Ownerships ---

func (s *SQLiteStore) UpsertOwnership(ctx context.Context, o *model.Ownership) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	o.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ownerships (id, property_id, contact_id, is_primary, ownership_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (property_id, contact_id) DO UPDATE SET
			is_primary = excluded.is_primary,
			ownership_type = excluded.ownership_type`,
		o.ID, o.PropertyID, o.ContactID, o.IsPrimary, o.OwnershipType, o.CreatedAt)
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert ownership")
	}
	return nil
}

// --- Property details ---

func (s *SQLiteStore) FindPropertyDetailsByProperty(ctx context.Context, propertyID string) (*model.PropertyDetails, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, property_id, bedrooms, bathrooms, square_feet, year_built,
		       assessed_value, tax_delinquent, tax_amount_owed, lien_amount,
		       last_sale_date, last_sale_price, created_at, updated_at
		FROM property_details WHERE property_id = ?`, propertyID)

	var d model.PropertyDetails
	if err := row.Scan(&d.ID, &d.PropertyID, &d.Bedrooms, &d.Bathrooms, &d.SquareFeet,
		&d.YearBuilt, &d.AssessedValue, &d.TaxDelinquent, &d.TaxAmountOwed, &d.LienAmount,
		&d.LastSaleDate, &d.LastSalePrice, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find property details")
	}
	return &d, nil
}

func (s *SQLiteStore) UpsertPropertyDetails(ctx context.Context, d *model.PropertyDetails) (*model.PropertyDetails, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO property_details (id, property_id, bedrooms, bathrooms, square_feet, year_built,
			assessed_value, tax_delinquent, tax_amount_owed, lien_amount, last_sale_date, last_sale_price,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (property_id) DO UPDATE SET
			bedrooms = excluded.bedrooms,
			bathrooms = excluded.bathrooms,
			square_feet = excluded.square_feet,
			year_built = excluded.year_built,
			assessed_value = excluded.assessed_value,
			tax_delinquent = excluded.tax_delinquent,
			tax_amount_owed = excluded.tax_amount_owed,
			lien_amount = excluded.lien_amount,
			last_sale_date = excluded.last_sale_date,
			last_sale_price = excluded.last_sale_price,
			updated_at = excluded.updated_at`,
		d.ID, d.PropertyID, d.Bedrooms, d.Bathrooms, d.SquareFeet, d.YearBuilt,
		d.AssessedValue, d.TaxDelinquent, d.TaxAmountOwed, d.LienAmount, d.LastSaleDate,
		d.LastSalePrice, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert property details")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM property_details WHERE property_id = ?`, d.PropertyID)
	if err := row.Scan(&d.ID, &d.CreatedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: reread property details")
	}
	return d, nil
}

// --- Pipeline records ---

func (s *SQLiteStore) ListRecordsByStage(ctx context.Context, stage model.Stage, limit int) ([]model.PipelineRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, property_id, stage, COALESCE(decision, ''),
		       COALESCE(contact_id, ''), COALESCE(property_details_id, ''), created_at, updated_at
		FROM pipeline_records WHERE stage = ? ORDER BY created_at LIMIT ?`,
		string(stage), limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close()

	var records []model.PipelineRecord
	for rows.Next() {
		var r model.PipelineRecord
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.PropertyID, &r.Stage, &r.Decision,
			&r.ContactID, &r.PropertyDetailsID, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) UpdateRecordStage(ctx context.Context, recordID string, stage model.Stage) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pipeline_records SET stage = ?, updated_at = ? WHERE id = ?`,
		string(stage), time.Now().UTC(), recordID)
	if err != nil {
		return eris.Wrap(err, "sqlite: update record stage")
	}
	return nil
}

func (s *SQLiteStore) AttachRecordResolution(ctx context.Context, recordID, contactID, propertyDetailsID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pipeline_records SET contact_id = ?, property_details_id = ?, updated_at = ?
		WHERE id = ?`,
		sqliteNilIfEmpty(contactID), sqliteNilIfEmpty(propertyDetailsID), time.Now().UTC(), recordID)
	if err != nil {
		return eris.Wrap(err, "sqlite: attach record resolution")
	}
	return nil
}

func (s *SQLiteStore) CountRecordsByStage(ctx context.Context) (map[model.Stage]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, COUNT(*) FROM pipeline_records GROUP BY stage`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count records by stage")
	}
	defer rows.Close()

	counts := make(map[model.Stage]int)
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stage count")
		}
		counts[model.Stage(stage)] = n
	}
	return counts, rows.Err()
}

func sqliteNilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
