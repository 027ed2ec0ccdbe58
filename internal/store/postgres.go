package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/skiptrace-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS owners (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	first_name      TEXT NOT NULL,
	last_name       TEXT NOT NULL,
	second_owner    TEXT,
	mailing_address TEXT NOT NULL,
	mailing_city    TEXT,
	mailing_state   TEXT,
	mailing_zip     TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS properties (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	address    TEXT NOT NULL,
	city       TEXT NOT NULL,
	state      TEXT NOT NULL,
	zip        TEXT NOT NULL,
	owner2     TEXT,
	lists      TEXT[],
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (address, city, state, zip)
);

CREATE TABLE IF NOT EXISTS property_details (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	property_id     TEXT NOT NULL UNIQUE REFERENCES properties(id),
	bedrooms        INT,
	bathrooms       DOUBLE PRECISION,
	square_feet     INT,
	year_built      INT,
	assessed_value  DOUBLE PRECISION,
	tax_delinquent  BOOLEAN,
	tax_amount_owed DOUBLE PRECISION,
	lien_amount     DOUBLE PRECISION,
	last_sale_date  TIMESTAMPTZ,
	last_sale_price DOUBLE PRECISION,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contacts (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	identity_key    TEXT NOT NULL UNIQUE,
	first_name      TEXT NOT NULL,
	last_name       TEXT NOT NULL,
	mailing_address TEXT NOT NULL,
	mailing_city    TEXT,
	mailing_state   TEXT,
	mailing_zip     TEXT,
	age             INT,
	deceased        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS lookups (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	number          TEXT NOT NULL UNIQUE,
	caller_name     TEXT,
	caller_type     TEXT,
	carrier         TEXT,
	country_code    TEXT,
	national_format TEXT,
	portable        BOOLEAN NOT NULL DEFAULT FALSE,
	record_type     TEXT,
	classification  TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS phones (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	contact_id     TEXT NOT NULL REFERENCES contacts(id),
	number         TEXT NOT NULL,
	type           TEXT,
	status         TEXT,
	validation_tag TEXT,
	lookup_id      TEXT REFERENCES lookups(id),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (contact_id, number)
);

CREATE TABLE IF NOT EXISTS relations (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	contact_id         TEXT NOT NULL REFERENCES contacts(id),
	related_contact_id TEXT NOT NULL REFERENCES contacts(id),
	confirmations      INT NOT NULL DEFAULT 1,
	bidirectional      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (contact_id, related_contact_id)
);

CREATE TABLE IF NOT EXISTS ownerships (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	property_id    TEXT NOT NULL REFERENCES properties(id),
	contact_id     TEXT NOT NULL REFERENCES contacts(id),
	is_primary     BOOLEAN NOT NULL DEFAULT FALSE,
	ownership_type TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (property_id, contact_id)
);

CREATE TABLE IF NOT EXISTS pipeline_records (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	owner_id            TEXT NOT NULL REFERENCES owners(id),
	property_id         TEXT NOT NULL REFERENCES properties(id),
	stage               TEXT NOT NULL DEFAULT 'SENT_TO_SEARCH',
	decision            TEXT,
	contact_id          TEXT REFERENCES contacts(id),
	property_details_id TEXT REFERENCES property_details(id),
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_contacts_identity_key ON contacts(identity_key);
CREATE INDEX IF NOT EXISTS idx_phones_contact_id ON phones(contact_id);
CREATE INDEX IF NOT EXISTS idx_lookups_number ON lookups(number);
CREATE INDEX IF NOT EXISTS idx_relations_contact_id ON relations(contact_id);
CREATE INDEX IF NOT EXISTS idx_relations_related_contact_id ON relations(related_contact_id);
CREATE INDEX IF NOT EXISTS idx_pipeline_records_stage ON pipeline_records(stage);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Owners / Properties (read-only candidate pool) ---

func (s *PostgresStore) FindOwnerByID(ctx context.Context, id string) (*model.Owner, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, COALESCE(second_owner, ''), mailing_address,
		       COALESCE(mailing_city, ''), COALESCE(mailing_state, ''), COALESCE(mailing_zip, ''), created_at
		FROM owners WHERE id = $1`, id)

	var o model.Owner
	if err := row.Scan(&o.ID, &o.FirstName, &o.LastName, &o.SecondOwner, &o.MailingAddress,
		&o.MailingCity, &o.MailingState, &o.MailingZip, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find owner")
	}
	return &o, nil
}

func (s *PostgresStore) FindPropertyByID(ctx context.Context, id string) (*model.Property, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, address, city, state, zip, COALESCE(owner2, ''), lists, created_at, updated_at
		FROM properties WHERE id = $1`, id)

	var p model.Property
	if err := row.Scan(&p.ID, &p.Address, &p.City, &p.State, &p.Zip, &p.Owner2,
		&p.Lists, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find property")
	}
	return &p, nil
}

// --- Contacts ---

const contactColumns = `id, identity_key, first_name, last_name, mailing_address,
	COALESCE(mailing_city, ''), COALESCE(mailing_state, ''), COALESCE(mailing_zip, ''),
	COALESCE(age, 0), deceased, created_at, updated_at`

func scanContact(row pgx.Row) (*model.Contact, error) {
	var c model.Contact
	var identityKey string
	if err := row.Scan(&c.ID, &identityKey, &c.FirstName, &c.LastName, &c.MailingAddress,
		&c.MailingCity, &c.MailingState, &c.MailingZip, &c.Age, &c.Deceased,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) FindContactByIdentity(ctx context.Context, identityKey string) (*model.Contact, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE identity_key = $1`, identityKey)
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find contact by identity")
	}
	return c, nil
}

func (s *PostgresStore) FindContactByID(ctx context.Context, id string) (*model.Contact, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id)
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find contact by id")
	}
	return c, nil
}

func (s *PostgresStore) CreateContact(ctx context.Context, c *model.Contact, identityKey string) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO contacts (id, identity_key, first_name, last_name, mailing_address,
			mailing_city, mailing_state, mailing_zip, age, deceased, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, identityKey, c.FirstName, c.LastName, c.MailingAddress,
		nilIfEmpty(c.MailingCity), nilIfEmpty(c.MailingState), nilIfEmpty(c.MailingZip),
		c.Age, c.Deceased, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return eris.Wrap(err, "postgres: create contact")
	}
	return nil
}

func (s *PostgresStore) UpdateContact(ctx context.Context, c *model.Contact) error {
	c.UpdatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		UPDATE contacts SET first_name = $1, last_name = $2, age = $3, deceased = $4, updated_at = $5
		WHERE id = $6`,
		c.FirstName, c.LastName, c.Age, c.Deceased, c.UpdatedAt, c.ID)
	if err != nil {
		return eris.Wrap(err, "postgres: update contact")
	}
	return nil
}

// --- Phones ---

func (s *PostgresStore) ListPhonesByContact(ctx context.Context, contactID string) ([]model.Phone, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, contact_id, number, COALESCE(type, ''), COALESCE(status, ''),
		       COALESCE(validation_tag, ''), COALESCE(lookup_id, ''), created_at
		FROM phones WHERE contact_id = $1 ORDER BY created_at`, contactID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list phones")
	}
	defer rows.Close()

	var phones []model.Phone
	for rows.Next() {
		var p model.Phone
		if err := rows.Scan(&p.ID, &p.ContactID, &p.Number, &p.Type, &p.Status,
			&p.ValidationTag, &p.LookupID, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan phone")
		}
		phones = append(phones, p)
	}
	return phones, rows.Err()
}

func (s *PostgresStore) CreatePhone(ctx context.Context, p *model.Phone) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now().UTC()

	// On conflict the existing row wins, except that a validated insert
	// fills status/tag/lookup into a row persisted unvalidated during
	// resolution.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO phones (id, contact_id, number, type, status, validation_tag, lookup_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (contact_id, number) DO UPDATE SET
			type = COALESCE(phones.type, EXCLUDED.type),
			status = COALESCE(phones.status, EXCLUDED.status),
			validation_tag = COALESCE(phones.validation_tag, EXCLUDED.validation_tag),
			lookup_id = COALESCE(phones.lookup_id, EXCLUDED.lookup_id)`,
		p.ID, p.ContactID, p.Number, nilIfEmpty(p.Type), nilIfEmpty(p.Status),
		nilIfEmpty(p.ValidationTag), nilIfEmpty(p.LookupID), p.CreatedAt)
	if err != nil {
		return eris.Wrap(err, "postgres: create phone")
	}
	return nil
}

// --- Lookups ---

func (s *PostgresStore) FindLookupByNumber(ctx context.Context, number string) (*model.Lookup, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, number, COALESCE(caller_name, ''), COALESCE(caller_type, ''), COALESCE(carrier, ''),
		       COALESCE(country_code, ''), COALESCE(national_format, ''), portable,
		       COALESCE(record_type, ''), COALESCE(classification, ''), created_at
		FROM lookups WHERE number = $1`, number)

	var l model.Lookup
	if err := row.Scan(&l.ID, &l.Number, &l.CallerName, &l.CallerType, &l.Carrier,
		&l.CountryCode, &l.NationalFormat, &l.Portable, &l.RecordType, &l.Classification,
		&l.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find lookup")
	}
	return &l, nil
}

func (s *PostgresStore) UpsertLookup(ctx context.Context, l *model.Lookup) (*model.Lookup, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	l.CreatedAt = time.Now().UTC()

	// The unique constraint on number is the serialization point for
	// concurrent records discovering the same phone: the second writer
	// converges on the first writer's row.
	row := s.pool.QueryRow(ctx, `
		INSERT INTO lookups (id, number, caller_name, caller_type, carrier, country_code,
			national_format, portable, record_type, classification, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (number) DO UPDATE SET number = EXCLUDED.number
		RETURNING id, created_at`,
		l.ID, l.Number, nilIfEmpty(l.CallerName), nilIfEmpty(l.CallerType), nilIfEmpty(l.Carrier),
		nilIfEmpty(l.CountryCode), nilIfEmpty(l.NationalFormat), l.Portable,
		nilIfEmpty(l.RecordType), nilIfEmpty(l.Classification), l.CreatedAt)

	if err := row.Scan(&l.ID, &l.CreatedAt); err != nil {
		return nil, eris.Wrap(err, "postgres: upsert lookup")
	}
	return l, nil
}

// --- Relations ---

func (s *PostgresStore) FindRelation(ctx context.Context, contactID, relatedContactID string) (*model.Relation, error) {
	// Both edge directions: the edge is stored once, symmetry is a
	// query-time concern.
	row := s.pool.QueryRow(ctx, `
		SELECT id, contact_id, related_contact_id, confirmations, bidirectional, created_at
		FROM relations
		WHERE (contact_id = $1 AND related_contact_id = $2)
		   OR (contact_id = $2 AND related_contact_id = $1)`,
		contactID, relatedContactID)

	var r model.Relation
	if err := row.Scan(&r.ID, &r.ContactID, &r.RelatedContactID, &r.Confirmations,
		&r.Bidirectional, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find relation")
	}
	return &r, nil
}

func (s *PostgresStore) CreateRelation(ctx context.Context, r *model.Relation) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Confirmations == 0 {
		r.Confirmations = 1
	}
	r.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO relations (id, contact_id, related_contact_id, confirmations, bidirectional, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (contact_id, related_contact_id) DO NOTHING`,
		r.ID, r.ContactID, r.RelatedContactID, r.Confirmations, r.Bidirectional, r.CreatedAt)
	if err != nil {
		return eris.Wrap(err, "postgres: create relation")
	}
	return nil
}

func (s *PostgresStore) IncrementRelation(ctx context.Context, relationID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE relations SET confirmations = confirmations + 1, bidirectional = TRUE
		WHERE id = $1`, relationID)
	if err != nil {
		return eris.Wrap(err, "postgres: increment relation")
	}
	return nil
}

// --- Ownerships ---

func (s *PostgresStore) UpsertOwnership(ctx context.Context, o *model.Ownership) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	o.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO ownerships (id, property_id, contact_id, is_primary, ownership_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (property_id, contact_id) DO UPDATE SET
			is_primary = EXCLUDED.is_primary,
			ownership_type = EXCLUDED.ownership_type`,
		o.ID, o.PropertyID, o.ContactID, o.IsPrimary, nilIfEmpty(o.OwnershipType), o.CreatedAt)
	if err != nil {
		return eris.Wrap(err, "postgres: upsert ownership")
	}
	return nil
}

// --- Property details ---

func (s *PostgresStore) FindPropertyDetailsByProperty(ctx context.Context, propertyID string) (*model.PropertyDetails, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, property_id, bedrooms, bathrooms, square_feet, year_built,
		       assessed_value, tax_delinquent, tax_amount_owed, lien_amount,
		       last_sale_date, last_sale_price, created_at, updated_at
		FROM property_details WHERE property_id = $1`, propertyID)

	var d model.PropertyDetails
	if err := row.Scan(&d.ID, &d.PropertyID, &d.Bedrooms, &d.Bathrooms, &d.SquareFeet,
		&d.YearBuilt, &d.AssessedValue, &d.TaxDelinquent, &d.TaxAmountOwed, &d.LienAmount,
		&d.LastSaleDate, &d.LastSalePrice, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find property details")
	}
	return &d, nil
}

func (s *PostgresStore) UpsertPropertyDetails(ctx context.Context, d *model.PropertyDetails) (*model.PropertyDetails, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	row := s.pool.QueryRow(ctx, `
		INSERT INTO property_details (id, property_id, bedrooms, bathrooms, square_feet, year_built,
			assessed_value, tax_delinquent, tax_amount_owed, lien_amount, last_sale_date, last_sale_price,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (property_id) DO UPDATE SET
			bedrooms = EXCLUDED.bedrooms,
			bathrooms = EXCLUDED.bathrooms,
			square_feet = EXCLUDED.square_feet,
			year_built = EXCLUDED.year_built,
			assessed_value = EXCLUDED.assessed_value,
			tax_delinquent = EXCLUDED.tax_delinquent,
			tax_amount_owed = EXCLUDED.tax_amount_owed,
			lien_amount = EXCLUDED.lien_amount,
			last_sale_date = EXCLUDED.last_sale_date,
			last_sale_price = EXCLUDED.last_sale_price,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`,
		d.ID, d.PropertyID, d.Bedrooms, d.Bathrooms, d.SquareFeet, d.YearBuilt,
		d.AssessedValue, d.TaxDelinquent, d.TaxAmountOwed, d.LienAmount, d.LastSaleDate,
		d.LastSalePrice, d.CreatedAt, d.UpdatedAt)

	if err := row.Scan(&d.ID, &d.CreatedAt); err != nil {
		return nil, eris.Wrap(err, "postgres: upsert property details")
	}
	return d, nil
}

// --- Pipeline records ---

func (s *PostgresStore) ListRecordsByStage(ctx context.Context, stage model.Stage, limit int) ([]model.PipelineRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, property_id, stage, COALESCE(decision, ''),
		       COALESCE(contact_id, ''), COALESCE(property_details_id, ''), created_at, updated_at
		FROM pipeline_records WHERE stage = $1 ORDER BY created_at LIMIT $2`,
		string(stage), limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var records []model.PipelineRecord
	for rows.Next() {
		var r model.PipelineRecord
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.PropertyID, &r.Stage, &r.Decision,
			&r.ContactID, &r.PropertyDetailsID, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *PostgresStore) UpdateRecordStage(ctx context.Context, recordID string, stage model.Stage) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE pipeline_records SET stage = $1, updated_at = $2 WHERE id = $3`,
		string(stage), time.Now().UTC(), recordID)
	if err != nil {
		return eris.Wrap(err, "postgres: update record stage")
	}
	return nil
}

func (s *PostgresStore) AttachRecordResolution(ctx context.Context, recordID, contactID, propertyDetailsID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE pipeline_records SET contact_id = $1, property_details_id = $2, updated_at = $3
		WHERE id = $4`,
		nilIfEmpty(contactID), nilIfEmpty(propertyDetailsID), time.Now().UTC(), recordID)
	if err != nil {
		return eris.Wrap(err, "postgres: attach record resolution")
	}
	return nil
}

func (s *PostgresStore) CountRecordsByStage(ctx context.Context) (map[model.Stage]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT stage, COUNT(*) FROM pipeline_records GROUP BY stage`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count records by stage")
	}
	defer rows.Close()

	counts := make(map[model.Stage]int)
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stage count")
		}
		counts[model.Stage(stage)] = n
	}
	return counts, rows.Err()
}

// nilIfEmpty returns nil for empty strings, allowing NULL storage.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
