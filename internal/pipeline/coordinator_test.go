package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/skiptrace-cli/internal/identity"
	"github.com/sells-group/skiptrace-cli/internal/model"
	"github.com/sells-group/skiptrace-cli/internal/ownership"
	"github.com/sells-group/skiptrace-cli/internal/phone"
	"github.com/sells-group/skiptrace-cli/internal/source"
	"github.com/sells-group/skiptrace-cli/pkg/phonelookup"
	"github.com/sells-group/skiptrace-cli/pkg/skiptrace"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// memStore implements every store slice the pipeline and its
// collaborators need.
type memStore struct {
	mu            sync.Mutex
	owners        map[string]*model.Owner
	properties    map[string]*model.Property
	contactsByKey map[string]*model.Contact
	contactsByID  map[string]*model.Contact
	phones        map[string][]model.Phone
	lookups       map[string]*model.Lookup
	relations     []*model.Relation
	ownerships    []*model.Ownership
	details       map[string]*model.PropertyDetails
	stageHistory  map[string][]model.Stage
	attached      map[string][2]string
}

func newMemStore() *memStore {
	return &memStore{
		owners:        make(map[string]*model.Owner),
		properties:    make(map[string]*model.Property),
		contactsByKey: make(map[string]*model.Contact),
		contactsByID:  make(map[string]*model.Contact),
		phones:        make(map[string][]model.Phone),
		lookups:       make(map[string]*model.Lookup),
		details:       make(map[string]*model.PropertyDetails),
		stageHistory:  make(map[string][]model.Stage),
		attached:      make(map[string][2]string),
	}
}

func (m *memStore) FindOwnerByID(_ context.Context, id string) (*model.Owner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owners[id], nil
}

func (m *memStore) FindPropertyByID(_ context.Context, id string) (*model.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.properties[id], nil
}

func (m *memStore) FindContactByIdentity(_ context.Context, key string) (*model.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contactsByKey[key], nil
}

func (m *memStore) FindContactByID(_ context.Context, id string) (*model.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contactsByID[id], nil
}

func (m *memStore) CreateContact(_ context.Context, c *model.Contact, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	m.contactsByKey[key] = c
	m.contactsByID[c.ID] = c
	return nil
}

func (m *memStore) UpdateContact(_ context.Context, c *model.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contactsByID[c.ID] = c
	return nil
}

func (m *memStore) ListPhonesByContact(_ context.Context, contactID string) ([]model.Phone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Phone(nil), m.phones[contactID]...), nil
}

func (m *memStore) CreatePhone(_ context.Context, p *model.Phone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.phones[p.ContactID] {
		if existing.Number == p.Number {
			if existing.LookupID == "" {
				existing.Status = p.Status
				existing.ValidationTag = p.ValidationTag
				existing.LookupID = p.LookupID
				m.phones[p.ContactID][i] = existing
			}
			return nil
		}
	}
	p.ID = uuid.New().String()
	m.phones[p.ContactID] = append(m.phones[p.ContactID], *p)
	return nil
}

func (m *memStore) FindLookupByNumber(_ context.Context, number string) (*model.Lookup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups[number], nil
}

func (m *memStore) UpsertLookup(_ context.Context, l *model.Lookup) (*model.Lookup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.lookups[l.Number]; ok {
		return existing, nil
	}
	l.ID = uuid.New().String()
	m.lookups[l.Number] = l
	return l, nil
}

func (m *memStore) FindRelation(_ context.Context, a, b string) (*model.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.relations {
		if (r.ContactID == a && r.RelatedContactID == b) ||
			(r.ContactID == b && r.RelatedContactID == a) {
			return r, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateRelation(_ context.Context, r *model.Relation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.New().String()
	if r.Confirmations == 0 {
		r.Confirmations = 1
	}
	m.relations = append(m.relations, r)
	return nil
}

func (m *memStore) IncrementRelation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.relations {
		if r.ID == id {
			r.Confirmations++
			r.Bidirectional = true
		}
	}
	return nil
}

func (m *memStore) UpsertOwnership(_ context.Context, o *model.Ownership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.ownerships {
		if existing.PropertyID == o.PropertyID && existing.ContactID == o.ContactID {
			existing.IsPrimary = o.IsPrimary
			existing.OwnershipType = o.OwnershipType
			return nil
		}
	}
	o.ID = uuid.New().String()
	m.ownerships = append(m.ownerships, o)
	return nil
}

func (m *memStore) FindPropertyDetailsByProperty(_ context.Context, propertyID string) (*model.PropertyDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.details[propertyID], nil
}

func (m *memStore) UpsertPropertyDetails(_ context.Context, d *model.PropertyDetails) (*model.PropertyDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.details[d.PropertyID]; ok {
		d.ID = existing.ID
	} else if d.ID == "" {
		d.ID = uuid.New().String()
	}
	m.details[d.PropertyID] = d
	return d, nil
}

func (m *memStore) UpdateRecordStage(_ context.Context, recordID string, stage model.Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stageHistory[recordID] = append(m.stageHistory[recordID], stage)
	return nil
}

func (m *memStore) AttachRecordResolution(_ context.Context, recordID, contactID, detailsID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attached[recordID] = [2]string{contactID, detailsID}
	return nil
}

// stubSearch returns a canned response per owner first name.
type stubSearch struct {
	responses map[string]*skiptrace.SearchResponse
	err       error
}

func (s *stubSearch) Search(_ context.Context, req skiptrace.SearchRequest) (*skiptrace.SearchResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	if resp, ok := s.responses[req.FirstName]; ok {
		return resp, nil
	}
	return &skiptrace.SearchResponse{Status: "ok"}, nil
}

// stubLookup counts calls and answers with a caller name.
type stubLookup struct {
	mu         sync.Mutex
	calls      int
	callerName string
}

func (s *stubLookup) Lookup(_ context.Context, number string) (*phonelookup.Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return &phonelookup.Result{CallerName: s.callerName, CallerType: "CONSUMER"}, nil
}

func newCoordinator(st *memStore, search skiptrace.Client, lookup phonelookup.Client) *Coordinator {
	policy := phone.TestPolicy()
	resolver := ownership.NewResolver(st, ownership.NewRegistry(), policy)
	validator := phone.NewValidator(st, lookup, policy)
	return NewCoordinator(
		st,
		source.NewStoreOwnerSource(st),
		source.NewStorePropertySource(st),
		search,
		resolver,
		validator,
		policy,
	)
}

func seedRecord(st *memStore, ownerFirst, ownerLast, secondOwner string) model.PipelineRecord {
	ownerID := uuid.New().String()
	propertyID := uuid.New().String()
	st.owners[ownerID] = &model.Owner{
		ID: ownerID, FirstName: ownerFirst, LastName: ownerLast,
		SecondOwner:    secondOwner,
		MailingAddress: "1 Elm St", MailingCity: "Austin", MailingState: "TX", MailingZip: "78701",
	}
	st.properties[propertyID] = &model.Property{
		ID: propertyID, Address: "1 Elm St", City: "Austin", State: "TX", Zip: "78701",
	}
	return model.PipelineRecord{
		ID: uuid.New().String(), OwnerID: ownerID, PropertyID: propertyID,
		Stage: model.StageSentToSearch,
	}
}

func TestProcessRecordHappyPath(t *testing.T) {
	st := newMemStore()
	rec := seedRecord(st, "John", "Doe", "")

	search := &stubSearch{responses: map[string]*skiptrace.SearchResponse{
		"John": {Identities: []skiptrace.Identity{{
			Names:  []skiptrace.Name{{FirstName: "John", LastName: "Doe", Age: 61}},
			Phones: []skiptrace.Phone{{Number: "5550000001", Type: "Wireless"}, {Number: "5550000002"}},
		}}},
	}}
	lookup := &stubLookup{callerName: "JOHN DOE"}
	c := newCoordinator(st, search, lookup)

	result, err := c.ProcessRecord(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, []model.Stage{
		model.StageSearchCompleted,
		model.StageValidationProcessing,
		model.StageValidationCompleted,
	}, st.stageHistory[rec.ID])
	assert.Equal(t, model.StageValidationCompleted, result.Stage)
	assert.Equal(t, 2, result.PhonesValidated)
	assert.Empty(t, result.PhonesSkipped)
	assert.Equal(t, 2, lookup.calls)

	contact := st.contactsByID[result.ContactID]
	require.NotNil(t, contact)
	assert.Equal(t, 61, contact.Age)

	phones := st.phones[contact.ID]
	require.Len(t, phones, 2)
	assert.Equal(t, "+15550000001", phones[0].Number)
	assert.Equal(t, "DS1", phones[0].ValidationTag)
	assert.Equal(t, "DS2", phones[1].ValidationTag)

	attached := st.attached[rec.ID]
	assert.Equal(t, contact.ID, attached[0])
	assert.NotEmpty(t, attached[1])
	require.Len(t, st.ownerships, 1)
	assert.True(t, st.ownerships[0].IsPrimary)
}

func TestProcessRecordZeroCandidates(t *testing.T) {
	st := newMemStore()
	rec := seedRecord(st, "John", "Doe", "")

	c := newCoordinator(st, &stubSearch{}, &stubLookup{})

	result, err := c.ProcessRecord(context.Background(), rec)
	require.NoError(t, err)

	// Search fails, validation never runs, but the synthesized contact
	// and the resolution ids still land.
	assert.Equal(t, []model.Stage{model.StageSearchFailed}, st.stageHistory[rec.ID])
	assert.Equal(t, model.StageSearchFailed, result.Stage)
	assert.Zero(t, result.PhonesValidated)

	contact := st.contactsByID[result.ContactID]
	require.NotNil(t, contact)
	assert.Equal(t, "John", contact.FirstName)
	assert.Equal(t, "Doe", contact.LastName)
	assert.NotEmpty(t, st.attached[rec.ID][0])
}

func TestProcessRecordDeceasedPrimaryUsesRelativePhone(t *testing.T) {
	st := newMemStore()
	rec := seedRecord(st, "John", "Smith", "")

	deceased := true
	search := &stubSearch{responses: map[string]*skiptrace.SearchResponse{
		"John": {Identities: []skiptrace.Identity{{
			Names:  []skiptrace.Name{{FirstName: "John", LastName: "Smith", Deceased: &deceased}},
			Phones: []skiptrace.Phone{{Number: "5550000001"}},
			Relatives: []skiptrace.Relative{
				{Name: "Jane Smith", Phones: []skiptrace.Phone{{Number: "3305551234"}, {Number: "3305555678"}}},
			},
		}}},
	}}
	lookup := &stubLookup{callerName: "JANE SMITH"}
	c := newCoordinator(st, search, lookup)

	result, err := c.ProcessRecord(context.Background(), rec)
	require.NoError(t, err)

	// Only the first relative's first phone is validated, as a relative
	// phone, never the deceased primary's own numbers.
	assert.Equal(t, 1, result.PhonesValidated)
	assert.Equal(t, 1, lookup.calls)

	primary := st.contactsByID[result.ContactID]
	require.NotNil(t, primary)
	assert.True(t, primary.Deceased)
	assert.Empty(t, st.phones[primary.ID])

	var tagged *model.Phone
	for _, phones := range st.phones {
		for i := range phones {
			if phones[i].ValidationTag != "" {
				tagged = &phones[i]
			}
		}
	}
	require.NotNil(t, tagged)
	assert.Equal(t, "R1", tagged.ValidationTag)
	assert.Equal(t, "+13305551234", tagged.Number)
	assert.NotEqual(t, primary.ID, tagged.ContactID)
}

func TestProcessRecordDeceasedRefreshesExistingContact(t *testing.T) {
	st := newMemStore()
	rec := seedRecord(st, "John", "Smith", "")

	// Contact already canonical from an earlier run, still marked alive.
	stored := &model.Contact{
		FirstName: "John", LastName: "Smith",
		MailingAddress: "1 Elm St", MailingCity: "Austin", MailingState: "TX", MailingZip: "78701",
	}
	require.NoError(t, st.CreateContact(context.Background(), stored, identity.Key("John", "Smith", "1 Elm St")))

	deceased := true
	search := &stubSearch{responses: map[string]*skiptrace.SearchResponse{
		"John": {Identities: []skiptrace.Identity{{
			Names:  []skiptrace.Name{{FirstName: "John", LastName: "Smith", Deceased: &deceased}},
			Phones: []skiptrace.Phone{{Number: "5550000001"}},
			Relatives: []skiptrace.Relative{
				{Name: "Jane Smith", Phones: []skiptrace.Phone{{Number: "3305551234"}}},
			},
		}}},
	}}
	lookup := &stubLookup{callerName: "JANE SMITH"}
	c := newCoordinator(st, search, lookup)

	result, err := c.ProcessRecord(context.Background(), rec)
	require.NoError(t, err)

	// The stored contact picks up the deceased flag, so its own phones
	// are never validated; only the relative's first phone is.
	primary := st.contactsByID[result.ContactID]
	require.NotNil(t, primary)
	assert.Equal(t, stored.ID, primary.ID)
	assert.True(t, primary.Deceased)
	assert.Empty(t, st.phones[primary.ID])
	assert.Equal(t, 1, result.PhonesValidated)
	assert.Equal(t, 1, lookup.calls)
}

func TestProcessRecordSecondOwnerFromRelativesOnly(t *testing.T) {
	st := newMemStore()
	rec := seedRecord(st, "John", "Doe", "Mary Doe")

	search := &stubSearch{responses: map[string]*skiptrace.SearchResponse{
		"John": {Identities: []skiptrace.Identity{{
			Names: []skiptrace.Name{{FirstName: "John", LastName: "Doe"}},
			Relatives: []skiptrace.Relative{
				{Name: "Mary Doe", Phones: []skiptrace.Phone{{Number: "3305559999"}}},
			},
		}}},
	}}
	lookup := &stubLookup{callerName: "MARY DOE"}
	c := newCoordinator(st, search, lookup)

	result, err := c.ProcessRecord(context.Background(), rec)
	require.NoError(t, err)

	// Mary never appears at top level, yet the co-owner contact exists
	// with the phone persisted, queued, and validated.
	require.Len(t, st.ownerships, 2)
	var secondary *model.Ownership
	for _, o := range st.ownerships {
		if !o.IsPrimary {
			secondary = o
		}
	}
	require.NotNil(t, secondary)
	assert.Equal(t, "secondary", secondary.OwnershipType)

	mary := st.contactsByID[secondary.ContactID]
	require.NotNil(t, mary)
	assert.Equal(t, "Mary", mary.FirstName)
	require.NotEmpty(t, st.phones[mary.ID])
	assert.Equal(t, "+13305559999", st.phones[mary.ID][0].Number)
	assert.GreaterOrEqual(t, result.PhonesValidated, 1)
}

func TestProcessRecordSecondOwnerFallsBackToDeed(t *testing.T) {
	st := newMemStore()
	rec := seedRecord(st, "John", "Doe", "")
	st.properties[rec.PropertyID].Owner2 = "Mary Doe"

	search := &stubSearch{responses: map[string]*skiptrace.SearchResponse{
		"John": {Identities: []skiptrace.Identity{{
			Names: []skiptrace.Name{{FirstName: "John", LastName: "Doe"}},
			Relatives: []skiptrace.Relative{
				{Name: "Mary Doe", Phones: []skiptrace.Phone{{Number: "3305559999"}}},
			},
		}}},
	}}
	c := newCoordinator(st, search, &stubLookup{callerName: "MARY DOE"})

	_, err := c.ProcessRecord(context.Background(), rec)
	require.NoError(t, err)

	// The owner row has no second-owner field, so the deed name drives
	// resolution of the secondary ownership.
	require.Len(t, st.ownerships, 2)
	var secondary *model.Ownership
	for _, o := range st.ownerships {
		if !o.IsPrimary {
			secondary = o
		}
	}
	require.NotNil(t, secondary)
	mary := st.contactsByID[secondary.ContactID]
	require.NotNil(t, mary)
	assert.Equal(t, "Mary", mary.FirstName)
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	st := newMemStore()
	good := seedRecord(st, "John", "Doe", "")
	bad := model.PipelineRecord{
		ID: uuid.New().String(), OwnerID: "missing-owner", PropertyID: "missing-property",
		Stage: model.StageSentToSearch,
	}

	c := newCoordinator(st, &stubSearch{}, &stubLookup{})

	summary := c.ProcessBatch(context.Background(), []model.PipelineRecord{bad, good}, 2)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, good.ID, summary.Results[0].RecordID)
}

func TestProcessBatchSearchErrorStillResolves(t *testing.T) {
	st := newMemStore()
	rec := seedRecord(st, "John", "Doe", "")

	c := newCoordinator(st, &stubSearch{err: eris.New("provider down")}, &stubLookup{})

	result, err := c.ProcessRecord(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, model.StageSearchFailed, result.Stage)
	assert.NotEmpty(t, result.ContactID)
}
