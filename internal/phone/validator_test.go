package phone

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/skiptrace-cli/internal/model"
	"github.com/sells-group/skiptrace-cli/internal/resilience"
	"github.com/sells-group/skiptrace-cli/pkg/phonelookup"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// memStore is an in-memory phone.Store for validator tests.
type memStore struct {
	mu      sync.Mutex
	phones  map[string][]model.Phone // contactID -> phones
	lookups map[string]*model.Lookup // number -> lookup
}

func newMemStore() *memStore {
	return &memStore{
		phones:  make(map[string][]model.Phone),
		lookups: make(map[string]*model.Lookup),
	}
}

func (m *memStore) ListPhonesByContact(ctx context.Context, contactID string) ([]model.Phone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Phone(nil), m.phones[contactID]...), nil
}

func (m *memStore) CreatePhone(ctx context.Context, p *model.Phone) error {
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

func (m *memStore) FindLookupByNumber(ctx context.Context, number string) (*model.Lookup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.lookups[number]; ok {
		copied := *l
		return &copied, nil
	}
	return nil, nil
}

func (m *memStore) UpsertLookup(ctx context.Context, l *model.Lookup) (*model.Lookup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.lookups[l.Number]; ok {
		copied := *existing
		return &copied, nil
	}
	l.ID = uuid.New().String()
	copied := *l
	m.lookups[l.Number] = &copied
	return l, nil
}

// stubClient returns canned results and counts calls.
type stubClient struct {
	mu      sync.Mutex
	calls   int
	results []func() (*phonelookup.Result, error)
}

func (s *stubClient) Lookup(ctx context.Context, number string) (*phonelookup.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if idx < len(s.results) {
		return s.results[idx]()
	}
	return &phonelookup.Result{CallerName: "SMITH JOHN", RecordType: "wireless"}, nil
}

func okResult(name string) func() (*phonelookup.Result, error) {
	return func() (*phonelookup.Result, error) {
		return &phonelookup.Result{CallerName: name, Carrier: "Verizon Wireless"}, nil
	}
}

func rateLimited() func() (*phonelookup.Result, error) {
	return func() (*phonelookup.Result, error) {
		return nil, resilience.NewRateLimitError(eris.New("rate limit exceeded"), 429)
	}
}

func contact(first, last string) *model.Contact {
	return &model.Contact{ID: uuid.New().String(), FirstName: first, LastName: last}
}

func TestValidateOne_Validated(t *testing.T) {
	st := newMemStore()
	client := &stubClient{results: []func() (*phonelookup.Result, error){okResult("SMITH JOHN")}}
	v := NewValidator(st, client, TestPolicy())

	c := contact("John", "Smith")
	out, err := v.ValidateOne(context.Background(), Request{Contact: c, Number: "3307605034", Tag: "DS1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeValidated, out.Kind)
	assert.Equal(t, "+13307605034", out.Number)
	assert.Equal(t, string(ClassIDMatch), out.Lookup.Classification)
	assert.Equal(t, "DS1", out.Phone.ValidationTag)
	assert.Equal(t, 1, client.calls)
}

func TestValidateOne_DuplicateIsIdempotent(t *testing.T) {
	st := newMemStore()
	client := &stubClient{}
	v := NewValidator(st, client, TestPolicy())

	c := contact("John", "Smith")
	first, err := v.ValidateOne(context.Background(), Request{Contact: c, Number: "(330) 760-5034", Tag: "DS1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeValidated, first.Kind)

	// Same number in E.164 form: suffix dedup catches it, no second row.
	second, err := v.ValidateOne(context.Background(), Request{Contact: c, Number: "+13307605034", Tag: "DS2"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, second.Kind)

	phones, _ := st.ListPhonesByContact(context.Background(), c.ID)
	assert.Len(t, phones, 1)
	assert.Equal(t, 1, client.calls)
}

func TestValidateOne_FillsUnvalidatedRow(t *testing.T) {
	st := newMemStore()
	client := &stubClient{results: []func() (*phonelookup.Result, error){okResult("SMITH JOHN")}}
	v := NewValidator(st, client, TestPolicy())

	// Phone persisted during resolution, no lookup yet; validation must
	// not treat it as a duplicate.
	c := contact("John", "Smith")
	require.NoError(t, st.CreatePhone(context.Background(), &model.Phone{ContactID: c.ID, Number: "+13307605034"}))

	out, err := v.ValidateOne(context.Background(), Request{Contact: c, Number: "3307605034", Tag: "R1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeValidated, out.Kind)
	assert.Equal(t, 1, client.calls)

	phones, _ := st.ListPhonesByContact(context.Background(), c.ID)
	require.Len(t, phones, 1)
	assert.Equal(t, "R1", phones[0].ValidationTag)
	assert.NotEmpty(t, phones[0].LookupID)
}

func TestValidateOne_LookupReuseAcrossContacts(t *testing.T) {
	st := newMemStore()
	client := &stubClient{results: []func() (*phonelookup.Result, error){okResult("SMITH JOHN")}}
	v := NewValidator(st, client, TestPolicy())

	a := contact("John", "Smith")
	b := contact("Jane", "Smith")

	outA, err := v.ValidateOne(context.Background(), Request{Contact: a, Number: "3307605034", Tag: "DS1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeValidated, outA.Kind)

	outB, err := v.ValidateOne(context.Background(), Request{Contact: b, Number: "3307605034", Tag: "R1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeReused, outB.Kind)

	// Exactly one provider call, two phone rows, one shared lookup.
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, outA.Lookup.ID, outB.Lookup.ID)
	phonesA, _ := st.ListPhonesByContact(context.Background(), a.ID)
	phonesB, _ := st.ListPhonesByContact(context.Background(), b.ID)
	assert.Len(t, phonesA, 1)
	assert.Len(t, phonesB, 1)
}

func TestValidateOne_RateLimitRetriesThenSucceeds(t *testing.T) {
	st := newMemStore()
	client := &stubClient{results: []func() (*phonelookup.Result, error){
		rateLimited(),
		rateLimited(),
		okResult("SMITH JOHN"),
	}}
	v := NewValidator(st, client, TestPolicy())

	c := contact("John", "Smith")
	out, err := v.ValidateOne(context.Background(), Request{Contact: c, Number: "3307605034", Tag: "DS1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeValidated, out.Kind)
	assert.Equal(t, 3, client.calls)
}

func TestValidateOne_RateLimitExhaustedIsSkipped(t *testing.T) {
	st := newMemStore()
	client := &stubClient{results: []func() (*phonelookup.Result, error){
		rateLimited(), rateLimited(), rateLimited(), rateLimited(), rateLimited(),
	}}
	v := NewValidator(st, client, TestPolicy())

	c := contact("John", "Smith")
	out, err := v.ValidateOne(context.Background(), Request{Contact: c, Number: "3307605034", Tag: "DS1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out.Kind)
	assert.Equal(t, 4, client.calls) // MaxAttempts from NoDelayPolicy
}

func TestValidateOne_TerminalProviderFailureIsSkipped(t *testing.T) {
	st := newMemStore()
	client := &stubClient{results: []func() (*phonelookup.Result, error){
		func() (*phonelookup.Result, error) { return nil, eris.New("number not found") },
	}}
	v := NewValidator(st, client, TestPolicy())

	c := contact("John", "Smith")
	out, err := v.ValidateOne(context.Background(), Request{Contact: c, Number: "3307605034", Tag: "DS1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out.Kind)
	assert.Contains(t, out.Reason, "number not found")
	assert.Equal(t, 1, client.calls)
}

func TestValidateOne_NonStandardNumberSkipped(t *testing.T) {
	st := newMemStore()
	client := &stubClient{}
	v := NewValidator(st, client, TestPolicy())

	c := contact("John", "Smith")
	out, err := v.ValidateOne(context.Background(), Request{Contact: c, Number: "12345", Tag: "DS1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out.Kind)
	assert.Equal(t, "invalid number format", out.Reason)
	assert.Equal(t, 0, client.calls)
}

func TestValidateBatch_Sequential(t *testing.T) {
	st := newMemStore()
	client := &stubClient{results: []func() (*phonelookup.Result, error){
		okResult("SMITH JOHN"),
		okResult("WIRELESS CALLER"),
	}}
	v := NewValidator(st, client, TestPolicy())

	c := contact("John", "Smith")
	outcomes, err := v.ValidateBatch(context.Background(), []Request{
		{Contact: c, Number: "3307605034", Tag: "DS1"},
		{Contact: c, Number: "3305551234", Tag: "DS2"},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, OutcomeValidated, outcomes[0].Kind)
	assert.Equal(t, OutcomeValidated, outcomes[1].Kind)
	assert.Equal(t, string(ClassWireless), outcomes[1].Lookup.Classification)
}
