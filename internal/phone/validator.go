package phone

import (
	"context"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/skiptrace-cli/internal/model"
	"github.com/sells-group/skiptrace-cli/internal/resilience"
	"github.com/sells-group/skiptrace-cli/pkg/phonelookup"
)

// Store is the slice of persistence the validator needs. Satisfied by
// store.Store.
type Store interface {
	ListPhonesByContact(ctx context.Context, contactID string) ([]model.Phone, error)
	CreatePhone(ctx context.Context, p *model.Phone) error
	FindLookupByNumber(ctx context.Context, number string) (*model.Lookup, error)
	UpsertLookup(ctx context.Context, l *model.Lookup) (*model.Lookup, error)
}

// OrdinalTag builds a 1-based source tag like "DS1" or "R2".
func OrdinalTag(prefix string, i int) string {
	return prefix + strconv.Itoa(i+1)
}

// Request queues one phone for validation against its owning contact.
type Request struct {
	Contact *model.Contact
	Number  string
	Type    string
	Tag     string // ordinal validation tag: "DS1", "R1", ...
}

// OutcomeKind classifies what happened to a queued phone.
type OutcomeKind string

const (
	OutcomeValidated OutcomeKind = "validated" // provider call made, phone + lookup persisted
	OutcomeReused    OutcomeKind = "reused"    // existing lookup reused, phone persisted, no call
	OutcomeDuplicate OutcomeKind = "duplicate" // contact already has this number, no-op
	OutcomeSkipped   OutcomeKind = "skipped"   // terminal failure, reason recorded
)

// Outcome is the result of validating one queued phone.
type Outcome struct {
	Kind   OutcomeKind
	Number string
	Reason string
	Phone  *model.Phone
	Lookup *model.Lookup
}

// Validator drives queued phones through dedup, lookup reuse, and the
// rate-limited provider call.
type Validator struct {
	store  Store
	client phonelookup.Client
	policy Policy
}

// NewValidator creates a Validator with the given policy.
func NewValidator(st Store, client phonelookup.Client, policy Policy) *Validator {
	return &Validator{store: st, client: client, policy: policy}
}

// ValidateBatch processes requests strictly sequentially with the policy's
// inter-call delay between provider calls. Terminal per-phone failures
// become skipped outcomes; only store errors abort the batch.
func (v *Validator) ValidateBatch(ctx context.Context, reqs []Request) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(reqs))
	for i, req := range reqs {
		if i > 0 && v.policy.InterCallDelay > 0 {
			timer := time.NewTimer(v.policy.InterCallDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return outcomes, ctx.Err()
			case <-timer.C:
			}
		}

		outcome, err := v.ValidateOne(ctx, req)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, *outcome)
	}
	return outcomes, nil
}

// ValidateOne runs the full per-phone flow: normalize, dedup against the
// contact's existing phones, reuse a cached Lookup if one exists for the
// number, otherwise call the provider with rate-limit backoff.
func (v *Validator) ValidateOne(ctx context.Context, req Request) (*Outcome, error) {
	log := zap.L().With(
		zap.String("component", "phone_validator"),
		zap.String("contact_id", req.Contact.ID),
	)

	e164, standard := Normalize(req.Number)
	if !standard {
		log.Debug("skipping non-standard number", zap.String("number", req.Number))
		return &Outcome{Kind: OutcomeSkipped, Number: req.Number, Reason: "invalid number format"}, nil
	}

	// Dedup by last-10 suffix against the contact's already-validated
	// phones. An unvalidated row (persisted during resolution, no lookup
	// yet) does not block validation; the upsert below fills it in.
	existing, err := v.store.ListPhonesByContact(ctx, req.Contact.ID)
	if err != nil {
		return nil, eris.Wrap(err, "phone: list contact phones")
	}
	for _, p := range existing {
		if SameNumber(p.Number, e164) && p.LookupID != "" {
			log.Debug("duplicate number for contact", zap.String("number", e164))
			return &Outcome{Kind: OutcomeDuplicate, Number: e164, Reason: "already validated for contact"}, nil
		}
	}

	// Reuse a shared Lookup when the number was validated for anyone
	// before; the provider is never called twice for one number.
	cached, err := v.store.FindLookupByNumber(ctx, e164)
	if err != nil {
		return nil, eris.Wrap(err, "phone: find lookup")
	}
	if cached != nil {
		phone, err := v.persistPhone(ctx, req, e164, cached)
		if err != nil {
			return nil, err
		}
		log.Debug("lookup cache hit", zap.String("number", e164))
		return &Outcome{Kind: OutcomeReused, Number: e164, Phone: phone, Lookup: cached}, nil
	}

	retry := v.policy.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("phonelookup", "lookup")
	}
	result, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*phonelookup.Result, error) {
		return v.client.Lookup(ctx, e164)
	})
	if err != nil {
		// Terminal for this phone only: exhausted rate-limit retries,
		// provider failure, or timeout.
		log.Warn("lookup failed", zap.String("number", e164), zap.Error(err))
		return &Outcome{Kind: OutcomeSkipped, Number: e164, Reason: eris.Cause(err).Error()}, nil
	}

	lookup := &model.Lookup{
		Number:         e164,
		CallerName:     result.CallerName,
		CallerType:     result.CallerType,
		Carrier:        result.Carrier,
		CountryCode:    result.CountryCode,
		NationalFormat: result.NationalFormat,
		Portable:       result.Portable,
		RecordType:     result.RecordType,
		Classification: string(Classify(result.CallerName, req.Contact.FirstName, req.Contact.LastName)),
	}
	// Upsert by number: two concurrent records discovering the same
	// number converge on one row via the store's unique constraint.
	lookup, err = v.store.UpsertLookup(ctx, lookup)
	if err != nil {
		return nil, eris.Wrap(err, "phone: upsert lookup")
	}

	phone, err := v.persistPhone(ctx, req, e164, lookup)
	if err != nil {
		return nil, err
	}

	log.Info("phone validated",
		zap.String("number", e164),
		zap.String("classification", lookup.Classification),
		zap.String("tag", req.Tag),
	)
	return &Outcome{Kind: OutcomeValidated, Number: e164, Phone: phone, Lookup: lookup}, nil
}

func (v *Validator) persistPhone(ctx context.Context, req Request, e164 string, lookup *model.Lookup) (*model.Phone, error) {
	p := &model.Phone{
		ContactID:     req.Contact.ID,
		Number:        e164,
		Type:          req.Type,
		Status:        "validated",
		ValidationTag: req.Tag,
		LookupID:      lookup.ID,
	}
	if err := v.store.CreatePhone(ctx, p); err != nil {
		return nil, eris.Wrap(err, "phone: create phone")
	}
	return p, nil
}
