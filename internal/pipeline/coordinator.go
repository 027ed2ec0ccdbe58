// Package pipeline drives pipeline records through search, resolution,
// persistence, and phone validation, advancing the stage machine as each
// phase lands.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/skiptrace-cli/internal/identity"
	"github.com/sells-group/skiptrace-cli/internal/model"
	"github.com/sells-group/skiptrace-cli/internal/ownership"
	"github.com/sells-group/skiptrace-cli/internal/phone"
	"github.com/sells-group/skiptrace-cli/internal/source"
	"github.com/sells-group/skiptrace-cli/pkg/skiptrace"
)

// Store is the slice of persistence the coordinator itself needs. The
// ownership resolver and phone validator carry their own slices.
type Store interface {
	UpdateRecordStage(ctx context.Context, recordID string, stage model.Stage) error
	AttachRecordResolution(ctx context.Context, recordID, contactID, propertyDetailsID string) error
	UpsertOwnership(ctx context.Context, o *model.Ownership) error
	FindPropertyDetailsByProperty(ctx context.Context, propertyID string) (*model.PropertyDetails, error)
	UpsertPropertyDetails(ctx context.Context, d *model.PropertyDetails) (*model.PropertyDetails, error)
}

// Coordinator orchestrates one record end to end and fans a batch out
// with per-record failure isolation.
type Coordinator struct {
	store      Store
	owners     source.OwnerSource
	properties source.PropertySource
	searcher   skiptrace.Client
	resolver   *ownership.Resolver
	validator  *phone.Validator
	policy     phone.Policy
}

func NewCoordinator(
	st Store,
	owners source.OwnerSource,
	properties source.PropertySource,
	searcher skiptrace.Client,
	resolver *ownership.Resolver,
	validator *phone.Validator,
	policy phone.Policy,
) *Coordinator {
	return &Coordinator{
		store:      st,
		owners:     owners,
		properties: properties,
		searcher:   searcher,
		resolver:   resolver,
		validator:  validator,
		policy:     policy,
	}
}

// ProcessRecord runs the full per-record flow: search, stage advance,
// identity/ownership resolution and persistence (on both search
// branches), then sequential phone validation when any phones were
// queued. A search with zero candidates fails the search stage but still
// persists a contact synthesized from the owner identity.
func (c *Coordinator) ProcessRecord(ctx context.Context, rec model.PipelineRecord) (*model.RecordResult, error) {
	start := time.Now()
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("record_id", rec.ID),
	)

	owner, err := c.owners.FindOwnerIdentity(ctx, rec.OwnerID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load owner")
	}
	property, err := c.properties.FindPropertyIdentity(ctx, rec.PropertyID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load property")
	}
	// The deed's second name backs the owner record when ingestion left
	// its second-owner field blank.
	if strings.TrimSpace(owner.SecondOwner) == "" {
		owner.SecondOwner = property.Owner2
	}

	var candidates []skiptrace.Identity
	resp, err := c.searcher.Search(ctx, searchRequest(owner, property))
	if err != nil {
		log.Warn("search call failed", zap.Error(err))
	} else if resp != nil {
		candidates = resp.Identities
	}

	stage := model.StageSearchCompleted
	if len(candidates) == 0 {
		stage = model.StageSearchFailed
	}
	if err := c.advance(ctx, &rec, stage); err != nil {
		return nil, err
	}

	// Resolution and persistence run on both branches; a failed search
	// only blocks validation.
	match, matched := identity.Resolve(candidates, identity.Expected{
		FirstName: owner.FirstName,
		LastName:  owner.LastName,
	})

	contact, err := c.resolver.FindOrCreateContact(ctx, primaryContact(owner, match, matched))
	if err != nil {
		return nil, err
	}
	if err := c.store.UpsertOwnership(ctx, &model.Ownership{
		PropertyID:    rec.PropertyID,
		ContactID:     contact.ID,
		IsPrimary:     true,
		OwnershipType: "primary",
	}); err != nil {
		return nil, eris.Wrap(err, "pipeline: upsert primary ownership")
	}

	var relatives []ownership.Relative
	if matched {
		relatives, err = c.resolver.ProcessRelatives(ctx, contact, match.Candidate.Relatives)
		if err != nil {
			return nil, err
		}
	}

	co, err := c.resolver.ResolveSecondOwner(ctx, owner, candidates)
	if err != nil {
		return nil, err
	}
	if co != nil {
		if err := c.store.UpsertOwnership(ctx, &model.Ownership{
			PropertyID:    rec.PropertyID,
			ContactID:     co.Contact.ID,
			IsPrimary:     false,
			OwnershipType: "secondary",
		}); err != nil {
			return nil, eris.Wrap(err, "pipeline: upsert secondary ownership")
		}
	}

	detailsID, err := c.resolveDetails(ctx, rec.PropertyID)
	if err != nil {
		return nil, err
	}

	queue := c.buildQueue(contact, match, matched, relatives, co)

	result := &model.RecordResult{RecordID: rec.ID, ContactID: contact.ID}
	if len(queue) > 0 && rec.Stage.CanTransition(model.StageValidationProcessing) {
		if err := c.advance(ctx, &rec, model.StageValidationProcessing); err != nil {
			return nil, err
		}
		outcomes, err := c.validator.ValidateBatch(ctx, queue)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: validate phones")
		}
		for _, o := range outcomes {
			switch o.Kind {
			case phone.OutcomeValidated, phone.OutcomeReused:
				result.PhonesValidated++
			case phone.OutcomeSkipped:
				result.PhonesSkipped = append(result.PhonesSkipped, model.SkippedPhone{
					Number: o.Number,
					Reason: o.Reason,
				})
			}
		}
		if err := c.advance(ctx, &rec, model.StageValidationCompleted); err != nil {
			return nil, err
		}
	}

	if err := c.store.AttachRecordResolution(ctx, rec.ID, contact.ID, detailsID); err != nil {
		return nil, eris.Wrap(err, "pipeline: attach resolution")
	}

	result.Stage = rec.Stage
	result.DurationMs = time.Since(start).Milliseconds()
	log.Info("record processed",
		zap.String("stage", string(rec.Stage)),
		zap.String("contact_id", contact.ID),
		zap.Int("phones_validated", result.PhonesValidated),
		zap.Int("phones_skipped", len(result.PhonesSkipped)),
	)
	return result, nil
}

// advance moves the record to the next stage, enforcing the transition
// graph.
func (c *Coordinator) advance(ctx context.Context, rec *model.PipelineRecord, to model.Stage) error {
	if !rec.Stage.CanTransition(to) {
		return eris.Errorf("pipeline: illegal stage transition %s -> %s for record %s", rec.Stage, to, rec.ID)
	}
	if err := c.store.UpdateRecordStage(ctx, rec.ID, to); err != nil {
		return eris.Wrapf(err, "pipeline: advance record to %s", to)
	}
	rec.Stage = to
	return nil
}

// resolveDetails attaches the existing details row for the property,
// creating an empty one when ingestion has not provided details yet so
// the record always carries a stable details id.
func (c *Coordinator) resolveDetails(ctx context.Context, propertyID string) (string, error) {
	existing, err := c.store.FindPropertyDetailsByProperty(ctx, propertyID)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: find property details")
	}
	if existing != nil {
		return existing.ID, nil
	}
	created, err := c.store.UpsertPropertyDetails(ctx, &model.PropertyDetails{PropertyID: propertyID})
	if err != nil {
		return "", eris.Wrap(err, "pipeline: create property details")
	}
	return created.ID, nil
}

// buildQueue applies the selection policy: a deceased primary yields only
// the first phone of the first relative that has one; otherwise the first
// MaxPrimaryPhones primary phones. Co-owner phones are queued on top in
// both cases.
func (c *Coordinator) buildQueue(
	contact *model.Contact,
	match *identity.Match,
	matched bool,
	relatives []ownership.Relative,
	co *ownership.CoOwner,
) []phone.Request {
	var queue []phone.Request

	switch {
	case contact.Deceased:
		for _, rel := range relatives {
			if len(rel.Phones) == 0 {
				continue
			}
			queue = append(queue, phone.Request{
				Contact: rel.Contact,
				Number:  rel.Phones[0],
				Tag:     phone.OrdinalTag("R", 0),
			})
			break
		}
	case matched:
		seen := 0
		for _, p := range match.Candidate.Phones {
			if seen >= c.policy.MaxPrimaryPhones {
				break
			}
			e164, standard := phone.Normalize(p.Number)
			if !standard {
				continue
			}
			if containsNumber(queue, e164) {
				continue
			}
			queue = append(queue, phone.Request{
				Contact: contact,
				Number:  e164,
				Type:    p.Type,
				Tag:     phone.OrdinalTag("DS", seen),
			})
			seen++
		}
	}

	if co != nil {
		queue = append(queue, co.Queued...)
	}
	return queue
}

func containsNumber(queue []phone.Request, e164 string) bool {
	for _, q := range queue {
		if phone.SameNumber(q.Number, e164) {
			return true
		}
	}
	return false
}

// searchRequest builds the provider request from the owner identity and
// the property's location.
func searchRequest(owner *model.Owner, property *model.Property) skiptrace.SearchRequest {
	return skiptrace.SearchRequest{
		FirstName:       owner.FirstName,
		LastName:        owner.LastName,
		MailingAddress:  owner.MailingAddress,
		MailingCity:     owner.MailingCity,
		MailingState:    owner.MailingState,
		MailingZip:      owner.MailingZip,
		PropertyAddress: property.Address,
		PropertyCity:    property.City,
		PropertyState:   property.State,
		PropertyZip:     property.Zip,
	}
}

// primaryContact builds the contact to persist for the record's primary
// owner: the resolved provider name when resolution succeeded, otherwise
// an identity synthesized from the owner fields alone.
func primaryContact(owner *model.Owner, match *identity.Match, matched bool) *model.Contact {
	c := &model.Contact{
		FirstName:      owner.FirstName,
		LastName:       owner.LastName,
		MailingAddress: owner.MailingAddress,
		MailingCity:    owner.MailingCity,
		MailingState:   owner.MailingState,
		MailingZip:     owner.MailingZip,
	}
	if matched {
		c.FirstName = match.Name.FirstName
		c.LastName = match.Name.LastName
		c.Age = match.Name.Age
		if match.Name.Deceased != nil {
			c.Deceased = *match.Name.Deceased
		}
	}
	return c
}
