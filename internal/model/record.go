package model

import "time"

// Stage represents the processing stage of a pipeline record.
type Stage string

const (
	StageSentToSearch         Stage = "SENT_TO_SEARCH"
	StageSearchCompleted      Stage = "SEARCH_COMPLETED"
	StageSearchFailed         Stage = "SEARCH_FAILED"
	StageValidationProcessing Stage = "VALIDATION_PROCESSING"
	StageValidationCompleted  Stage = "VALIDATION_COMPLETED"
)

// stageTransitions defines the allowed stage graph. SEARCH_FAILED still
// permits resolution/persistence but blocks the validation branch.
var stageTransitions = map[Stage][]Stage{
	StageSentToSearch:         {StageSearchCompleted, StageSearchFailed},
	StageSearchCompleted:      {StageValidationProcessing, StageValidationCompleted},
	StageSearchFailed:         {},
	StageValidationProcessing: {StageValidationCompleted},
	StageValidationCompleted:  {},
}

// CanTransition reports whether moving from -> to is an allowed stage advance.
func (s Stage) CanTransition(to Stage) bool {
	for _, next := range stageTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further stage advance is possible.
func (s Stage) Terminal() bool {
	return len(stageTransitions[s]) == 0
}

// PipelineRecord is the unit of work: one (owner, property) pair approved
// for skip-trace processing, tracked through the stage graph.
type PipelineRecord struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"owner_id"`
	PropertyID        string    `json:"property_id"`
	Stage             Stage     `json:"stage"`
	Decision          string    `json:"decision,omitempty"`
	ContactID         string    `json:"contact_id,omitempty"`
	PropertyDetailsID string    `json:"property_details_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SkippedPhone records a phone that was not validated, with the reason
// (duplicate, invalid format, provider failure).
type SkippedPhone struct {
	Number string `json:"number"`
	Reason string `json:"reason"`
}

// RecordResult summarizes one record's trip through the pipeline.
type RecordResult struct {
	RecordID        string         `json:"record_id"`
	Stage           Stage          `json:"stage"`
	ContactID       string         `json:"contact_id,omitempty"`
	PhonesValidated int            `json:"phones_validated"`
	PhonesSkipped   []SkippedPhone `json:"phones_skipped,omitempty"`
	DurationMs      int64          `json:"duration_ms"`
}
