package publishers

import (
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
)

// Event sources.
const (
	SourceDirect = "direct"
	SourceSQS    = "sqs"
)

// OutcomeEvent is the payload published downstream after a node is processed.
type OutcomeEvent struct {
	ID               string    `json:"id"`
	RunID            string    `json:"run_id,omitempty"`
	Source           string    `json:"source"`
	NodeID           string    `json:"node_id"`
	UserID           string    `json:"user_id,omitempty"`
	Success          bool      `json:"success"`
	NewlyScraped     bool      `json:"newly_scraped"`
	AlreadyProcessed bool      `json:"already_processed"`
	Error            string    `json:"error,omitempty"`
	ProcessedAt      time.Time `json:"processed_at"`
}

// NewOutcomeEvent builds an event for the job's outcome.
func NewOutcomeEvent(runID, source string, job domain.Job, out domain.Outcome) OutcomeEvent {
	return OutcomeEvent{
		ID:               uuid.NewString(),
		RunID:            runID,
		Source:           source,
		NodeID:           job.NodeID,
		UserID:           job.UserID,
		Success:          out.Success,
		NewlyScraped:     out.NewlyScraped,
		AlreadyProcessed: out.AlreadyProcessed,
		Error:            out.Error,
		ProcessedAt:      time.Now().UTC(),
	}
}

// Status is the outcome label used for message attributes.
func (e OutcomeEvent) Status() string {
	return domain.Outcome{
		Success:          e.Success,
		NewlyScraped:     e.NewlyScraped,
		AlreadyProcessed: e.AlreadyProcessed,
	}.Status()
}
