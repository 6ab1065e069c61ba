package domain

// Outcome is the terminal state of one event's pipeline run.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	// OutcomeIgnored is the no-op result for unsupported event types.
	OutcomeIgnored Outcome = "ignored"
	OutcomeFailed  Outcome = "failed"
)

// PipelineResult summarises how the router handled one event.
type PipelineResult struct {
	EventID   string
	MessageID string
	Outcome   Outcome
	Stage     Stage
	URL       string
	Err       error
}
