package domain

import "time"

// ConfirmationEntry is a pending gate check-in: the Orchestrator parks a
// PipelineState here before asking the user "confirm Y/N", and Fulfillment
// may only proceed after a caller consumes the matching token exactly once.
type ConfirmationEntry struct {
	SessionID      string
	Token          string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	PendingState   PipelineState
	Replacement    *ReplacementInfo
	Consumed       bool
}

// Expired reports whether this entry's TTL has elapsed as of now.
func (e ConfirmationEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
