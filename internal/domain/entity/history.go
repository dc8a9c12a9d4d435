package entity

import "time"

// HistoryEntry is one immutable fact about a transition. Actor fields are
// captured at the time of the transition so the trail survives renames.
type HistoryEntry struct {
	ActorID        string    `json:"actor_id"`
	ActorName      string    `json:"actor_name"`
	ActorRole      string    `json:"actor_role"`
	Action         string    `json:"action"`
	PreviousStatus Status    `json:"previous_status"`
	Status         Status    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	Comment        string    `json:"comment,omitempty"`
}

// Actions recorded on history entries
const (
	ActionSubmit      = "SUBMIT"
	ActionStartReview = "START_REVIEW"
	ActionApprove     = "APPROVE"
	ActionReject      = "REJECT"
	ActionMarkLost    = "MARK_LOST"
	ActionCancel      = "CANCEL"
	ActionReopen      = "REOPEN" // distinctly logged, starts a fresh approval round
)
