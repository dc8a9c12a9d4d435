package workflow

import "github.com/garyjia/record-review/internal/domain/entity"

// Trigger represents an action that can cause a state transition
type Trigger string

const (
	TriggerSubmit      Trigger = entity.ActionSubmit
	TriggerStartReview Trigger = entity.ActionStartReview
	TriggerApprove     Trigger = entity.ActionApprove
	TriggerReject      Trigger = entity.ActionReject
	TriggerMarkLost    Trigger = entity.ActionMarkLost
	TriggerCancel      Trigger = entity.ActionCancel
	TriggerReopen      Trigger = entity.ActionReopen
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// RequiresComment returns true for triggers that must carry a reason
func (t Trigger) RequiresComment() bool {
	switch t {
	case TriggerReject, TriggerCancel, TriggerMarkLost:
		return true
	default:
		return false
	}
}
