// Package lifecycle applies requested status changes to records according to
// the fixed transition graph of each record type.
//
// Everything here is pure: no I/O, no clocks, no shared mutable state. The
// caller supplies the timestamp and persists the returned record.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/record-review/internal/domain/approver"
	"github.com/garyjia/record-review/internal/domain/entity"
	"github.com/garyjia/record-review/internal/domain/event"
	"github.com/garyjia/record-review/internal/domain/ledger"
	"github.com/garyjia/record-review/internal/domain/workflow"
)

// Result is the outcome of a successful transition
type Result struct {
	Record *entity.Record
	Event  *event.Event
}

var triggers = map[entity.Status]workflow.Trigger{
	entity.StatusSubmitted:   workflow.TriggerSubmit,
	entity.StatusUnderReview: workflow.TriggerStartReview,
	entity.StatusVerified:    workflow.TriggerApprove,
	entity.StatusApproved:    workflow.TriggerApprove,
	entity.StatusRejected:    workflow.TriggerReject,
	entity.StatusCancelled:   workflow.TriggerCancel,
	entity.StatusLost:        workflow.TriggerMarkLost,
	entity.StatusReopened:    workflow.TriggerReopen,
	entity.StatusDraft:       workflow.TriggerReopen,
}

// TriggerFor maps a requested status to the trigger that produces it
func TriggerFor(requested entity.Status) (workflow.Trigger, bool) {
	t, ok := triggers[requested]
	return t, ok
}

// Transition moves rec towards the requested status on behalf of actor.
// The input record is never modified; on success a new record with one more
// ledger entry is returned together with the event describing it.
func Transition(rec *entity.Record, requested entity.Status, actor entity.Actor, comment string, at time.Time) (*Result, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	trigger, machine, err := plan(rec, requested, actor, comment)
	if err != nil {
		return nil, err
	}

	history, err := ledger.Append(rec.History, entity.HistoryEntry{
		ActorID:        actor.ID,
		ActorName:      actor.Name,
		ActorRole:      actor.Role,
		Action:         trigger.String(),
		PreviousStatus: rec.Status,
		Status:         machine.State(),
		Timestamp:      at,
		Comment:        strings.TrimSpace(comment),
	})
	if err != nil {
		return nil, err
	}

	updated := rec.Clone()
	updated.Status = machine.State()
	updated.History = history

	return &Result{
		Record: updated,
		Event:  event.NewTransitioned(updated, actor),
	}, nil
}

// plan runs every check in order and fires the trigger on a throwaway machine.
// The order is: terminal lock, graph membership, comment, approvers, permission.
func plan(rec *entity.Record, requested entity.Status, actor entity.Actor, comment string) (workflow.Trigger, workflow.StateMachine, error) {
	c := graphs[rec.Type]
	machine := c.builder.Build(rec.Status)

	trigger, ok := TriggerFor(requested)

	if rec.Status.IsTerminal() && (!ok || trigger != workflow.TriggerReopen || !machine.CanFire(trigger)) {
		return "", nil, fmt.Errorf("%w: %s %s is %s", entity.ErrRecordTerminal, rec.Type, rec.ID, rec.Status)
	}

	if !ok {
		return "", nil, fmt.Errorf("%w: %s cannot be requested", entity.ErrInvalidTransition, requested)
	}

	if !machine.CanFire(trigger) {
		return "", nil, fmt.Errorf("%w: %s from %s to %s", entity.ErrInvalidTransition, rec.Type, rec.Status, requested)
	}

	if trigger.RequiresComment() && strings.TrimSpace(comment) == "" {
		return "", nil, fmt.Errorf("%w: %s requires a comment", entity.ErrMissingComment, trigger)
	}

	if trigger == workflow.TriggerSubmit && !approver.IsSubmittable(rec) {
		return "", nil, fmt.Errorf("%w: %v", entity.ErrMissingApprovers, approver.Missing(rec))
	}

	req := workflow.Request{Record: rec, Actor: actor, Comment: comment}
	if err := machine.Fire(trigger, req); err != nil {
		if errors.Is(err, workflow.ErrGuardFailed) && !errors.Is(err, entity.ErrActorNotPermitted) {
			return "", nil, fmt.Errorf("%w: %w", entity.ErrActorNotPermitted, err)
		}
		return "", nil, err
	}

	if !accepts(requested, machine.State()) {
		return "", nil, fmt.Errorf("%w: requested %s but %s leads to %s",
			entity.ErrInvalidTransition, requested, trigger, machine.State())
	}

	return trigger, machine, nil
}

// accepts tolerates the aliases a caller may use: Approved for a first-stage
// sign-off that lands on Verified, and Draft for Reopen.
func accepts(requested, result entity.Status) bool {
	switch {
	case requested == result:
		return true
	case requested == entity.StatusApproved && result == entity.StatusVerified:
		return true
	case requested == entity.StatusDraft && result == entity.StatusReopened:
		return true
	default:
		return false
	}
}

// Permitted returns the statuses actor could request on rec right now.
// Transitions that need a comment are listed; the comment itself is checked on Transition.
func Permitted(rec *entity.Record, actor entity.Actor) []entity.Status {
	if actor.Validate() != nil || rec.Validate() != nil {
		return nil
	}

	c := graphs[rec.Type]
	var out []entity.Status
	seen := make(map[entity.Status]bool)

	for _, trigger := range c.builder.Build(rec.Status).PermittedTriggers() {
		if trigger == workflow.TriggerSubmit && !approver.IsSubmittable(rec) {
			continue
		}
		machine := c.builder.Build(rec.Status)
		if err := machine.Fire(trigger, workflow.Request{Record: rec, Actor: actor}); err != nil {
			continue
		}
		if s := machine.State(); !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	return out
}
