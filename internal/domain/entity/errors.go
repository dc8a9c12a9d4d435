package entity

import "errors"

// Validation failures of the lifecycle core. None of them is fatal; callers
// match them with errors.Is and surface them to the end user.
var (
	// ErrInvalidTransition is returned when the requested status is not a legal successor
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrMissingApprovers is returned when Submit is attempted before every required role is bound
	ErrMissingApprovers = errors.New("missing approvers")

	// ErrRecordTerminal is returned when a terminal record is mutated outside of Reopen
	ErrRecordTerminal = errors.New("record is terminal")

	// ErrMissingComment is returned when Reject, Cancel or MarkLost carries no reason
	ErrMissingComment = errors.New("comment required")

	// ErrOutOfOrderEntry is returned when a history entry predates the ledger tail
	ErrOutOfOrderEntry = errors.New("out of order history entry")

	// ErrUnknownRole is returned when assigning a role the record type does not declare
	ErrUnknownRole = errors.New("unknown approver role")

	// ErrActorNotPermitted is returned when the actor does not hold the role a transition requires
	ErrActorNotPermitted = errors.New("actor not permitted")

	// ErrInvalidActor is returned when an operation receives an actor without identity
	ErrInvalidActor = errors.New("invalid actor")

	// ErrUnknownRecordType is returned for record types outside the fixed enumeration
	ErrUnknownRecordType = errors.New("unknown record type")

	// ErrInvalidRecord is returned by boundary validation (negative amounts, missing ids)
	ErrInvalidRecord = errors.New("invalid record")
)
