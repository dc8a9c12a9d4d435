package workflow

// StateMachine tracks the current state of one record and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is configured for the current state
	CanFire(trigger Trigger) bool

	// Fire evaluates guards for the trigger and moves to the first target whose guard passes
	Fire(trigger Trigger, req Request) error

	// PermittedTriggers returns the triggers configured for the current state, in configuration order
	PermittedTriggers() []Trigger
}
