package workflow

import "github.com/garyjia/record-review/internal/domain/entity"

// State is a lifecycle status as seen by the state machine
type State = entity.Status

// isKnown reports whether s can be configured in a builder
func isKnown(s State) bool {
	return s.IsValid()
}
