package workflow

import (
	"errors"

	"github.com/garyjia/record-review/internal/domain/entity"
)

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = entity.ErrInvalidTransition

	// ErrGuardFailed is returned when every guard on a permitted trigger rejects the request
	ErrGuardFailed = errors.New("guard condition failed")
)
