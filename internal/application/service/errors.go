package service

import (
	"errors"

	"github.com/garyjia/record-review/internal/application/port"
	"github.com/garyjia/record-review/internal/domain/entity"
	"github.com/garyjia/record-review/internal/domain/rollup"
)

// ErrValidation is returned when request input fails boundary validation
var ErrValidation = errors.New("validation failed")

var reasons = []struct {
	err    error
	reason string
}{
	{entity.ErrInvalidTransition, "invalid_transition"},
	{entity.ErrRecordTerminal, "record_terminal"},
	{entity.ErrMissingApprovers, "missing_approvers"},
	{entity.ErrMissingComment, "missing_comment"},
	{entity.ErrActorNotPermitted, "actor_not_permitted"},
	{entity.ErrInvalidActor, "invalid_actor"},
	{entity.ErrUnknownRole, "unknown_role"},
	{entity.ErrUnknownRecordType, "unknown_record_type"},
	{entity.ErrOutOfOrderEntry, "out_of_order_entry"},
	{entity.ErrInvalidRecord, "invalid_record"},
	{rollup.ErrUnknownGroupBy, "unknown_group_by"},
	{port.ErrNotFound, "not_found"},
	{port.ErrConflict, "conflict"},
	{ErrValidation, "validation"},
}

// Reason returns a short stable label for an error, used in metrics and API bodies
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "internal"
}
