// Package approver binds the reviewer roles a record type declares to concrete actors.
package approver

import (
	"fmt"
	"strings"

	"github.com/garyjia/record-review/internal/domain/entity"
)

// Roles declared per record type, in sign-off order.
// Expenditures are status-only and reviewed by the finance role instead.
var requiredRoles = map[entity.RecordType][]entity.ApproverRole{
	entity.RecordTypeTrip:        {entity.RoleVerifier, entity.RoleApprover},
	entity.RecordTypeReport:      {entity.RoleReviewer},
	entity.RecordTypeTender:      {entity.RoleApprover},
	entity.RecordTypeExpenditure: {},
}

// RequiredRoles returns the roles a record type declares
func RequiredRoles(recordType entity.RecordType) []entity.ApproverRole {
	roles := requiredRoles[recordType]
	out := make([]entity.ApproverRole, len(roles))
	copy(out, roles)
	return out
}

// IsDeclared returns true if the record type declares the role
func IsDeclared(recordType entity.RecordType, role entity.ApproverRole) bool {
	for _, r := range requiredRoles[recordType] {
		if r == role {
			return true
		}
	}
	return false
}

// Missing returns the declared roles that are not yet bound to an actor
func Missing(record *entity.Record) []entity.ApproverRole {
	var missing []entity.ApproverRole
	for _, role := range requiredRoles[record.Type] {
		if strings.TrimSpace(record.Approvers[role]) == "" {
			missing = append(missing, role)
		}
	}
	return missing
}

// IsSubmittable is true iff every declared role has a non-empty bound actor id
func IsSubmittable(record *entity.Record) bool {
	if record == nil || !record.Type.IsValid() {
		return false
	}
	return len(Missing(record)) == 0
}

// Assign binds role to actorID and returns the updated copy. The input record is left untouched.
func Assign(record *entity.Record, role entity.ApproverRole, actorID string) (*entity.Record, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: record is nil", entity.ErrInvalidRecord)
	}
	if !record.Type.IsValid() {
		return nil, fmt.Errorf("%w: %s", entity.ErrUnknownRecordType, record.Type)
	}
	if !IsDeclared(record.Type, role) {
		return nil, fmt.Errorf("%w: %s is not declared for %s", entity.ErrUnknownRole, role, record.Type)
	}
	if !record.Status.IsEditable() {
		return nil, fmt.Errorf("%w: cannot assign %s while record %s is %s",
			entity.ErrRecordTerminal, role, record.ID, record.Status)
	}
	if strings.TrimSpace(actorID) == "" {
		return nil, fmt.Errorf("%w: empty actor id for role %s", entity.ErrInvalidActor, role)
	}

	updated := record.Clone()
	updated.Approvers[role] = actorID
	return updated, nil
}
