package lifecycle

import (
	"fmt"

	"github.com/garyjia/record-review/internal/domain/approver"
	"github.com/garyjia/record-review/internal/domain/entity"
	"github.com/garyjia/record-review/internal/domain/workflow"
)

func owner(req workflow.Request) error {
	if req.Actor.ID != req.Record.OwnerID {
		return fmt.Errorf("%w: %s is not the owner of %s", entity.ErrActorNotPermitted, req.Actor.ID, req.Record.ID)
	}
	return nil
}

func ownerOrAdmin(req workflow.Request) error {
	if req.Actor.IsAdmin() {
		return nil
	}
	return owner(req)
}

// boundTo lets through only the actor bound to role on the record
func boundTo(role entity.ApproverRole) workflow.GuardFunc {
	return func(req workflow.Request) error {
		if bound := req.Record.Approvers[role]; bound == "" || bound != req.Actor.ID {
			return fmt.Errorf("%w: %s is not the bound %s", entity.ErrActorNotPermitted, req.Actor.ID, role)
		}
		return nil
	}
}

// anyBound lets through an actor bound to any role the record type declares
func anyBound(req workflow.Request) error {
	for _, role := range approver.RequiredRoles(req.Record.Type) {
		if bound := req.Record.Approvers[role]; bound != "" && bound == req.Actor.ID {
			return nil
		}
	}
	return fmt.Errorf("%w: %s holds no reviewer role on %s", entity.ErrActorNotPermitted, req.Actor.ID, req.Record.ID)
}

// hasRole checks the actor's own role rather than a per-record binding
func hasRole(role string) workflow.GuardFunc {
	return func(req workflow.Request) error {
		if req.Actor.Role != role {
			return fmt.Errorf("%w: role %q required, got %q", entity.ErrActorNotPermitted, role, req.Actor.Role)
		}
		return nil
	}
}
