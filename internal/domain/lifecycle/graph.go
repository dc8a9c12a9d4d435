package lifecycle

import (
	"github.com/garyjia/record-review/internal/domain/approver"
	"github.com/garyjia/record-review/internal/domain/entity"
	"github.com/garyjia/record-review/internal/domain/workflow"
)

// Edge is one permitted move in a record type's transition graph
type Edge struct {
	From    entity.Status    `json:"from"`
	Trigger workflow.Trigger `json:"trigger"`
	To      entity.Status    `json:"to"`
}

// Graph describes the fixed lifecycle of one record type
type Graph struct {
	Type       entity.RecordType     `json:"record_type"`
	Roles      []entity.ApproverRole `json:"roles"`
	ReopenFrom []entity.Status       `json:"reopen_from"`
	Edges      []Edge                `json:"edges"`
}

type edge struct {
	Edge
	guard workflow.GuardFunc
}

type compiled struct {
	graph   Graph
	builder workflow.StateMachineBuilder
}

var graphs = map[entity.RecordType]*compiled{
	entity.RecordTypeTrip:        compile(entity.RecordTypeTrip, tripEdges()),
	entity.RecordTypeReport:      compile(entity.RecordTypeReport, reportEdges()),
	entity.RecordTypeTender:      compile(entity.RecordTypeTender, tenderEdges()),
	entity.RecordTypeExpenditure: compile(entity.RecordTypeExpenditure, expenditureEdges()),
}

func on(from entity.Status, trigger workflow.Trigger, to entity.Status, guard workflow.GuardFunc) edge {
	return edge{Edge: Edge{From: from, Trigger: trigger, To: to}, guard: guard}
}

// draftEdges are shared by every type: the owner submits, owner or admin cancels
func draftEdges(states ...entity.Status) []edge {
	var out []edge
	for _, s := range states {
		out = append(out,
			on(s, workflow.TriggerSubmit, entity.StatusSubmitted, owner),
			on(s, workflow.TriggerCancel, entity.StatusCancelled, ownerOrAdmin),
		)
	}
	return out
}

func cancelFrom(states ...entity.Status) []edge {
	out := make([]edge, 0, len(states))
	for _, s := range states {
		out = append(out, on(s, workflow.TriggerCancel, entity.StatusCancelled, ownerOrAdmin))
	}
	return out
}

func reopenFrom(states ...entity.Status) []edge {
	out := make([]edge, 0, len(states))
	for _, s := range states {
		out = append(out, on(s, workflow.TriggerReopen, entity.StatusReopened, ownerOrAdmin))
	}
	return out
}

// Trip: verifier signs off first, then the approver
func tripEdges() []edge {
	verifier := boundTo(entity.RoleVerifier)
	finalApprover := boundTo(entity.RoleApprover)

	edges := draftEdges(entity.StatusDraft, entity.StatusReopened)
	edges = append(edges,
		on(entity.StatusSubmitted, workflow.TriggerApprove, entity.StatusVerified, verifier),
		on(entity.StatusSubmitted, workflow.TriggerReject, entity.StatusRejected, anyBound),
		on(entity.StatusVerified, workflow.TriggerApprove, entity.StatusApproved, finalApprover),
		on(entity.StatusVerified, workflow.TriggerReject, entity.StatusRejected, anyBound),
	)
	edges = append(edges, cancelFrom(entity.StatusSubmitted, entity.StatusVerified)...)
	return append(edges, reopenFrom(entity.StatusRejected, entity.StatusCancelled)...)
}

func reportEdges() []edge {
	reviewer := boundTo(entity.RoleReviewer)

	edges := draftEdges(entity.StatusDraft, entity.StatusReopened)
	edges = append(edges,
		on(entity.StatusSubmitted, workflow.TriggerStartReview, entity.StatusUnderReview, reviewer),
		on(entity.StatusSubmitted, workflow.TriggerApprove, entity.StatusApproved, reviewer),
		on(entity.StatusSubmitted, workflow.TriggerReject, entity.StatusRejected, reviewer),
		on(entity.StatusUnderReview, workflow.TriggerApprove, entity.StatusApproved, reviewer),
		on(entity.StatusUnderReview, workflow.TriggerReject, entity.StatusRejected, reviewer),
	)
	edges = append(edges, cancelFrom(entity.StatusSubmitted, entity.StatusUnderReview)...)
	return append(edges, reopenFrom(entity.StatusApproved, entity.StatusRejected, entity.StatusCancelled)...)
}

// Tender: approved means won. Outcomes are final.
func tenderEdges() []edge {
	a := boundTo(entity.RoleApprover)

	edges := draftEdges(entity.StatusDraft)
	edges = append(edges, on(entity.StatusSubmitted, workflow.TriggerStartReview, entity.StatusUnderReview, a))
	for _, s := range []entity.Status{entity.StatusSubmitted, entity.StatusUnderReview} {
		edges = append(edges,
			on(s, workflow.TriggerApprove, entity.StatusApproved, a),
			on(s, workflow.TriggerReject, entity.StatusRejected, a),
			on(s, workflow.TriggerMarkLost, entity.StatusLost, a),
		)
	}
	return append(edges, cancelFrom(entity.StatusSubmitted, entity.StatusUnderReview)...)
}

// Expenditure declares no approver roles; finance decides
func expenditureEdges() []edge {
	finance := hasRole(entity.ActorRoleFinance)

	edges := draftEdges(entity.StatusDraft, entity.StatusReopened)
	edges = append(edges,
		on(entity.StatusSubmitted, workflow.TriggerApprove, entity.StatusApproved, finance),
		on(entity.StatusSubmitted, workflow.TriggerReject, entity.StatusRejected, finance),
	)
	edges = append(edges, cancelFrom(entity.StatusSubmitted)...)
	return append(edges, reopenFrom(entity.StatusRejected)...)
}

func compile(recordType entity.RecordType, edges []edge) *compiled {
	builder := workflow.NewBuilder()
	g := Graph{
		Type:  recordType,
		Roles: approver.RequiredRoles(recordType),
		Edges: make([]Edge, 0, len(edges)),
	}

	for _, e := range edges {
		builder.Configure(e.From).PermitIf(e.Trigger, e.To, e.guard)
		g.Edges = append(g.Edges, e.Edge)
		if e.Trigger == workflow.TriggerReopen {
			g.ReopenFrom = append(g.ReopenFrom, e.From)
		}
	}

	return &compiled{graph: g, builder: builder}
}

// Definition returns the transition graph for a record type
func Definition(recordType entity.RecordType) (Graph, bool) {
	c, ok := graphs[recordType]
	if !ok {
		return Graph{}, false
	}
	g := c.graph
	g.Roles = append([]entity.ApproverRole{}, g.Roles...)
	g.ReopenFrom = append([]entity.Status{}, g.ReopenFrom...)
	g.Edges = append([]Edge{}, g.Edges...)
	return g, true
}

// SupportsReopen reports whether a record of this type may leave the given terminal status
func SupportsReopen(recordType entity.RecordType, from entity.Status) bool {
	c, ok := graphs[recordType]
	if !ok {
		return false
	}
	for _, s := range c.graph.ReopenFrom {
		if s == from {
			return true
		}
	}
	return false
}
