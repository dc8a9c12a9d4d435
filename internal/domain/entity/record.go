package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Actor is an already-authenticated identity supplied on every mutating call
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Validate checks the actor carries an identity
func (a Actor) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: actor id is empty", ErrInvalidActor)
	}
	return nil
}

// IsAdmin returns true for administrators
func (a Actor) IsAdmin() bool {
	return a.Role == ActorRoleAdmin
}

// Record is any entity moving through a review lifecycle
type Record struct {
	ID            string                  `json:"id"`
	Type          RecordType              `json:"record_type"`
	Title         string                  `json:"title,omitempty"`
	OwnerID       string                  `json:"owner_id"`
	Status        Status                  `json:"status"`
	Approvers     map[ApproverRole]string `json:"approvers,omitempty"`
	History       []HistoryEntry          `json:"history"`
	MonetaryValue *decimal.Decimal        `json:"monetary_value,omitempty"`
	Category      string                  `json:"category,omitempty"`
	Code          string                  `json:"code,omitempty"`
	Branch        string                  `json:"branch,omitempty"`
	Region        string                  `json:"region,omitempty"`
	DueAt         *time.Time              `json:"due_at,omitempty"`
	Version       int64                   `json:"version"`
	CreatedAt     time.Time               `json:"created_at"`
}

// NewDraft creates a record in the initial Draft state with an empty ledger
func NewDraft(id string, recordType RecordType, ownerID string, createdAt time.Time) *Record {
	return &Record{
		ID:        id,
		Type:      recordType,
		OwnerID:   ownerID,
		Status:    StatusDraft,
		Approvers: make(map[ApproverRole]string),
		History:   []HistoryEntry{},
		CreatedAt: createdAt,
	}
}

// Validate rejects malformed records before they reach the state machine
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidRecord)
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: %s", ErrUnknownRecordType, r.Type)
	}
	if strings.TrimSpace(r.OwnerID) == "" {
		return fmt.Errorf("%w: owner id is empty", ErrInvalidRecord)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, r.Status)
	}
	if r.MonetaryValue != nil && r.MonetaryValue.IsNegative() {
		return fmt.Errorf("%w: monetary value %s is negative", ErrInvalidRecord, r.MonetaryValue.String())
	}
	return nil
}

// LastEntry returns the ledger tail, or false for an empty history
func (r *Record) LastEntry() (HistoryEntry, bool) {
	if len(r.History) == 0 {
		return HistoryEntry{}, false
	}
	return r.History[len(r.History)-1], true
}

// Value returns the monetary value, zero when absent
func (r *Record) Value() decimal.Decimal {
	if r.MonetaryValue == nil {
		return decimal.Zero
	}
	return *r.MonetaryValue
}

// Clone returns a deep copy so callers can derive a new record without touching the original
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	c := *r

	c.Approvers = make(map[ApproverRole]string, len(r.Approvers))
	for role, id := range r.Approvers {
		c.Approvers[role] = id
	}

	c.History = make([]HistoryEntry, len(r.History))
	copy(c.History, r.History)

	if r.MonetaryValue != nil {
		v := *r.MonetaryValue
		c.MonetaryValue = &v
	}
	if r.DueAt != nil {
		d := *r.DueAt
		c.DueAt = &d
	}

	return &c
}
