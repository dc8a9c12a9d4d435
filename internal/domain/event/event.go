package event

import (
	"fmt"
	"time"

	"github.com/garyjia/record-review/internal/domain/entity"
)

// Event describes something that happened to a record. The lifecycle core only
// builds events; delivering them is up to the caller.
type Event struct {
	ID             string                 `json:"id"`
	Type           Type                   `json:"type"`
	RecordID       string                 `json:"record_id"`
	RecordType     entity.RecordType      `json:"record_type"`
	PreviousStatus entity.Status          `json:"previous_status,omitempty"`
	NewStatus      entity.Status          `json:"new_status,omitempty"`
	Action         string                 `json:"action,omitempty"`
	Actor          entity.Actor           `json:"actor"`
	Comment        string                 `json:"comment,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
}

// NewTransitioned builds the event for the newest ledger entry of rec.
// The ID is derived from the record id and ledger length, so replays produce the same ID.
func NewTransitioned(rec *entity.Record, actor entity.Actor) *Event {
	last, _ := rec.LastEntry()
	return &Event{
		ID:             ID(rec.ID, len(rec.History)),
		Type:           TypeRecordTransitioned,
		RecordID:       rec.ID,
		RecordType:     rec.Type,
		PreviousStatus: last.PreviousStatus,
		NewStatus:      last.Status,
		Action:         last.Action,
		Actor:          actor,
		Comment:        last.Comment,
		Timestamp:      last.Timestamp,
		Payload:        map[string]interface{}{},
	}
}

// NewRecordEvent builds a non-transition event such as creation or approver assignment
func NewRecordEvent(eventType Type, rec *entity.Record, actor entity.Actor, at time.Time) *Event {
	return &Event{
		ID:         fmt.Sprintf("%s-%s-%d", rec.ID, eventType, rec.Version),
		Type:       eventType,
		RecordID:   rec.ID,
		RecordType: rec.Type,
		NewStatus:  rec.Status,
		Actor:      actor,
		Timestamp:  at,
		Payload:    map[string]interface{}{},
	}
}

// NewDueSoon builds a reminder for a live record whose due date is near or past.
// The ID depends only on the record, its due date and whether it is overdue.
func NewDueSoon(recordID string, recordType entity.RecordType, status entity.Status, dueAt time.Time, overdue bool, at time.Time) *Event {
	id := fmt.Sprintf("%s-%s-%d", recordID, TypeRecordDueSoon, dueAt.Unix())
	if overdue {
		id += "-overdue"
	}
	return &Event{
		ID:         id,
		Type:       TypeRecordDueSoon,
		RecordID:   recordID,
		RecordType: recordType,
		NewStatus:  status,
		Actor:      entity.Actor{ID: "system", Name: "due reminder", Role: entity.ActorRoleAdmin},
		Timestamp:  at,
		Payload: map[string]interface{}{
			"due_at":  dueAt.Format(time.RFC3339),
			"overdue": overdue,
		},
	}
}

// ID returns the event id for the seq-th ledger entry of a record
func ID(recordID string, seq int) string {
	return fmt.Sprintf("%s-%d", recordID, seq)
}

// IsTerminal reports whether the event moved the record into a terminal status
func (e *Event) IsTerminal() bool {
	return e.NewStatus.IsTerminal()
}

// WithPayload returns a new Event with an added payload key-value pair
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	c := *e
	c.Payload = newPayload
	return &c
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
