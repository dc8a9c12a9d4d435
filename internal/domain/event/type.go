package event

// Type identifies the type of domain event
type Type string

const (
	TypeRecordCreated          Type = "record.created"
	TypeRecordApproverAssigned Type = "record.approver_assigned"
	TypeRecordTransitioned     Type = "record.transitioned"
	TypeRecordDueSoon          Type = "record.due_soon"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRecordCreated,
		TypeRecordApproverAssigned,
		TypeRecordTransitioned,
		TypeRecordDueSoon:
		return true
	default:
		return false
	}
}
