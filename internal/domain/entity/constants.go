package entity

// RecordType identifies which transition graph and rollup rules apply to a record
type RecordType string

const (
	RecordTypeTrip        RecordType = "TRIP"        // 出差申请
	RecordTypeReport      RecordType = "REPORT"      // 检查报告
	RecordTypeTender      RecordType = "TENDER"      // 投标机会
	RecordTypeExpenditure RecordType = "EXPENDITURE" // 费用报销
)

var validRecordTypes = map[RecordType]bool{
	RecordTypeTrip:        true,
	RecordTypeReport:      true,
	RecordTypeTender:      true,
	RecordTypeExpenditure: true,
}

// IsValid returns true if the record type is one of the fixed enumeration
func (t RecordType) IsValid() bool {
	return validRecordTypes[t]
}

// String returns the string representation of the record type
func (t RecordType) String() string {
	return string(t)
}

// RecordTypes returns all record types in a stable order
func RecordTypes() []RecordType {
	return []RecordType{RecordTypeTrip, RecordTypeReport, RecordTypeTender, RecordTypeExpenditure}
}

// Status represents a lifecycle state of a record
type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusSubmitted   Status = "SUBMITTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusVerified    Status = "VERIFIED" // pending after the first sign-off stage
	StatusApproved    Status = "APPROVED"
	StatusRejected    Status = "REJECTED"
	StatusCancelled   Status = "CANCELLED"
	StatusLost        Status = "LOST"
	StatusReopened    Status = "REOPENED"
)

var validStatuses = map[Status]bool{
	StatusDraft:       true,
	StatusSubmitted:   true,
	StatusUnderReview: true,
	StatusVerified:    true,
	StatusApproved:    true,
	StatusRejected:    true,
	StatusCancelled:   true,
	StatusLost:        true,
	StatusReopened:    true,
}

var terminalStatuses = map[Status]bool{
	StatusApproved:  true,
	StatusRejected:  true,
	StatusCancelled: true,
	StatusLost:      true,
}

// Approvers can only be (re)assigned while a record is in one of these
var editableStatuses = map[Status]bool{
	StatusDraft:    true,
	StatusReopened: true,
}

// IsValid returns true if the status is a known lifecycle status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal returns true if the status accepts no transition other than Reopen
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsEditable returns true while the owner may still change approvers and payload
func (s Status) IsEditable() bool {
	return editableStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// ApproverRole is a reviewer slot a record type declares (verifier, approver, ...)
type ApproverRole string

const (
	RoleVerifier ApproverRole = "verifier"
	RoleApprover ApproverRole = "approver"
	RoleReviewer ApproverRole = "reviewer"
)

// String returns the string representation of the approver role
func (r ApproverRole) String() string {
	return string(r)
}

// Actor role names as resolved by the identity collaborator
const (
	ActorRoleStaff    = "staff"
	ActorRoleVerifier = "verifier"
	ActorRoleApprover = "approver"
	ActorRoleReviewer = "reviewer"
	ActorRoleFinance  = "finance"
	ActorRoleAdmin    = "admin"
)
