// Package ledger keeps the append-only history of status transitions for one record.
//
// Entries are never updated or removed. Append copies the slice so a failed
// transition leaves the caller's history exactly as it was.
package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/record-review/internal/domain/approver"
	"github.com/garyjia/record-review/internal/domain/entity"
)

// ErrInvalidEntry is returned when an entry lacks an actor or a status
var ErrInvalidEntry = errors.New("invalid history entry")

// ErrInvariantViolation is wrapped by every Violation except ordering ones
var ErrInvariantViolation = errors.New("ledger invariant violated")

// Invariant numbers reported in Violation
const (
	InvariantNonEmpty      = 1
	InvariantOrdering      = 2
	InvariantStatusDerived = 3
	InvariantTerminalLock  = 4
	InvariantApproversSet  = 5
)

// Violation reports which invariant a history or record breaks and where
type Violation struct {
	Invariant int
	Index     int
	Reason    string
}

func (v *Violation) Error() string {
	if v.Index >= 0 {
		return fmt.Sprintf("invariant %d violated at entry %d: %s", v.Invariant, v.Index, v.Reason)
	}
	return fmt.Sprintf("invariant %d violated: %s", v.Invariant, v.Reason)
}

// Unwrap lets callers match ordering violations with entity.ErrOutOfOrderEntry
func (v *Violation) Unwrap() error {
	if v.Invariant == InvariantOrdering {
		return entity.ErrOutOfOrderEntry
	}
	return ErrInvariantViolation
}

// Append returns history with entry appended. An entry earlier than the current
// tail is refused rather than reordered.
func Append(history []entity.HistoryEntry, entry entity.HistoryEntry) ([]entity.HistoryEntry, error) {
	if err := checkEntry(entry); err != nil {
		return nil, err
	}

	if n := len(history); n > 0 {
		tail := history[n-1]
		if entry.Timestamp.Before(tail.Timestamp) {
			return nil, fmt.Errorf("%w: entry at %s precedes tail at %s",
				entity.ErrOutOfOrderEntry,
				entry.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
				tail.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"))
		}
	}

	out := make([]entity.HistoryEntry, len(history), len(history)+1)
	copy(out, history)
	return append(out, entry), nil
}

// Validate checks a full history on its own: field completeness, timestamp
// ordering and the previous/next status chain starting from Draft.
func Validate(history []entity.HistoryEntry) error {
	previous := entity.StatusDraft
	for i, entry := range history {
		if err := checkEntry(entry); err != nil {
			return &Violation{Invariant: InvariantNonEmpty, Index: i, Reason: err.Error()}
		}
		if i > 0 && entry.Timestamp.Before(history[i-1].Timestamp) {
			return &Violation{Invariant: InvariantOrdering, Index: i, Reason: "timestamp precedes previous entry"}
		}
		if entry.PreviousStatus != previous {
			return &Violation{
				Invariant: InvariantStatusDerived,
				Index:     i,
				Reason:    fmt.Sprintf("previous status %s does not match %s", entry.PreviousStatus, previous),
			}
		}
		if i > 0 && previous.IsTerminal() && entry.Action != entity.ActionReopen {
			return &Violation{
				Invariant: InvariantTerminalLock,
				Index:     i,
				Reason:    fmt.Sprintf("%s transition out of terminal status %s", entry.Action, previous),
			}
		}
		previous = entry.Status
	}
	return nil
}

// ValidateRecord asserts all five lifecycle invariants over a record and its history.
// It is the canonical round-trip check for import paths and tests.
func ValidateRecord(record *entity.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	last, ok := record.LastEntry()
	if !ok {
		if record.Status != entity.StatusDraft {
			return &Violation{
				Invariant: InvariantNonEmpty,
				Index:     -1,
				Reason:    fmt.Sprintf("empty history with status %s", record.Status),
			}
		}
		return nil
	}

	if err := Validate(record.History); err != nil {
		return err
	}

	if record.Status != last.Status {
		return &Violation{
			Invariant: InvariantStatusDerived,
			Index:     len(record.History) - 1,
			Reason:    fmt.Sprintf("record status %s differs from ledger tail %s", record.Status, last.Status),
		}
	}

	if submittedInCurrentRound(record.History) && !approver.IsSubmittable(record) {
		return &Violation{
			Invariant: InvariantApproversSet,
			Index:     -1,
			Reason:    fmt.Sprintf("submitted with unbound roles %v", approver.Missing(record)),
		}
	}

	return nil
}

// submittedInCurrentRound reports whether a Submit happened after the latest Reopen
func submittedInCurrentRound(history []entity.HistoryEntry) bool {
	for i := len(history) - 1; i >= 0; i-- {
		switch history[i].Action {
		case entity.ActionReopen:
			return false
		case entity.ActionSubmit:
			return true
		}
	}
	return false
}

func checkEntry(entry entity.HistoryEntry) error {
	if strings.TrimSpace(entry.ActorID) == "" {
		return fmt.Errorf("%w: actor id is empty", ErrInvalidEntry)
	}
	if !entry.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEntry, entry.Status)
	}
	if entry.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is zero", ErrInvalidEntry)
	}
	return nil
}
