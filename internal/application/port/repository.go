package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/record-review/internal/domain/entity"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned by Save when the stored version no longer matches
	ErrConflict = errors.New("record version conflict")

	// ErrAlreadyExists is returned by Create for a duplicate id
	ErrAlreadyExists = errors.New("record already exists")
)

// ListQuery narrows a record listing. Zero values mean no constraint.
type ListQuery struct {
	Types       []entity.RecordType
	Statuses    []entity.Status
	OwnerID     string
	Branch      string
	Region      string
	CreatedFrom time.Time
	CreatedTo   time.Time
	Limit       int
	Offset      int
}

// RecordRepository loads and saves whole records including their history.
// Save is conditional on the version the caller loaded.
type RecordRepository interface {
	// Create stores a new record at version 1
	Create(ctx context.Context, record *entity.Record) error

	// Load returns the record with its full history and current version
	Load(ctx context.Context, id string) (*entity.Record, error)

	// Save writes status, approvers and any new history entries if the stored
	// version still equals expectedVersion, and bumps the version.
	Save(ctx context.Context, record *entity.Record, expectedVersion int64) error

	// List returns records ordered by creation time, newest first
	List(ctx context.Context, query ListQuery) ([]*entity.Record, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Clock supplies server-side timestamps for ledger entries
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

// Now returns the current time
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock returns UTC wall-clock time
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })
