package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/record-review/internal/application/port"
	"github.com/garyjia/record-review/internal/domain/entity"
	"github.com/garyjia/record-review/internal/infrastructure/persistence/sqlite"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordRepository implements port.RecordRepository on SQLite
type RecordRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *sqlite.DB, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{
		db:     db,
		logger: logger,
	}
}

const recordColumns = `
	id, record_type, title, owner_id, status, approvers, monetary_value,
	category, code, branch, region, due_at, version, created_at`

// Create inserts a new record at version 1 together with any initial history
func (r *RecordRepository) Create(ctx context.Context, record *entity.Record) error {
	approvers, err := encodeApprovers(record.Approvers)
	if err != nil {
		return err
	}

	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		query := `
			INSERT INTO records (
				id, record_type, title, owner_id, status, approvers, monetary_value,
				category, code, branch, region, due_at, version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		`

		now := time.Now().UTC()
		_, err := r.db.Executor(txCtx).ExecContext(txCtx, query,
			record.ID,
			record.Type,
			record.Title,
			record.OwnerID,
			record.Status,
			approvers,
			nullDecimal(record.MonetaryValue),
			record.Category,
			record.Code,
			record.Branch,
			record.Region,
			nullTime(record.DueAt),
			record.CreatedAt.UTC(),
			now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", port.ErrAlreadyExists, record.ID)
			}
			r.logger.Error("Failed to create record", zap.String("record_id", record.ID), zap.Error(err))
			return fmt.Errorf("failed to create record: %w", err)
		}

		if err := r.insertHistory(txCtx, record.ID, 0, record.History); err != nil {
			return err
		}

		record.Version = 1
		return nil
	})
}

// Load returns the record with its full history
func (r *RecordRepository) Load(ctx context.Context, id string) (*entity.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = ?`

	record, err := scanRecord(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", port.ErrNotFound, id)
		}
		r.logger.Error("Failed to load record", zap.String("record_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to load record: %w", err)
	}

	history, err := r.loadHistory(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	record.History = history[id]
	if record.History == nil {
		record.History = []entity.HistoryEntry{}
	}

	return record, nil
}

// Save updates the mutable columns when the stored version matches and appends
// the history entries past the stored tail. Stored entries are never rewritten.
func (r *RecordRepository) Save(ctx context.Context, record *entity.Record, expectedVersion int64) error {
	approvers, err := encodeApprovers(record.Approvers)
	if err != nil {
		return err
	}

	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := r.db.Executor(txCtx)

		query := `
			UPDATE records
			SET title = ?, status = ?, approvers = ?, monetary_value = ?,
				category = ?, code = ?, branch = ?, region = ?, due_at = ?,
				version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?
		`

		result, err := exec.ExecContext(txCtx, query,
			record.Title,
			record.Status,
			approvers,
			nullDecimal(record.MonetaryValue),
			record.Category,
			record.Code,
			record.Branch,
			record.Region,
			nullTime(record.DueAt),
			time.Now().UTC(),
			record.ID,
			expectedVersion,
		)
		if err != nil {
			r.logger.Error("Failed to save record", zap.String("record_id", record.ID), zap.Error(err))
			return fmt.Errorf("failed to save record: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return r.missOrConflict(txCtx, record.ID, expectedVersion)
		}

		var stored int
		err = exec.QueryRowContext(txCtx,
			`SELECT COUNT(*) FROM record_history WHERE record_id = ?`, record.ID).Scan(&stored)
		if err != nil {
			return fmt.Errorf("failed to count history: %w", err)
		}
		if len(record.History) < stored {
			return fmt.Errorf("%w: record %s carries %d history entries, %d stored",
				port.ErrConflict, record.ID, len(record.History), stored)
		}

		return r.insertHistory(txCtx, record.ID, stored, record.History[stored:])
	})
}

// List returns records matching query, newest first
func (r *RecordRepository) List(ctx context.Context, q port.ListQuery) ([]*entity.Record, error) {
	var (
		where []string
		args  []interface{}
	)

	if len(q.Types) > 0 {
		where = append(where, "record_type IN ("+placeholders(len(q.Types))+")")
		for _, t := range q.Types {
			args = append(args, t)
		}
	}
	if len(q.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(q.Statuses))+")")
		for _, s := range q.Statuses {
			args = append(args, s)
		}
	}
	if q.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, q.OwnerID)
	}
	if q.Branch != "" {
		where = append(where, "branch = ?")
		args = append(args, q.Branch)
	}
	if q.Region != "" {
		where = append(where, "region = ?")
		args = append(args, q.Region)
	}
	if !q.CreatedFrom.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, q.CreatedFrom.UTC())
	}
	if !q.CreatedTo.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, q.CreatedTo.UTC())
	}

	query := `SELECT ` + recordColumns + ` FROM records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list records", zap.Error(err))
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var (
		records []*entity.Record
		ids     []string
	)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
		ids = append(ids, record.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return records, nil
	}

	history, err := r.loadHistory(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		record.History = history[record.ID]
		if record.History == nil {
			record.History = []entity.HistoryEntry{}
		}
	}

	return records, nil
}

func (r *RecordRepository) insertHistory(ctx context.Context, recordID string, startSeq int, entries []entity.HistoryEntry) error {
	query := `
		INSERT INTO record_history (
			record_id, seq, actor_id, actor_name, actor_role, action,
			previous_status, status, comment, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := r.db.Executor(ctx)
	for i, e := range entries {
		_, err := exec.ExecContext(ctx, query,
			recordID,
			startSeq+i,
			e.ActorID,
			e.ActorName,
			e.ActorRole,
			e.Action,
			e.PreviousStatus,
			e.Status,
			e.Comment,
			e.Timestamp.UTC(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: history entry %d of %s already stored", port.ErrConflict, startSeq+i, recordID)
			}
			r.logger.Error("Failed to append history entry",
				zap.String("record_id", recordID),
				zap.Int("seq", startSeq+i),
				zap.Error(err))
			return fmt.Errorf("failed to append history: %w", err)
		}
	}
	return nil
}

func (r *RecordRepository) loadHistory(ctx context.Context, ids []string) (map[string][]entity.HistoryEntry, error) {
	query := `
		SELECT record_id, actor_id, actor_name, actor_role, action,
			previous_status, status, comment, timestamp
		FROM record_history
		WHERE record_id IN (` + placeholders(len(ids)) + `)
		ORDER BY record_id, seq
	`

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to load history", zap.Error(err))
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]entity.HistoryEntry, len(ids))
	for rows.Next() {
		var (
			recordID string
			e        entity.HistoryEntry
		)
		if err := rows.Scan(
			&recordID,
			&e.ActorID,
			&e.ActorName,
			&e.ActorRole,
			&e.Action,
			&e.PreviousStatus,
			&e.Status,
			&e.Comment,
			&e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		out[recordID] = append(out[recordID], e)
	}

	return out, rows.Err()
}

// missOrConflict tells a missing record apart from a stale version
func (r *RecordRepository) missOrConflict(ctx context.Context, id string, expected int64) error {
	var current int64
	err := r.db.Executor(ctx).QueryRowContext(ctx, `SELECT version FROM records WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", port.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to read version: %w", err)
	}
	return fmt.Errorf("%w: %s expected version %d, stored %d", port.ErrConflict, id, expected, current)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*entity.Record, error) {
	var (
		record    entity.Record
		approvers string
		value     decimal.NullDecimal
		dueAt     sql.NullTime
	)

	err := row.Scan(
		&record.ID,
		&record.Type,
		&record.Title,
		&record.OwnerID,
		&record.Status,
		&approvers,
		&value,
		&record.Category,
		&record.Code,
		&record.Branch,
		&record.Region,
		&dueAt,
		&record.Version,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Approvers = make(map[entity.ApproverRole]string)
	if approvers != "" {
		if err := json.Unmarshal([]byte(approvers), &record.Approvers); err != nil {
			return nil, fmt.Errorf("failed to decode approvers of %s: %w", record.ID, err)
		}
	}
	if value.Valid {
		v := value.Decimal
		record.MonetaryValue = &v
	}
	if dueAt.Valid {
		d := dueAt.Time.UTC()
		record.DueAt = &d
	}
	record.CreatedAt = record.CreatedAt.UTC()

	return &record, nil
}

func encodeApprovers(approvers map[entity.ApproverRole]string) (string, error) {
	if len(approvers) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(approvers)
	if err != nil {
		return "", fmt.Errorf("failed to encode approvers: %w", err)
	}
	return string(b), nil
}

func nullDecimal(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func isUniqueViolation(err error) bool {
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// Verify interface compliance
var _ port.RecordRepository = (*RecordRepository)(nil)
