package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "pharmledger/pkg/domain"
	"pharmledger/pkg/platform/sentinel"
)

// PostgresStore persists batches in PostgreSQL. batches is the keyed map;
// batch_events is the append-only log, written in the same transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the batch tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS batches (
			batch_id        TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			dosage          TEXT NOT NULL,
			expiration_date TEXT NOT NULL,
			description     TEXT NOT NULL,
			content_ref     TEXT NOT NULL,
			manufacturer    TEXT NOT NULL,
			registered_at   TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS batch_events (
			seq             BIGSERIAL PRIMARY KEY,
			batch_id        TEXT NOT NULL,
			name            TEXT NOT NULL,
			dosage          TEXT NOT NULL,
			expiration_date TEXT NOT NULL,
			description     TEXT NOT NULL,
			content_ref     TEXT NOT NULL,
			manufacturer    TEXT NOT NULL,
			registered_at   TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure batch schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, record Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO batches (batch_id, name, dosage, expiration_date, description, content_ref, manufacturer, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.BatchID, record.Name, record.Dosage, record.ExpirationDate,
		record.Description, record.ContentRef.String(), record.Manufacturer.String(), record.RegisteredAt,
	); err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert batch: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO batch_events (batch_id, name, dosage, expiration_date, description, content_ref, manufacturer, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.BatchID, record.Name, record.Dosage, record.ExpirationDate,
		record.Description, record.ContentRef.String(), record.Manufacturer.String(), record.RegisteredAt,
	); err != nil {
		return fmt.Errorf("append batch event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, batchID string) (Batch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT batch_id, name, dosage, expiration_date, description, content_ref, manufacturer, registered_at
		FROM batches WHERE batch_id = $1`, batchID)
	record, err := scanBatch(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Batch{}, sentinel.ErrNotFound
		}
		return Batch{}, fmt.Errorf("find batch: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Exists(ctx context.Context, batchID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM batches WHERE batch_id = $1)`, batchID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check batch: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Events(ctx context.Context) ([]RegisteredEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, name, dosage, expiration_date, description, content_ref, manufacturer, registered_at
		FROM batch_events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list batch events: %w", err)
	}
	defer rows.Close()

	var events []RegisteredEvent
	for rows.Next() {
		record, err := scanBatch(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan batch event: %w", err)
		}
		events = append(events, RegisteredEvent{Batch: record})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch events: %w", err)
	}
	return events, nil
}

func scanBatch(scan func(dest ...any) error) (Batch, error) {
	var record Batch
	var contentRef, manufacturer string
	if err := scan(
		&record.BatchID, &record.Name, &record.Dosage, &record.ExpirationDate,
		&record.Description, &contentRef, &manufacturer, &record.RegisteredAt,
	); err != nil {
		return Batch{}, err
	}
	record.ContentRef = id.ContentRef(contentRef)
	record.Manufacturer = id.Account(manufacturer)
	return record, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
