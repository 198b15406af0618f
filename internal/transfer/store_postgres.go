package transfer

import (
	"context"
	"database/sql"
	"fmt"

	id "pharmledger/pkg/domain"
)

// PostgresStore persists the transfer log in PostgreSQL. transfers is both
// the keyed state and the per-batch history; transfer_events preserves the
// global append order. Sequence assignment runs in the insert transaction so
// concurrent appends for one batch cannot produce gaps or duplicates.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the transfer tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transfers (
			batch_id     TEXT NOT NULL,
			sequence     INTEGER NOT NULL,
			from_account TEXT NOT NULL,
			to_account   TEXT NOT NULL,
			content_ref  TEXT NOT NULL,
			logged_at    TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (batch_id, sequence)
		);
		CREATE TABLE IF NOT EXISTS transfer_events (
			seq          BIGSERIAL PRIMARY KEY,
			batch_id     TEXT NOT NULL,
			sequence     INTEGER NOT NULL,
			from_account TEXT NOT NULL,
			to_account   TEXT NOT NULL,
			content_ref  TEXT NOT NULL,
			logged_at    TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure transfer schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, record Record) (Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("begin transfer tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Serialize appends per batch so the computed sequence stays dense.
	if _, err := tx.ExecContext(ctx, `
		SELECT pg_advisory_xact_lock(hashtext($1))`, record.BatchID,
	); err != nil {
		return Record{}, fmt.Errorf("lock transfer batch: %w", err)
	}

	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(sequence) + 1, 0) FROM transfers WHERE batch_id = $1`,
		record.BatchID,
	).Scan(&record.Sequence); err != nil {
		return Record{}, fmt.Errorf("next transfer sequence: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transfers (batch_id, sequence, from_account, to_account, content_ref, logged_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.BatchID, record.Sequence, record.From.String(), record.To.String(),
		record.ContentRef.String(), record.LoggedAt,
	); err != nil {
		return Record{}, fmt.Errorf("insert transfer: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transfer_events (batch_id, sequence, from_account, to_account, content_ref, logged_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.BatchID, record.Sequence, record.From.String(), record.To.String(),
		record.ContentRef.String(), record.LoggedAt,
	); err != nil {
		return Record{}, fmt.Errorf("append transfer event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("commit transfer: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByBatch(ctx context.Context, batchID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, sequence, from_account, to_account, content_ref, logged_at
		FROM transfers WHERE batch_id = $1 ORDER BY sequence`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *PostgresStore) CountByBatch(ctx context.Context, batchID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transfers WHERE batch_id = $1`, batchID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transfers: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Events(ctx context.Context) ([]LoggedEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, sequence, from_account, to_account, content_ref, logged_at
		FROM transfer_events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list transfer events: %w", err)
	}
	defer rows.Close()

	records, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	events := make([]LoggedEvent, 0, len(records))
	for _, record := range records {
		events = append(events, LoggedEvent{Record: record})
	}
	return events, nil
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var record Record
		var from, to, contentRef string
		if err := rows.Scan(
			&record.BatchID, &record.Sequence, &from, &to, &contentRef, &record.LoggedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		record.From = id.Account(from)
		record.To = id.Account(to)
		record.ContentRef = id.ContentRef(contentRef)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return records, nil
}
