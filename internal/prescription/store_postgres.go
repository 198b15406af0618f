package prescription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "pharmledger/pkg/domain"
	"pharmledger/pkg/platform/sentinel"
)

// PostgresStore persists prescriptions in PostgreSQL. prescriptions is the
// keyed map; prescription_events is the append-only log, written in the same
// transaction. Fulfill locks the row with FOR UPDATE so validate and apply
// see a stable record.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the prescription tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS prescriptions (
			prescription_id TEXT PRIMARY KEY,
			batch_id        TEXT NOT NULL,
			patient         TEXT NOT NULL,
			content_ref     TEXT NOT NULL,
			issued_by       TEXT NOT NULL,
			issued_at       TIMESTAMPTZ NOT NULL,
			fulfilled       BOOLEAN NOT NULL DEFAULT FALSE,
			fulfilled_by    TEXT,
			fulfilled_at    TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS prescription_events (
			seq             BIGSERIAL PRIMARY KEY,
			event_type      TEXT NOT NULL,
			prescription_id TEXT NOT NULL,
			batch_id        TEXT NOT NULL,
			patient         TEXT NOT NULL,
			content_ref     TEXT NOT NULL,
			issued_by       TEXT NOT NULL,
			issued_at       TIMESTAMPTZ NOT NULL,
			fulfilled       BOOLEAN NOT NULL,
			fulfilled_by    TEXT,
			fulfilled_at    TIMESTAMPTZ
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure prescription schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, record Prescription) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin prescription tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO prescriptions (prescription_id, batch_id, patient, content_ref, issued_by, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.PrescriptionID, record.BatchID, record.Patient.String(),
		record.ContentRef.String(), record.IssuedBy.String(), record.IssuedAt,
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert prescription: %w", err)
	}

	if err := appendEvent(ctx, tx, EventIssued, record); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit prescription: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, prescriptionID string) (Prescription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT prescription_id, batch_id, patient, content_ref, issued_by, issued_at, fulfilled, fulfilled_by, fulfilled_at
		FROM prescriptions WHERE prescription_id = $1`, prescriptionID)
	record, err := scanPrescription(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Prescription{}, sentinel.ErrNotFound
		}
		return Prescription{}, fmt.Errorf("find prescription: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Fulfill(ctx context.Context, prescriptionID string, validate func(Prescription) error, apply func(*Prescription)) (Prescription, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Prescription{}, fmt.Errorf("begin fulfill tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT prescription_id, batch_id, patient, content_ref, issued_by, issued_at, fulfilled, fulfilled_by, fulfilled_at
		FROM prescriptions WHERE prescription_id = $1 FOR UPDATE`, prescriptionID)
	record, err := scanPrescription(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Prescription{}, sentinel.ErrNotFound
		}
		return Prescription{}, fmt.Errorf("lock prescription: %w", err)
	}

	if err := validate(record); err != nil {
		return Prescription{}, err
	}
	apply(&record)

	if _, err := tx.ExecContext(ctx, `
		UPDATE prescriptions SET fulfilled = $2, fulfilled_by = $3, fulfilled_at = $4
		WHERE prescription_id = $1`,
		record.PrescriptionID, record.Fulfilled, nullableString(record.FulfilledBy.String()), record.FulfilledAt,
	); err != nil {
		return Prescription{}, fmt.Errorf("update prescription: %w", err)
	}

	if err := appendEvent(ctx, tx, EventFulfilled, record); err != nil {
		return Prescription{}, err
	}
	if err := tx.Commit(); err != nil {
		return Prescription{}, fmt.Errorf("commit fulfill: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Events(ctx context.Context) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_type, prescription_id, batch_id, patient, content_ref, issued_by, issued_at, fulfilled, fulfilled_by, fulfilled_at
		FROM prescription_events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list prescription events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var eventType string
		record, err := scanPrescription(func(dest ...any) error {
			return rows.Scan(append([]any{&eventType}, dest...)...)
		})
		if err != nil {
			return nil, fmt.Errorf("scan prescription event: %w", err)
		}
		events = append(events, Event{Type: EventType(eventType), Prescription: record})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prescription events: %w", err)
	}
	return events, nil
}

func appendEvent(ctx context.Context, tx *sql.Tx, eventType EventType, record Prescription) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO prescription_events (event_type, prescription_id, batch_id, patient, content_ref, issued_by, issued_at, fulfilled, fulfilled_by, fulfilled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(eventType), record.PrescriptionID, record.BatchID, record.Patient.String(),
		record.ContentRef.String(), record.IssuedBy.String(), record.IssuedAt,
		record.Fulfilled, nullableString(record.FulfilledBy.String()), record.FulfilledAt,
	); err != nil {
		return fmt.Errorf("append prescription event: %w", err)
	}
	return nil
}

func scanPrescription(scan func(dest ...any) error) (Prescription, error) {
	var record Prescription
	var patient, contentRef, issuedBy string
	var fulfilledBy sql.NullString
	var fulfilledAt sql.NullTime
	if err := scan(
		&record.PrescriptionID, &record.BatchID, &patient, &contentRef, &issuedBy,
		&record.IssuedAt, &record.Fulfilled, &fulfilledBy, &fulfilledAt,
	); err != nil {
		return Prescription{}, err
	}
	record.Patient = id.Account(patient)
	record.ContentRef = id.ContentRef(contentRef)
	record.IssuedBy = id.Account(issuedBy)
	if fulfilledBy.Valid {
		record.FulfilledBy = id.Account(fulfilledBy.String)
	}
	if fulfilledAt.Valid {
		at := fulfilledAt.Time
		record.FulfilledAt = &at
	}
	return record, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
