package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "pharmledger/pkg/domain"
	"pharmledger/pkg/platform/sentinel"
)

// PostgresStore persists credentials in PostgreSQL. credentials is the keyed
// map; credential_events is the append-only log, written in the same
// transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the credential tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS credentials (
			hash      TEXT PRIMARY KEY,
			subject   TEXT NOT NULL,
			issuer    TEXT NOT NULL,
			schema    TEXT NOT NULL,
			issued_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS credential_events (
			seq       BIGSERIAL PRIMARY KEY,
			hash      TEXT NOT NULL,
			subject   TEXT NOT NULL,
			issuer    TEXT NOT NULL,
			schema    TEXT NOT NULL,
			issued_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure credential schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, record Credential) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin credential tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO credentials (hash, subject, issuer, schema, issued_at)
		VALUES ($1, $2, $3, $4, $5)`,
		record.Hash, record.Subject.String(), record.Issuer.String(), record.Schema, record.IssuedAt,
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert credential: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO credential_events (hash, subject, issuer, schema, issued_at)
		VALUES ($1, $2, $3, $4, $5)`,
		record.Hash, record.Subject.String(), record.Issuer.String(), record.Schema, record.IssuedAt,
	); err != nil {
		return fmt.Errorf("append credential event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, hash string) (Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hash, subject, issuer, schema, issued_at
		FROM credentials WHERE hash = $1`, hash)
	record, err := scanCredential(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Credential{}, sentinel.ErrNotFound
		}
		return Credential{}, fmt.Errorf("find credential: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Exists(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM credentials WHERE hash = $1)`, hash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check credential: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Events(ctx context.Context) ([]IssuedEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, subject, issuer, schema, issued_at
		FROM credential_events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list credential events: %w", err)
	}
	defer rows.Close()

	var events []IssuedEvent
	for rows.Next() {
		record, err := scanCredential(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan credential event: %w", err)
		}
		events = append(events, IssuedEvent{Credential: record})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credential events: %w", err)
	}
	return events, nil
}

func scanCredential(scan func(dest ...any) error) (Credential, error) {
	var record Credential
	var subject, issuer string
	if err := scan(&record.Hash, &subject, &issuer, &record.Schema, &record.IssuedAt); err != nil {
		return Credential{}, err
	}
	record.Subject = id.Account(subject)
	record.Issuer = id.Account(issuer)
	return record, nil
}
