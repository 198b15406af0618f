package roles

import (
	"context"
	"database/sql"
	"fmt"

	id "pharmledger/pkg/domain"
)

// PostgresStore persists role grants in PostgreSQL. The role_grants table is
// the keyed set; role_events is the append-only log, written in the same
// transaction so the two can never diverge.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the role tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS role_grants (
			account    TEXT NOT NULL,
			role       TEXT NOT NULL,
			granted_by TEXT NOT NULL,
			granted_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (account, role)
		);
		CREATE TABLE IF NOT EXISTS role_events (
			seq        BIGSERIAL PRIMARY KEY,
			account    TEXT NOT NULL,
			role       TEXT NOT NULL,
			granted_by TEXT NOT NULL,
			granted_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure role schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Grant(ctx context.Context, event GrantedEvent) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin grant tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO role_grants (account, role, granted_by, granted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account, role) DO NOTHING`,
		event.Account.String(), event.Role.String(), event.GrantedBy.String(), event.GrantedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert role grant: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("grant rows affected: %w", err)
	}
	if inserted == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO role_events (account, role, granted_by, granted_at)
		VALUES ($1, $2, $3, $4)`,
		event.Account.String(), event.Role.String(), event.GrantedBy.String(), event.GrantedAt,
	); err != nil {
		return false, fmt.Errorf("append role event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit grant: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) Has(ctx context.Context, account id.Account, role id.Role) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM role_grants WHERE account = $1 AND role = $2)`,
		account.String(), role.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) List(ctx context.Context, account id.Account) ([]id.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role FROM role_grants WHERE account = $1`,
		account.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	held := make(map[id.Role]struct{})
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		held[id.Role(role)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}

	out := make([]id.Role, 0, len(held))
	for _, role := range id.DomainRoles {
		if _, ok := held[role]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

func (s *PostgresStore) Events(ctx context.Context) ([]GrantedEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account, role, granted_by, granted_at FROM role_events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list role events: %w", err)
	}
	defer rows.Close()

	var events []GrantedEvent
	for rows.Next() {
		var ev GrantedEvent
		var account, role, grantedBy string
		if err := rows.Scan(&account, &role, &grantedBy, &ev.GrantedAt); err != nil {
			return nil, fmt.Errorf("scan role event: %w", err)
		}
		ev.Account = id.Account(account)
		ev.Role = id.Role(role)
		ev.GrantedBy = id.Account(grantedBy)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role events: %w", err)
	}
	return events, nil
}
