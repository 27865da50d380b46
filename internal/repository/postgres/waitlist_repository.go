package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clevermock-web/internal/domain"
)

const waitlistEmailConstraint = "waitlist_entries_email_key"

var waitlistSchema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS waitlist_entries (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT waitlist_entries_email_key UNIQUE (email)
	)`,
}

// WaitlistRepository implements domain.WaitlistRepository for PostgreSQL
type WaitlistRepository struct {
	db *sql.DB
	tx *TxManager
}

// NewWaitlistRepository creates a new PostgreSQL waitlist repository
func NewWaitlistRepository(db *sql.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db, tx: NewTxManager(db)}
}

// EnsureSchema creates the waitlist table when it does not exist
func (r *WaitlistRepository) EnsureSchema(ctx context.Context) error {
	return r.tx.WithTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range waitlistSchema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply waitlist schema: %w", err)
			}
		}
		return nil
	})
}

// Create inserts a new entry. The email must already be normalized.
func (r *WaitlistRepository) Create(ctx context.Context, entry *domain.WaitlistEntry) error {
	query := `
		INSERT INTO waitlist_entries (email)
		VALUES ($1)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, entry.Email).
		Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err, waitlistEmailConstraint) {
			return domain.ErrAlreadyOnWaitlist
		}
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}
	return nil
}

// GetByEmail retrieves an entry by its normalized email
func (r *WaitlistRepository) GetByEmail(ctx context.Context, email string) (*domain.WaitlistEntry, error) {
	query := `
		SELECT id, email, created_at, updated_at
		FROM waitlist_entries
		WHERE email = $1
	`
	entry := &domain.WaitlistEntry{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&entry.ID,
		&entry.Email,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrWaitlistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waitlist entry: %w", err)
	}
	return entry, nil
}

func (r *WaitlistRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
