package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcotta/presenca-bot/internal/model"
)

// PostgresStore persists event records in PostgreSQL, one row per member
// response. The (event, user) primary key makes the at-most-one-role
// invariant structural: a confirm and a decline by the same user can never
// coexist.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore over an existing pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load verifies connectivity and creates the schema if needed. The database
// is the durable copy, so there is nothing to read into memory.
func (s *PostgresStore) Load(ctx context.Context) error {
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS events (
			name       text PRIMARY KEY,
			created_at timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS responses (
			event_name text NOT NULL REFERENCES events(name) ON DELETE CASCADE,
			user_id    text NOT NULL,
			intent     text NOT NULL,
			class      text NOT NULL,
			PRIMARY KEY (event_name, user_id)
		)`,
	} {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Create inserts a new event or fails with ErrAlreadyExists.
func (s *PostgresStore) Create(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO events (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
		name,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	}
	return nil
}

// Delete removes an event and its responses, or fails with ErrNotFound.
func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM events WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}

// Get returns the named event with all responses, or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, name string) (*model.Event, error) {
	var exists string
	err := s.db.QueryRow(ctx, `SELECT name FROM events WHERE name = $1`, name).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT user_id, intent, class FROM responses WHERE event_name = $1`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	event := model.NewEvent()
	for rows.Next() {
		var userID, intent, class string
		if err := rows.Scan(&userID, &intent, &class); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		switch model.Intent(intent) {
		case model.IntentConfirm:
			event.Confirmed[userID] = model.ClassLabel(class)
		case model.IntentDecline:
			event.Declined[userID] = model.ClassLabel(class)
		}
	}
	return event, rows.Err()
}

// Record upserts a member's response inside a transaction, creating the
// event implicitly when it does not exist yet. The event row is locked with
// SELECT … FOR UPDATE so concurrent responses to the same event serialize.
func (s *PostgresStore) Record(ctx context.Context, name, userID string, intent model.Intent, class model.ClassLabel) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var locked string
	err = tx.QueryRow(ctx,
		`SELECT name FROM events WHERE name = $1 FOR UPDATE`,
		name,
	).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		// First response to an announcement the store never saw.
		_, err = tx.Exec(ctx, `INSERT INTO events (name) VALUES ($1)`, name)
	}
	if err != nil {
		return fmt.Errorf("lock event row: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO responses (event_name, user_id, intent, class)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (event_name, user_id)
		 DO UPDATE SET intent = EXCLUDED.intent, class = EXCLUDED.class`,
		name, userID, string(intent), string(class),
	)
	if err != nil {
		return fmt.Errorf("upsert response: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
