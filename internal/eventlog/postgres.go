package eventlog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spellproof/spellproof/internal/validate"
)

// Schema is the SQL DDL for the recognition_events table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS recognition_events (
    id                TEXT PRIMARY KEY,
    user_id           TEXT NOT NULL,
    word_to_spell     TEXT NOT NULL,
    raw_transcript    TEXT NOT NULL DEFAULT '',
    extracted_letters TEXT NOT NULL DEFAULT '',
    was_correct       BOOLEAN NOT NULL,
    rejection_reason  TEXT NOT NULL DEFAULT '',
    input_method      TEXT NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_recognition_events_user_incorrect
    ON recognition_events(user_id, created_at DESC) WHERE NOT was_correct;
CREATE INDEX IF NOT EXISTS idx_recognition_events_created
    ON recognition_events(created_at DESC);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] over the given connection or
// pool. Call [PostgresStore.Migrate] once before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL, creating the recognition_events table
// and indexes if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("eventlog: migrate: %w", err)
	}
	return nil
}

// Append inserts a new event row.
func (s *PostgresStore) Append(ctx context.Context, ev *Event) error {
	const query = `
		INSERT INTO recognition_events (
			id, user_id, word_to_spell, raw_transcript, extracted_letters,
			was_correct, rejection_reason, input_method, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err := s.db.Exec(ctx, query,
		ev.ID, ev.UserID, ev.WordToSpell, ev.RawTranscript, ev.ExtractedLetters,
		ev.WasCorrect, ev.RejectionReason, string(ev.InputMethod), ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("eventlog: append: %w", err)
	}
	return nil
}

// ListIncorrect returns the user's incorrect events since the given time,
// newest first, capped at limit.
func (s *PostgresStore) ListIncorrect(ctx context.Context, userID string, since time.Time, limit int) ([]Event, error) {
	const query = `
		SELECT id, user_id, word_to_spell, raw_transcript, extracted_letters,
		       was_correct, rejection_reason, input_method, created_at
		FROM recognition_events
		WHERE user_id = $1 AND NOT was_correct AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := s.db.Query(ctx, query, userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("eventlog: list incorrect for %q: %w", userID, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var method string
		if err := rows.Scan(
			&ev.ID, &ev.UserID, &ev.WordToSpell, &ev.RawTranscript, &ev.ExtractedLetters,
			&ev.WasCorrect, &ev.RejectionReason, &method, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("eventlog: scan event: %w", err)
		}
		ev.InputMethod = validate.InputMethod(method)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventlog: list incorrect for %q: %w", userID, err)
	}
	return events, nil
}

// RecentFailedUsers returns distinct user IDs with incorrect events since the
// given time.
func (s *PostgresStore) RecentFailedUsers(ctx context.Context, since time.Time, limit int) ([]string, error) {
	const query = `
		SELECT DISTINCT user_id
		FROM recognition_events
		WHERE NOT was_correct AND created_at >= $1
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("eventlog: recent failed users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("eventlog: scan user id: %w", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventlog: recent failed users: %w", err)
	}
	return users, nil
}
