package mappingstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the phonetic_mappings table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS phonetic_mappings (
    user_id          TEXT NOT NULL,
    heard            TEXT NOT NULL,
    intended         TEXT NOT NULL,
    source           TEXT NOT NULL DEFAULT 'auto_learned',
    confidence       DOUBLE PRECISION NOT NULL DEFAULT 0,
    occurrence_count INTEGER NOT NULL DEFAULT 0,
    times_applied    INTEGER NOT NULL DEFAULT 0,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (user_id, heard)
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database. The reinforce
// upsert is a single atomic statement, so concurrent learning runs for the
// same user converge without coordination.
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

// Migrate executes the [Schema] DDL, creating the phonetic_mappings table if
// it does not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("mappingstore: migrate: %w", err)
	}
	return nil
}

const selectColumns = `user_id, heard, intended, source, confidence,
	occurrence_count, times_applied, created_at, updated_at`

// ForUser returns all mappings belonging to one user.
func (s *PostgresStore) ForUser(ctx context.Context, userID string) ([]Mapping, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+selectColumns+` FROM phonetic_mappings WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("mappingstore: for user %q: %w", userID, err)
	}
	defer rows.Close()

	var mappings []Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mappingstore: for user %q: %w", userID, err)
	}
	return mappings, nil
}

// Get retrieves a mapping by its (userID, heard) key. Returns (nil, nil) if
// no such mapping exists.
func (s *PostgresStore) Get(ctx context.Context, userID, heard string) (*Mapping, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM phonetic_mappings WHERE user_id = $1 AND heard = $2`,
		userID, heard)

	m, err := scanMapping(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("mappingstore: get (%q, %q): %w", userID, heard, err)
	}
	return &m, nil
}

// Upsert inserts the mapping or reinforces an existing auto-learned row.
// Pinned rows (manual, support_added) are left untouched by the conflict
// branch's WHERE clause.
func (s *PostgresStore) Upsert(ctx context.Context, m *Mapping, step, maxConfidence float64) error {
	if err := m.Validate(); err != nil {
		return err
	}

	const query = `
		INSERT INTO phonetic_mappings (
			user_id, heard, intended, source, confidence, occurrence_count
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id, heard) DO UPDATE SET
			occurrence_count = phonetic_mappings.occurrence_count + EXCLUDED.occurrence_count,
			confidence = LEAST($7, phonetic_mappings.confidence + $8),
			updated_at = now()
		WHERE phonetic_mappings.source = 'auto_learned'`

	_, err := s.db.Exec(ctx, query,
		m.UserID, m.Heard, m.Intended, string(m.Source), m.Confidence, m.OccurrenceCount,
		maxConfidence, step,
	)
	if err != nil {
		return fmt.Errorf("mappingstore: upsert (%q, %q): %w", m.UserID, m.Heard, err)
	}
	return nil
}

// Put creates or replaces a mapping unconditionally.
func (s *PostgresStore) Put(ctx context.Context, m *Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}

	const query = `
		INSERT INTO phonetic_mappings (
			user_id, heard, intended, source, confidence, occurrence_count
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id, heard) DO UPDATE SET
			intended = EXCLUDED.intended,
			source = EXCLUDED.source,
			confidence = EXCLUDED.confidence,
			occurrence_count = EXCLUDED.occurrence_count,
			updated_at = now()`

	_, err := s.db.Exec(ctx, query,
		m.UserID, m.Heard, m.Intended, string(m.Source), m.Confidence, m.OccurrenceCount)
	if err != nil {
		return fmt.Errorf("mappingstore: put (%q, %q): %w", m.UserID, m.Heard, err)
	}
	return nil
}

// RecordApplied increments times_applied for each heard token.
func (s *PostgresStore) RecordApplied(ctx context.Context, userID string, heard []string) error {
	if len(heard) == 0 {
		return nil
	}

	const query = `
		UPDATE phonetic_mappings
		SET times_applied = times_applied + 1, updated_at = now()
		WHERE user_id = $1 AND heard = ANY($2)`

	if _, err := s.db.Exec(ctx, query, userID, heard); err != nil {
		return fmt.Errorf("mappingstore: record applied for %q: %w", userID, err)
	}
	return nil
}

func scanMapping(row pgx.Row) (Mapping, error) {
	var m Mapping
	var source string
	err := row.Scan(
		&m.UserID, &m.Heard, &m.Intended, &source, &m.Confidence,
		&m.OccurrenceCount, &m.TimesApplied, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return Mapping{}, err
	}
	m.Source = Source(source)
	return m, nil
}
