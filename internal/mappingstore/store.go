// Package mappingstore persists per-user phonetic mappings — the learned and
// manually curated corrections that turn a user's habitual mis-hearings into
// the letters they meant.
//
// The global default table is not stored here: it is a separate immutable
// layer compiled into the extract package. This store only ever holds
// per-user overlay rows, so no write path can touch a protected global entry.
package mappingstore

import (
	"context"
	"fmt"
	"time"
)

// Source records how a mapping came to exist.
type Source string

const (
	// SourceAutoLearned marks mappings deduced by the learning engine.
	// Their confidence only rises, via reinforcement, up to a cap.
	SourceAutoLearned Source = "auto_learned"

	// SourceManual marks mappings entered by the user. Pinned at
	// confidence 1.0 and never auto-adjusted.
	SourceManual Source = "manual"

	// SourceSupportAdded marks mappings entered by support staff on the
	// user's behalf. Treated like manual mappings.
	SourceSupportAdded Source = "support_added"
)

// IsValid reports whether s is a recognised mapping source.
func (s Source) IsValid() bool {
	switch s {
	case SourceAutoLearned, SourceManual, SourceSupportAdded:
		return true
	}
	return false
}

// Pinned reports whether mappings from this source are exempt from automatic
// adjustment by the learning engine.
func (s Source) Pinned() bool {
	return s == SourceManual || s == SourceSupportAdded
}

// Mapping is one per-user phonetic correction rule: when the recogniser hears
// Heard from this user, the user meant Intended. Unique per (UserID, Heard).
type Mapping struct {
	// UserID identifies the user this mapping belongs to.
	UserID string

	// Heard is the transcript token the recogniser produces.
	Heard string

	// Intended is the single letter the user actually meant. Multi-letter
	// corrections belong to the global phrase table, never to per-user rows.
	Intended string

	// Source records how the mapping was created.
	Source Source

	// Confidence is the trust in this mapping, in [0, 1].
	Confidence float64

	// OccurrenceCount is how many distinct failed attempts supported this
	// mapping across learning runs.
	OccurrenceCount int

	// TimesApplied counts how often the extractor used this mapping.
	TimesApplied int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the mapping's invariants before persistence.
func (m *Mapping) Validate() error {
	if m.UserID == "" {
		return fmt.Errorf("mappingstore: user id must not be empty")
	}
	if m.Heard == "" {
		return fmt.Errorf("mappingstore: heard token must not be empty")
	}
	if len(m.Intended) != 1 || m.Intended[0] < 'a' || m.Intended[0] > 'z' {
		return fmt.Errorf("mappingstore: intended must be a single letter a-z, got %q", m.Intended)
	}
	if !m.Source.IsValid() {
		return fmt.Errorf("mappingstore: unknown source %q", m.Source)
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("mappingstore: confidence %v out of [0,1]", m.Confidence)
	}
	return nil
}

// Store persists per-user phonetic mappings. Implementations must be safe for
// concurrent use.
type Store interface {
	// ForUser returns all mappings belonging to one user.
	ForUser(ctx context.Context, userID string) ([]Mapping, error)

	// Get retrieves a mapping by its (userID, heard) key.
	// Returns (nil, nil) if no such mapping exists.
	Get(ctx context.Context, userID, heard string) (*Mapping, error)

	// Upsert inserts an auto-learned mapping or reinforces an existing one.
	// On conflict the occurrence count grows by the new mapping's count and
	// confidence rises by step, capped at maxConfidence — an additive,
	// commutative update so concurrent learning runs converge. Mappings
	// from pinned sources (manual, support_added) are never modified.
	Upsert(ctx context.Context, m *Mapping, step, maxConfidence float64) error

	// Put creates or replaces a mapping unconditionally. Intended for
	// manual and support administration, not the learning engine.
	Put(ctx context.Context, m *Mapping) error

	// RecordApplied increments TimesApplied for each of the user's heard
	// tokens. Missing tokens are ignored. Best-effort accounting.
	RecordApplied(ctx context.Context, userID string, heard []string) error
}

// Overlay converts a user's mappings into the heard→intended lookup the
// extractor consumes.
func Overlay(mappings []Mapping) map[string]string {
	if len(mappings) == 0 {
		return nil
	}
	overlay := make(map[string]string, len(mappings))
	for _, m := range mappings {
		overlay[m.Heard] = m.Intended
	}
	return overlay
}
