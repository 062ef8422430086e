// Package eventlog is the append-only audit log of spelling attempts.
//
// Every validated answer — correct or not, voice or keyboard — becomes one
// immutable Event. The log serves two purposes: an audit trail for support,
// and the learning corpus the phonetic learning engine mines for per-user
// correction candidates.
//
// Writes go through Logger, a fire-and-forget background worker: the gameplay
// path never waits on the store and store failures are logged and swallowed.
package eventlog

import (
	"context"
	"time"

	"github.com/spellproof/spellproof/internal/validate"
)

// Event is one recorded spelling attempt. Events are append-only: they are
// never mutated or deleted once written.
type Event struct {
	// ID is the unique event identifier (UUID).
	ID string

	// UserID identifies the player who submitted the answer.
	UserID string

	// WordToSpell is the word the player was asked to spell.
	WordToSpell string

	// RawTranscript is the final transcript (voice) or typed text (keyboard)
	// exactly as submitted.
	RawTranscript string

	// ExtractedLetters is the canonical letter sequence the extractor
	// produced. Empty for keyboard answers.
	ExtractedLetters string

	// WasCorrect is the validation verdict.
	WasCorrect bool

	// RejectionReason is the internal reason code for incorrect answers.
	RejectionReason string

	// InputMethod records how the answer was submitted.
	InputMethod validate.InputMethod

	// CreatedAt is when the event was recorded (UTC).
	CreatedAt time.Time
}

// Store persists recognition events. Implementations must be safe for
// concurrent use.
type Store interface {
	// Append inserts a new event. The event's ID and CreatedAt must already
	// be populated.
	Append(ctx context.Context, ev *Event) error

	// ListIncorrect returns the incorrect events for one user recorded at
	// or after since, newest first, capped at limit.
	ListIncorrect(ctx context.Context, userID string, since time.Time, limit int) ([]Event, error)

	// RecentFailedUsers returns the distinct user IDs with at least one
	// incorrect event at or after since, capped at limit. Feeds the
	// periodic learning sweep.
	RecentFailedUsers(ctx context.Context, since time.Time, limit int) ([]string, error)
}
