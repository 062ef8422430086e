// Package noop provides a degraded-mode stt.Provider that accepts audio and
// never produces a transcript. It exists as the last entry of a recognizer
// fallback chain: when every real backend is down, sessions still open and
// close cleanly and the caller falls through to an empty transcript instead
// of an error.
package noop

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/spellproof/spellproof/pkg/provider/stt"
)

// Provider implements stt.Provider. Every session it opens swallows audio and
// emits nothing.
type Provider struct{}

// Compile-time interface check.
var _ stt.Provider = (*Provider)(nil)

// New returns a new no-op Provider.
func New() *Provider { return &Provider{} }

// StartStream opens a session that accepts audio and never emits results.
func (*Provider) StartStream(_ context.Context, _ stt.StreamConfig) (stt.SessionHandle, error) {
	s := &session{
		partials: make(chan stt.Transcript),
		finals:   make(chan stt.Transcript),
	}
	s.active.Store(true)
	return s, nil
}

type session struct {
	partials chan stt.Transcript
	finals   chan stt.Transcript
	active   atomic.Bool
	once     sync.Once
}

func (s *session) SendAudio(_ []byte) error {
	if !s.active.Load() {
		return stt.ErrSessionClosed
	}
	return nil
}

func (s *session) Partials() <-chan stt.Transcript { return s.partials }
func (s *session) Finals() <-chan stt.Transcript   { return s.finals }
func (s *session) Active() bool                    { return s.active.Load() }

func (s *session) Close() error {
	s.once.Do(func() {
		s.active.Store(false)
		close(s.partials)
		close(s.finals)
	})
	return nil
}
