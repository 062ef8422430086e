package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spellproof/spellproof/pkg/provider/stt"
)

// ErrAllProvidersFailed is returned when every provider in a
// [RecognizerFallback] chain has failed or has an open breaker.
var ErrAllProvidersFailed = errors.New("all recognition providers failed")

// entry pairs a provider with its dedicated breaker.
type entry struct {
	name     string
	provider stt.Provider
	breaker  *CircuitBreaker
}

// RecognizerFallback is an [stt.Provider] that chains providers in priority
// order. Each provider gets its own circuit breaker; a provider whose breaker
// is open is skipped without being called. Adding the no-op provider as the
// final fallback means total outage degrades to sessions that produce no
// transcripts rather than failed session starts.
type RecognizerFallback struct {
	mu      sync.RWMutex
	entries []entry

	maxFailures int
}

var _ stt.Provider = (*RecognizerFallback)(nil)

// RecognizerOption configures a [RecognizerFallback].
type RecognizerOption func(*RecognizerFallback)

// WithMaxFailures overrides the per-provider breaker failure threshold.
func WithMaxFailures(n int) RecognizerOption {
	return func(r *RecognizerFallback) {
		if n > 0 {
			r.maxFailures = n
		}
	}
}

// NewRecognizerFallback creates an empty fallback chain. Providers are tried
// in the order they are registered with [RecognizerFallback.Add].
func NewRecognizerFallback(opts ...RecognizerOption) *RecognizerFallback {
	r := &RecognizerFallback{maxFailures: 3}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a provider at the end of the chain under the given name.
// The name appears in log messages and error text.
func (r *RecognizerFallback) Add(name string, p stt.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{
		name:     name,
		provider: p,
		breaker: NewCircuitBreaker(CircuitBreakerConfig{
			Name:        "stt-" + name,
			MaxFailures: r.maxFailures,
		}),
	})
}

// StartStream tries each provider in order until one accepts the session.
// Providers with open breakers are skipped. If every provider fails, the
// joined errors are returned wrapped in [ErrAllProvidersFailed].
func (r *RecognizerFallback) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	r.mu.RLock()
	entries := make([]entry, len(r.entries))
	copy(entries, r.entries)
	r.mu.RUnlock()

	if len(entries) == 0 {
		return nil, fmt.Errorf("resilience: %w: no providers registered", ErrAllProvidersFailed)
	}

	var errs []error
	for i, e := range entries {
		var handle stt.SessionHandle
		err := e.breaker.Execute(func() error {
			var startErr error
			handle, startErr = e.provider.StartStream(ctx, cfg)
			return startErr
		})
		if err == nil {
			if i > 0 {
				slog.Warn("recognition session started on fallback provider",
					"provider", e.name, "position", i)
			}
			return handle, nil
		}
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping recognition provider with open breaker", "provider", e.name)
		} else {
			slog.Warn("recognition provider failed to start session",
				"provider", e.name, "error", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", e.name, err))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("resilience: %w", ctx.Err())
		default:
		}
	}

	return nil, fmt.Errorf("resilience: %w: %w", ErrAllProvidersFailed, errors.Join(errs...))
}
