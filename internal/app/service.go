// Package app wires the recognition pipeline into a service: answer
// validation with event logging, learning runs, mapping administration, and
// the HTTP surface exposing them.
//
// The validation path is the gameplay-critical one. Everything attached to
// it — event logging, mapping application accounting — is best-effort and
// never blocks or fails the answer.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spellproof/spellproof/internal/eventlog"
	"github.com/spellproof/spellproof/internal/learning"
	"github.com/spellproof/spellproof/internal/mappingstore"
	"github.com/spellproof/spellproof/internal/observe"
	"github.com/spellproof/spellproof/internal/validate"
	"github.com/spellproof/spellproof/pkg/provider/stt"
)

// Service coordinates the stores, the event logger, and the learning engine
// behind the validation and administration operations.
type Service struct {
	mappings mappingstore.Store
	logger   *eventlog.Logger
	engine   *learning.Engine
	metrics  *observe.Metrics
}

// ServiceOption configures a [Service].
type ServiceOption func(*Service)

// WithMetrics sets the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService creates the service over the given collaborators.
func NewService(mappings mappingstore.Store, logger *eventlog.Logger, engine *learning.Engine, opts ...ServiceOption) *Service {
	s := &Service{
		mappings: mappings,
		logger:   logger,
		engine:   engine,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// AnswerRequest is one submitted answer to validate.
type AnswerRequest struct {
	// UserID identifies the answering user.
	UserID string

	// Answer is the raw answer: the final transcript for voice, the typed
	// string for keyboard.
	Answer string

	// Word is the word the user was asked to spell.
	Word string

	// Method is how the answer was submitted.
	Method validate.InputMethod

	// Words optionally carries provider word timings from the final
	// transcript. When present, voice validation uses the timing
	// classifier instead of lexical spelled-out detection.
	Words []stt.WordDetail
}

// ValidateAnswer runs the full validation flow for one answer: fetch the
// user's phonetic overlay, validate, log the recognition event, and account
// for applied mappings. Only validation itself can fail the call; the
// logging and accounting legs are best-effort.
func (s *Service) ValidateAnswer(ctx context.Context, req AnswerRequest) (validate.Result, error) {
	if req.UserID == "" {
		return validate.Result{}, fmt.Errorf("app: user id must not be empty")
	}
	if req.Word == "" {
		return validate.Result{}, fmt.Errorf("app: word must not be empty")
	}

	// Overlay fetch is best-effort: a store outage degrades extraction to
	// global mappings only, it does not fail the answer.
	var overlay map[string]string
	if req.Method == validate.MethodVoice {
		userMappings, err := s.mappings.ForUser(ctx, req.UserID)
		if err != nil {
			slog.Warn("failed to load user mappings, validating without overlay",
				"user_id", req.UserID, "error", err)
		} else {
			overlay = mappingstore.Overlay(userMappings)
		}
	}

	vreq := validate.Request{
		Answer:       req.Answer,
		Word:         req.Word,
		Method:       req.Method,
		UserMappings: overlay,
	}
	if req.Method == validate.MethodVoice && len(req.Words) > 0 {
		timing := validate.ClassifyTiming(req.Words, len(validate.Normalize(req.Word)))
		vreq.Timing = &timing
	}

	res := validate.Validate(vreq)

	s.metrics.RecordValidation(ctx, string(req.Method), res.IsCorrect, res.RejectionReason)

	s.logger.Log(eventlog.Event{
		UserID:           req.UserID,
		WordToSpell:      req.Word,
		RawTranscript:    req.Answer,
		ExtractedLetters: res.Extraction.Letters,
		WasCorrect:       res.IsCorrect,
		RejectionReason:  res.RejectionReason,
		InputMethod:      req.Method,
	})

	if applied := res.Extraction.AppliedUser; len(applied) > 0 {
		if err := s.mappings.RecordApplied(ctx, req.UserID, applied); err != nil {
			slog.Warn("failed to record applied mappings",
				"user_id", req.UserID, "error", err)
		}
	}

	return res, nil
}

// RunLearning executes one learning pass for the user and records the
// outcome.
func (s *Service) RunLearning(ctx context.Context, userID string) (*learning.Report, error) {
	report, err := s.engine.Run(ctx, userID)
	if err != nil {
		s.metrics.RecordLearningRun(ctx, "error", 0)
		return nil, fmt.Errorf("app: learning run for %q: %w", userID, err)
	}
	s.metrics.RecordLearningRun(ctx, "ok", report.MappingsCreated)
	return report, nil
}

// UserMappings returns all phonetic mappings stored for the user.
func (s *Service) UserMappings(ctx context.Context, userID string) ([]mappingstore.Mapping, error) {
	mappings, err := s.mappings.ForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("app: load mappings for %q: %w", userID, err)
	}
	return mappings, nil
}

// PutMapping stores a manually administered mapping. The source defaults to
// manual and pinned mappings are stored at full confidence.
func (s *Service) PutMapping(ctx context.Context, m mappingstore.Mapping) error {
	if m.Source == "" {
		m.Source = mappingstore.SourceManual
	}
	if m.Source.Pinned() {
		m.Confidence = 1.0
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := s.mappings.Put(ctx, &m); err != nil {
		return fmt.Errorf("app: store mapping %q for %q: %w", m.Heard, m.UserID, err)
	}
	slog.Info("mapping stored", "user_id", m.UserID, "heard", m.Heard,
		"intended", m.Intended, "source", m.Source)
	return nil
}
