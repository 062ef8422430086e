// Package learning mines a user's failed spelling attempts for recurring
// mis-hearings and turns them into per-user phonetic mappings.
//
// The engine is deliberately cautious: it learns only from events where
// exactly one transcript token is unexplained and the rest of the transcript
// reproduces the expected word precisely, it requires a candidate to recur
// and to sound like the letter it would map to before persisting anything,
// and it can never displace a protected global mapping or a user's manual
// correction. Re-running against an unchanged log
// reinforces confidence up to a hard cap and never duplicates rows.
package learning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/spellproof/spellproof/internal/eventlog"
	"github.com/spellproof/spellproof/internal/extract"
	"github.com/spellproof/spellproof/internal/mappingstore"
	"github.com/spellproof/spellproof/internal/validate"
)

// Config holds the learning engine's tuning knobs. Zero values fall back to
// the documented defaults.
type Config struct {
	// WindowDays bounds how far back failed attempts are considered.
	// Default: 30.
	WindowDays int `yaml:"window_days"`

	// MaxEvents caps how many failed attempts one run analyses. Default: 200.
	MaxEvents int `yaml:"max_events"`

	// MinOccurrences is how often a candidate must recur before it is
	// persisted. Default: 2.
	MinOccurrences int `yaml:"min_occurrences"`

	// InitialConfidence is the confidence of a freshly learned mapping.
	// Default: 0.75.
	InitialConfidence float64 `yaml:"initial_confidence"`

	// ReinforceStep is the confidence increment per reinforcing run.
	// Default: 0.1.
	ReinforceStep float64 `yaml:"reinforce_step"`

	// MaxConfidence is the hard confidence cap. Default: 0.99.
	MaxConfidence float64 `yaml:"max_confidence"`
}

func (c Config) withDefaults() Config {
	if c.WindowDays == 0 {
		c.WindowDays = 30
	}
	if c.MaxEvents == 0 {
		c.MaxEvents = 200
	}
	if c.MinOccurrences == 0 {
		c.MinOccurrences = 2
	}
	if c.InitialConfidence == 0 {
		c.InitialConfidence = 0.75
	}
	if c.ReinforceStep == 0 {
		c.ReinforceStep = 0.1
	}
	if c.MaxConfidence == 0 {
		c.MaxConfidence = 0.99
	}
	return c
}

// Report summarises one learning run for one user.
type Report struct {
	UserID          string
	LogsAnalyzed    int
	PatternsFound   int
	MappingsCreated int
	NewMappings     []mappingstore.Mapping
}

// Engine runs per-user learning passes over the event log.
// Safe for concurrent use; concurrent runs for the same user converge because
// the mapping upsert is additive and confidence-capped.
type Engine struct {
	events   eventlog.Store
	mappings mappingstore.Store
	cfg      Config
}

// New creates an Engine over the given stores.
func New(events eventlog.Store, mappings mappingstore.Store, cfg Config) *Engine {
	return &Engine{events: events, mappings: mappings, cfg: cfg.withDefaults()}
}

// Run analyses the user's recent failed voice attempts and persists any
// correction candidate that recurred at least MinOccurrences times.
func (e *Engine) Run(ctx context.Context, userID string) (*Report, error) {
	existing, err := e.mappings.ForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("learning: load mappings for %q: %w", userID, err)
	}
	overlay := mappingstore.Overlay(existing)

	since := time.Now().UTC().AddDate(0, 0, -e.cfg.WindowDays)
	events, err := e.events.ListIncorrect(ctx, userID, since, e.cfg.MaxEvents)
	if err != nil {
		return nil, fmt.Errorf("learning: load events for %q: %w", userID, err)
	}

	bySource := make(map[string]mappingstore.Source, len(existing))
	for _, m := range existing {
		bySource[m.Heard] = m.Source
	}

	report := &Report{UserID: userID}
	counts := make(map[Candidate]int)

	for _, ev := range events {
		if ev.InputMethod != validate.MethodVoice {
			continue
		}
		report.LogsAnalyzed++

		an := Analyze(ev, overlay)
		switch {
		case an.CanLearn:
			counts[*an.Candidate]++
		case an.Reason == ReasonAllKnown:
			// The failure is fully explained by mappings learned since
			// it was logged: count that as reinforcement for the
			// auto-learned mappings the extraction relied on.
			ext := extract.Extract(ev.RawTranscript, overlay)
			if validate.Normalize(ext.Letters) != validate.Normalize(ev.WordToSpell) {
				continue
			}
			for _, heard := range ext.AppliedUser {
				if bySource[heard] == mappingstore.SourceAutoLearned {
					counts[Candidate{Heard: heard, Intended: overlay[heard]}]++
				}
			}
		}
	}
	report.PatternsFound = len(counts)

	// Deterministic persistence order keeps runs reproducible.
	candidates := make([]Candidate, 0, len(counts))
	for cand := range counts {
		candidates = append(candidates, cand)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Heard < candidates[j].Heard
	})

	for _, cand := range candidates {
		n := counts[cand]
		if n < e.cfg.MinOccurrences {
			continue
		}

		// Persistence-time restatement of the safety invariant, in case
		// the global table gained an entry since analysis.
		if g, ok := extract.GlobalMapping(cand.Heard); ok && g != cand.Intended {
			slog.Warn("learning candidate rejected: collides with global mapping",
				"user_id", userID, "heard", cand.Heard,
				"candidate", cand.Intended, "global", g)
			continue
		}

		if !plausible(cand) {
			slog.Warn("learning candidate rejected: not phonetically plausible",
				"user_id", userID, "heard", cand.Heard, "candidate", cand.Intended)
			continue
		}

		m := &mappingstore.Mapping{
			UserID:          userID,
			Heard:           cand.Heard,
			Intended:        cand.Intended,
			Source:          mappingstore.SourceAutoLearned,
			Confidence:      e.cfg.InitialConfidence,
			OccurrenceCount: n,
		}
		if err := e.mappings.Upsert(ctx, m, e.cfg.ReinforceStep, e.cfg.MaxConfidence); err != nil {
			// Best-effort: one failed upsert must not abort the run.
			slog.Error("learning: upsert failed",
				"user_id", userID, "heard", cand.Heard, "err", err)
			continue
		}
		report.MappingsCreated++

		stored, err := e.mappings.Get(ctx, userID, cand.Heard)
		if err != nil || stored == nil {
			slog.Warn("learning: could not read back stored mapping",
				"user_id", userID, "heard", cand.Heard, "err", err)
			continue
		}
		report.NewMappings = append(report.NewMappings, *stored)
	}

	slog.Info("learning run complete",
		"user_id", userID,
		"logs_analyzed", report.LogsAnalyzed,
		"patterns_found", report.PatternsFound,
		"mappings_created", report.MappingsCreated,
	)
	return report, nil
}
