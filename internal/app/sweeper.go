package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/spellproof/spellproof/internal/eventlog"
)

// Sweeper periodically runs the learning engine for every user with recent
// failed attempts, so per-user mappings improve without anyone calling the
// learn endpoint.
type Sweeper struct {
	service   *Service
	events    eventlog.Store
	scheduler *gocron.Scheduler

	interval  time.Duration
	window    time.Duration
	userLimit int
}

// NewSweeper creates a sweeper that runs every interval, analysing users who
// failed within window, capped at userLimit users per sweep.
func NewSweeper(service *Service, events eventlog.Store, interval, window time.Duration, userLimit int) *Sweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	if userLimit <= 0 {
		userLimit = 50
	}
	return &Sweeper{
		service:   service,
		events:    events,
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
		window:    window,
		userLimit: userLimit,
	}
}

// Start schedules the sweep and begins running it in the background.
func (s *Sweeper) Start() error {
	_, err := s.scheduler.Every(s.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		defer cancel()
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	slog.Info("learning sweep scheduled", "interval", s.interval,
		"window", s.window, "user_limit", s.userLimit)
	return nil
}

// Stop halts the scheduler. A sweep in flight finishes its current user.
func (s *Sweeper) Stop() {
	s.scheduler.Stop()
}

// Sweep executes one pass: find the users with recent failed attempts and
// run the learning engine for each. Errors are logged per user; one user's
// failure never stops the sweep.
func (s *Sweeper) Sweep(ctx context.Context) {
	since := time.Now().Add(-s.window)
	users, err := s.events.RecentFailedUsers(ctx, since, s.userLimit)
	if err != nil {
		slog.Error("learning sweep: failed to list users", "error", err)
		return
	}
	if len(users) == 0 {
		slog.Debug("learning sweep: no users with recent failures")
		return
	}

	created := 0
	for _, userID := range users {
		if ctx.Err() != nil {
			slog.Warn("learning sweep interrupted", "error", ctx.Err())
			return
		}
		report, err := s.service.RunLearning(ctx, userID)
		if err != nil {
			slog.Error("learning sweep: run failed", "user_id", userID, "error", err)
			continue
		}
		created += report.MappingsCreated
	}

	slog.Info("learning sweep complete", "users", len(users), "mappings_created", created)
}
