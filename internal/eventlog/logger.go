package eventlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBufferSize   = 256
	defaultWriteTimeout = 5 * time.Second
)

// LoggerOption is a functional option for configuring a [Logger].
type LoggerOption func(*Logger)

// WithBufferSize sets the queue capacity. When the queue is full, Log drops
// the event with a warning instead of blocking. Default: 256.
func WithBufferSize(n int) LoggerOption {
	return func(l *Logger) {
		l.buf = n
	}
}

// WithWriteTimeout bounds how long a single store append may take inside the
// worker. Default: 5s.
func WithWriteTimeout(d time.Duration) LoggerOption {
	return func(l *Logger) {
		l.writeTimeout = d
	}
}

// WithDropHook registers a callback invoked whenever an event is dropped
// because the queue is full. Used to feed a metrics counter.
func WithDropHook(fn func(Event)) LoggerOption {
	return func(l *Logger) {
		l.onDrop = fn
	}
}

// Logger appends recognition events to a [Store] from a background worker.
//
// Log is fire-and-forget: it never blocks the caller and never returns an
// error. Store failures are logged and swallowed — logging must not be able
// to fail gameplay. The gameplay path holds no handle to the pending write.
type Logger struct {
	store        Store
	queue        chan Event
	buf          int
	writeTimeout time.Duration
	onDrop       func(Event)

	once sync.Once
	wg   sync.WaitGroup
}

// NewLogger creates a Logger and starts its worker goroutine.
func NewLogger(store Store, opts ...LoggerOption) *Logger {
	l := &Logger{
		store:        store,
		buf:          defaultBufferSize,
		writeTimeout: defaultWriteTimeout,
	}
	for _, o := range opts {
		o(l)
	}
	l.queue = make(chan Event, l.buf)

	l.wg.Add(1)
	go l.worker()
	return l
}

// Log queues an event for persistence. Missing ID/CreatedAt fields are filled
// in. A full queue drops the event with a warning; a closed logger drops it
// silently. Never blocks.
func (l *Logger) Log(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	defer func() {
		// Send on closed channel after Close — an attempt race we accept
		// rather than propagate into the gameplay path.
		if recover() != nil {
			slog.Debug("event dropped: logger closed", "user_id", ev.UserID)
		}
	}()

	select {
	case l.queue <- ev:
	default:
		slog.Warn("event dropped: log queue full",
			"user_id", ev.UserID, "word", ev.WordToSpell)
		if l.onDrop != nil {
			l.onDrop(ev)
		}
	}
}

// Close stops accepting events, drains the queue, and waits for the worker.
// Safe to call multiple times.
func (l *Logger) Close() error {
	l.once.Do(func() {
		close(l.queue)
	})
	l.wg.Wait()
	return nil
}

func (l *Logger) worker() {
	defer l.wg.Done()
	for ev := range l.queue {
		ctx, cancel := context.WithTimeout(context.Background(), l.writeTimeout)
		if err := l.store.Append(ctx, &ev); err != nil {
			slog.Error("failed to append recognition event",
				"user_id", ev.UserID, "word", ev.WordToSpell, "err", err)
		}
		cancel()
	}
}
