// Package gateway terminates client websocket connections and bridges them
// to streaming recognition sessions.
//
// The protocol is JSON text frames for control and results, binary frames
// for raw PCM audio:
//
//	client → server: {"type":"start","language":"en-US","sampleRate":16000}
//	client → server: <binary PCM frames>
//	client → server: {"type":"stop"}
//	server → client: {"type":"ready"}
//	server → client: {"type":"interim","transcript":...,"stability":...}
//	server → client: {"type":"final","transcript":...,"words":[...],"confidence":...}
//	server → client: {"type":"error","message":...}
//
// Each connection holds at most one active recognition session. A "start"
// while a session is active releases the old session first. "stop",
// connection close, and the provider ending the stream all release the
// session the same way. Outbound envelopes are serialized through a single
// writer goroutine so interim and final results are never delivered out of
// order.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/spellproof/spellproof/internal/observe"
	"github.com/spellproof/spellproof/pkg/provider/stt"
)

// outboundBuffer sizes the per-connection envelope channel. Interim results
// arrive at speech pace, so a small buffer absorbs bursts without letting a
// slow client pin provider goroutines for long.
const outboundBuffer = 32

// Server handles websocket connections on the recognition endpoint.
// It implements [http.Handler].
type Server struct {
	provider stt.Provider
	metrics  *observe.Metrics

	defaultLanguage   string
	defaultSampleRate int
	keywords          []stt.KeywordBoost
}

var _ http.Handler = (*Server)(nil)

// Option configures a [Server].
type Option func(*Server)

// WithMetrics sets the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithDefaults sets the language and sample rate used when the client's
// start message omits them.
func WithDefaults(language string, sampleRate int) Option {
	return func(s *Server) {
		if language != "" {
			s.defaultLanguage = language
		}
		if sampleRate > 0 {
			s.defaultSampleRate = sampleRate
		}
	}
}

// WithKeywords sets the vocabulary boosts passed to every session.
func WithKeywords(kw []stt.KeywordBoost) Option {
	return func(s *Server) { s.keywords = kw }
}

// NewServer creates a gateway over the given recognition provider.
func NewServer(provider stt.Provider, opts ...Option) *Server {
	s := &Server{
		provider:          provider,
		defaultLanguage:   "en-US",
		defaultSampleRate: 16000,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// ServeHTTP upgrades the request to a websocket and serves it until the
// client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	connID := uuid.NewString()
	log := slog.With("conn_id", connID)
	log.Info("client connected", "remote", r.RemoteAddr)

	c := &conn{
		server: s,
		ws:     ws,
		log:    log,
		out:    make(chan envelope, outboundBuffer),
	}
	c.serve(r.Context())

	log.Info("client disconnected")
}

// conn is the per-connection state. The read loop is the only goroutine that
// starts and releases sessions; relay goroutines may also trigger a release
// when the provider ends the stream, so session state is mutex-guarded.
type conn struct {
	server *Server
	ws     *websocket.Conn
	log    *slog.Logger

	out chan envelope

	mu        sync.Mutex
	session   stt.SessionHandle
	startedAt time.Time

	relays sync.WaitGroup
}

// serve runs the connection until the client disconnects, then tears down
// the session, the relay goroutine, and the writer in order.
func (c *conn) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	writerDone := make(chan struct{})
	go c.writer(ctx, cancel, writerDone)

	c.readLoop(ctx)

	// Client is gone: release any live session, wait for its relay to
	// drain, then let the writer finish.
	c.releaseSession("connection closed")
	c.relays.Wait()
	close(c.out)
	<-writerDone

	_ = c.ws.Close(websocket.StatusNormalClosure, "")
}

// writer is the single goroutine allowed to write to the websocket. It
// preserves envelope order. On write failure it cancels the connection and
// drains remaining envelopes so senders never block.
func (c *conn) writer(ctx context.Context, cancel context.CancelFunc, done chan<- struct{}) {
	defer close(done)
	for env := range c.out {
		data, err := json.Marshal(env)
		if err != nil {
			c.log.Error("marshal envelope", "type", env.Type, "error", err)
			continue
		}
		if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
			c.log.Debug("websocket write failed", "error", err)
			cancel()
			for range c.out {
			}
			return
		}
	}
}

// send queues an envelope for delivery. Drops the envelope if the
// connection is shutting down.
func (c *conn) send(ctx context.Context, env envelope) {
	select {
	case c.out <- env:
	case <-ctx.Done():
	}
}

// readLoop consumes client frames until the connection errors or closes.
func (c *conn) readLoop(ctx context.Context) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return
		}
		switch typ {
		case websocket.MessageText:
			c.handleControl(ctx, data)
		case websocket.MessageBinary:
			c.handleAudio(ctx, data)
		}
	}
}

// handleControl parses and dispatches a control message. Malformed messages
// are logged and answered with an error envelope; they never kill the
// connection.
func (c *conn) handleControl(ctx context.Context, data []byte) {
	var msg controlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.Warn("malformed control message", "error", err)
		c.send(ctx, errorEnvelope("malformed control message"))
		return
	}

	switch msg.Type {
	case typeStart:
		c.handleStart(ctx, msg)
	case typeStop:
		c.releaseSession("stop requested")
	default:
		c.log.Warn("unknown control message type", "type", msg.Type)
		c.send(ctx, errorEnvelope("unknown control message type: "+msg.Type))
	}
}

// handleStart releases any prior session and opens a new one. The client
// gets a ready envelope once the provider stream is up, or an error
// envelope if it could not be opened.
func (c *conn) handleStart(ctx context.Context, msg controlMessage) {
	c.releaseSession("superseded by new start")

	cfg := stt.StreamConfig{
		Language:   c.server.defaultLanguage,
		SampleRate: c.server.defaultSampleRate,
		Keywords:   c.server.keywords,
	}
	if msg.Language != "" {
		cfg.Language = msg.Language
	}
	if msg.SampleRate > 0 {
		cfg.SampleRate = msg.SampleRate
	}

	handle, err := c.server.provider.StartStream(ctx, cfg)
	if err != nil {
		c.log.Error("failed to start recognition session", "error", err)
		c.server.metrics.RecordProviderError(ctx, "stt")
		c.send(ctx, errorEnvelope("failed to start recognition session"))
		return
	}

	c.mu.Lock()
	c.session = handle
	c.startedAt = time.Now()
	c.mu.Unlock()

	c.server.metrics.ActiveSessions.Add(ctx, 1)
	c.log.Info("recognition session started",
		"language", cfg.Language, "sample_rate", cfg.SampleRate)

	c.relays.Add(1)
	go c.relay(ctx, handle)

	c.send(ctx, envelope{Type: typeReady})
}

// relay pumps transcripts from the session to the outbound channel until
// both provider channels close, then releases the session. The provider
// ending the stream is handled identically to an explicit stop.
func (c *conn) relay(ctx context.Context, handle stt.SessionHandle) {
	defer c.relays.Done()

	partials := handle.Partials()
	finals := handle.Finals()
	for partials != nil || finals != nil {
		select {
		case t, ok := <-partials:
			if !ok {
				partials = nil
				continue
			}
			c.server.metrics.RecordTranscript(ctx, "interim")
			c.send(ctx, interimEnvelope(t))
		case t, ok := <-finals:
			if !ok {
				finals = nil
				continue
			}
			c.server.metrics.RecordTranscript(ctx, "final")
			c.send(ctx, finalEnvelope(t))
		case <-ctx.Done():
			return
		}
	}

	c.releaseHandle(handle, "provider ended stream")
}

// releaseSession closes whatever session is current.
func (c *conn) releaseSession(reason string) {
	c.mu.Lock()
	handle := c.session
	c.mu.Unlock()
	if handle != nil {
		c.releaseHandle(handle, reason)
	}
}

// releaseHandle closes the given session if it is still the current one.
// Safe to call from both the read loop and relay goroutines; the second
// caller for the same handle is a no-op.
func (c *conn) releaseHandle(handle stt.SessionHandle, reason string) {
	c.mu.Lock()
	if c.session != handle {
		c.mu.Unlock()
		return
	}
	c.session = nil
	startedAt := c.startedAt
	c.mu.Unlock()

	if err := handle.Close(); err != nil {
		c.log.Warn("session close failed", "error", err)
	}

	ctx := context.Background()
	c.server.metrics.ActiveSessions.Add(ctx, -1)
	c.server.metrics.SessionDuration.Record(ctx, time.Since(startedAt).Seconds())
	c.log.Info("recognition session released", "reason", reason,
		"duration", time.Since(startedAt).Round(time.Millisecond))
}

// handleAudio forwards a binary frame to the active session. Frames with no
// active session are dropped and logged, never buffered.
func (c *conn) handleAudio(ctx context.Context, data []byte) {
	c.mu.Lock()
	handle := c.session
	c.mu.Unlock()

	if handle == nil {
		c.log.Debug("dropping audio frame without active session", "bytes", len(data))
		c.server.metrics.DroppedAudioFrames.Add(ctx, 1)
		return
	}
	if err := handle.SendAudio(data); err != nil {
		c.log.Debug("dropping audio frame", "bytes", len(data), "error", err)
		c.server.metrics.DroppedAudioFrames.Add(ctx, 1)
	}
}
