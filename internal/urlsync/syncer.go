// Package urlsync keeps a shareable query string in step with the state of a
// flow map session. Writes are debounced and skipped when the encoded string
// is already current.
package urlsync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/flowmap-core/internal/observability"
	"github.com/couchcryptid/flowmap-core/internal/state"
	"github.com/jonboulle/clockwork"
)

// DefaultDelay is the debounce delay between the last state change and the
// write.
const DefaultDelay = 250 * time.Millisecond

const targetSink = "target"

// Target is where the shareable string lives, such as a browser location or
// an in-memory history.
type Target interface {
	Current() string
	Replace(query string) error
}

// Publisher receives every string actually written to the target.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, query string) error
}

// Syncer debounces state snapshots into target writes.
type Syncer struct {
	target  Target
	sinks   []Publisher
	clock   clockwork.Clock
	delay   time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	// writeMu serialises writes so a slow write never lands after a newer one.
	writeMu sync.Mutex

	mu     sync.Mutex
	latest state.State
	dirty  bool
	timer  clockwork.Timer
	gen    uint64
	closed bool
}

// New creates a syncer. A non-positive delay selects DefaultDelay.
func New(target Target, clock clockwork.Clock, delay time.Duration, logger *slog.Logger, metrics *observability.Metrics, sinks ...Publisher) *Syncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Syncer{
		target:  target,
		sinks:   sinks,
		clock:   clock,
		delay:   delay,
		logger:  logger,
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Listen records the snapshot and restarts the delay. It has the shape of a
// state.Listener and never blocks on the write.
func (s *Syncer) Listen(next state.State, _ state.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.latest = next
	s.dirty = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.delay, func() { s.fire(gen) })
}

// Flush writes the latest snapshot now, cancelling the pending write.
func (s *Syncer) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.mu.Unlock()
	return s.write()
}

// Close cancels the pending write. Nothing is written after Close returns.
func (s *Syncer) Close() {
	s.mu.Lock()
	s.closed = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.cancel()

	// Wait for a write in progress.
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
}

func (s *Syncer) fire(gen uint64) {
	s.mu.Lock()
	stale := gen != s.gen
	s.mu.Unlock()
	if stale {
		return
	}
	if err := s.write(); err != nil {
		s.logger.Warn("sync shareable state", "error", err)
	}
}

func (s *Syncer) write() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.closed || !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snapshot := s.latest
	s.dirty = false
	s.mu.Unlock()

	query := state.EncodeQuery(snapshot)
	if query == s.target.Current() {
		return nil
	}
	if err := s.target.Replace(query); err != nil {
		s.metrics.StateSyncErrors.WithLabelValues(targetSink).Inc()
		return err
	}
	s.metrics.StateSyncWrites.WithLabelValues(targetSink).Inc()

	for _, p := range s.sinks {
		if err := p.Publish(s.ctx, query); err != nil {
			s.metrics.StateSyncErrors.WithLabelValues(p.Name()).Inc()
			s.logger.Warn("publish shareable state", "sink", p.Name(), "error", err)
			continue
		}
		s.metrics.StateSyncWrites.WithLabelValues(p.Name()).Inc()
	}
	return nil
}
