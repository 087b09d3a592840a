// Package live implements debounced live-typing translation. Each keystroke
// submits the full text; only the text that stays unchanged for the quiet
// period is translated, and results overtaken by newer input are dropped.
package live

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/polyglot/internal/pipeline"
)

// DefaultDelay is the quiet period used when NewSession gets a non-positive delay.
const DefaultDelay = 400 * time.Millisecond

// Translator runs a single request. *pipeline.Pipeline satisfies it.
type Translator interface {
	Translate(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Update is a delivered outcome. Exactly one of Result and Err is set,
// except for ambiguous detections which carry both.
type Update struct {
	Generation uint64
	Request    pipeline.Request
	Result     *pipeline.Result
	Err        error
}

// DeliverFunc receives updates. It is never called concurrently and must
// not call back into the Session.
type DeliverFunc func(Update)

// Session debounces submissions for one client.
type Session struct {
	tr      Translator
	delay   time.Duration
	deliver DeliverFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	gen      uint64
	pending  pipeline.Request
	timer    *time.Timer
	inflight context.CancelFunc
	closed   bool

	deliverMu sync.Mutex
	wg        sync.WaitGroup
	stale     atomic.Int64
	delivered atomic.Int64
}

// NewSession creates a session bound to ctx. Cancelling ctx has the same
// effect as Close, except that Close also waits for running translations.
func NewSession(ctx context.Context, tr Translator, delay time.Duration, deliver DeliverFunc) *Session {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if deliver == nil {
		deliver = func(Update) {}
	}
	sctx, cancel := context.WithCancel(ctx)
	return &Session{tr: tr, delay: delay, deliver: deliver, ctx: sctx, cancel: cancel}
}

// Submit replaces the pending text and restarts the quiet period. A
// translation still running for an older submission is cancelled. It
// returns the new generation, or 0 once the session is closed.
func (s *Session) Submit(req pipeline.Request) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}

	s.gen++
	s.pending = req
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	gen := s.gen
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
	return gen
}

// Generation returns the number of the latest submission.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Stale returns how many finished translations were discarded because a
// newer submission arrived first.
func (s *Session) Stale() int64 { return s.stale.Load() }

// Delivered returns how many updates reached the deliver callback.
func (s *Session) Delivered() int64 { return s.delivered.Load() }

// Close stops the pending timer, cancels running translations and waits
// for them to finish. Nothing is delivered after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Session) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	req := s.pending
	ctx, cancel := context.WithCancel(s.ctx)
	s.inflight = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	defer cancel()

	res, err := s.tr.Translate(ctx, req)

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if !s.current(gen) {
		s.stale.Add(1)
		slog.Debug("Discarded stale live result", "generation", gen)
		return
	}
	s.delivered.Add(1)
	s.deliver(Update{Generation: gen, Request: req, Result: res, Err: err})
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && gen == s.gen && s.ctx.Err() == nil
}
