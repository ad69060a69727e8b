package search

import (
	"sync"
	"time"
)

// DefaultDebounce is the delay between a keystroke and its query.
const DefaultDebounce = 100 * time.Millisecond

// Session runs debounced queries for one input session. Every Input call
// schedules a query after the debounce delay and cancels any not-yet-executed
// prior one; results are delivered last-issued-wins, so a slow earlier query
// can never overwrite a later one. Closing the session drops all pending and
// in-flight deliveries.
type Session struct {
	index *Index
	delay time.Duration
	apply func(Result)

	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64
	closed bool

	// deliverMu serializes deliveries so the staleness re-check and the
	// apply form one step.
	deliverMu sync.Mutex
}

// NewSession creates a search session. apply receives each query's result; it
// is invoked from timer goroutines, one at a time per generation check.
func NewSession(index *Index, delay time.Duration, apply func(Result)) *Session {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Session{index: index, delay: delay, apply: apply}
}

// Input schedules a debounced query for text, superseding any pending one.
func (s *Session) Input(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.delay, func() {
		s.run(gen, text)
	})
}

// Close cancels any pending query and blocks future deliveries.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// Invalidate any query that already fired its timer.
	s.gen++
}

func (s *Session) run(gen uint64, text string) {
	if s.stale(gen) {
		return
	}

	result := s.index.Query(text)

	// Re-check after the query: a newer keystroke or Close may have arrived
	// while this one was running. The re-check and the apply happen under
	// the delivery lock; without it a superseded query could pass the check
	// and then land its result after a newer query's.
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.stale(gen) {
		return
	}
	s.apply(result)
}

func (s *Session) stale(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed || gen != s.gen
}
