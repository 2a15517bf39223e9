package service

import (
	"sync"
	"time"
)

// ExpiryScheduler tracks one expiry timer per hold id. Timers live only in
// this process; the reconcile worker re-creates timers lost to restarts.
type ExpiryScheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// NewExpiryScheduler creates a new ExpiryScheduler
func NewExpiryScheduler() *ExpiryScheduler {
	return &ExpiryScheduler{
		timers: make(map[string]*time.Timer),
	}
}

// Schedule arms a timer that fires fn after d. Re-scheduling an already
// tracked hold id resets its timer.
func (s *ExpiryScheduler) Schedule(holdID string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if existing, ok := s.timers[holdID]; ok {
		existing.Stop()
	}

	s.timers[holdID] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, holdID)
		s.mu.Unlock()
		fn()
	})
}

// Cancel stops and forgets the timer for a hold id
func (s *ExpiryScheduler) Cancel(holdID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[holdID]; ok {
		timer.Stop()
		delete(s.timers, holdID)
	}
}

// Scheduled reports whether a timer is tracked for the hold id
func (s *ExpiryScheduler) Scheduled(holdID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[holdID]
	return ok
}

// Len returns the number of tracked timers
func (s *ExpiryScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels all timers and rejects further scheduling
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
