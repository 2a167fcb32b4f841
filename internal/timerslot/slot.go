// Package timerslot provides a single owned timer per purpose. Scheduling
// always cancels the pending run first, so only the latest schedule fires.
package timerslot

import (
	"sync"
	"time"
)

// Slot holds at most one pending timer.
type Slot struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// Schedule cancels any pending run and arranges for fn to run after delay.
func (s *Slot) Schedule(delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if gen != s.gen {
			// superseded after the timer had already fired
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending run, if any. It reports whether one was pending.
func (s *Slot) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	if s.timer == nil {
		return false
	}
	stopped := s.timer.Stop()
	s.timer = nil
	return stopped
}

// Pending reports whether a run is scheduled and has not fired yet.
func (s *Slot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}
