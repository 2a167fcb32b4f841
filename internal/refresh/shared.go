package refresh

import (
	"context"
	"sync"
)

// Shared hands out one process-wide Scheduler. The first Acquire builds and
// starts it; the last Release stops it.
type Shared struct {
	factory func() *Scheduler

	mu    sync.Mutex
	sched *Scheduler
	refs  int
}

func NewShared(factory func() *Scheduler) *Shared {
	return &Shared{factory: factory}
}

// Acquire returns the running scheduler, starting it if needed. Each call
// must be paired with Release.
func (s *Shared) Acquire() *Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sched == nil {
		s.sched = s.factory()
		s.sched.Start(context.Background())
	}
	s.refs++
	return s.sched
}

// Release drops one reference and stops the scheduler when none remain.
func (s *Shared) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refs == 0 {
		return
	}
	s.refs--
	if s.refs == 0 {
		s.sched.Stop()
		s.sched = nil
	}
}

// Refs returns the number of outstanding acquisitions.
func (s *Shared) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}
