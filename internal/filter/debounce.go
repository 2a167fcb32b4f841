package filter

import (
	"sync"
	"time"

	"burrowfeed/internal/timerslot"
)

// DefaultDebounce is the window in which filter edits collapse into one submission.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer collapses rapid filter edits. Only the latest Params reach submit.
type Debouncer struct {
	window time.Duration
	submit func(Params)

	mu      sync.Mutex
	pending Params
	slot    timerslot.Slot
}

func NewDebouncer(window time.Duration, submit func(Params)) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Debouncer{window: window, submit: submit}
}

// Set records an edit and restarts the window.
func (d *Debouncer) Set(p Params) {
	d.mu.Lock()
	d.pending = p
	d.mu.Unlock()

	d.slot.Schedule(d.window, d.fire)
}

// Stop drops an edit that has not been submitted yet.
func (d *Debouncer) Stop() {
	d.slot.Cancel()
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	p := d.pending
	d.mu.Unlock()
	d.submit(p)
}
