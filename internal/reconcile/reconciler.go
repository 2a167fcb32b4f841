// Package reconcile merges possibly overlapping event batches into a
// bounded, newest-first log.
package reconcile

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"burrowfeed/internal/model"
)

const (
	MinCapacity     = 250
	MaxCapacity     = 500
	DefaultCapacity = MaxCapacity
)

// Reconciler owns the event log. Merge is single-writer; snapshots may be
// taken concurrently.
type Reconciler struct {
	capacity int
	logger   *zap.Logger

	mu  sync.RWMutex
	seq uint64
	log []model.Event
}

// New builds a Reconciler. Capacity is clamped to [MinCapacity, MaxCapacity];
// zero selects DefaultCapacity.
func New(capacity int, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch {
	case capacity == 0:
		capacity = DefaultCapacity
	case capacity < MinCapacity:
		capacity = MinCapacity
	case capacity > MaxCapacity:
		capacity = MaxCapacity
	}
	return &Reconciler{capacity: capacity, logger: logger}
}

// Capacity returns the configured log bound.
func (r *Reconciler) Capacity() int {
	return r.capacity
}

// Merge normalizes a raw batch, drops events not newer than the current head,
// prepends the rest newest first and truncates to capacity. It returns a copy
// of the resulting log.
func (r *Reconciler) Merge(batch []model.RawEvent) []model.Event {
	log, _ := r.MergeAdded(batch)
	return log
}

// MergeAdded is Merge that also returns the events admitted by this batch,
// newest first.
func (r *Reconciler) MergeAdded(batch []model.RawEvent) (log, added []model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	incoming := make([]model.Event, 0, len(batch))
	for _, raw := range batch {
		r.seq++
		ev, err := buildEvent(r.seq, raw)
		if err != nil {
			r.logger.Warn("drop raw event", zap.Error(err), zap.Uint64("block_height", raw.BlockHeight))
			continue
		}
		incoming = append(incoming, ev)
	}

	// Providers deliver batches in either order.
	sort.SliceStable(incoming, func(i, j int) bool {
		return incoming[i].Time.Before(incoming[j].Time)
	})

	fresh := incoming
	if len(r.log) > 0 {
		head := r.log[0].Time
		fresh = fresh[:0]
		for _, ev := range incoming {
			if ev.Time.After(head) {
				fresh = append(fresh, ev)
			}
		}
	}

	if dropped := len(incoming) - len(fresh); dropped > 0 {
		r.logger.Debug("skip replayed events", zap.Int("dropped", dropped))
	}

	size := len(fresh) + len(r.log)
	if size > r.capacity {
		size = r.capacity
	}
	merged := make([]model.Event, 0, size)
	for i := len(fresh) - 1; i >= 0 && len(merged) < size; i-- {
		merged = append(merged, fresh[i])
	}
	for i := 0; i < len(r.log) && len(merged) < size; i++ {
		merged = append(merged, r.log[i])
	}
	r.log = merged

	added = make([]model.Event, 0, len(fresh))
	for i := len(fresh) - 1; i >= 0; i-- {
		added = append(added, fresh[i])
	}
	return r.snapshotLocked(), added
}

// Reset empties the log. The sequence counter keeps increasing.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	r.log = nil
	r.mu.Unlock()
}

// Snapshot returns a copy of the log, newest first.
func (r *Reconciler) Snapshot() []model.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// Len returns the number of logged events.
func (r *Reconciler) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.log)
}

func (r *Reconciler) snapshotLocked() []model.Event {
	out := make([]model.Event, len(r.log))
	copy(out, r.log)
	return out
}
