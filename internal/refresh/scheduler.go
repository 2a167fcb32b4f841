// Package refresh keeps a periodically refreshed pool index and its prices.
package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"burrowfeed/internal/dex"
	"burrowfeed/internal/metrics"
	"burrowfeed/internal/oracle"
	"burrowfeed/internal/timerslot"
	"burrowfeed/internal/visibility"
)

const (
	DefaultInterval     = 30 * time.Second
	DefaultFastInterval = 5 * time.Second
)

// Snapshot is the published result of a refresh. A failed refresh republishes
// the previous index and prices with Stale set and Err holding the cause.
type Snapshot struct {
	Index *dex.Index
	oracle.Prices
	FetchedAt time.Time
	Stale     bool
	Err       error
}

// Refresher builds a fresh pool index.
type Refresher interface {
	Refresh(ctx context.Context) (*dex.Index, error)
}

type Config struct {
	Interval     time.Duration
	FastInterval time.Duration
	Native       string
	Stables      *oracle.Stables
}

// Scheduler refreshes on a timer and publishes snapshots.
type Scheduler struct {
	src     Refresher
	cfg     Config
	vis     visibility.Source
	logger  *zap.Logger
	metrics *metrics.Metrics

	snap atomic.Pointer[Snapshot]
	feed event.Feed
	slot timerslot.Slot

	// refreshMu serializes refreshes.
	refreshMu sync.Mutex

	// fastPending records a fast refresh request not yet served by a
	// completed refresh.
	fastPending atomic.Bool

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Scheduler)

func WithVisibility(v visibility.Source) Option {
	return func(s *Scheduler) { s.vis = v }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func New(src Refresher, cfg Config, opts ...Option) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.FastInterval <= 0 {
		cfg.FastInterval = DefaultFastInterval
	}
	if cfg.Native == "" {
		cfg.Native = oracle.DefaultNativeToken
	}
	if cfg.Stables == nil {
		cfg.Stables = oracle.NewStables(nil)
	}
	s := &Scheduler{
		src:    src,
		cfg:    cfg,
		vis:    visibility.Always{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewUnregistered()
	}
	return s
}

// Start refreshes immediately in the background and then every Interval
// until ctx is done or Stop is called. Calling Start on a running scheduler
// is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx
	s.mu.Unlock()

	go s.run(runCtx)
}

// Stop cancels the pending refresh and any refresh in flight.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.ctx, s.cancel = nil, nil
	s.mu.Unlock()

	s.slot.Cancel()
	if cancel != nil {
		cancel()
	}
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// ScheduleRefresh replaces any pending refresh with one after the fast or
// normal interval. It does nothing unless the scheduler is started.
func (s *Scheduler) ScheduleRefresh(fast bool) {
	ctx := s.runContext()
	if ctx == nil {
		return
	}
	delay := s.cfg.Interval
	if fast {
		s.fastPending.Store(true)
		delay = s.cfg.FastInterval
	}
	s.slot.Schedule(delay, func() { s.tick(ctx, fast) })
}

func (s *Scheduler) tick(ctx context.Context, fast bool) {
	if ctx.Err() != nil {
		return
	}
	if !s.vis.Visible() {
		s.metrics.RefreshSkipped.Inc()
		s.logger.Debug("host hidden, skipping refresh")
		s.ScheduleRefresh(fast)
		return
	}
	s.run(ctx)
}

// run refreshes and schedules the next refresh. A fast request that arrived
// while the refresh was running keeps the fast delay.
func (s *Scheduler) run(ctx context.Context) {
	s.fastPending.Store(false)
	_, _ = s.Refresh(ctx)
	if ctx.Err() != nil {
		return
	}
	s.ScheduleRefresh(s.fastPending.Swap(false))
}

// Refresh fetches the index now and publishes the result. On failure the
// previous snapshot is republished as stale and the error returned.
func (s *Scheduler) Refresh(ctx context.Context) (Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	idx, err := s.src.Refresh(ctx)
	s.metrics.RefreshDuration.Observe(time.Since(start).Seconds())

	var snap Snapshot
	if err != nil && ctx.Err() != nil {
		// stopped mid-refresh; nothing new to publish
		return Snapshot{}, err
	}
	if err != nil {
		s.metrics.RefreshErrors.Inc()
		if prev := s.snap.Load(); prev != nil {
			snap = *prev
		}
		snap.Stale = true
		snap.Err = err
		s.logger.Warn("pool refresh failed, keeping last snapshot",
			zap.Time("last_fetched_at", snap.FetchedAt),
			zap.Error(err))
	} else {
		snap = Snapshot{
			Index:     idx,
			Prices:    oracle.Compute(idx, s.cfg.Native, s.cfg.Stables),
			FetchedAt: time.Now().UTC(),
		}
		s.metrics.PoolsIndexed.Set(float64(idx.Len()))
		s.metrics.ReferencePrice.Set(snap.ReferencePrice.InexactFloat64())
		s.logger.Info("pools refreshed",
			zap.Int("pools", idx.Len()),
			zap.Int("priced_tokens", len(snap.CrossPrices)),
			zap.String("reference_price", snap.ReferencePrice.StringFixed(4)),
			zap.Duration("took", time.Since(start)))
	}

	s.snap.Store(&snap)
	s.feed.Send(snap)
	return snap, err
}

// Snapshot returns the latest published snapshot. ok is false before the
// first refresh completes.
func (s *Scheduler) Snapshot() (Snapshot, bool) {
	snap := s.snap.Load()
	if snap == nil {
		return Snapshot{}, false
	}
	return *snap, true
}

// Subscribe delivers every published snapshot to ch. Publishing blocks until
// each subscriber has received, so ch must be drained.
func (s *Scheduler) Subscribe(ch chan<- Snapshot) event.Subscription {
	return s.feed.Subscribe(ch)
}
