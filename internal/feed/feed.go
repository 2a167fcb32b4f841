// Package feed wires the subscription filter, the stream client and the
// reconciler into one live event log.
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"burrowfeed/internal/filter"
	"burrowfeed/internal/metrics"
	"burrowfeed/internal/model"
	"burrowfeed/internal/reconcile"
	"burrowfeed/internal/storage"
	"burrowfeed/internal/stream"
	"burrowfeed/internal/visibility"
)

// Update is published after every merge and every filter change.
type Update struct {
	// Log is the full log, newest first.
	Log []model.Event
	// Added holds the events admitted by this update, newest first.
	Added []model.Event
	// Reset is set when the log was cleared for a new filter.
	Reset bool
}

type Config struct {
	Stream   stream.Config
	Builder  filter.Builder
	Capacity int
	Debounce time.Duration
	// SinkTimeout bounds each export write.
	SinkTimeout time.Duration
}

// Feed owns the live event log for one filter at a time.
type Feed struct {
	cfg     Config
	rec     *reconcile.Reconciler
	client  *stream.Client
	deb     *filter.Debouncer
	sink    storage.Sink
	vis     visibility.Source
	logger  *zap.Logger
	metrics *metrics.Metrics

	updates event.Feed

	mu     sync.Mutex
	params filter.Params
	ctx    context.Context
}

type Option func(*Feed)

func WithSink(s storage.Sink) Option {
	return func(f *Feed) { f.sink = s }
}

func WithVisibility(v visibility.Source) Option {
	return func(f *Feed) { f.vis = v }
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Feed) { f.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Feed) { f.metrics = m }
}

// New builds a feed subscribed with the filter for initial.
func New(cfg Config, initial filter.Params, opts ...Option) *Feed {
	if cfg.Builder.ContractID == "" || cfg.Builder.Standard == "" {
		cfg.Builder = filter.NewBuilder(cfg.Builder.ContractID, cfg.Builder.Standard)
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = 10 * time.Second
	}
	f := &Feed{
		cfg:    cfg,
		params: initial,
		vis:    visibility.Always{},
		logger: zap.NewNop(),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.metrics == nil {
		f.metrics = metrics.NewUnregistered()
	}

	f.rec = reconcile.New(cfg.Capacity, f.logger.Named("reconcile"))
	f.client = stream.New(cfg.Stream, cfg.Builder.Build(initial), f.handle,
		stream.WithVisibility(f.vis),
		stream.WithLogger(f.logger.Named("stream")),
		stream.WithMetrics(f.metrics))
	f.deb = filter.NewDebouncer(cfg.Debounce, f.applyFilter)
	return f
}

// Run streams until ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	f.mu.Lock()
	f.ctx = ctx
	f.mu.Unlock()

	defer f.deb.Stop()
	return f.client.Run(ctx)
}

// SetFilter requests a filter change. Edits within the debounce window
// collapse into one resubscription with the last value.
func (f *Feed) SetFilter(p filter.Params) {
	f.deb.Set(p)
}

// Params returns the filter parameters in effect.
func (f *Feed) Params() filter.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params
}

// Log returns a copy of the current log, newest first.
func (f *Feed) Log() []model.Event {
	return f.rec.Snapshot()
}

// State returns the stream connection state.
func (f *Feed) State() stream.State {
	return f.client.State()
}

// Subscribe delivers every Update to ch. Publishing blocks until each
// subscriber has received, so ch must be drained.
func (f *Feed) Subscribe(ch chan<- Update) event.Subscription {
	return f.updates.Subscribe(ch)
}

func (f *Feed) runContext() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctx
}

func (f *Feed) handle(batch []model.RawEvent) {
	f.metrics.EventsMerged.Add(float64(len(batch)))
	log, added := f.rec.MergeAdded(batch)
	f.metrics.LogSize.Set(float64(len(log)))
	if len(added) == 0 {
		return
	}

	if f.sink != nil {
		ctx, cancel := context.WithTimeout(f.runContext(), f.cfg.SinkTimeout)
		if err := f.sink.PutEvents(ctx, added); err != nil {
			f.logger.Warn("export events failed", zap.Int("events", len(added)), zap.Error(err))
		}
		cancel()
	}
	f.updates.Send(Update{Log: log, Added: added})
}

// applyFilter resubscribes once per debounced submission, even when the
// filter is unchanged. It closes the old connection before clearing the log,
// and clears it before the new connection delivers, so the log never mixes
// filters.
func (f *Feed) applyFilter(p filter.Params) {
	next := f.cfg.Builder.Build(p)

	f.mu.Lock()
	prev := f.params
	f.params = p
	f.mu.Unlock()

	f.logger.Info("filter changed",
		zap.String("account_id", p.AccountID),
		zap.Bool("liquidations_only", p.LiquidationsOnly),
		zap.String("prev_account_id", prev.AccountID),
		zap.Bool("prev_liquidations_only", prev.LiquidationsOnly))

	f.client.Resubscribe(next, func() {
		f.rec.Reset()
		f.metrics.LogResets.Inc()
		f.metrics.LogSize.Set(0)
		f.updates.Send(Update{Reset: true})
	})
}
