package dex

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"burrowfeed/internal/model"
)

// Defaults for Config.
const (
	DefaultMaxPools     = 10000
	DefaultPageSize     = 250
	DefaultConcurrency  = 8
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 200 * time.Millisecond
)

// PoolSource is the exchange contract view surface the registry reads.
type PoolSource interface {
	NumberOfPools(ctx context.Context) (uint64, error)
	GetPools(ctx context.Context, from, limit uint64) ([]model.PoolRecord, error)
}

// Config bounds a refresh.
type Config struct {
	MaxPools     uint64
	PageSize     uint64
	Concurrency  int
	MaxRetries   int
	RetryBackoff time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxPools:     DefaultMaxPools,
		PageSize:     DefaultPageSize,
		Concurrency:  DefaultConcurrency,
		MaxRetries:   DefaultMaxRetries,
		RetryBackoff: DefaultRetryBackoff,
	}
}

// FetchError reports a failed ledger query. Page is nil when the pool count
// query failed.
type FetchError struct {
	Page *Page
	Err  error
}

func (e *FetchError) Error() string {
	if e.Page == nil {
		return fmt.Sprintf("fetch pool count: %v", e.Err)
	}
	return fmt.Sprintf("fetch pools %s: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Registry builds pool indices from a PoolSource.
type Registry struct {
	src    PoolSource
	cfg    Config
	logger *zap.Logger
}

// NewRegistry returns a registry reading from src. Zero config fields take defaults.
func NewRegistry(src PoolSource, cfg Config, logger *zap.Logger) *Registry {
	def := DefaultConfig()
	if cfg.MaxPools == 0 {
		cfg.MaxPools = def.MaxPools
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{src: src, cfg: cfg, logger: logger}
}

func (r *Registry) retryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: r.cfg.MaxRetries,
		BaseDelay:  r.cfg.RetryBackoff,
		MaxDelay:   10 * r.cfg.RetryBackoff,
	}
}

// Refresh fetches every pool and builds a new index. Any failed page fails
// the whole refresh; no partial index is returned.
func (r *Registry) Refresh(ctx context.Context) (*Index, error) {
	policy := r.retryPolicy()

	var count uint64
	err := policy.do(ctx, func(ctx context.Context) error {
		n, err := r.src.NumberOfPools(ctx)
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	if count > r.cfg.MaxPools {
		r.logger.Debug("capping pool count", zap.Uint64("count", count), zap.Uint64("max", r.cfg.MaxPools))
		count = r.cfg.MaxPools
	}

	pages, err := SplitPages(count, r.cfg.PageSize)
	if err != nil {
		return nil, err
	}

	results := make([][]model.PoolRecord, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, page := range pages {
		g.Go(func() error {
			err := policy.do(gctx, func(ctx context.Context) error {
				records, err := r.src.GetPools(ctx, page.From, page.Limit)
				if err != nil {
					r.logger.Debug("get_pools failed", zap.Stringer("page", page), zap.Error(err))
					return err
				}
				results[i] = records
				return nil
			})
			if err != nil {
				return &FetchError{Page: &page, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pools := make([]*Pool, 0, count)
	skipped := 0
	for i, page := range pages {
		for j, rec := range results[i] {
			id := int(page.From) + j
			pool, ok, err := PoolFromRecord(id, rec)
			if err != nil {
				r.logger.Warn("skipping malformed pool", zap.Int("pool_id", id), zap.Error(err))
				skipped++
				continue
			}
			if !ok {
				skipped++
				continue
			}
			pools = append(pools, pool)
		}
	}

	idx := BuildIndex(pools)
	r.logger.Debug("pool index built",
		zap.Uint64("fetched", count),
		zap.Int("indexed", idx.Len()),
		zap.Int("skipped", skipped))
	return idx, nil
}
