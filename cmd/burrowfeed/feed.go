package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"burrowfeed/internal/config"
	"burrowfeed/internal/feed"
	"burrowfeed/internal/filter"
	"burrowfeed/internal/metrics"
	"burrowfeed/internal/model"
	"burrowfeed/internal/refresh"
	"burrowfeed/internal/storage"
	"burrowfeed/internal/storage/postgres"
	"burrowfeed/internal/visibility"
)

func runFeed(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFeed(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, reg, logger)
	}

	vis := visibility.NewToggle()
	go watchVisibility(ctx, vis, logger)

	var sinks storage.Multi
	if cfg.JSONLOut != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.JSONLOut))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		logger.Info("postgres export enabled", zap.Stringer("session", store.Session()))
		sinks = append(sinks, store)
	}

	registry := newRegistry(cfg.RPCURL, cfg.Exchange, cfg.RegistryConfig(), logger)
	snaps := make(chan refresh.Snapshot, 4)
	var snapSub event.Subscription
	shared := refresh.NewShared(func() *refresh.Scheduler {
		s := refresh.New(registry, cfg.SchedulerConfig(),
			refresh.WithVisibility(vis),
			refresh.WithLogger(logger.Named("refresh")),
			refresh.WithMetrics(m))
		// subscribe before the first refresh is published
		snapSub = s.Subscribe(snaps)
		return s
	})
	sched := shared.Acquire()
	defer shared.Release()

	opts := []feed.Option{
		feed.WithVisibility(vis),
		feed.WithLogger(logger.Named("feed")),
		feed.WithMetrics(m),
	}
	if len(sinks) > 0 {
		opts = append(opts, feed.WithSink(sinks))
	}
	f := feed.New(feed.Config{
		Stream:   cfg.StreamConfig(),
		Builder:  filter.NewBuilder(cfg.Contract, cfg.Standard),
		Capacity: cfg.Capacity,
		Debounce: cfg.Debounce,
	}, cfg.FilterParams(), opts...)

	updates := make(chan feed.Update, 16)
	updateSub := f.Subscribe(updates)

	go exportSnapshots(ctx, snaps, snapSub, sinks, logger)
	go printUpdates(ctx, os.Stdout, updates, updateSub, f, sched)
	if cfg.Interactive {
		go readFilterEdits(ctx, os.Stdin, f, logger)
	}

	logger.Info("feed start",
		zap.String("stream_url", cfg.StreamURL),
		zap.String("rpc", cfg.RPCURL),
		zap.String("exchange", cfg.Exchange),
		zap.String("contract", cfg.Contract),
		zap.String("account", cfg.Account),
		zap.Bool("liquidations_only", cfg.LiquidationsOnly),
		zap.Int("capacity", cfg.Capacity),
		zap.String("jsonl_out", cfg.JSONLOut),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("metrics_addr", cfg.MetricsAddr),
	)

	return f.Run(ctx)
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", zap.Error(err))
	}
}

// watchVisibility pauses network work on SIGUSR1 and resumes it on SIGUSR2.
func watchVisibility(ctx context.Context, vis *visibility.Toggle, logger *zap.Logger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigs:
			if sig == syscall.SIGUSR1 {
				vis.Hide()
				logger.Info("paused")
			} else {
				vis.Show()
				logger.Info("resumed")
			}
		}
	}
}

// exportSnapshots writes every fresh price snapshot to sinks.
func exportSnapshots(ctx context.Context, ch <-chan refresh.Snapshot, sub event.Subscription, sinks storage.Multi, logger *zap.Logger) {
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			if err != nil {
				logger.Warn("snapshot subscription closed", zap.Error(err))
			}
			return
		case snap := <-ch:
			if snap.Stale || len(sinks) == 0 {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := sinks.PutPriceSnapshot(writeCtx, priceSnapshot(snap)); err != nil {
				logger.Warn("export price snapshot failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// printUpdates writes newly admitted events oldest first. A liquidation
// brings the next price refresh forward.
func printUpdates(ctx context.Context, w io.Writer, ch <-chan feed.Update, sub event.Subscription, f *feed.Feed, sched *refresh.Scheduler) {
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Err():
			return
		case u := <-ch:
			if u.Reset {
				fmt.Fprintf(w, "-- filter %s, log cleared\n", describeParams(f.Params()))
				continue
			}
			var prices *refresh.Snapshot
			if snap, ok := sched.Snapshot(); ok {
				prices = &snap
			}
			liquidated := false
			for i := len(u.Added) - 1; i >= 0; i-- {
				e := u.Added[i]
				fmt.Fprintln(w, formatEvent(e, prices))
				if e.Kind == model.KindLiquidate || e.Kind == model.KindForceClose {
					liquidated = true
				}
			}
			if liquidated {
				sched.ScheduleRefresh(true)
			}
		}
	}
}
