package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"burrowfeed/internal/config"
	"burrowfeed/internal/decmath"
	"burrowfeed/internal/oracle"
	"burrowfeed/internal/refresh"
	"burrowfeed/internal/storage/postgres"
)

func runPools(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPools(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	top, _ := cmd.Flags().GetInt("top")

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("pools start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("exchange", cfg.Exchange),
		zap.Uint64("max_pools", cfg.MaxPools),
		zap.Uint64("page_size", cfg.PageSize),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	registry := newRegistry(cfg.RPCURL, cfg.Exchange, cfg.RegistryConfig(), logger)
	sched := refresh.New(registry, cfg.SchedulerConfig(), refresh.WithLogger(logger.Named("refresh")))
	snap, err := sched.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh pools: %w", err)
	}

	printPrices(os.Stdout, snap, top)

	if cfg.PGDSN == "" {
		return nil
	}
	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := store.PutPriceSnapshot(ctx, priceSnapshot(snap)); err != nil {
		return err
	}
	logger.Info("price snapshot stored", zap.Stringer("session", store.Session()))
	return nil
}

type tokenLiquidity struct {
	token string
	price oracle.CrossPrice
}

// printPrices writes the reference price and the top tokens by native
// liquidity.
func printPrices(w io.Writer, snap refresh.Snapshot, top int) {
	fmt.Fprintf(w, "pools: %d\n", snap.Index.Len())
	if snap.ReferencePrice.Sign() > 0 {
		fmt.Fprintf(w, "%s: $%s\n", snap.Native, decmath.FormatFixed(snap.ReferencePrice, 4))
	} else {
		fmt.Fprintf(w, "%s: no stablecoin liquidity\n", snap.Native)
	}

	ranked := make([]tokenLiquidity, 0, len(snap.CrossPrices))
	for token, c := range snap.CrossPrices {
		ranked = append(ranked, tokenLiquidity{token: token, price: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if cmp := ranked[i].price.TotalNative.Cmp(ranked[j].price.TotalNative); cmp != 0 {
			return cmp > 0
		}
		return ranked[i].token < ranked[j].token
	})
	if top >= 0 && len(ranked) > top {
		ranked = ranked[:top]
	}

	for _, r := range ranked {
		liquidity := decmath.FormatFixed(r.price.TotalNative.Div(oracle.OneNative), 2)
		rate, _ := r.price.NativePerOther()
		line := fmt.Sprintf("  %-40s liquidity %s %s  rate %s", r.token, liquidity, snap.Native, rate.String())
		if usd, ok := tokenUnitUSD(&snap.Prices, r.token); ok {
			line += fmt.Sprintf("  usd/raw %s", usd.String())
		}
		fmt.Fprintln(w, line)
	}
}

func tokenUnitUSD(p *oracle.Prices, token string) (decimal.Decimal, bool) {
	return oracle.TokenUSDValue(p, token, decimal.NewFromInt(1))
}
