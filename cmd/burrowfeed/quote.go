package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"burrowfeed/internal/config"
	"burrowfeed/internal/dex"
	"burrowfeed/internal/oracle"
	"burrowfeed/internal/refresh"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
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

	registry := newRegistry(cfg.RPCURL, cfg.Exchange, cfg.RegistryConfig(), logger)
	sched := refresh.New(registry, cfg.SchedulerConfig(), refresh.WithLogger(logger.Named("refresh")))
	snap, err := sched.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh pools: %w", err)
	}

	logger.Debug("quoting",
		zap.String("token_in", cfg.TokenIn),
		zap.String("token_out", cfg.TokenOut),
		zap.String("amount", cfg.Amount.String()),
		zap.Bool("inverse", cfg.Inverse),
		zap.Int("pools", snap.Index.Len()),
	)

	return writeQuote(os.Stdout, snap.Index, cfg)
}

func writeQuote(w io.Writer, idx *dex.Index, cfg config.QuoteConfig) error {
	if cfg.Inverse {
		q, ok := oracle.BestInverseQuote(idx, cfg.TokenIn, cfg.TokenOut, cfg.Amount)
		if !ok {
			return fmt.Errorf("no pool can deliver %s %s for %s", cfg.Amount, cfg.TokenOut, cfg.TokenIn)
		}
		fmt.Fprintf(w, "pool %d: pay %s %s to receive %s %s\n", q.PoolID, q.Amount, cfg.TokenIn, cfg.Amount, cfg.TokenOut)
		return nil
	}

	q, ok := oracle.BestQuote(idx, cfg.TokenIn, cfg.TokenOut, cfg.Amount)
	if !ok {
		return fmt.Errorf("no pool quotes %s for %s", cfg.TokenIn, cfg.TokenOut)
	}
	fmt.Fprintf(w, "pool %d: pay %s %s to receive %s %s\n", q.PoolID, cfg.Amount, cfg.TokenIn, q.Amount, cfg.TokenOut)
	return nil
}
