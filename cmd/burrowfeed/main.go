package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"burrowfeed/internal/dex"
	"burrowfeed/internal/ledger"
	"burrowfeed/internal/model"
	"burrowfeed/internal/oracle"
	"burrowfeed/internal/refresh"
)

func main() {
	root := &cobra.Command{
		Use:          "burrowfeed",
		Short:        "Burrow lending event feed with Ref Finance pricing",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Stream Burrow events and price them against Ref Finance pools",
		RunE:  runFeed,
	}

	addOracleFlags(feedCmd.Flags())
	feedCmd.Flags().String("stream-url", "", "event stream websocket URL")
	feedCmd.Flags().String("secret", "", "event stream handshake secret")
	feedCmd.Flags().Int("fetch-past-events", 500, "past events requested on every subscribe")
	feedCmd.Flags().Duration("reconnect-delay", time.Millisecond, "delay before reconnecting after a close (must be sub-second)")
	feedCmd.Flags().String("contract", "", "lending contract account id")
	feedCmd.Flags().String("standard", "", "event standard name")
	feedCmd.Flags().String("account", "", "only show events of this account")
	feedCmd.Flags().Bool("liquidations-only", false, "only show liquidations")
	feedCmd.Flags().Int("capacity", 500, "maximum events kept in the log")
	feedCmd.Flags().Duration("debounce", 500*time.Millisecond, "quiet period before a filter edit resubscribes")
	feedCmd.Flags().Bool("interactive", false, "read filter edits from stdin (account <id>, liquidations on|off)")
	feedCmd.Flags().String("jsonl-out", "", "append events and price snapshots to this JSONL file")
	feedCmd.Flags().String("pg-dsn", "", "Postgres DSN for event and price export")
	feedCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	feedCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(feedCmd)

	poolsCmd := &cobra.Command{
		Use:   "pools",
		Short: "Fetch all pools once and print the reference price",
		RunE:  runPools,
	}

	addOracleFlags(poolsCmd.Flags())
	poolsCmd.Flags().String("pg-dsn", "", "Postgres DSN for price snapshot export")
	poolsCmd.Flags().Int("top", 10, "number of priced tokens to print")
	poolsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(poolsCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap against the best single pool",
		RunE:  runQuote,
	}

	addOracleFlags(quoteCmd.Flags())
	quoteCmd.Flags().String("token-in", "", "token sold")
	quoteCmd.Flags().String("token-out", "", "token bought")
	quoteCmd.Flags().String("amount", "", "raw amount of token-in, or of token-out with --inverse")
	quoteCmd.Flags().Bool("inverse", false, "solve for the input needed to receive amount")
	quoteCmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addOracleFlags(fs *pflag.FlagSet) {
	fs.String("rpc", "", "NEAR RPC URL")
	fs.String("exchange", "", "Ref Finance exchange contract")
	fs.String("native-token", "", "wrapped native token id")
	fs.StringSlice("stable-token", nil, "stablecoins as token=decimals (comma-separated)")
	fs.Uint64("max-pools", dex.DefaultMaxPools, "maximum pools fetched per refresh")
	fs.Uint64("page-size", dex.DefaultPageSize, "pools per get_pools call")
	fs.Int("fetch-concurrency", dex.DefaultConcurrency, "concurrent page fetches")
	fs.Int("max-retries", dex.DefaultMaxRetries, "retries per page fetch")
	fs.Duration("retry-backoff", dex.DefaultRetryBackoff, "initial page retry backoff")
	fs.Duration("refresh-interval", refresh.DefaultInterval, "pool refresh interval")
	fs.Duration("fast-refresh-interval", refresh.DefaultFastInterval, "pool refresh interval after activity")
}

// newRegistry builds the pool registry reading from the exchange contract.
func newRegistry(rpcURL, exchange string, cfg dex.Config, logger *zap.Logger) *dex.Registry {
	client := ledger.NewClient(rpcURL)
	ex := ledger.NewExchange(client, exchange)
	logger.Info("ledger client",
		zap.String("endpoint", client.Endpoint()),
		zap.String("exchange", ex.ContractID()))
	return dex.NewRegistry(ex, cfg, logger.Named("dex"))
}

// priceSnapshot converts a refresh result to its exported form.
func priceSnapshot(snap refresh.Snapshot) model.PriceSnapshot {
	pools := 0
	if snap.Index != nil {
		pools = snap.Index.Len()
	}
	return model.PriceSnapshot{
		FetchedAt:      snap.FetchedAt,
		Pools:          pools,
		ReferencePrice: snap.ReferencePrice.String(),
		TokenPrices:    oracle.NativePrices(&snap.Prices),
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	return "***"
}
