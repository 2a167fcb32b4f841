package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"burrowfeed/internal/oracle"
)

func feedFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("feed", pflag.ContinueOnError)
	fs.String("account", "", "")
	fs.Bool("liquidations-only", false, "")
	fs.String("jsonl-out", "", "")
	fs.Duration("reconnect-delay", time.Millisecond, "")
	fs.StringSlice("stable-token", nil, "")
	return fs
}

func TestLoadFeedDefaults(t *testing.T) {
	cfg, err := LoadFeed("", feedFlags())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.StreamURL != "wss://events.near.stream/ws" {
		t.Fatalf("unexpected stream url %q", cfg.StreamURL)
	}
	if cfg.Secret != "brrr" || cfg.FetchPastEvents != 500 {
		t.Fatalf("unexpected handshake settings: %+v", cfg)
	}
	if cfg.ReconnectDelay != time.Millisecond {
		t.Fatalf("unexpected reconnect delay %s", cfg.ReconnectDelay)
	}
	if cfg.Capacity != 500 || cfg.Debounce != 500*time.Millisecond {
		t.Fatalf("unexpected log settings: capacity %d debounce %s", cfg.Capacity, cfg.Debounce)
	}
	if cfg.RefreshInterval != 30*time.Second || cfg.FastRefresh != 5*time.Second {
		t.Fatalf("unexpected refresh intervals: %s %s", cfg.RefreshInterval, cfg.FastRefresh)
	}
	if cfg.MaxPools != 10000 || cfg.PageSize != 250 {
		t.Fatalf("unexpected pool paging: %d %d", cfg.MaxPools, cfg.PageSize)
	}
	if cfg.Stables != nil {
		t.Fatalf("expected default stables, got %v", cfg.Stables)
	}
	if cfg.Contract != "contract.main.burrow.near" || cfg.Standard != "burrow" {
		t.Fatalf("unexpected contract settings: %s %s", cfg.Contract, cfg.Standard)
	}
}

func TestLoadFeedEnvAndFlags(t *testing.T) {
	t.Setenv("BURROWFEED_ACCOUNT", "alice.near")
	t.Setenv("BURROWFEED_PG_DSN", "postgres://localhost/burrow")
	t.Setenv("BURROWFEED_JSONL_OUT", "env.jsonl")

	fs := feedFlags()
	if err := fs.Parse([]string{"--liquidations-only", "--jsonl-out", "flag.jsonl"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadFeed("", fs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Account != "alice.near" || cfg.PGDSN != "postgres://localhost/burrow" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.JSONLOut != "flag.jsonl" {
		t.Fatalf("flag should override env, got %q", cfg.JSONLOut)
	}
	p := cfg.FilterParams()
	if p.AccountID != "alice.near" || !p.LiquidationsOnly {
		t.Fatalf("unexpected filter params %+v", p)
	}
}

func TestLoadFeedConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "burrowfeed.yaml")
	content := []byte("account: bob.near\ncapacity: 300\nstable-token:\n  - usn=18\n  - usdc.near=6\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFeed(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Account != "bob.near" || cfg.Capacity != 300 {
		t.Fatalf("config file not applied: %+v", cfg)
	}
	if cfg.Stables["usn"] != 18 || cfg.Stables["usdc.near"] != 6 || len(cfg.Stables) != 2 {
		t.Fatalf("unexpected stables %v", cfg.Stables)
	}

	stables := cfg.SchedulerConfig().Stables
	if _, ok := stables.Get(oracle.TokenDAI); ok {
		t.Fatalf("configured stables must replace the defaults")
	}
}

func TestLoadFeedRejectsSlowReconnect(t *testing.T) {
	fs := feedFlags()
	if err := fs.Parse([]string{"--reconnect-delay", "2s"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, err := LoadFeed("", fs); err == nil {
		t.Fatalf("expected error for a reconnect delay of 2s")
	}
}

func TestLoadFeedRejectsBadStable(t *testing.T) {
	fs := feedFlags()
	if err := fs.Parse([]string{"--stable-token", "usn"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, err := LoadFeed("", fs); err == nil {
		t.Fatalf("expected error for stable token without decimals")
	}
}

func quoteFlags(args ...string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("quote", pflag.ContinueOnError)
	fs.String("token-in", "", "")
	fs.String("token-out", "", "")
	fs.String("amount", "", "")
	fs.Bool("inverse", false, "")
	_ = fs.Parse(args)
	return fs
}

func TestLoadQuote(t *testing.T) {
	cfg, err := LoadQuote("", quoteFlags("--token-in", "wrap.near", "--token-out", "usn", "--amount", "1000000000000000000000000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Amount.Equal(decimal.RequireFromString("1000000000000000000000000")) {
		t.Fatalf("unexpected amount %s", cfg.Amount)
	}
	if cfg.Inverse {
		t.Fatalf("inverse should default to false")
	}
}

func TestLoadQuoteValidation(t *testing.T) {
	cases := [][]string{
		{"--token-out", "usn", "--amount", "1"},
		{"--token-in", "usn", "--token-out", "usn", "--amount", "1"},
		{"--token-in", "a", "--token-out", "b", "--amount", "x"},
		{"--token-in", "a", "--token-out", "b", "--amount", "-1"},
		{"--token-in", "a", "--token-out", "b", "--amount", "1.5"},
	}
	for _, args := range cases {
		if _, err := LoadQuote("", quoteFlags(args...)); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestLoadPools(t *testing.T) {
	t.Setenv("BURROWFEED_PAGE_SIZE", "100")
	cfg, err := LoadPools("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PageSize != 100 {
		t.Fatalf("expected page size from env, got %d", cfg.PageSize)
	}
	if cfg.RegistryConfig().PageSize != 100 {
		t.Fatalf("registry config not derived")
	}

	t.Setenv("BURROWFEED_PAGE_SIZE", "0")
	if _, err := LoadPools("", nil); err == nil {
		t.Fatalf("expected error for zero page size")
	}
}
