package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"burrowfeed/internal/filter"
	"burrowfeed/internal/reconcile"
	"burrowfeed/internal/stream"
)

// FeedConfig configures the feed command.
type FeedConfig struct {
	Oracle

	StreamURL       string
	Secret          string
	FetchPastEvents int
	ReconnectDelay  time.Duration
	DialBackoff     time.Duration
	MaxDialBackoff  time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration

	Contract         string
	Standard         string
	Account          string
	LiquidationsOnly bool
	Capacity         int
	Debounce         time.Duration
	Interactive      bool

	JSONLOut    string
	PGDSN       string
	MetricsAddr string
	LogLevel    string
}

// StreamConfig returns the stream client settings.
func (c FeedConfig) StreamConfig() stream.Config {
	cfg := stream.DefaultConfig()
	cfg.URL = c.StreamURL
	cfg.Secret = c.Secret
	cfg.FetchPastEvents = c.FetchPastEvents
	cfg.ReconnectDelay = c.ReconnectDelay
	cfg.DialBackoff = c.DialBackoff
	cfg.MaxDialBackoff = c.MaxDialBackoff
	cfg.ReadTimeout = c.ReadTimeout
	cfg.PingInterval = c.PingInterval
	return cfg
}

// FilterParams returns the initial subscription filter dimensions.
func (c FeedConfig) FilterParams() filter.Params {
	return filter.Params{AccountID: c.Account, LiquidationsOnly: c.LiquidationsOnly}
}

// LoadFeed merges config file, environment variables, and flags into FeedConfig.
func LoadFeed(cfgFile string, flags *pflag.FlagSet) (FeedConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return FeedConfig{}, err
	}

	def := stream.DefaultConfig()
	v.SetDefault("stream-url", def.URL)
	v.SetDefault("secret", def.Secret)
	v.SetDefault("fetch-past-events", def.FetchPastEvents)
	v.SetDefault("reconnect-delay", def.ReconnectDelay)
	v.SetDefault("dial-backoff", def.DialBackoff)
	v.SetDefault("max-dial-backoff", def.MaxDialBackoff)
	v.SetDefault("read-timeout", def.ReadTimeout)
	v.SetDefault("ping-interval", def.PingInterval)
	v.SetDefault("contract", filter.DefaultContractID)
	v.SetDefault("standard", filter.DefaultStandard)
	v.SetDefault("capacity", reconcile.DefaultCapacity)
	v.SetDefault("debounce", filter.DefaultDebounce)

	o, err := loadOracle(v)
	if err != nil {
		return FeedConfig{}, err
	}

	cfg := FeedConfig{
		Oracle:           o,
		StreamURL:        v.GetString("stream-url"),
		Secret:           v.GetString("secret"),
		FetchPastEvents:  v.GetInt("fetch-past-events"),
		ReconnectDelay:   v.GetDuration("reconnect-delay"),
		DialBackoff:      v.GetDuration("dial-backoff"),
		MaxDialBackoff:   v.GetDuration("max-dial-backoff"),
		ReadTimeout:      v.GetDuration("read-timeout"),
		PingInterval:     v.GetDuration("ping-interval"),
		Contract:         v.GetString("contract"),
		Standard:         v.GetString("standard"),
		Account:          v.GetString("account"),
		LiquidationsOnly: v.GetBool("liquidations-only"),
		Capacity:         v.GetInt("capacity"),
		Debounce:         v.GetDuration("debounce"),
		Interactive:      v.GetBool("interactive"),
		JSONLOut:         v.GetString("jsonl-out"),
		PGDSN:            v.GetString("pg-dsn"),
		MetricsAddr:      v.GetString("metrics-addr"),
		LogLevel:         v.GetString("log-level"),
	}

	if cfg.ReconnectDelay >= time.Second {
		return FeedConfig{}, fmt.Errorf("reconnect-delay must be sub-second, got %s", cfg.ReconnectDelay)
	}
	if cfg.FetchPastEvents < 0 {
		return FeedConfig{}, fmt.Errorf("fetch-past-events must not be negative")
	}
	return cfg, nil
}
