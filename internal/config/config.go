// Package config loads command settings from flags, BURROWFEED_* environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"burrowfeed/internal/dex"
	"burrowfeed/internal/ledger"
	"burrowfeed/internal/oracle"
	"burrowfeed/internal/refresh"
)

const envPrefix = "BURROWFEED"

// Oracle holds the settings shared by every command that prices pools.
type Oracle struct {
	RPCURL           string
	Exchange         string
	NativeToken      string
	Stables          map[string]int32
	MaxPools         uint64
	PageSize         uint64
	FetchConcurrency int
	MaxRetries       int
	RetryBackoff     time.Duration
	RefreshInterval  time.Duration
	FastRefresh      time.Duration
}

// RegistryConfig returns the pool registry settings.
func (o Oracle) RegistryConfig() dex.Config {
	return dex.Config{
		MaxPools:     o.MaxPools,
		PageSize:     o.PageSize,
		Concurrency:  o.FetchConcurrency,
		MaxRetries:   o.MaxRetries,
		RetryBackoff: o.RetryBackoff,
	}
}

// SchedulerConfig returns the refresh scheduler settings.
func (o Oracle) SchedulerConfig() refresh.Config {
	return refresh.Config{
		Interval:     o.RefreshInterval,
		FastInterval: o.FastRefresh,
		Native:       o.NativeToken,
		Stables:      oracle.NewStables(o.Stables),
	}
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("rpc", ledger.DefaultRPCURL)
	v.SetDefault("exchange", ledger.DefaultExchangeContract)
	v.SetDefault("native-token", oracle.DefaultNativeToken)
	v.SetDefault("max-pools", uint64(dex.DefaultMaxPools))
	v.SetDefault("page-size", uint64(dex.DefaultPageSize))
	v.SetDefault("fetch-concurrency", dex.DefaultConcurrency)
	v.SetDefault("max-retries", dex.DefaultMaxRetries)
	v.SetDefault("retry-backoff", dex.DefaultRetryBackoff)
	v.SetDefault("refresh-interval", refresh.DefaultInterval)
	v.SetDefault("fast-refresh-interval", refresh.DefaultFastInterval)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func loadOracle(v *viper.Viper) (Oracle, error) {
	var stables map[string]int32
	if entries := getStringSlice(v, "stable-token"); len(entries) > 0 {
		parsed, err := oracle.ParseStables(entries)
		if err != nil {
			return Oracle{}, err
		}
		stables = parsed
	}

	o := Oracle{
		RPCURL:           v.GetString("rpc"),
		Exchange:         v.GetString("exchange"),
		NativeToken:      v.GetString("native-token"),
		Stables:          stables,
		MaxPools:         v.GetUint64("max-pools"),
		PageSize:         v.GetUint64("page-size"),
		FetchConcurrency: v.GetInt("fetch-concurrency"),
		MaxRetries:       v.GetInt("max-retries"),
		RetryBackoff:     v.GetDuration("retry-backoff"),
		RefreshInterval:  v.GetDuration("refresh-interval"),
		FastRefresh:      v.GetDuration("fast-refresh-interval"),
	}
	if o.PageSize == 0 {
		return Oracle{}, fmt.Errorf("page-size must be greater than zero")
	}
	if o.RefreshInterval <= 0 || o.FastRefresh <= 0 {
		return Oracle{}, fmt.Errorf("refresh intervals must be positive")
	}
	return o, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
