package config

import (
	"github.com/spf13/pflag"
)

// PoolsConfig configures the pools command.
type PoolsConfig struct {
	Oracle
	PGDSN    string
	LogLevel string
}

// LoadPools merges config file, environment variables, and flags into PoolsConfig.
func LoadPools(cfgFile string, flags *pflag.FlagSet) (PoolsConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return PoolsConfig{}, err
	}
	o, err := loadOracle(v)
	if err != nil {
		return PoolsConfig{}, err
	}
	return PoolsConfig{
		Oracle:   o,
		PGDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}, nil
}
