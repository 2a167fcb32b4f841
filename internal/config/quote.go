package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"burrowfeed/internal/decmath"
)

// QuoteConfig configures the quote command.
type QuoteConfig struct {
	Oracle
	TokenIn  string
	TokenOut string
	Amount   decimal.Decimal
	Inverse  bool
	LogLevel string
}

// LoadQuote merges config file, environment variables, and flags into
// QuoteConfig and validates the swap request.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return QuoteConfig{}, err
	}
	o, err := loadOracle(v)
	if err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		Oracle:   o,
		TokenIn:  v.GetString("token-in"),
		TokenOut: v.GetString("token-out"),
		Inverse:  v.GetBool("inverse"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.TokenIn == "" || cfg.TokenOut == "" {
		return QuoteConfig{}, fmt.Errorf("token-in and token-out are required")
	}
	if cfg.TokenIn == cfg.TokenOut {
		return QuoteConfig{}, fmt.Errorf("token-in and token-out must differ")
	}

	amount, err := decmath.Parse(v.GetString("amount"))
	if err != nil {
		return QuoteConfig{}, fmt.Errorf("amount: %w", err)
	}
	if amount.IsNegative() || !amount.Equal(amount.Truncate(0)) {
		return QuoteConfig{}, fmt.Errorf("amount must be a non-negative integer in raw token units, got %s", amount)
	}
	cfg.Amount = amount
	return cfg, nil
}
