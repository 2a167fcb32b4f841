package oracle

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"burrowfeed/internal/decmath"
)

// Bridged USD stablecoins recognized by default, with their decimals.
const (
	TokenDAI  = "6b175474e89094c44da98b954eedeac495271d0f.factory.bridge.near"
	TokenUSDC = "a0b86991c6218b36c1d19d4a2e9eb0ce3606eb48.factory.bridge.near"
	TokenUSDT = "dac17f958d2ee523a2206206994597c13d831ec7.factory.bridge.near"
)

// DefaultStableDecimals maps each default stablecoin to its decimals.
func DefaultStableDecimals() map[string]int32 {
	return map[string]int32{
		TokenDAI:  18,
		TokenUSDC: 6,
		TokenUSDT: 6,
	}
}

// Stables is the set of USD-pegged tokens and their decimals.
type Stables struct {
	mu       sync.RWMutex
	decimals map[string]int32
}

// NewStables builds a set from token decimals. A nil map yields the defaults.
func NewStables(decimals map[string]int32) *Stables {
	if decimals == nil {
		decimals = DefaultStableDecimals()
	}
	s := &Stables{decimals: make(map[string]int32, len(decimals))}
	for token, d := range decimals {
		s.decimals[token] = d
	}
	return s
}

func (s *Stables) Get(token string) (int32, bool) {
	s.mu.RLock()
	d, ok := s.decimals[token]
	s.mu.RUnlock()
	return d, ok
}

func (s *Stables) Set(token string, decimals int32) {
	s.mu.Lock()
	s.decimals[token] = decimals
	s.mu.Unlock()
}

// One returns the raw amount of one whole unit of token.
func (s *Stables) One(token string) (decimal.Decimal, bool) {
	d, ok := s.Get(token)
	if !ok {
		return decimal.Zero, false
	}
	return decmath.Pow10(d), true
}

// Tokens returns the recognized tokens in lexical order.
func (s *Stables) Tokens() []string {
	s.mu.RLock()
	tokens := make([]string, 0, len(s.decimals))
	for token := range s.decimals {
		tokens = append(tokens, token)
	}
	s.mu.RUnlock()
	sort.Strings(tokens)
	return tokens
}
