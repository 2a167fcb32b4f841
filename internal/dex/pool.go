// Package dex fetches the constant-product pools of an AMM exchange contract
// and indexes them by token and by pair.
package dex

import (
	"fmt"

	"github.com/shopspring/decimal"

	"burrowfeed/internal/decmath"
	"burrowfeed/internal/model"
)

// Pool is an immutable snapshot of a two-asset constant-product pool.
type Pool struct {
	ID       int
	Tokens   [2]string
	Reserves map[string]decimal.Decimal
	// FeeBps is the total swap fee in basis points of 10000.
	FeeBps uint32
	Shares decimal.Decimal
}

// Other returns the asset paired with token.
func (p *Pool) Other(token string) (string, bool) {
	switch token {
	case p.Tokens[0]:
		return p.Tokens[1], true
	case p.Tokens[1]:
		return p.Tokens[0], true
	}
	return "", false
}

// Reserve returns the pool's balance of token, zero when absent.
func (p *Pool) Reserve(token string) decimal.Decimal {
	return p.Reserves[token]
}

// PoolFromRecord converts a get_pools record. ok is false for records that do
// not take part in pricing: any kind other than SIMPLE_POOL, or zero shares.
func PoolFromRecord(id int, rec model.PoolRecord) (pool *Pool, ok bool, err error) {
	if rec.PoolKind != model.PoolKindSimple {
		return nil, false, nil
	}
	if len(rec.TokenAccountIDs) != 2 || len(rec.Amounts) != 2 {
		return nil, false, fmt.Errorf("pool %d: expected 2 tokens and 2 amounts, got %d and %d",
			id, len(rec.TokenAccountIDs), len(rec.Amounts))
	}
	if rec.TotalFee > 10000 {
		return nil, false, fmt.Errorf("pool %d: fee %d exceeds 10000", id, rec.TotalFee)
	}

	shares, err := decmath.Parse(rec.SharesTotalSupply)
	if err != nil {
		return nil, false, fmt.Errorf("pool %d shares: %w", id, err)
	}
	if shares.Sign() <= 0 {
		return nil, false, nil
	}

	reserves := make(map[string]decimal.Decimal, 2)
	for i, token := range rec.TokenAccountIDs {
		amount, err := decmath.Parse(rec.Amounts[i])
		if err != nil {
			return nil, false, fmt.Errorf("pool %d reserve %s: %w", id, token, err)
		}
		reserves[token] = amount
	}

	return &Pool{
		ID:       id,
		Tokens:   [2]string{rec.TokenAccountIDs[0], rec.TokenAccountIDs[1]},
		Reserves: reserves,
		FeeBps:   rec.TotalFee,
		Shares:   shares,
	}, true, nil
}
