// Package oracle prices tokens from constant-product pool reserves. Every
// rounding step favors the pool: outputs round down, required inputs round up.
package oracle

import (
	"errors"

	"github.com/shopspring/decimal"

	"burrowfeed/internal/decmath"
	"burrowfeed/internal/dex"
)

// FeeDivisor is the denominator of pool fees.
const FeeDivisor = 10000

var (
	ErrTokenNotInPool        = errors.New("token not in pool")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrNegativeAmount        = errors.New("negative amount")
)

var feeDivisor = decimal.NewFromInt(FeeDivisor)

// QuoteForward returns the output of swapping amountIn of tokenIn. ok is
// false when tokenIn is not in the pool.
func QuoteForward(pool *dex.Pool, tokenIn string, amountIn decimal.Decimal) (decimal.Decimal, bool) {
	out, err := QuoteForwardErr(pool, tokenIn, amountIn)
	return out, err == nil
}

// QuoteForwardErr is QuoteForward with the reason for a missing quote.
func QuoteForwardErr(pool *dex.Pool, tokenIn string, amountIn decimal.Decimal) (decimal.Decimal, error) {
	if amountIn.IsZero() {
		return decimal.Zero, nil
	}
	if amountIn.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	tokenOut, ok := pool.Other(tokenIn)
	if !ok {
		return decimal.Zero, ErrTokenNotInPool
	}
	x := pool.Reserve(tokenIn)
	y := pool.Reserve(tokenOut)

	amountWithFee := amountIn.Mul(decimal.NewFromInt(int64(FeeDivisor - pool.FeeBps)))
	num := amountWithFee.Mul(y)
	den := feeDivisor.Mul(x).Add(amountWithFee)
	out, err := decmath.QuoFloor(num, den)
	if err != nil {
		return decimal.Zero, ErrInsufficientLiquidity
	}
	return out, nil
}

// QuoteInverse returns the input needed to receive exactly amountOut of
// tokenOut. ok is false when tokenOut is not in the pool or amountOut would
// consume the whole reserve.
func QuoteInverse(pool *dex.Pool, tokenOut string, amountOut decimal.Decimal) (decimal.Decimal, bool) {
	in, err := QuoteInverseErr(pool, tokenOut, amountOut)
	return in, err == nil
}

// QuoteInverseErr is QuoteInverse with the reason for a missing quote.
func QuoteInverseErr(pool *dex.Pool, tokenOut string, amountOut decimal.Decimal) (decimal.Decimal, error) {
	if amountOut.IsZero() {
		return decimal.Zero, nil
	}
	if amountOut.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	tokenIn, ok := pool.Other(tokenOut)
	if !ok {
		return decimal.Zero, ErrTokenNotInPool
	}
	x := pool.Reserve(tokenIn)
	y := pool.Reserve(tokenOut)
	if amountOut.GreaterThanOrEqual(y) {
		return decimal.Zero, ErrInsufficientLiquidity
	}

	num := feeDivisor.Mul(x).Mul(amountOut)
	den := decimal.NewFromInt(int64(FeeDivisor - pool.FeeBps)).Mul(y.Sub(amountOut))
	in, err := decmath.QuoCeil(num, den)
	if err != nil {
		// a 100% fee pool can never deliver output
		return decimal.Zero, ErrInsufficientLiquidity
	}
	return in, nil
}

// Quote is the result of routing a swap through a single pool.
type Quote struct {
	PoolID int
	Amount decimal.Decimal
}

// BestQuote returns the pool giving the largest output for amountIn of
// tokenIn into tokenOut. Ties keep the lowest pool id.
func BestQuote(idx *dex.Index, tokenIn, tokenOut string, amountIn decimal.Decimal) (Quote, bool) {
	var best Quote
	found := false
	for _, pool := range idx.PoolsForPair(tokenIn, tokenOut) {
		out, ok := QuoteForward(pool, tokenIn, amountIn)
		if !ok {
			continue
		}
		if !found || out.GreaterThan(best.Amount) || (out.Equal(best.Amount) && pool.ID < best.PoolID) {
			best = Quote{PoolID: pool.ID, Amount: out}
			found = true
		}
	}
	return best, found
}

// BestInverseQuote returns the pool needing the smallest input of tokenIn to
// deliver amountOut of tokenOut.
func BestInverseQuote(idx *dex.Index, tokenIn, tokenOut string, amountOut decimal.Decimal) (Quote, bool) {
	var best Quote
	found := false
	for _, pool := range idx.PoolsForPair(tokenIn, tokenOut) {
		in, ok := QuoteInverse(pool, tokenOut, amountOut)
		if !ok {
			continue
		}
		if !found || in.LessThan(best.Amount) || (in.Equal(best.Amount) && pool.ID < best.PoolID) {
			best = Quote{PoolID: pool.ID, Amount: in}
			found = true
		}
	}
	return best, found
}
