package oracle

import (
	"github.com/shopspring/decimal"

	"burrowfeed/internal/decmath"
	"burrowfeed/internal/dex"
)

const (
	DefaultNativeToken = "wrap.near"
	NativeDecimals     = 24
)

// OneNative is one whole wNEAR in raw units.
var OneNative = decmath.Pow10(NativeDecimals)

// CrossPrice sums the reserves of every native pool pairing one other token.
type CrossPrice struct {
	TotalNative decimal.Decimal
	TotalOther  decimal.Decimal
}

// NativePerOther returns raw native units per raw unit of the other token.
func (c CrossPrice) NativePerOther() (decimal.Decimal, bool) {
	if c.TotalOther.Sign() <= 0 {
		return decimal.Zero, false
	}
	rate, _ := decmath.Quo(c.TotalNative, c.TotalOther)
	return rate, true
}

// CrossPrices aggregates, per token, all pools pairing it with native. Tokens
// whose pools hold no native liquidity are omitted.
func CrossPrices(idx *dex.Index, native string) map[string]CrossPrice {
	totals := make(map[string]CrossPrice)
	for _, pool := range idx.PoolsForToken(native) {
		other, ok := pool.Other(native)
		if !ok || other == native {
			continue
		}
		c := totals[other]
		c.TotalNative = c.TotalNative.Add(pool.Reserve(native))
		c.TotalOther = c.TotalOther.Add(pool.Reserve(other))
		totals[other] = c
	}
	for token, c := range totals {
		if c.TotalNative.Sign() <= 0 {
			delete(totals, token)
		}
	}
	return totals
}

// ReferencePrice returns the USD price of one whole native token, weighted by
// the native liquidity of every recognized stablecoin pool. Zero means unknown.
func ReferencePrice(cross map[string]CrossPrice, stables *Stables) decimal.Decimal {
	totalNative := decimal.Zero
	totalUSD := decimal.Zero
	for _, token := range stables.Tokens() {
		c, ok := cross[token]
		if !ok {
			continue
		}
		one, _ := stables.One(token)
		// scaled to native precision so the ratio is USD per whole native
		usd, err := decmath.Quo(c.TotalOther.Mul(OneNative), one)
		if err != nil {
			continue
		}
		totalNative = totalNative.Add(c.TotalNative)
		totalUSD = totalUSD.Add(usd)
	}
	if totalNative.Sign() <= 0 {
		return decimal.Zero
	}
	price, _ := decmath.Quo(totalUSD, totalNative)
	return price
}

// Prices is the oracle output of one refresh.
type Prices struct {
	Native         string
	CrossPrices    map[string]CrossPrice
	ReferencePrice decimal.Decimal
	Stables        *Stables
}

// Compute derives prices from idx.
func Compute(idx *dex.Index, native string, stables *Stables) Prices {
	if native == "" {
		native = DefaultNativeToken
	}
	if stables == nil {
		stables = NewStables(nil)
	}
	cross := CrossPrices(idx, native)
	return Prices{
		Native:         native,
		CrossPrices:    cross,
		ReferencePrice: ReferencePrice(cross, stables),
		Stables:        stables,
	}
}

// TokenUSDValue values a raw amount of token in USD. Stablecoins are valued
// at par; native through the reference price; anything else through its
// cross price. ok is false when no valuation path exists.
func TokenUSDValue(p *Prices, token string, amount decimal.Decimal) (decimal.Decimal, bool) {
	if p == nil {
		return decimal.Zero, false
	}
	if p.Stables != nil {
		if one, ok := p.Stables.One(token); ok {
			usd, err := decmath.Quo(amount, one)
			return usd, err == nil
		}
	}
	if p.ReferencePrice.Sign() <= 0 {
		return decimal.Zero, false
	}

	nativeAmount := amount
	if token != p.Native {
		c, ok := p.CrossPrices[token]
		if !ok {
			return decimal.Zero, false
		}
		rate, ok := c.NativePerOther()
		if !ok {
			return decimal.Zero, false
		}
		nativeAmount = amount.Mul(rate)
	}
	usd, _ := decmath.Quo(nativeAmount.Mul(p.ReferencePrice), OneNative)
	return usd, true
}

// NativePrices returns, per token with a cross price, the raw native amount
// per raw token unit.
func NativePrices(p *Prices) map[string]string {
	out := make(map[string]string, len(p.CrossPrices))
	for token, c := range p.CrossPrices {
		if rate, ok := c.NativePerOther(); ok {
			out[token] = rate.String()
		}
	}
	return out
}
