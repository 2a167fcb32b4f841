package oracle

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"burrowfeed/internal/decmath"
	"burrowfeed/internal/dex"
)

func nearPool(id int, other string, nativeWhole int64, otherRaw decimal.Decimal) *dex.Pool {
	return &dex.Pool{
		ID:     id,
		Tokens: [2]string{DefaultNativeToken, other},
		Reserves: map[string]decimal.Decimal{
			DefaultNativeToken: d(nativeWhole).Mul(OneNative),
			other:              otherRaw,
		},
		FeeBps: 30,
		Shares: d(1),
	}
}

func TestCrossPricesSumsAllNativePools(t *testing.T) {
	idx := dex.BuildIndex([]*dex.Pool{
		nearPool(0, "ref.near", 10, d(400)),
		nearPool(1, "ref.near", 30, d(600)),
		nearPool(2, "usn", 5, d(7)),
		pool(3, "ref.near", "usn", 1, 1, 30),
	})

	cross := CrossPrices(idx, DefaultNativeToken)
	require.Len(t, cross, 2)
	assert.True(t, cross["ref.near"].TotalNative.Equal(d(40).Mul(OneNative)))
	assert.True(t, cross["ref.near"].TotalOther.Equal(d(1000)))
	assert.True(t, cross["usn"].TotalOther.Equal(d(7)))
}

func TestReferencePriceWeighted(t *testing.T) {
	idx := dex.BuildIndex([]*dex.Pool{
		nearPool(0, TokenUSDC, 1000, d(5000).Mul(decmath.Pow10(6))),
		nearPool(1, TokenUSDT, 1000, d(3000).Mul(decmath.Pow10(6))),
		nearPool(2, "ref.near", 1000, d(1)),
	})

	prices := Compute(idx, "", nil)
	assert.True(t, prices.ReferencePrice.Equal(d(4)), "got %s", prices.ReferencePrice)
}

func TestReferencePriceDAIScale(t *testing.T) {
	idx := dex.BuildIndex([]*dex.Pool{
		nearPool(0, TokenDAI, 200, d(500).Mul(decmath.Pow10(18))),
	})
	prices := Compute(idx, DefaultNativeToken, NewStables(nil))
	assert.True(t, prices.ReferencePrice.Equal(decimal.RequireFromString("2.5")), "got %s", prices.ReferencePrice)
}

func TestReferencePriceZeroWithoutStablePools(t *testing.T) {
	idx := dex.BuildIndex([]*dex.Pool{
		nearPool(0, "ref.near", 1000, d(1)),
		pool(1, TokenUSDC, TokenUSDT, 1, 1, 5),
	})
	prices := Compute(idx, DefaultNativeToken, nil)
	assert.True(t, prices.ReferencePrice.IsZero())

	assert.True(t, ReferencePrice(nil, NewStables(nil)).IsZero())
	assert.True(t, Compute(dex.BuildIndex(nil), "", nil).ReferencePrice.IsZero())
}

func TestTokenUSDValue(t *testing.T) {
	idx := dex.BuildIndex([]*dex.Pool{
		nearPool(0, TokenUSDC, 100, d(500).Mul(decmath.Pow10(6))),
		nearPool(1, "ref.near", 100, d(1000).Mul(decmath.Pow10(18))),
	})
	prices := Compute(idx, DefaultNativeToken, nil)
	require.True(t, prices.ReferencePrice.Equal(d(5)))

	v, ok := TokenUSDValue(&prices, DefaultNativeToken, d(2).Mul(OneNative))
	require.True(t, ok)
	assert.True(t, v.Equal(d(10)), "got %s", v)

	// 1000 ref = 100 near, so one whole ref is 0.1 near = 0.5 usd
	v, ok = TokenUSDValue(&prices, "ref.near", d(3).Mul(decmath.Pow10(18)))
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.RequireFromString("1.5")), "got %s", v)

	v, ok = TokenUSDValue(&prices, TokenUSDC, d(7).Mul(decmath.Pow10(6)))
	require.True(t, ok)
	assert.True(t, v.Equal(d(7)))

	_, ok = TokenUSDValue(&prices, "unknown.near", d(1))
	assert.False(t, ok)
	_, ok = TokenUSDValue(nil, DefaultNativeToken, d(1))
	assert.False(t, ok)
}

func TestParseStables(t *testing.T) {
	got, err := ParseStables([]string{" usn = 18", "", "usdc.near=6"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int32{"usn": 18, "usdc.near": 6}, got)

	for _, bad := range []string{"usn", "=6", "usn=x", "usn=-1", "usn=99"} {
		_, err := ParseStables([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestStablesRegistry(t *testing.T) {
	s := NewStables(nil)
	assert.Equal(t, []string{TokenDAI, TokenUSDC, TokenUSDT}, s.Tokens())

	s.Set("usn", 18)
	one, ok := s.One("usn")
	require.True(t, ok)
	assert.True(t, one.Equal(decmath.Pow10(18)))

	_, ok = NewStables(map[string]int32{}).Get(TokenDAI)
	assert.False(t, ok)
}
