package liquiditymath

import (
	"math"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyklon/internal/tickmath"
)

func sqrtPriceAt(t *testing.T, tick int32) *uint256.Int {
	t.Helper()
	p, err := tickmath.SqrtPriceAtTick(tick)
	require.NoError(t, err)
	return p
}

func TestComputeLiquidityBelowRange(t *testing.T) {
	price := sqrtPriceAt(t, -100)

	base, err := ComputeLiquidity(1000, 500, 0, 100, price)
	require.NoError(t, err)
	assert.False(t, base.IsZero())

	t.Run("amount1 ignored", func(t *testing.T) {
		other, err := ComputeLiquidity(1000, 5000, 0, 100, price)
		require.NoError(t, err)
		assert.Equal(t, base.Dec(), other.Dec())

		none, err := ComputeLiquidity(1000, 0, 0, 100, price)
		require.NoError(t, err)
		assert.Equal(t, base.Dec(), none.Dec())
	})

	t.Run("price at lower bound counts as below", func(t *testing.T) {
		atLower, err := ComputeLiquidity(1000, 5000, 0, 100, sqrtPriceAt(t, 0))
		require.NoError(t, err)
		assert.Equal(t, base.Dec(), atLower.Dec())
	})

	t.Run("matches amount0 formula", func(t *testing.T) {
		a := sqrtPriceAt(t, 0).ToBig()
		b := sqrtPriceAt(t, 100).ToBig()
		q96 := new(big.Int).Lsh(big.NewInt(1), 96)
		intermediate := new(big.Int).Div(new(big.Int).Mul(a, b), q96)
		want := new(big.Int).Mul(big.NewInt(1000), intermediate)
		want.Div(want, new(big.Int).Sub(b, a))
		assert.Equal(t, want.String(), base.Dec())
	})
}

func TestComputeLiquidityAboveRange(t *testing.T) {
	price := sqrtPriceAt(t, 500)

	base, err := ComputeLiquidity(1000, 500, 0, 100, price)
	require.NoError(t, err)

	other, err := ComputeLiquidity(7777, 500, 0, 100, price)
	require.NoError(t, err)
	assert.Equal(t, base.Dec(), other.Dec())

	atUpper, err := ComputeLiquidity(0, 500, 0, 100, sqrtPriceAt(t, 100))
	require.NoError(t, err)
	assert.Equal(t, base.Dec(), atUpper.Dec())

	a := sqrtPriceAt(t, 0).ToBig()
	b := sqrtPriceAt(t, 100).ToBig()
	want := new(big.Int).Lsh(big.NewInt(500), 96)
	want.Div(want, new(big.Int).Sub(b, a))
	assert.Equal(t, want.String(), base.Dec())
}

func TestComputeLiquidityInsideRange(t *testing.T) {
	price := sqrtPriceAt(t, 40)
	lower := sqrtPriceAt(t, 0)
	upper := sqrtPriceAt(t, 100)

	cases := []struct {
		amount0 uint64
		amount1 uint64
	}{
		{1000, 1000},
		{1000, 1},
		{1, 1000},
		{1_000_000, 2_000_000_000},
		{math.MaxUint64, math.MaxUint64},
	}

	for _, tc := range cases {
		got, err := ComputeLiquidity(tc.amount0, tc.amount1, 0, 100, price)
		require.NoError(t, err)

		side0, err := LiquidityForAmount0(price, upper, uint256.NewInt(tc.amount0))
		require.NoError(t, err)
		side1, err := LiquidityForAmount1(lower, price, uint256.NewInt(tc.amount1))
		require.NoError(t, err)

		assert.False(t, got.Gt(side0), "amount0=%d amount1=%d exceeds amount0 side", tc.amount0, tc.amount1)
		assert.False(t, got.Gt(side1), "amount0=%d amount1=%d exceeds amount1 side", tc.amount0, tc.amount1)
		assert.True(t, got.Eq(side0) || got.Eq(side1))
	}
}

func TestComputeLiquidityBoundedByScarceSide(t *testing.T) {
	price := sqrtPriceAt(t, 50)

	rich, err := ComputeLiquidity(1_000_000, 1_000_000, 0, 100, price)
	require.NoError(t, err)
	starved, err := ComputeLiquidity(1_000_000, 10, 0, 100, price)
	require.NoError(t, err)
	assert.True(t, starved.Lt(rich))

	zero, err := ComputeLiquidity(1_000_000, 0, 0, 100, price)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

func TestComputeLiquidityOverflow(t *testing.T) {
	price := sqrtPriceAt(t, tickmath.MinTick)
	_, err := ComputeLiquidity(math.MaxUint64, 0, tickmath.MaxTick-1, tickmath.MaxTick, price)
	assert.ErrorIs(t, err, ErrLiquidityOverflow)
}

func TestComputeLiquidityTickOutOfBounds(t *testing.T) {
	_, err := ComputeLiquidity(1, 1, tickmath.MinTick-1, 0, tickmath.Q96)
	assert.ErrorIs(t, err, tickmath.ErrTickOutOfBounds)
}

func TestZeroRangeWidth(t *testing.T) {
	p := sqrtPriceAt(t, 10)
	_, err := LiquidityForAmount0(p, p, uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrZeroRangeWidth)
	_, err = LiquidityForAmount1(p, p, uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrZeroRangeWidth)
}

func TestAddLiquidity(t *testing.T) {
	sum, err := AddLiquidity(uint256.NewInt(40), uint256.NewInt(2))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), sum.Uint64())

	_, err = AddLiquidity(MaxLiquidity, uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrLiquidityOverflow)

	full, err := AddLiquidity(MaxLiquidity, uint256.NewInt(0))
	require.NoError(t, err)
	assert.True(t, full.Eq(MaxLiquidity))
}

func TestAddDelta(t *testing.T) {
	out, err := AddDelta(uint256.NewInt(10), big.NewInt(-4))
	require.NoError(t, err)
	assert.Equal(t, uint64(6), out.Uint64())

	_, err = AddDelta(uint256.NewInt(3), big.NewInt(-4))
	assert.ErrorIs(t, err, ErrLiquidityUnderflow)

	_, err = AddDelta(MaxLiquidity, big.NewInt(1))
	assert.ErrorIs(t, err, ErrLiquidityOverflow)
}
