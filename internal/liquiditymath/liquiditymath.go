package liquiditymath

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"

	"cyklon/internal/tickmath"
)

var (
	ErrLiquidityOverflow  = errors.New("liquidity overflow")
	ErrLiquidityUnderflow = errors.New("liquidity underflow")
	ErrZeroRangeWidth     = errors.New("zero price range width")
)

var (
	// MaxLiquidity is the largest representable liquidity (2^128 - 1).
	MaxLiquidity = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)

	maxLiquidityBig = MaxLiquidity.ToBig()
)

// ComputeLiquidity returns the liquidity credited for depositing amount0 and
// amount1 into [tickLower, tickUpper) while the pool sits at sqrtPrice.
//
// Below the range only amount0 counts, above it only amount1 counts, and
// inside it the smaller of the two single-sided amounts wins, so a depositor
// is never credited with liquidity that one of the assets does not back.
func ComputeLiquidity(amount0, amount1 uint64, tickLower, tickUpper int32, sqrtPrice *uint256.Int) (*uint256.Int, error) {
	priceLower, err := tickmath.SqrtPriceAtTick(tickLower)
	if err != nil {
		return nil, err
	}
	priceUpper, err := tickmath.SqrtPriceAtTick(tickUpper)
	if err != nil {
		return nil, err
	}
	return LiquidityForAmounts(sqrtPrice, priceLower, priceUpper, amount0, amount1)
}

// LiquidityForAmounts is ComputeLiquidity with the range already expressed as
// sqrt prices.
func LiquidityForAmounts(sqrtPrice, priceA, priceB *uint256.Int, amount0, amount1 uint64) (*uint256.Int, error) {
	if priceA.Gt(priceB) {
		priceA, priceB = priceB, priceA
	}

	x := uint256.NewInt(amount0)
	y := uint256.NewInt(amount1)

	switch {
	case sqrtPrice.Cmp(priceA) <= 0:
		return LiquidityForAmount0(priceA, priceB, x)
	case sqrtPrice.Cmp(priceB) >= 0:
		return LiquidityForAmount1(priceA, priceB, y)
	default:
		l0, err := LiquidityForAmount0(sqrtPrice, priceB, x)
		if err != nil {
			return nil, err
		}
		l1, err := LiquidityForAmount1(priceA, sqrtPrice, y)
		if err != nil {
			return nil, err
		}
		if l0.Lt(l1) {
			return l0, nil
		}
		return l1, nil
	}
}

// LiquidityForAmount0 computes amount0 * (a*b/2^96) / (b - a).
func LiquidityForAmount0(priceA, priceB, amount0 *uint256.Int) (*uint256.Int, error) {
	if priceA.Gt(priceB) {
		priceA, priceB = priceB, priceA
	}
	width := new(uint256.Int).Sub(priceB, priceA)
	if width.IsZero() {
		return nil, ErrZeroRangeWidth
	}

	intermediate, overflow := new(uint256.Int).MulDivOverflow(priceA, priceB, tickmath.Q96)
	if overflow {
		return nil, ErrLiquidityOverflow
	}
	liquidity, overflow := new(uint256.Int).MulDivOverflow(amount0, intermediate, width)
	if overflow {
		return nil, ErrLiquidityOverflow
	}
	return toUint128(liquidity)
}

// LiquidityForAmount1 computes amount1 * 2^96 / (b - a).
func LiquidityForAmount1(priceA, priceB, amount1 *uint256.Int) (*uint256.Int, error) {
	if priceA.Gt(priceB) {
		priceA, priceB = priceB, priceA
	}
	width := new(uint256.Int).Sub(priceB, priceA)
	if width.IsZero() {
		return nil, ErrZeroRangeWidth
	}

	liquidity, overflow := new(uint256.Int).MulDivOverflow(amount1, tickmath.Q96, width)
	if overflow {
		return nil, ErrLiquidityOverflow
	}
	return toUint128(liquidity)
}

// AddLiquidity returns x + y, failing instead of exceeding uint128.
func AddLiquidity(x, y *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrLiquidityOverflow
	}
	return toUint128(sum)
}

// AddDelta applies a signed liquidity delta to x.
func AddDelta(x *uint256.Int, delta *big.Int) (*uint256.Int, error) {
	sum := new(big.Int).Add(x.ToBig(), delta)
	if sum.Sign() < 0 {
		return nil, ErrLiquidityUnderflow
	}
	if sum.Cmp(maxLiquidityBig) > 0 {
		return nil, ErrLiquidityOverflow
	}
	out, _ := uint256.FromBig(sum)
	return out, nil
}

func toUint128(v *uint256.Int) (*uint256.Int, error) {
	if v.Gt(MaxLiquidity) {
		return nil, ErrLiquidityOverflow
	}
	return v, nil
}
