package tickmath

import (
	"errors"

	"github.com/holiman/uint256"
)

const (
	// MinTick is the lowest tick whose sqrt price is representable.
	MinTick int32 = -887272
	// MaxTick is the highest tick whose sqrt price is representable.
	MaxTick int32 = 887272
)

var (
	ErrInvalidTickRange     = errors.New("invalid tick range")
	ErrInvalidLowerTick     = errors.New("invalid lower tick")
	ErrInvalidUpperTick     = errors.New("invalid upper tick")
	ErrInvalidTickSpacing   = errors.New("invalid tick spacing")
	ErrTickOutOfBounds      = errors.New("tick out of bounds")
	ErrSqrtPriceOutOfBounds = errors.New("sqrt price out of bounds")
)

var (
	// MinSqrtPrice is SqrtPriceAtTick(MinTick).
	MinSqrtPrice = uint256.MustFromDecimal("4295128739")
	// MaxSqrtPrice is SqrtPriceAtTick(MaxTick).
	MaxSqrtPrice = uint256.MustFromDecimal("1461446703485210103287273052203988822378723970342")

	// Q96 is 1.0 in Q64.96.
	Q96 = new(uint256.Int).Lsh(uint256.NewInt(1), 96)

	maxUint256 = new(uint256.Int).SetAllOne()
	roundMask  = uint256.NewInt(0xffffffff)

	// sqrt(1.0001^-(2^i)) in Q128.128, one entry per bit of |tick|.
	ratioConstants = [20]*uint256.Int{
		uint256.MustFromHex("0xfffcb933bd6fad37aa2d162d1a594001"),
		uint256.MustFromHex("0xfff97272373d413259a46990580e213a"),
		uint256.MustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
		uint256.MustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
		uint256.MustFromHex("0xffcb9843d60f6159c9db58835c926644"),
		uint256.MustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
		uint256.MustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
		uint256.MustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
		uint256.MustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
		uint256.MustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
		uint256.MustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
		uint256.MustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
		uint256.MustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
		uint256.MustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
		uint256.MustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
		uint256.MustFromHex("0x31be135f97d08fd981231505542fcfa6"),
		uint256.MustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
		uint256.MustFromHex("0x5d6af8dedb81196699c329225ee604"),
		uint256.MustFromHex("0x2216e584f5fa1ea926041bedfe98"),
		uint256.MustFromHex("0x48a170391f7dc42444e8fa2"),
	}
	one128 = uint256.MustFromHex("0x100000000000000000000000000000000")
)

// ValidateRange checks that [tickLower, tickUpper) is a non-empty range aligned
// to tickSpacing and inside the supported tick domain.
func ValidateRange(tickLower, tickUpper, tickSpacing int32) error {
	if tickSpacing <= 0 {
		return ErrInvalidTickSpacing
	}
	if tickLower >= tickUpper {
		return ErrInvalidTickRange
	}
	if tickLower%tickSpacing != 0 {
		return ErrInvalidLowerTick
	}
	if tickUpper%tickSpacing != 0 {
		return ErrInvalidUpperTick
	}
	if tickLower < MinTick || tickUpper > MaxTick {
		return ErrTickOutOfBounds
	}
	return nil
}

// SqrtPriceAtTick returns sqrt(1.0001^tick) * 2^96, rounded up.
func SqrtPriceAtTick(tick int32) (*uint256.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, ErrTickOutOfBounds
	}

	absTick := uint32(tick)
	if tick < 0 {
		absTick = uint32(-tick)
	}

	ratio := new(uint256.Int)
	if absTick&0x1 != 0 {
		ratio.Set(ratioConstants[0])
	} else {
		ratio.Set(one128)
	}
	for i := 1; i < len(ratioConstants); i++ {
		if absTick&(1<<uint(i)) != 0 {
			ratio.Mul(ratio, ratioConstants[i]).Rsh(ratio, 128)
		}
	}

	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	// Q128.128 -> Q64.96, rounding up so the result never undershoots.
	rem := new(uint256.Int).And(ratio, roundMask)
	ratio.Rsh(ratio, 32)
	if !rem.IsZero() {
		ratio.AddUint64(ratio, 1)
	}
	return ratio, nil
}

// TickAtSqrtPrice returns the greatest tick whose sqrt price is <= sqrtPrice.
func TickAtSqrtPrice(sqrtPrice *uint256.Int) (int32, error) {
	if sqrtPrice == nil || sqrtPrice.Lt(MinSqrtPrice) || !sqrtPrice.Lt(MaxSqrtPrice) {
		return 0, ErrSqrtPriceOutOfBounds
	}

	low, high := MinTick, MaxTick
	tick := MinTick
	for low <= high {
		mid := low + (high-low)/2
		ratio, err := SqrtPriceAtTick(mid)
		if err != nil {
			return 0, err
		}
		if ratio.Cmp(sqrtPrice) <= 0 {
			tick = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
	}
	return tick, nil
}

// ValidSqrtPrice reports whether sqrtPrice lies in [MinSqrtPrice, MaxSqrtPrice).
func ValidSqrtPrice(sqrtPrice *uint256.Int) bool {
	return sqrtPrice != nil && !sqrtPrice.Lt(MinSqrtPrice) && sqrtPrice.Lt(MaxSqrtPrice)
}
