package pool

import (
	"errors"

	"cyklon/internal/ledger"
	"cyklon/internal/liquiditymath"
	"cyklon/internal/storage"
	"cyklon/internal/tickmath"
)

var (
	ErrUnauthenticated = errors.New("caller not authenticated")
	ErrIdenticalMints  = errors.New("pool mints must differ")
)

// Error classes reported by Classify.
const (
	ClassValidation = "validation"
	ClassArithmetic = "arithmetic"
	ClassSettlement = "settlement"
	ClassState      = "state"
	ClassInternal   = "internal"
)

// IsValidation reports whether err rejected the request before any state was touched.
func IsValidation(err error) bool {
	return anyIs(err,
		tickmath.ErrInvalidTickRange,
		tickmath.ErrInvalidLowerTick,
		tickmath.ErrInvalidUpperTick,
		tickmath.ErrInvalidTickSpacing,
		tickmath.ErrTickOutOfBounds,
		tickmath.ErrSqrtPriceOutOfBounds,
		ErrIdenticalMints,
		ErrUnauthenticated,
		ledger.ErrUnknownMint,
	)
}

// IsArithmetic reports whether err is a checked-arithmetic fault.
func IsArithmetic(err error) bool {
	return anyIs(err,
		liquiditymath.ErrLiquidityOverflow,
		liquiditymath.ErrLiquidityUnderflow,
		liquiditymath.ErrZeroRangeWidth,
		ledger.ErrBalanceOverflow,
	)
}

// IsSettlement reports whether err came from the ledger refusing a transfer.
func IsSettlement(err error) bool {
	return anyIs(err, ledger.ErrInsufficientFunds, ledger.ErrMintMismatch)
}

// Classify maps err to one of the Class* labels.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return ClassValidation
	case IsArithmetic(err):
		return ClassArithmetic
	case IsSettlement(err):
		return ClassSettlement
	case anyIs(err, storage.ErrPoolExists, storage.ErrPoolNotFound, storage.ErrPositionNotFound, ledger.ErrMintExists):
		return ClassState
	default:
		return ClassInternal
	}
}

func anyIs(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
