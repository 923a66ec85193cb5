package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// InitializePoolRequest creates a pool for the ordered pair (Mint0, Mint1).
// Zero TickSpacing or nil SqrtPrice select the service defaults.
type InitializePoolRequest struct {
	Payer       common.Address
	Mint0       common.Address
	Mint1       common.Address
	TickSpacing int32
	SqrtPrice   *uint256.Int
}

// AddLiquidityRequest deposits Amount0/Amount1 from Owner into Pool over
// [TickLower, TickUpper).
type AddLiquidityRequest struct {
	Pool      common.Address `json:"pool"`
	Owner     common.Address `json:"owner"`
	Amount0   uint64         `json:"amount0"`
	Amount1   uint64         `json:"amount1"`
	TickLower int32          `json:"tick_lower"`
	TickUpper int32          `json:"tick_upper"`
}

// QuoteRequest computes liquidity for amounts without settling anything.
type QuoteRequest struct {
	Pool      common.Address
	Amount0   uint64
	Amount1   uint64
	TickLower int32
	TickUpper int32
}
