package model

import "math/big"

// TickNet is the signed liquidity change applied when price crosses Tick upward.
type TickNet struct {
	Tick         int32    `json:"tick"`
	LiquidityNet *big.Int `json:"liquidity_net"`
}
