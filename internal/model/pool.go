package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Pool is the aggregate record of one ordered mint pair.
type Pool struct {
	Address     common.Address `json:"address"`
	Mint0       common.Address `json:"mint0"`
	Mint1       common.Address `json:"mint1"`
	SqrtPrice   *uint256.Int   `json:"sqrt_price"`
	TickSpacing int32          `json:"tick_spacing"`
	Liquidity   *uint256.Int   `json:"liquidity"`
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	out := *p
	out.SqrtPrice = cloneInt(p.SqrtPrice)
	out.Liquidity = cloneInt(p.Liquidity)
	return &out
}

func cloneInt(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}
