package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Position is one owner's liquidity in one pool. It is keyed by (pool, owner)
// only: a later addition with a different range replaces the bounds.
type Position struct {
	Address   common.Address `json:"address"`
	Pool      common.Address `json:"pool"`
	Owner     common.Address `json:"owner"`
	TickLower int32          `json:"tick_lower"`
	TickUpper int32          `json:"tick_upper"`
	Liquidity *uint256.Int   `json:"liquidity"`
}

// NewPosition returns the empty record created on an owner's first addition.
func NewPosition(pool, owner common.Address) *Position {
	return &Position{
		Address:   PositionAddress(pool, owner),
		Pool:      pool,
		Owner:     owner,
		Liquidity: new(uint256.Int),
	}
}

func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	out := *p
	out.Liquidity = cloneInt(p.Liquidity)
	return &out
}
