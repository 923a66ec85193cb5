package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/blake3"
)

var (
	poolSeed     = []byte("pool")
	positionSeed = []byte("position")
)

// PoolAddress derives the record address of the pool for the ordered pair
// (mint0, mint1). Swapping the mints yields a different pool.
func PoolAddress(mint0, mint1 common.Address) common.Address {
	return deriveAddress(poolSeed, mint0.Bytes(), mint1.Bytes())
}

// PositionAddress derives the record address of owner's position in pool.
func PositionAddress(pool, owner common.Address) common.Address {
	return deriveAddress(positionSeed, pool.Bytes(), owner.Bytes())
}

func deriveAddress(seed []byte, parts ...[]byte) common.Address {
	h := blake3.New()
	h.Write(seed)
	for _, part := range parts {
		h.Write(part)
	}
	var digest [32]byte
	h.Digest().Read(digest[:])
	return common.BytesToAddress(digest[12:])
}
