package model

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	testMintA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testMintB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	testOwner = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func TestPoolAddressDeterministic(t *testing.T) {
	first := PoolAddress(testMintA, testMintB)
	second := PoolAddress(testMintA, testMintB)
	if first != second {
		t.Fatalf("pool address not deterministic: %s != %s", first.Hex(), second.Hex())
	}
	if first == (common.Address{}) {
		t.Fatalf("pool address is zero")
	}
}

func TestPoolAddressOrderSignificant(t *testing.T) {
	if PoolAddress(testMintA, testMintB) == PoolAddress(testMintB, testMintA) {
		t.Fatalf("reversed mint order must derive a distinct pool")
	}
}

func TestPositionAddressDistinctFromPool(t *testing.T) {
	pool := PoolAddress(testMintA, testMintB)
	pos := PositionAddress(pool, testOwner)
	if pos == pool {
		t.Fatalf("position address collides with pool address")
	}
	if pos != PositionAddress(pool, testOwner) {
		t.Fatalf("position address not deterministic")
	}
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	if pos == PositionAddress(pool, other) {
		t.Fatalf("distinct owners share a position address")
	}
}

func TestNewPosition(t *testing.T) {
	pool := PoolAddress(testMintA, testMintB)
	pos := NewPosition(pool, testOwner)
	if pos.Address != PositionAddress(pool, testOwner) {
		t.Fatalf("address mismatch")
	}
	if pos.Liquidity == nil || !pos.Liquidity.IsZero() {
		t.Fatalf("new position must start with zero liquidity")
	}
	if pos.TickLower != 0 || pos.TickUpper != 0 {
		t.Fatalf("new position range must be unset")
	}
}

func TestPoolCloneIsDeep(t *testing.T) {
	pool := &Pool{
		Address:     PoolAddress(testMintA, testMintB),
		Mint0:       testMintA,
		Mint1:       testMintB,
		SqrtPrice:   uint256.NewInt(100),
		TickSpacing: 10,
		Liquidity:   uint256.NewInt(5),
	}
	clone := pool.Clone()
	clone.Liquidity.AddUint64(clone.Liquidity, 1)
	clone.SqrtPrice.SetUint64(7)

	if pool.Liquidity.Uint64() != 5 || pool.SqrtPrice.Uint64() != 100 {
		t.Fatalf("clone mutation leaked into original: %+v", pool)
	}
}
