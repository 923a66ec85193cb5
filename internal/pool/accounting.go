package pool

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	"cyklon/internal/liquiditymath"
	"cyklon/internal/model"
	"cyklon/internal/storage"
	"cyklon/internal/tickmath"
)

const (
	AccountingScalar = "scalar"
	AccountingTick   = "tick"
)

// Accounting folds a new position's liquidity into the pool's active liquidity.
// Apply mutates pool in place; the caller saves it.
type Accounting interface {
	Apply(ctx context.Context, tx storage.Tx, pool *model.Pool, tickLower, tickUpper int32, liquidity *uint256.Int) error
}

// ParseAccounting resolves a configured accounting mode.
func ParseAccounting(name string) (Accounting, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", AccountingScalar:
		return ScalarAccounting{}, nil
	case AccountingTick:
		return TickAccounting{}, nil
	default:
		return nil, fmt.Errorf("unsupported accounting mode: %s", name)
	}
}

// ScalarAccounting adds every position to the pool total regardless of range.
type ScalarAccounting struct{}

func (ScalarAccounting) Apply(_ context.Context, _ storage.Tx, pool *model.Pool, _, _ int32, liquidity *uint256.Int) error {
	total, err := liquiditymath.AddLiquidity(pool.Liquidity, liquidity)
	if err != nil {
		return fmt.Errorf("pool liquidity: %w", err)
	}
	pool.Liquidity = total
	return nil
}

// TickAccounting records the position at its range boundaries and sets the
// pool liquidity to the sum of nets at or below the current tick, so only
// ranges containing the current price count.
type TickAccounting struct{}

func (TickAccounting) Apply(ctx context.Context, tx storage.Tx, pool *model.Pool, tickLower, tickUpper int32, liquidity *uint256.Int) error {
	current, err := tickmath.TickAtSqrtPrice(pool.SqrtPrice)
	if err != nil {
		return err
	}

	nets, err := tx.TickNets(ctx, pool.Address)
	if err != nil {
		return fmt.Errorf("load tick nets: %w", err)
	}
	byTick := make(map[int32]*big.Int, len(nets)+2)
	for _, net := range nets {
		byTick[net.Tick] = net.LiquidityNet
	}

	delta := liquidity.ToBig()
	updates := []model.TickNet{
		{Tick: tickLower, LiquidityNet: new(big.Int).Add(netAt(byTick, tickLower), delta)},
		{Tick: tickUpper, LiquidityNet: new(big.Int).Sub(netAt(byTick, tickUpper), delta)},
	}
	for _, update := range updates {
		if err := tx.SaveTickNet(ctx, pool.Address, update); err != nil {
			return fmt.Errorf("save tick %d: %w", update.Tick, err)
		}
		byTick[update.Tick] = update.LiquidityNet
	}

	active := new(big.Int)
	for tick, net := range byTick {
		if tick <= current {
			active.Add(active, net)
		}
	}
	total, err := liquiditymath.AddDelta(new(uint256.Int), active)
	if err != nil {
		return fmt.Errorf("pool liquidity: %w", err)
	}
	pool.Liquidity = total
	return nil
}

func netAt(byTick map[int32]*big.Int, tick int32) *big.Int {
	if net, ok := byTick[tick]; ok {
		return net
	}
	return new(big.Int)
}
