package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"cyklon/internal/model"
)

type snapshotRecord struct {
	Pools     []poolRecord     `json:"pools"`
	Positions []positionRecord `json:"positions"`
	Ticks     []tickRecord     `json:"ticks"`
	Mints     []model.Mint     `json:"mints"`
	Balances  []balanceRecord  `json:"balances"`
	UpdatedAt string           `json:"updated_at"`
}

type poolRecord struct {
	Address     common.Address `json:"address"`
	Mint0       common.Address `json:"mint0"`
	Mint1       common.Address `json:"mint1"`
	SqrtPrice   string         `json:"sqrt_price"`
	TickSpacing int32          `json:"tick_spacing"`
	Liquidity   string         `json:"liquidity"`
}

type positionRecord struct {
	Pool      common.Address `json:"pool"`
	Owner     common.Address `json:"owner"`
	TickLower int32          `json:"tick_lower"`
	TickUpper int32          `json:"tick_upper"`
	Liquidity string         `json:"liquidity"`
}

type tickRecord struct {
	Pool         common.Address `json:"pool"`
	Tick         int32          `json:"tick"`
	LiquidityNet string         `json:"liquidity_net"`
}

type balanceRecord struct {
	Owner  common.Address `json:"owner"`
	Mint   common.Address `json:"mint"`
	Amount uint64         `json:"amount"`
}

func loadSnapshot(path string) (*state, error) {
	st := newState()
	if path == "" {
		return st, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var rec snapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	for _, p := range rec.Pools {
		sqrtPrice, err := uint256.FromDecimal(p.SqrtPrice)
		if err != nil {
			return nil, fmt.Errorf("parse pool %s sqrt price: %w", p.Address.Hex(), err)
		}
		liquidity, err := uint256.FromDecimal(p.Liquidity)
		if err != nil {
			return nil, fmt.Errorf("parse pool %s liquidity: %w", p.Address.Hex(), err)
		}
		st.pools[p.Address] = &model.Pool{
			Address:     p.Address,
			Mint0:       p.Mint0,
			Mint1:       p.Mint1,
			SqrtPrice:   sqrtPrice,
			TickSpacing: p.TickSpacing,
			Liquidity:   liquidity,
		}
	}
	for _, p := range rec.Positions {
		liquidity, err := uint256.FromDecimal(p.Liquidity)
		if err != nil {
			return nil, fmt.Errorf("parse position liquidity: %w", err)
		}
		pos := model.NewPosition(p.Pool, p.Owner)
		pos.TickLower = p.TickLower
		pos.TickUpper = p.TickUpper
		pos.Liquidity = liquidity
		st.positions[pos.Address] = pos
	}
	for _, t := range rec.Ticks {
		net, ok := new(big.Int).SetString(t.LiquidityNet, 10)
		if !ok {
			return nil, fmt.Errorf("parse tick %d liquidity net: %q", t.Tick, t.LiquidityNet)
		}
		nets := st.ticks[t.Pool]
		if nets == nil {
			nets = make(map[int32]*big.Int)
			st.ticks[t.Pool] = nets
		}
		nets[t.Tick] = net
	}
	for _, m := range rec.Mints {
		st.mints[m.Address] = m
	}
	for _, b := range rec.Balances {
		st.balances[balanceKey{owner: b.Owner, mint: b.Mint}] = b.Amount
	}
	return st, nil
}

func writeSnapshot(path string, st *state) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(st.record(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// record flattens st in a stable order so identical states produce identical files.
func (s *state) record() snapshotRecord {
	rec := snapshotRecord{
		Pools:     make([]poolRecord, 0, len(s.pools)),
		Positions: make([]positionRecord, 0, len(s.positions)),
		Mints:     make([]model.Mint, 0, len(s.mints)),
		Balances:  make([]balanceRecord, 0, len(s.balances)),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}

	for _, p := range s.pools {
		rec.Pools = append(rec.Pools, poolRecord{
			Address:     p.Address,
			Mint0:       p.Mint0,
			Mint1:       p.Mint1,
			SqrtPrice:   p.SqrtPrice.Dec(),
			TickSpacing: p.TickSpacing,
			Liquidity:   p.Liquidity.Dec(),
		})
	}
	sort.Slice(rec.Pools, func(i, j int) bool {
		return bytes.Compare(rec.Pools[i].Address[:], rec.Pools[j].Address[:]) < 0
	})

	for _, p := range s.positions {
		rec.Positions = append(rec.Positions, positionRecord{
			Pool:      p.Pool,
			Owner:     p.Owner,
			TickLower: p.TickLower,
			TickUpper: p.TickUpper,
			Liquidity: p.Liquidity.Dec(),
		})
	}
	sort.Slice(rec.Positions, func(i, j int) bool {
		a, b := rec.Positions[i], rec.Positions[j]
		if c := bytes.Compare(a.Pool[:], b.Pool[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(a.Owner[:], b.Owner[:]) < 0
	})

	for pool, nets := range s.ticks {
		for tick, net := range nets {
			rec.Ticks = append(rec.Ticks, tickRecord{Pool: pool, Tick: tick, LiquidityNet: net.String()})
		}
	}
	sort.Slice(rec.Ticks, func(i, j int) bool {
		a, b := rec.Ticks[i], rec.Ticks[j]
		if c := bytes.Compare(a.Pool[:], b.Pool[:]); c != 0 {
			return c < 0
		}
		return a.Tick < b.Tick
	})

	for _, m := range s.mints {
		rec.Mints = append(rec.Mints, m)
	}
	sort.Slice(rec.Mints, func(i, j int) bool {
		return bytes.Compare(rec.Mints[i].Address[:], rec.Mints[j].Address[:]) < 0
	})

	for key, amount := range s.balances {
		rec.Balances = append(rec.Balances, balanceRecord{Owner: key.owner, Mint: key.mint, Amount: amount})
	}
	sort.Slice(rec.Balances, func(i, j int) bool {
		a, b := rec.Balances[i], rec.Balances[j]
		if c := bytes.Compare(a.Owner[:], b.Owner[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(a.Mint[:], b.Mint[:]) < 0
	})
	return rec
}
