package memory

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"cyklon/internal/ledger"
	"cyklon/internal/model"
	"cyklon/internal/storage"
)

var (
	mintA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	mintB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	alice = common.HexToAddress("0x000000000000000000000000000000000000a11c")
)

func seed(t *testing.T, s *Store) *model.Pool {
	t.Helper()
	pool := &model.Pool{
		Address:     model.PoolAddress(mintA, mintB),
		Mint0:       mintA,
		Mint1:       mintB,
		SqrtPrice:   new(uint256.Int).Lsh(uint256.NewInt(1), 96),
		TickSpacing: 10,
		Liquidity:   new(uint256.Int),
	}
	err := s.Update(context.Background(), func(tx storage.Tx) error {
		ctx := context.Background()
		if err := tx.RegisterMint(ctx, model.Mint{Address: mintA, Decimals: 6}); err != nil {
			return err
		}
		if err := tx.RegisterMint(ctx, model.Mint{Address: mintB, Decimals: 9}); err != nil {
			return err
		}
		if err := tx.Credit(ctx, alice, mintA, 1000); err != nil {
			return err
		}
		return tx.CreatePool(ctx, pool)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return pool
}

func TestUpdateRollsBackOnError(t *testing.T) {
	s := NewStore()
	pool := seed(t, s)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Transfer(ctx, alice, pool.Address, mintA, 400); err != nil {
			return err
		}
		p, err := tx.Pool(ctx, pool.Address)
		if err != nil {
			return err
		}
		p.Liquidity.SetUint64(77)
		if err := tx.SavePool(ctx, p); err != nil {
			return err
		}
		if _, err := tx.OpenPosition(ctx, pool.Address, alice); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = s.View(ctx, func(tx storage.Tx) error {
		bal, err := tx.Balance(ctx, alice, mintA)
		if err != nil {
			return err
		}
		if bal != 1000 {
			t.Fatalf("expected balance 1000, got %d", bal)
		}
		p, err := tx.Pool(ctx, pool.Address)
		if err != nil {
			return err
		}
		if !p.Liquidity.IsZero() {
			t.Fatalf("expected zero liquidity, got %s", p.Liquidity.Dec())
		}
		if _, err := tx.Position(ctx, pool.Address, alice); !errors.Is(err, storage.ErrPositionNotFound) {
			t.Fatalf("expected ErrPositionNotFound, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestCreatePoolExists(t *testing.T) {
	s := NewStore()
	pool := seed(t, s)
	err := s.Update(context.Background(), func(tx storage.Tx) error {
		return tx.CreatePool(context.Background(), pool)
	})
	if !errors.Is(err, storage.ErrPoolExists) {
		t.Fatalf("expected ErrPoolExists, got %v", err)
	}
}

func TestTransferFaults(t *testing.T) {
	s := NewStore()
	pool := seed(t, s)
	ctx := context.Background()
	unknown := common.HexToAddress("0x00000000000000000000000000000000000000ff")

	cases := []struct {
		name   string
		mint   common.Address
		amount uint64
		want   error
	}{
		{name: "insufficient", mint: mintA, amount: 1001, want: ledger.ErrInsufficientFunds},
		{name: "empty balance", mint: mintB, amount: 1, want: ledger.ErrInsufficientFunds},
		{name: "unregistered mint", mint: unknown, amount: 1, want: ledger.ErrMintMismatch},
	}
	for _, tc := range cases {
		err := s.Update(ctx, func(tx storage.Tx) error {
			return tx.Transfer(ctx, alice, pool.Address, tc.mint, tc.amount)
		})
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	err := s.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Credit(ctx, pool.Address, mintA, ^uint64(0)); err != nil {
			return err
		}
		return tx.Transfer(ctx, alice, pool.Address, mintA, 1)
	})
	if !errors.Is(err, ledger.ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow, got %v", err)
	}
}

func TestRegisterMintTwice(t *testing.T) {
	s := NewStore()
	seed(t, s)
	err := s.Update(context.Background(), func(tx storage.Tx) error {
		return tx.RegisterMint(context.Background(), model.Mint{Address: mintA})
	})
	if !errors.Is(err, ledger.ErrMintExists) {
		t.Fatalf("expected ErrMintExists, got %v", err)
	}
}

func TestViewIsReadOnly(t *testing.T) {
	s := NewStore()
	pool := seed(t, s)
	err := s.View(context.Background(), func(tx storage.Tx) error {
		_, err := tx.OpenPosition(context.Background(), pool.Address, alice)
		return err
	})
	if !errors.Is(err, storage.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
}

func TestOpenPositionCreatesOnce(t *testing.T) {
	s := NewStore()
	pool := seed(t, s)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := s.Update(ctx, func(tx storage.Tx) error {
			pos, err := tx.OpenPosition(ctx, pool.Address, alice)
			if err != nil {
				return err
			}
			pos.TickLower, pos.TickUpper = 0, 100
			pos.Liquidity.AddUint64(pos.Liquidity, 5)
			return tx.SavePosition(ctx, pos)
		})
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	err := s.View(ctx, func(tx storage.Tx) error {
		pos, err := tx.Position(ctx, pool.Address, alice)
		if err != nil {
			return err
		}
		if pos.Liquidity.Uint64() != 10 {
			t.Fatalf("expected liquidity 10, got %s", pos.Liquidity.Dec())
		}
		if pos.Address != model.PositionAddress(pool.Address, alice) {
			t.Fatalf("unexpected position address %s", pos.Address.Hex())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestTickNetsSorted(t *testing.T) {
	s := NewStore()
	pool := seed(t, s)
	ctx := context.Background()

	err := s.Update(ctx, func(tx storage.Tx) error {
		for _, tick := range []int32{100, -50, 0} {
			if err := tx.SaveTickNet(ctx, pool.Address, model.TickNet{Tick: tick, LiquidityNet: big.NewInt(int64(tick))}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	err = s.Update(ctx, func(tx storage.Tx) error {
		if err := tx.SaveTickNet(ctx, pool.Address, model.TickNet{Tick: 0, LiquidityNet: big.NewInt(9)}); err != nil {
			return err
		}
		nets, err := tx.TickNets(ctx, pool.Address)
		if err != nil {
			return err
		}
		want := []struct {
			tick int32
			net  int64
		}{{-50, -50}, {0, 9}, {100, 100}}
		if len(nets) != len(want) {
			t.Fatalf("expected %d nets, got %d", len(want), len(nets))
		}
		for i, w := range want {
			if nets[i].Tick != w.tick || nets[i].LiquidityNet.Int64() != w.net {
				t.Fatalf("net %d: expected (%d, %d), got (%d, %s)", i, w.tick, w.net, nets[i].Tick, nets[i].LiquidityNet)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestSnapshotPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cyklon.json")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	pool := seed(t, s)
	err = s.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Transfer(ctx, alice, pool.Address, mintA, 250); err != nil {
			return err
		}
		pos, err := tx.OpenPosition(ctx, pool.Address, alice)
		if err != nil {
			return err
		}
		pos.TickLower, pos.TickUpper = -10, 20
		pos.Liquidity.SetUint64(12345)
		if err := tx.SavePosition(ctx, pos); err != nil {
			return err
		}
		return tx.SaveTickNet(ctx, pool.Address, model.TickNet{Tick: 20, LiquidityNet: big.NewInt(-12345)})
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	err = reopened.View(ctx, func(tx storage.Tx) error {
		bal, err := tx.Balance(ctx, pool.Address, mintA)
		if err != nil {
			return err
		}
		if bal != 250 {
			t.Fatalf("expected pool balance 250, got %d", bal)
		}
		mint, err := tx.Mint(ctx, mintB)
		if err != nil {
			return err
		}
		if mint.Decimals != 9 {
			t.Fatalf("expected 9 decimals, got %d", mint.Decimals)
		}
		p, err := tx.Pool(ctx, pool.Address)
		if err != nil {
			return err
		}
		if p.SqrtPrice.Dec() != pool.SqrtPrice.Dec() || p.TickSpacing != 10 {
			t.Fatalf("pool mismatch: %+v", p)
		}
		pos, err := tx.Position(ctx, pool.Address, alice)
		if err != nil {
			return err
		}
		if pos.TickLower != -10 || pos.TickUpper != 20 || pos.Liquidity.Uint64() != 12345 {
			t.Fatalf("position mismatch: %+v", pos)
		}
		nets, err := tx.TickNets(ctx, pool.Address)
		if err != nil {
			return err
		}
		if len(nets) != 1 || nets[0].LiquidityNet.Int64() != -12345 {
			t.Fatalf("tick nets mismatch: %+v", nets)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestSnapshotNotWrittenOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cyklon.json")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seed(t, s)

	_ = s.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Credit(ctx, alice, mintA, 5); err != nil {
			return err
		}
		return errors.New("abort")
	})

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	err = reopened.View(ctx, func(tx storage.Tx) error {
		bal, err := tx.Balance(ctx, alice, mintA)
		if err != nil {
			return err
		}
		if bal != 1000 {
			t.Fatalf("expected balance 1000, got %d", bal)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}
