package pool

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"cyklon/internal/events"
	"cyklon/internal/liquiditymath"
	"cyklon/internal/model"
	"cyklon/internal/storage"
	"cyklon/internal/tickmath"
)

// DefaultTickSpacing is used when neither the request nor the config sets one.
const DefaultTickSpacing int32 = 1

// Config controls pool creation defaults and liquidity accounting.
type Config struct {
	Accounting         Accounting
	DefaultTickSpacing int32
	// DefaultSqrtPrice is the Q64.96 starting price; nil means 1.0 (tick 0).
	DefaultSqrtPrice *uint256.Int
}

// Service runs the pool workflows against a store. Every mutating call is a
// single store transaction; events are published only after it commits.
type Service struct {
	cfg    Config
	store  storage.Store
	sink   events.Sink
	logger *zap.Logger
}

func NewService(cfg Config, store storage.Store, sink events.Sink, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = events.NopSink{}
	}
	if cfg.Accounting == nil {
		cfg.Accounting = ScalarAccounting{}
	}
	if cfg.DefaultTickSpacing == 0 {
		cfg.DefaultTickSpacing = DefaultTickSpacing
	}
	if cfg.DefaultSqrtPrice == nil {
		cfg.DefaultSqrtPrice = tickmath.Q96.Clone()
	}
	return &Service{cfg: cfg, store: store, sink: sink, logger: logger}
}

// RegisterMint makes a token known to the ledger.
func (s *Service) RegisterMint(ctx context.Context, mint model.Mint) error {
	return s.store.Update(ctx, func(tx storage.Tx) error {
		return tx.RegisterMint(ctx, mint)
	})
}

// Deposit credits owner with amount of mint.
func (s *Service) Deposit(ctx context.Context, owner, mint common.Address, amount uint64) error {
	if owner == (common.Address{}) {
		return ErrUnauthenticated
	}
	return s.store.Update(ctx, func(tx storage.Tx) error {
		return tx.Credit(ctx, owner, mint, amount)
	})
}

// Mint returns a registered mint.
func (s *Service) Mint(ctx context.Context, address common.Address) (model.Mint, error) {
	var mint model.Mint
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		mint, err = tx.Mint(ctx, address)
		return err
	})
	return mint, err
}

func (s *Service) Balance(ctx context.Context, owner, mint common.Address) (uint64, error) {
	var balance uint64
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		balance, err = tx.Balance(ctx, owner, mint)
		return err
	})
	return balance, err
}

// InitializePool creates the pool for the ordered pair (Mint0, Mint1).
func (s *Service) InitializePool(ctx context.Context, req model.InitializePoolRequest) (*model.Pool, error) {
	if req.Payer == (common.Address{}) {
		return nil, ErrUnauthenticated
	}
	if req.Mint0 == req.Mint1 {
		return nil, ErrIdenticalMints
	}

	tickSpacing := req.TickSpacing
	if tickSpacing == 0 {
		tickSpacing = s.cfg.DefaultTickSpacing
	}
	if tickSpacing <= 0 {
		return nil, tickmath.ErrInvalidTickSpacing
	}
	sqrtPrice := req.SqrtPrice
	if sqrtPrice == nil {
		sqrtPrice = s.cfg.DefaultSqrtPrice
	}
	if !tickmath.ValidSqrtPrice(sqrtPrice) {
		return nil, tickmath.ErrSqrtPriceOutOfBounds
	}

	pool := &model.Pool{
		Address:     model.PoolAddress(req.Mint0, req.Mint1),
		Mint0:       req.Mint0,
		Mint1:       req.Mint1,
		SqrtPrice:   sqrtPrice.Clone(),
		TickSpacing: tickSpacing,
		Liquidity:   new(uint256.Int),
	}

	err := s.store.Update(ctx, func(tx storage.Tx) error {
		for _, mint := range []common.Address{req.Mint0, req.Mint1} {
			if _, err := tx.Mint(ctx, mint); err != nil {
				return fmt.Errorf("mint %s: %w", mint.Hex(), err)
			}
		}
		return tx.CreatePool(ctx, pool)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("pool initialized",
		zap.String("pool", pool.Address.Hex()),
		zap.String("mint0", pool.Mint0.Hex()),
		zap.String("mint1", pool.Mint1.Hex()),
		zap.Int32("tick_spacing", pool.TickSpacing),
		zap.String("sqrt_price", pool.SqrtPrice.Dec()),
	)
	return pool, nil
}

// AddLiquidity deposits the request amounts into the owner's position and
// returns the liquidity credited.
func (s *Service) AddLiquidity(ctx context.Context, req model.AddLiquidityRequest) (*uint256.Int, error) {
	if req.Owner == (common.Address{}) {
		return nil, ErrUnauthenticated
	}

	var liquidity *uint256.Int
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		pool, err := tx.Pool(ctx, req.Pool)
		if err != nil {
			return err
		}
		if err := tickmath.ValidateRange(req.TickLower, req.TickUpper, pool.TickSpacing); err != nil {
			return err
		}

		added, err := liquiditymath.ComputeLiquidity(req.Amount0, req.Amount1, req.TickLower, req.TickUpper, pool.SqrtPrice)
		if err != nil {
			return fmt.Errorf("compute liquidity: %w", err)
		}

		if err := tx.Transfer(ctx, req.Owner, pool.Address, pool.Mint0, req.Amount0); err != nil {
			return fmt.Errorf("transfer mint0: %w", err)
		}
		if err := tx.Transfer(ctx, req.Owner, pool.Address, pool.Mint1, req.Amount1); err != nil {
			return fmt.Errorf("transfer mint1: %w", err)
		}

		if err := s.cfg.Accounting.Apply(ctx, tx, pool, req.TickLower, req.TickUpper, added); err != nil {
			return err
		}
		if err := tx.SavePool(ctx, pool); err != nil {
			return fmt.Errorf("save pool: %w", err)
		}

		position, err := tx.OpenPosition(ctx, pool.Address, req.Owner)
		if err != nil {
			return fmt.Errorf("open position: %w", err)
		}
		total, err := liquiditymath.AddLiquidity(position.Liquidity, added)
		if err != nil {
			return fmt.Errorf("position liquidity: %w", err)
		}
		position.Owner = req.Owner
		position.TickLower = req.TickLower
		position.TickUpper = req.TickUpper
		position.Liquidity = total
		if err := tx.SavePosition(ctx, position); err != nil {
			return fmt.Errorf("save position: %w", err)
		}

		liquidity = added
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := model.LiquidityAdded{
		Pool:      req.Pool,
		Owner:     req.Owner,
		Amount0:   req.Amount0,
		Amount1:   req.Amount1,
		TickLower: req.TickLower,
		TickUpper: req.TickUpper,
		Liquidity: liquidity.Dec(),
	}
	if err := s.sink.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed",
			zap.String("pool", req.Pool.Hex()),
			zap.String("owner", req.Owner.Hex()),
			zap.Error(err),
		)
	}

	s.logger.Debug("liquidity added",
		zap.String("pool", req.Pool.Hex()),
		zap.String("owner", req.Owner.Hex()),
		zap.Int32("tick_lower", req.TickLower),
		zap.Int32("tick_upper", req.TickUpper),
		zap.String("liquidity", event.Liquidity),
	)
	return liquidity, nil
}

// Quote returns the liquidity AddLiquidity would credit right now without
// settling or saving anything.
func (s *Service) Quote(ctx context.Context, req model.QuoteRequest) (*uint256.Int, error) {
	var liquidity *uint256.Int
	err := s.store.View(ctx, func(tx storage.Tx) error {
		pool, err := tx.Pool(ctx, req.Pool)
		if err != nil {
			return err
		}
		if err := tickmath.ValidateRange(req.TickLower, req.TickUpper, pool.TickSpacing); err != nil {
			return err
		}
		liquidity, err = liquiditymath.ComputeLiquidity(req.Amount0, req.Amount1, req.TickLower, req.TickUpper, pool.SqrtPrice)
		return err
	})
	if err != nil {
		return nil, err
	}
	return liquidity, nil
}

func (s *Service) Pool(ctx context.Context, address common.Address) (*model.Pool, error) {
	var pool *model.Pool
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		pool, err = tx.Pool(ctx, address)
		return err
	})
	return pool, err
}

func (s *Service) Position(ctx context.Context, pool, owner common.Address) (*model.Position, error) {
	var position *model.Position
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		position, err = tx.Position(ctx, pool, owner)
		return err
	})
	return position, err
}

// TickNets lists the initialized ticks of pool.
func (s *Service) TickNets(ctx context.Context, pool common.Address) ([]model.TickNet, error) {
	var nets []model.TickNet
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		nets, err = tx.TickNets(ctx, pool)
		return err
	})
	return nets, err
}
