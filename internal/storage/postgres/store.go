package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cyklon/internal/ledger"
	"cyklon/internal/model"
	"cyklon/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS mints (
	address    text PRIMARY KEY,
	decimals   smallint NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS balances (
	owner      text NOT NULL,
	mint       text NOT NULL REFERENCES mints (address),
	amount     numeric(20,0) NOT NULL DEFAULT 0,
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (owner, mint)
);

CREATE TABLE IF NOT EXISTS pools (
	address      text PRIMARY KEY,
	mint0        text NOT NULL REFERENCES mints (address),
	mint1        text NOT NULL REFERENCES mints (address),
	sqrt_price   numeric(49,0) NOT NULL,
	tick_spacing integer NOT NULL,
	liquidity    numeric(39,0) NOT NULL DEFAULT 0,
	created_at   timestamptz NOT NULL DEFAULT now(),
	updated_at   timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS positions (
	address    text PRIMARY KEY,
	pool       text NOT NULL REFERENCES pools (address),
	owner      text NOT NULL,
	tick_lower integer NOT NULL DEFAULT 0,
	tick_upper integer NOT NULL DEFAULT 0,
	liquidity  numeric(39,0) NOT NULL DEFAULT 0,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (pool, owner)
);

CREATE TABLE IF NOT EXISTS pool_ticks (
	pool          text NOT NULL REFERENCES pools (address),
	tick          integer NOT NULL,
	liquidity_net numeric(40,0) NOT NULL,
	updated_at    timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (pool, tick)
);
`

// Store keeps pools, positions and ledger balances in Postgres. Each Update
// runs in one database transaction and locks the rows it reads for update.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	err = retry.Do(
		func() error { return pool.Ping(ctx) },
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates any missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(t pgx.Tx) error {
		return fn(&tx{tx: t})
	})
}

func (s *Store) View(ctx context.Context, fn func(storage.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(t pgx.Tx) error {
		return fn(&tx{tx: t, readOnly: true})
	})
}

type tx struct {
	tx       pgx.Tx
	readOnly bool
}

func (t *tx) writable() error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	return nil
}

// lockClause makes reads inside Update hold their rows until commit.
func (t *tx) lockClause() string {
	if t.readOnly {
		return ""
	}
	return " FOR UPDATE"
}

func (t *tx) RegisterMint(ctx context.Context, mint model.Mint) error {
	if err := t.writable(); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO mints (address, decimals) VALUES ($1, $2)
		ON CONFLICT (address) DO NOTHING
	`, mint.Address.Hex(), int16(mint.Decimals))
	if err != nil {
		return fmt.Errorf("insert mint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrMintExists
	}
	return nil
}

func (t *tx) Mint(ctx context.Context, address common.Address) (model.Mint, error) {
	var decimals int16
	row := t.tx.QueryRow(ctx, `SELECT decimals FROM mints WHERE address=$1`, address.Hex())
	if err := row.Scan(&decimals); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Mint{}, ledger.ErrUnknownMint
		}
		return model.Mint{}, fmt.Errorf("select mint: %w", err)
	}
	return model.Mint{Address: address, Decimals: uint8(decimals)}, nil
}

func (t *tx) Credit(ctx context.Context, owner, mint common.Address, amount uint64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Mint(ctx, mint); err != nil {
		return err
	}
	balance, err := t.lockBalance(ctx, owner, mint)
	if err != nil {
		return err
	}
	next, err := ledger.Accumulate(balance, amount)
	if err != nil {
		return err
	}
	return t.setBalance(ctx, owner, mint, next)
}

func (t *tx) Balance(ctx context.Context, owner, mint common.Address) (uint64, error) {
	if _, err := t.Mint(ctx, mint); err != nil {
		return 0, err
	}
	var amount string
	row := t.tx.QueryRow(ctx, `SELECT amount::text FROM balances WHERE owner=$1 AND mint=$2`, owner.Hex(), mint.Hex())
	if err := row.Scan(&amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("select balance: %w", err)
	}
	return parseAmount(amount)
}

func (t *tx) Transfer(ctx context.Context, from, to, mint common.Address, amount uint64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Mint(ctx, mint); err != nil {
		if errors.Is(err, ledger.ErrUnknownMint) {
			return ledger.ErrMintMismatch
		}
		return err
	}

	fromBalance, err := t.lockBalance(ctx, from, mint)
	if err != nil {
		return err
	}
	remaining, err := ledger.Debit(fromBalance, amount)
	if err != nil {
		return err
	}
	if err := t.setBalance(ctx, from, mint, remaining); err != nil {
		return err
	}

	toBalance, err := t.lockBalance(ctx, to, mint)
	if err != nil {
		return err
	}
	credited, err := ledger.Accumulate(toBalance, amount)
	if err != nil {
		return err
	}
	return t.setBalance(ctx, to, mint, credited)
}

// lockBalance makes sure the balance row exists and locks it for the rest of
// the transaction.
func (t *tx) lockBalance(ctx context.Context, owner, mint common.Address) (uint64, error) {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO balances (owner, mint, amount) VALUES ($1, $2, 0)
		ON CONFLICT (owner, mint) DO NOTHING
	`, owner.Hex(), mint.Hex())
	if err != nil {
		return 0, fmt.Errorf("insert balance: %w", err)
	}

	var amount string
	row := t.tx.QueryRow(ctx, `
		SELECT amount::text FROM balances WHERE owner=$1 AND mint=$2 FOR UPDATE
	`, owner.Hex(), mint.Hex())
	if err := row.Scan(&amount); err != nil {
		return 0, fmt.Errorf("lock balance: %w", err)
	}
	return parseAmount(amount)
}

func (t *tx) setBalance(ctx context.Context, owner, mint common.Address, amount uint64) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE balances SET amount=$3::numeric, updated_at=now() WHERE owner=$1 AND mint=$2
	`, owner.Hex(), mint.Hex(), strconv.FormatUint(amount, 10))
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}

func (t *tx) CreatePool(ctx context.Context, pool *model.Pool) error {
	if err := t.writable(); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO pools (address, mint0, mint1, sqrt_price, tick_spacing, liquidity)
		VALUES ($1, $2, $3, $4::numeric, $5, $6::numeric)
		ON CONFLICT (address) DO NOTHING
	`,
		pool.Address.Hex(),
		pool.Mint0.Hex(),
		pool.Mint1.Hex(),
		decimal(pool.SqrtPrice),
		pool.TickSpacing,
		decimal(pool.Liquidity),
	)
	if err != nil {
		return fmt.Errorf("insert pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrPoolExists
	}
	return nil
}

func (t *tx) Pool(ctx context.Context, address common.Address) (*model.Pool, error) {
	var (
		mint0, mint1         string
		sqrtPrice, liquidity string
		tickSpacing          int32
	)
	row := t.tx.QueryRow(ctx, `
		SELECT mint0, mint1, sqrt_price::text, tick_spacing, liquidity::text
		FROM pools WHERE address=$1`+t.lockClause(), address.Hex())
	if err := row.Scan(&mint0, &mint1, &sqrtPrice, &tickSpacing, &liquidity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrPoolNotFound
		}
		return nil, fmt.Errorf("select pool: %w", err)
	}

	price, err := uint256.FromDecimal(sqrtPrice)
	if err != nil {
		return nil, fmt.Errorf("parse sqrt price: %w", err)
	}
	liq, err := uint256.FromDecimal(liquidity)
	if err != nil {
		return nil, fmt.Errorf("parse liquidity: %w", err)
	}
	return &model.Pool{
		Address:     address,
		Mint0:       common.HexToAddress(mint0),
		Mint1:       common.HexToAddress(mint1),
		SqrtPrice:   price,
		TickSpacing: tickSpacing,
		Liquidity:   liq,
	}, nil
}

func (t *tx) SavePool(ctx context.Context, pool *model.Pool) error {
	if err := t.writable(); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE pools SET sqrt_price=$2::numeric, liquidity=$3::numeric, updated_at=now()
		WHERE address=$1
	`, pool.Address.Hex(), decimal(pool.SqrtPrice), decimal(pool.Liquidity))
	if err != nil {
		return fmt.Errorf("update pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrPoolNotFound
	}
	return nil
}

func (t *tx) OpenPosition(ctx context.Context, pool, owner common.Address) (*model.Position, error) {
	if err := t.writable(); err != nil {
		return nil, err
	}
	address := model.PositionAddress(pool, owner)
	_, err := t.tx.Exec(ctx, `
		INSERT INTO positions (address, pool, owner) VALUES ($1, $2, $3)
		ON CONFLICT (address) DO NOTHING
	`, address.Hex(), pool.Hex(), owner.Hex())
	if err != nil {
		return nil, fmt.Errorf("insert position: %w", err)
	}
	return t.Position(ctx, pool, owner)
}

func (t *tx) Position(ctx context.Context, pool, owner common.Address) (*model.Position, error) {
	var (
		tickLower, tickUpper int32
		liquidity            string
	)
	address := model.PositionAddress(pool, owner)
	row := t.tx.QueryRow(ctx, `
		SELECT tick_lower, tick_upper, liquidity::text
		FROM positions WHERE address=$1`+t.lockClause(), address.Hex())
	if err := row.Scan(&tickLower, &tickUpper, &liquidity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrPositionNotFound
		}
		return nil, fmt.Errorf("select position: %w", err)
	}
	liq, err := uint256.FromDecimal(liquidity)
	if err != nil {
		return nil, fmt.Errorf("parse liquidity: %w", err)
	}
	pos := model.NewPosition(pool, owner)
	pos.TickLower = tickLower
	pos.TickUpper = tickUpper
	pos.Liquidity = liq
	return pos, nil
}

func (t *tx) SavePosition(ctx context.Context, position *model.Position) error {
	if err := t.writable(); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO positions (address, pool, owner, tick_lower, tick_upper, liquidity)
		VALUES ($1, $2, $3, $4, $5, $6::numeric)
		ON CONFLICT (address) DO UPDATE SET
			tick_lower = EXCLUDED.tick_lower,
			tick_upper = EXCLUDED.tick_upper,
			liquidity = EXCLUDED.liquidity,
			updated_at = now()
	`,
		position.Address.Hex(),
		position.Pool.Hex(),
		position.Owner.Hex(),
		position.TickLower,
		position.TickUpper,
		decimal(position.Liquidity),
	)
	if err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}
	return nil
}

func (t *tx) TickNets(ctx context.Context, pool common.Address) ([]model.TickNet, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT tick, liquidity_net::text FROM pool_ticks WHERE pool=$1 ORDER BY tick
	`, pool.Hex())
	if err != nil {
		return nil, fmt.Errorf("select ticks: %w", err)
	}
	defer rows.Close()

	var out []model.TickNet
	for rows.Next() {
		var (
			tick int32
			net  string
		)
		if err := rows.Scan(&tick, &net); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		value, ok := new(big.Int).SetString(net, 10)
		if !ok {
			return nil, fmt.Errorf("parse tick %d liquidity net: %q", tick, net)
		}
		out = append(out, model.TickNet{Tick: tick, LiquidityNet: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticks: %w", err)
	}
	return out, nil
}

func (t *tx) SaveTickNet(ctx context.Context, pool common.Address, net model.TickNet) error {
	if err := t.writable(); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO pool_ticks (pool, tick, liquidity_net) VALUES ($1, $2, $3::numeric)
		ON CONFLICT (pool, tick) DO UPDATE SET
			liquidity_net = EXCLUDED.liquidity_net,
			updated_at = now()
	`, pool.Hex(), net.Tick, net.LiquidityNet.String())
	if err != nil {
		return fmt.Errorf("upsert tick: %w", err)
	}
	return nil
}

func decimal(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func parseAmount(value string) (uint64, error) {
	amount, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return amount, nil
}
