package storage

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"cyklon/internal/ledger"
	"cyklon/internal/model"
)

var (
	ErrPoolExists       = errors.New("pool already exists")
	ErrPoolNotFound     = errors.New("pool not found")
	ErrPositionNotFound = errors.New("position not found")
	ErrReadOnly         = errors.New("read-only transaction")
)

// Store owns every pool, position and balance record. Update runs fn as one
// serialized read-write transaction: if fn returns an error nothing it did is
// kept. View runs fn against a consistent snapshot and discards any writes.
type Store interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
	Close()
}

// Tx is the record and ledger surface available inside a transaction.
type Tx interface {
	ledger.Ledger

	// CreatePool inserts pool, failing with ErrPoolExists if its address is taken.
	CreatePool(ctx context.Context, pool *model.Pool) error
	// Pool loads a pool for modification.
	Pool(ctx context.Context, address common.Address) (*model.Pool, error)
	SavePool(ctx context.Context, pool *model.Pool) error

	// OpenPosition returns the (pool, owner) position, creating an empty one if absent.
	OpenPosition(ctx context.Context, pool, owner common.Address) (*model.Position, error)
	Position(ctx context.Context, pool, owner common.Address) (*model.Position, error)
	SavePosition(ctx context.Context, position *model.Position) error

	// TickNets returns the initialized ticks of pool in ascending tick order.
	TickNets(ctx context.Context, pool common.Address) ([]model.TickNet, error)
	SaveTickNet(ctx context.Context, pool common.Address, net model.TickNet) error
}
