package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"cyklon/internal/ledger"
	"cyklon/internal/model"
	"cyklon/internal/storage"
)

// Store keeps every record in process memory. Transactions are serialized by
// a single writer lock and stage their writes until fn succeeds. When a
// snapshot path is set the committed state is written to disk before it
// becomes visible.
type Store struct {
	mu    sync.Mutex
	state *state
	path  string
}

// NewStore returns an empty, purely in-memory store.
func NewStore() *Store {
	return &Store{state: newState()}
}

// Open returns a store backed by the snapshot file at path, loading it if it
// exists.
func Open(path string) (*Store, error) {
	st, err := loadSnapshot(path)
	if err != nil {
		return nil, err
	}
	return &Store{state: st, path: path}, nil
}

func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	t := &tx{base: s.state, staged: newState()}
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.path == "" {
		s.state.apply(t.staged)
		return nil
	}

	next := s.state.clone()
	next.apply(t.staged)
	if err := writeSnapshot(s.path, next); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Store) View(ctx context.Context, fn func(storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&tx{base: s.state, staged: newState(), readOnly: true})
}

func (s *Store) Close() {}

type balanceKey struct {
	owner common.Address
	mint  common.Address
}

type state struct {
	pools     map[common.Address]*model.Pool
	positions map[common.Address]*model.Position
	ticks     map[common.Address]map[int32]*big.Int
	mints     map[common.Address]model.Mint
	balances  map[balanceKey]uint64
}

func newState() *state {
	return &state{
		pools:     make(map[common.Address]*model.Pool),
		positions: make(map[common.Address]*model.Position),
		ticks:     make(map[common.Address]map[int32]*big.Int),
		mints:     make(map[common.Address]model.Mint),
		balances:  make(map[balanceKey]uint64),
	}
}

func (s *state) clone() *state {
	out := newState()
	out.apply(s)
	return out
}

// apply copies every record of d over s.
func (s *state) apply(d *state) {
	for addr, pool := range d.pools {
		s.pools[addr] = pool.Clone()
	}
	for addr, pos := range d.positions {
		s.positions[addr] = pos.Clone()
	}
	for pool, nets := range d.ticks {
		dst := s.ticks[pool]
		if dst == nil {
			dst = make(map[int32]*big.Int, len(nets))
			s.ticks[pool] = dst
		}
		for tick, net := range nets {
			dst[tick] = new(big.Int).Set(net)
		}
	}
	for addr, mint := range d.mints {
		s.mints[addr] = mint
	}
	for key, amount := range d.balances {
		s.balances[key] = amount
	}
}

type tx struct {
	base     *state
	staged   *state
	readOnly bool
}

func (t *tx) writable() error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	return nil
}

func (t *tx) RegisterMint(_ context.Context, mint model.Mint) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.mint(mint.Address); ok {
		return ledger.ErrMintExists
	}
	t.staged.mints[mint.Address] = mint
	return nil
}

func (t *tx) Mint(_ context.Context, address common.Address) (model.Mint, error) {
	mint, ok := t.mint(address)
	if !ok {
		return model.Mint{}, ledger.ErrUnknownMint
	}
	return mint, nil
}

func (t *tx) Credit(_ context.Context, owner, mint common.Address, amount uint64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.mint(mint); !ok {
		return ledger.ErrUnknownMint
	}
	key := balanceKey{owner: owner, mint: mint}
	next, err := ledger.Accumulate(t.balance(key), amount)
	if err != nil {
		return err
	}
	t.staged.balances[key] = next
	return nil
}

func (t *tx) Balance(_ context.Context, owner, mint common.Address) (uint64, error) {
	if _, ok := t.mint(mint); !ok {
		return 0, ledger.ErrUnknownMint
	}
	return t.balance(balanceKey{owner: owner, mint: mint}), nil
}

func (t *tx) Transfer(_ context.Context, from, to, mint common.Address, amount uint64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.mint(mint); !ok {
		return ledger.ErrMintMismatch
	}

	fromKey := balanceKey{owner: from, mint: mint}
	remaining, err := ledger.Debit(t.balance(fromKey), amount)
	if err != nil {
		return err
	}
	t.staged.balances[fromKey] = remaining

	toKey := balanceKey{owner: to, mint: mint}
	credited, err := ledger.Accumulate(t.balance(toKey), amount)
	if err != nil {
		return err
	}
	t.staged.balances[toKey] = credited
	return nil
}

func (t *tx) CreatePool(_ context.Context, pool *model.Pool) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.pool(pool.Address); ok {
		return storage.ErrPoolExists
	}
	t.staged.pools[pool.Address] = pool.Clone()
	return nil
}

func (t *tx) Pool(_ context.Context, address common.Address) (*model.Pool, error) {
	pool, ok := t.pool(address)
	if !ok {
		return nil, storage.ErrPoolNotFound
	}
	return pool.Clone(), nil
}

func (t *tx) SavePool(_ context.Context, pool *model.Pool) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.pool(pool.Address); !ok {
		return storage.ErrPoolNotFound
	}
	t.staged.pools[pool.Address] = pool.Clone()
	return nil
}

func (t *tx) OpenPosition(_ context.Context, pool, owner common.Address) (*model.Position, error) {
	if err := t.writable(); err != nil {
		return nil, err
	}
	address := model.PositionAddress(pool, owner)
	if pos, ok := t.position(address); ok {
		return pos.Clone(), nil
	}
	pos := model.NewPosition(pool, owner)
	t.staged.positions[address] = pos.Clone()
	return pos, nil
}

func (t *tx) Position(_ context.Context, pool, owner common.Address) (*model.Position, error) {
	pos, ok := t.position(model.PositionAddress(pool, owner))
	if !ok {
		return nil, storage.ErrPositionNotFound
	}
	return pos.Clone(), nil
}

func (t *tx) SavePosition(_ context.Context, position *model.Position) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.staged.positions[position.Address] = position.Clone()
	return nil
}

func (t *tx) TickNets(_ context.Context, pool common.Address) ([]model.TickNet, error) {
	merged := make(map[int32]*big.Int)
	for tick, net := range t.base.ticks[pool] {
		merged[tick] = net
	}
	for tick, net := range t.staged.ticks[pool] {
		merged[tick] = net
	}

	out := make([]model.TickNet, 0, len(merged))
	for tick, net := range merged {
		out = append(out, model.TickNet{Tick: tick, LiquidityNet: new(big.Int).Set(net)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tick < out[j].Tick })
	return out, nil
}

func (t *tx) SaveTickNet(_ context.Context, pool common.Address, net model.TickNet) error {
	if err := t.writable(); err != nil {
		return err
	}
	nets := t.staged.ticks[pool]
	if nets == nil {
		nets = make(map[int32]*big.Int)
		t.staged.ticks[pool] = nets
	}
	nets[net.Tick] = new(big.Int).Set(net.LiquidityNet)
	return nil
}

func (t *tx) mint(address common.Address) (model.Mint, bool) {
	if mint, ok := t.staged.mints[address]; ok {
		return mint, true
	}
	mint, ok := t.base.mints[address]
	return mint, ok
}

func (t *tx) balance(key balanceKey) uint64 {
	if amount, ok := t.staged.balances[key]; ok {
		return amount
	}
	return t.base.balances[key]
}

func (t *tx) pool(address common.Address) (*model.Pool, bool) {
	if pool, ok := t.staged.pools[address]; ok {
		return pool, true
	}
	pool, ok := t.base.pools[address]
	return pool, ok
}

func (t *tx) position(address common.Address) (*model.Position, bool) {
	if pos, ok := t.staged.positions[address]; ok {
		return pos, true
	}
	pos, ok := t.base.positions[address]
	return pos, ok
}
