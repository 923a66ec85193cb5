package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"cyklon/internal/model"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrMintMismatch      = errors.New("mint mismatch")
	ErrBalanceOverflow   = errors.New("balance overflow")
	ErrUnknownMint       = errors.New("unknown mint")
	ErrMintExists        = errors.New("mint already registered")
)

// Ledger moves token balances between owners. Implementations run inside the
// caller's storage transaction, so a failed transfer leaves nothing behind.
type Ledger interface {
	RegisterMint(ctx context.Context, mint model.Mint) error
	Mint(ctx context.Context, mint common.Address) (model.Mint, error)
	Credit(ctx context.Context, owner, mint common.Address, amount uint64) error
	Balance(ctx context.Context, owner, mint common.Address) (uint64, error)
	Transfer(ctx context.Context, from, to, mint common.Address, amount uint64) error
}

// Debit subtracts amount from balance.
func Debit(balance, amount uint64) (uint64, error) {
	if amount > balance {
		return 0, ErrInsufficientFunds
	}
	return balance - amount, nil
}

// Accumulate adds amount to balance without wrapping.
func Accumulate(balance, amount uint64) (uint64, error) {
	sum := balance + amount
	if sum < balance {
		return 0, ErrBalanceOverflow
	}
	return sum, nil
}
