package wallet

import (
	"context"
	"errors"
)

var (
	// ErrInvalidAmount occurs when a mutation carries a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrNotFound occurs when a wallet reference does not resolve.
	ErrNotFound = errors.New("wallet not found")

	// ErrInsufficientBalance occurs when a debit would drive a balance negative.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrConflict indicates the backing store detected a conflicting
	// concurrent write. Callers may retry a bounded number of times.
	ErrConflict = errors.New("concurrent write conflict")
)

// ApplyTransferInput describes a two-wallet posting applied as one atomic
// action: debit of the source, credit of the destination, and both history
// entries.
type ApplyTransferInput struct {
	FromID string
	ToID   string
	Amount int64
}

// ApplyTransferResult reports the posting outcome. The entry IDs allow the
// caller to stamp a chain receipt once the transfer is sealed.
type ApplyTransferResult struct {
	FromBalance int64
	ToBalance   int64
	FromEntryID string
	ToEntryID   string
}

// Store owns wallet balances and their transaction histories. Every mutation
// is all-or-nothing; Debit and ApplyTransfer re-validate funds regardless of
// what the caller already checked.
type Store interface {
	Get(ctx context.Context, id string) (Wallet, error)
	// EnsureForOwner returns the owner's wallet of the given kind, creating
	// it with a zero balance on first reference.
	EnsureForOwner(ctx context.Context, ownerID string, kind Kind) (Wallet, error)
	Balance(ctx context.Context, id string) (int64, error)
	// Credit adds a system-issued amount (reward payout, bank deposit) and
	// appends a history entry. Returns the new balance.
	Credit(ctx context.Context, id string, amount int64, counterparty string) (int64, error)
	// Debit removes an amount, failing with ErrInsufficientBalance rather
	// than going negative. Returns the new balance.
	Debit(ctx context.Context, id string, amount int64, counterparty string) (int64, error)
	// ApplyTransfer debits one wallet, credits the other and appends the two
	// matching history entries atomically.
	ApplyTransfer(ctx context.Context, input ApplyTransferInput) (ApplyTransferResult, error)
	// StampReceipt attaches a committed block hash to previously written
	// history entries. Best-effort bookkeeping, not balance-bearing.
	StampReceipt(ctx context.Context, entryIDs []string, blockHash string) error
	History(ctx context.Context, id string) ([]HistoryEntry, error)
}
