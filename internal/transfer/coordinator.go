package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zawadi-pay/zawadi_pay/internal/chain"
	"github.com/zawadi-pay/zawadi_pay/internal/notification"
	"github.com/zawadi-pay/zawadi_pay/internal/wallet"
)

var (
	// ErrNotOwner indicates the caller does not own the source wallet.
	ErrNotOwner = errors.New("not owner of source wallet")

	// ErrSameWallet rejects transfers where source and destination match.
	ErrSameWallet = errors.New("source and destination wallet are the same")
)

// conflictRetries bounds how often a conflicting concurrent write is retried
// before ErrConflict surfaces to the caller.
const conflictRetries = 3

// Coordinator orchestrates a single transfer: it is the only component that
// mutates two wallets at a time, and it couples every balance change to a
// committed chain block.
type Coordinator struct {
	wallets  wallet.Store
	ledger   chain.Ledger
	sink     Sink
	notifier notification.Notifier
	logger   *slog.Logger

	locks pairLocks
}

// NewCoordinator builds a transfer coordinator.
func NewCoordinator(wallets wallet.Store, ledger chain.Ledger, sink Sink, notifier notification.Notifier, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		wallets:  wallets,
		ledger:   ledger,
		sink:     sink,
		notifier: notifier,
		logger:   logger,
		locks:    pairLocks{locks: make(map[string]*sync.Mutex)},
	}
}

// Input captures the data needed to move funds between wallets.
type Input struct {
	FromWalletID    string
	ToWalletID      string
	Amount          int64
	RequestorUserID string
}

// Result describes the outcome of a completed transfer. TxHash is the hash of
// the block that sealed it, usable as a receipt.
type Result struct {
	FromBalance int64
	ToBalance   int64
	TxHash      string
	CompletedAt time.Time
}

// Transfer debits the source wallet, credits the destination and seals the
// fact into the chain as one logical unit. Any failure leaves both wallets
// and the chain exactly as they were.
func (c *Coordinator) Transfer(ctx context.Context, input Input) (Result, error) {
	if input.Amount <= 0 {
		return Result{}, wallet.ErrInvalidAmount
	}
	if input.FromWalletID == input.ToWalletID {
		return Result{}, ErrSameWallet
	}

	from, err := c.wallets.Get(ctx, input.FromWalletID)
	if err != nil {
		return Result{}, err
	}
	if input.RequestorUserID != "" && from.OwnerID != input.RequestorUserID {
		return Result{}, ErrNotOwner
	}
	to, err := c.wallets.Get(ctx, input.ToWalletID)
	if err != nil {
		return Result{}, err
	}

	// Serialize transfers touching this wallet pair. Lock order is by sorted
	// wallet id, so overlapping pairs cannot deadlock.
	unlock := c.locks.lockPair(from.ID, to.ID)
	defer unlock()

	// Funds are re-checked under the lock; a pre-lock read would be stale.
	balance, err := c.wallets.Balance(ctx, from.ID)
	if err != nil {
		return Result{}, err
	}
	if balance < input.Amount {
		return Result{}, wallet.ErrInsufficientBalance
	}

	applied, err := c.applyWithRetry(ctx, wallet.ApplyTransferInput{
		FromID: from.ID,
		ToID:   to.ID,
		Amount: input.Amount,
	})
	if err != nil {
		return Result{}, err
	}

	blk, err := c.commitToChain(ctx, from.ID, to.ID, input.Amount)
	if err != nil {
		// The wallet posting went through but the chain did not: reverse it
		// while the pair lock still excludes other transfers.
		if _, revErr := c.wallets.ApplyTransfer(ctx, wallet.ApplyTransferInput{
			FromID: to.ID,
			ToID:   from.ID,
			Amount: input.Amount,
		}); revErr != nil {
			c.logger.Error("transfer reversal failed", "from", from.ID, "to", to.ID, "error", revErr)
		}
		return Result{}, fmt.Errorf("seal transfer: %w", err)
	}

	if err := c.wallets.StampReceipt(ctx, []string{applied.FromEntryID, applied.ToEntryID}, blk.Hash); err != nil {
		c.logger.Warn("stamp receipt failed", "block", blk.Hash, "error", err)
	}

	now := time.Now().UTC()
	c.emit(ctx, Completed{
		SenderOwnerID:  from.OwnerID,
		SenderWalletID: from.ID,
		ReceiverWallet: to.ID,
		Amount:         input.Amount,
		Timestamp:      now,
	})
	if c.notifier != nil {
		_ = c.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: to.OwnerID,
			Body:        fmt.Sprintf("You received %d from wallet %s", input.Amount, from.ID),
		})
	}

	return Result{
		FromBalance: applied.FromBalance,
		ToBalance:   applied.ToBalance,
		TxHash:      blk.Hash,
		CompletedAt: now,
	}, nil
}

func (c *Coordinator) applyWithRetry(ctx context.Context, input wallet.ApplyTransferInput) (wallet.ApplyTransferResult, error) {
	var lastErr error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		res, err := c.wallets.ApplyTransfer(ctx, input)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, wallet.ErrConflict) {
			return wallet.ApplyTransferResult{}, err
		}
		lastErr = err
	}
	return wallet.ApplyTransferResult{}, lastErr
}

func (c *Coordinator) commitToChain(ctx context.Context, fromID, toID string, amount int64) (*chain.Block, error) {
	if _, err := c.ledger.AddPending(ctx, fromID, toID, amount); err != nil {
		return nil, err
	}
	blk, err := c.ledger.Commit(ctx)
	if err != nil {
		return nil, err
	}
	if blk == nil {
		// Another commit raced us and sealed our pending record. Walk the
		// chain backwards for the block that actually holds it; the tail may
		// already belong to a later transfer.
		blocks, err := c.ledger.Blocks(ctx)
		if err != nil {
			return nil, err
		}
		for i := len(blocks) - 1; i >= 0; i-- {
			for _, tx := range blocks[i].Transactions {
				if tx.Sender == fromID && tx.Receiver == toID && tx.Amount == amount {
					return &blocks[i], nil
				}
			}
		}
		return nil, fmt.Errorf("sealed transfer not found in chain")
	}
	return blk, nil
}

func (c *Coordinator) emit(ctx context.Context, evt Completed) {
	if c.sink == nil {
		return
	}
	if err := c.sink.TransferCompleted(ctx, evt); err != nil {
		c.logger.Warn("transfer event delivery failed", "sender", evt.SenderOwnerID, "error", err)
	}
}

// pairLocks hands out one mutex per wallet id and acquires pairs in sorted
// order.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (p *pairLocks) lockPair(a, b string) func() {
	if b < a {
		a, b = b, a
	}
	first := p.get(a)
	second := p.get(b)

	first.Lock()
	if second != first {
		second.Lock()
	}
	return func() {
		if second != first {
			second.Unlock()
		}
		first.Unlock()
	}
}

func (p *pairLocks) get(id string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.locks[id]; ok {
		return m
	}
	m := &sync.Mutex{}
	p.locks[id] = m
	return m
}
