package chain

import (
	"context"
	"sync"
	"time"
)

type memoryLedger struct {
	mu      sync.Mutex
	blocks  []Block
	pending []TransferRecord
	now     func() time.Time
}

// NewInMemory creates a concurrency-safe in-memory ledger seeded with a
// genesis block. Used by tests and dev mode.
func NewInMemory() Ledger {
	return newInMemory(time.Now)
}

// NewInMemoryWithClock is like NewInMemory but with an injected time source
// so block timestamps are reproducible in tests.
func NewInMemoryWithClock(now func() time.Time) Ledger {
	return newInMemory(now)
}

func newInMemory(now func() time.Time) *memoryLedger {
	return &memoryLedger{
		blocks: []Block{NewGenesisBlock(now())},
		now:    now,
	}
}

func (l *memoryLedger) AddPending(_ context.Context, sender, receiver string, amount int64) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending = append(l.pending, TransferRecord{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		CreatedAt: l.now().UTC(),
	})
	return len(l.pending), nil
}

func (l *memoryLedger) Commit(_ context.Context) (*Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return nil, nil
	}

	tail := l.blocks[len(l.blocks)-1]
	blk := Block{
		Index:        tail.Index + 1,
		Transactions: l.pending,
		Timestamp:    l.now().UTC(),
		PrevHash:     tail.Hash,
	}
	blk.Hash = ComputeHash(blk.Index, blk.Transactions, blk.Timestamp, blk.PrevHash)

	l.blocks = append(l.blocks, blk)
	l.pending = nil

	out := blk
	return &out, nil
}

func (l *memoryLedger) Verify(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return VerifyBlocks(l.blocks)
}

func (l *memoryLedger) Blocks(_ context.Context) ([]Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Block, len(l.blocks))
	copy(out, l.blocks)
	return out, nil
}

func (l *memoryLedger) Pending(_ context.Context) ([]TransferRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TransferRecord, len(l.pending))
	copy(out, l.pending)
	return out, nil
}
