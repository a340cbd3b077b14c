package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestInMemoryLedger_GenesisBlock(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	blocks, err := l.Blocks(ctx)
	if err != nil {
		t.Fatalf("blocks: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected genesis only, got %d blocks", len(blocks))
	}
	if blocks[0].Index != 1 || blocks[0].PrevHash != GenesisPrevHash {
		t.Fatalf("unexpected genesis block: %+v", blocks[0])
	}
	if err := l.Verify(ctx); err != nil {
		t.Fatalf("verify genesis: %v", err)
	}
}

func TestInMemoryLedger_AddPendingRejectsNonPositiveAmount(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	for _, amount := range []int64{0, -5} {
		if _, err := l.AddPending(ctx, "wallet:a", "wallet:b", amount); err != ErrInvalidAmount {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	pending, _ := l.Pending(ctx)
	if len(pending) != 0 {
		t.Fatalf("rejected transfers must not enter the pool, got %d", len(pending))
	}
}

func TestInMemoryLedger_CommitEmptyPoolIsNoop(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	blk, err := l.Commit(ctx)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if blk != nil {
		t.Fatalf("expected nil block for empty pool, got %+v", blk)
	}
}

func TestInMemoryLedger_CommitSealsWholePool(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	if _, err := l.AddPending(ctx, "wallet:a", "wallet:b", 400); err != nil {
		t.Fatalf("add pending: %v", err)
	}
	if pos, err := l.AddPending(ctx, "wallet:b", "wallet:c", 150); err != nil || pos != 2 {
		t.Fatalf("expected queue position 2, got %d (%v)", pos, err)
	}

	blk, err := l.Commit(ctx)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if blk == nil || len(blk.Transactions) != 2 {
		t.Fatalf("expected block with 2 transactions, got %+v", blk)
	}
	if blk.Index != 2 {
		t.Fatalf("expected index 2, got %d", blk.Index)
	}

	pending, _ := l.Pending(ctx)
	if len(pending) != 0 {
		t.Fatalf("pool not cleared after commit")
	}
	if err := l.Verify(ctx); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestInMemoryLedger_VerifyDetectsTampering(t *testing.T) {
	l := newInMemory(time.Now)
	ctx := context.Background()

	l.AddPending(ctx, "wallet:a", "wallet:b", 100)
	if _, err := l.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	l.AddPending(ctx, "wallet:b", "wallet:a", 50)
	if _, err := l.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := l.Verify(ctx); err != nil {
		t.Fatalf("verify before tamper: %v", err)
	}

	// Mutate a committed transfer behind the ledger's back.
	l.mu.Lock()
	l.blocks[1].Transactions[0].Amount = 1_000_000
	l.mu.Unlock()

	err := l.Verify(ctx)
	if err == nil {
		t.Fatalf("expected integrity violation after tamper")
	}
	if !errors.Is(err, ErrChainIntegrity) {
		t.Fatalf("expected ErrChainIntegrity, got %v", err)
	}
}

func TestInMemoryLedger_HashDeterministic(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	txs := []TransferRecord{{Sender: "a", Receiver: "b", Amount: 10, CreatedAt: ts}}

	h1 := ComputeHash(5, txs, ts, "prev")
	h2 := ComputeHash(5, txs, ts, "prev")
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %s vs %s", h1, h2)
	}
	if h3 := ComputeHash(5, txs, ts, "other"); h3 == h1 {
		t.Fatalf("hash ignores prev hash")
	}
}

func TestInMemoryLedger_ConcurrentAddAndCommit(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	const adders = 20

	var wg sync.WaitGroup
	for i := 0; i < adders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := l.AddPending(ctx, fmt.Sprintf("wallet:%d", i), "wallet:sink", 10); err != nil {
				t.Errorf("add pending %d: %v", i, err)
			}
			if _, err := l.Commit(ctx); err != nil {
				t.Errorf("commit %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	// Every transfer lands in exactly one block: none lost, none duplicated.
	blocks, _ := l.Blocks(ctx)
	total := 0
	for _, blk := range blocks {
		total += len(blk.Transactions)
	}
	if total != adders {
		t.Fatalf("expected %d committed transfers, got %d", adders, total)
	}
	pending, _ := l.Pending(ctx)
	if len(pending) != 0 {
		t.Fatalf("expected empty pool, got %d", len(pending))
	}
	if err := l.Verify(ctx); err != nil {
		t.Fatalf("verify: %v", err)
	}
}
