package wallet

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore_EnsureForOwnerIsLazyAndStable(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.EnsureForOwner(ctx, "user-1", KindCoin)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	again, err := s.EnsureForOwner(ctx, "user-1", KindCoin)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if first.ID != again.ID {
		t.Fatalf("expected same wallet on repeat ensure, got %s vs %s", first.ID, again.ID)
	}

	bank, err := s.EnsureForOwner(ctx, "user-1", KindBank)
	if err != nil {
		t.Fatalf("ensure bank: %v", err)
	}
	if bank.ID == first.ID {
		t.Fatalf("kinds must map to distinct wallets")
	}
}

func TestMemoryStore_DebitGuardsBalance(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	w, _ := s.EnsureForOwner(ctx, "user-1", KindBank)
	if _, err := s.Credit(ctx, w.ID, 100, "system:test"); err != nil {
		t.Fatalf("credit: %v", err)
	}

	if _, err := s.Debit(ctx, w.ID, 150, "system:test"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	balance, _ := s.Balance(ctx, w.ID)
	if balance != 100 {
		t.Fatalf("failed debit must not move balance, got %d", balance)
	}

	if _, err := s.Debit(ctx, w.ID, 0, "system:test"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestMemoryStore_ApplyTransferConservesTotal(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	from, _ := s.EnsureForOwner(ctx, "user-1", KindBank)
	to, _ := s.EnsureForOwner(ctx, "user-2", KindBank)
	s.Credit(ctx, from.ID, 1_000, "system:seed")

	res, err := s.ApplyTransfer(ctx, ApplyTransferInput{FromID: from.ID, ToID: to.ID, Amount: 400})
	if err != nil {
		t.Fatalf("apply transfer: %v", err)
	}
	if res.FromBalance != 600 || res.ToBalance != 400 {
		t.Fatalf("unexpected balances: %+v", res)
	}
	if res.FromBalance+res.ToBalance != 1_000 {
		t.Fatalf("total not conserved")
	}

	fromHist, _ := s.History(ctx, from.ID)
	toHist, _ := s.History(ctx, to.ID)
	if len(fromHist) != 2 || len(toHist) != 1 {
		t.Fatalf("expected history entries on both wallets, got %d/%d", len(fromHist), len(toHist))
	}
	if fromHist[1].Direction != DirectionDebit || toHist[0].Direction != DirectionCredit {
		t.Fatalf("history directions wrong: %+v %+v", fromHist[1], toHist[0])
	}
}

func TestMemoryStore_ApplyTransferInsufficientIsAtomic(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	from, _ := s.EnsureForOwner(ctx, "user-1", KindBank)
	to, _ := s.EnsureForOwner(ctx, "user-2", KindBank)
	s.Credit(ctx, from.ID, 50, "system:seed")

	if _, err := s.ApplyTransfer(ctx, ApplyTransferInput{FromID: from.ID, ToID: to.ID, Amount: 80}); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	fromBal, _ := s.Balance(ctx, from.ID)
	toBal, _ := s.Balance(ctx, to.ID)
	if fromBal != 50 || toBal != 0 {
		t.Fatalf("failed transfer must leave state untouched: %d/%d", fromBal, toBal)
	}
	toHist, _ := s.History(ctx, to.ID)
	if len(toHist) != 0 {
		t.Fatalf("no history entries expected on failure")
	}
}

func TestMemoryStore_StampReceipt(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	from, _ := s.EnsureForOwner(ctx, "user-1", KindBank)
	to, _ := s.EnsureForOwner(ctx, "user-2", KindBank)
	s.Credit(ctx, from.ID, 500, "system:seed")

	res, err := s.ApplyTransfer(ctx, ApplyTransferInput{FromID: from.ID, ToID: to.ID, Amount: 100})
	if err != nil {
		t.Fatalf("apply transfer: %v", err)
	}
	if err := s.StampReceipt(ctx, []string{res.FromEntryID, res.ToEntryID}, "deadbeef"); err != nil {
		t.Fatalf("stamp receipt: %v", err)
	}

	toHist, _ := s.History(ctx, to.ID)
	if toHist[0].BlockHash != "deadbeef" {
		t.Fatalf("expected receipt hash on credit entry, got %q", toHist[0].BlockHash)
	}
}
