package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/zawadi-pay/zawadi_pay/internal/chain"
	"github.com/zawadi-pay/zawadi_pay/internal/logging"
	"github.com/zawadi-pay/zawadi_pay/internal/notification"
	"github.com/zawadi-pay/zawadi_pay/internal/wallet"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Completed
}

func (s *recordingSink) TransferCompleted(_ context.Context, evt Completed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

type testNotifier struct {
	mu   sync.Mutex
	last notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = msg
	return nil
}

func newTestCoordinator(t *testing.T) (*Coordinator, wallet.Store, chain.Ledger, *recordingSink, *testNotifier) {
	t.Helper()
	store := wallet.NewMemoryStore()
	ledger := chain.NewInMemory()
	sink := &recordingSink{}
	notifier := &testNotifier{}
	coord := NewCoordinator(store, ledger, sink, notifier, logging.Discard())
	return coord, store, ledger, sink, notifier
}

func seedWallet(t *testing.T, store wallet.Store, owner string, kind wallet.Kind, amount int64) wallet.Wallet {
	t.Helper()
	ctx := context.Background()
	w, err := store.EnsureForOwner(ctx, owner, kind)
	if err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}
	if amount > 0 {
		if _, err := store.Credit(ctx, w.ID, amount, "system:seed"); err != nil {
			t.Fatalf("seed wallet: %v", err)
		}
	}
	return w
}

func TestTransferSuccessCommitsOneBlock(t *testing.T) {
	coord, store, ledger, sink, notifier := newTestCoordinator(t)
	ctx := context.Background()

	from := seedWallet(t, store, "alice", wallet.KindBank, 100)
	to := seedWallet(t, store, "bob", wallet.KindBank, 0)

	res, err := coord.Transfer(ctx, Input{FromWalletID: from.ID, ToWalletID: to.ID, Amount: 40, RequestorUserID: "alice"})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.FromBalance != 60 || res.ToBalance != 40 {
		t.Fatalf("unexpected balances: %+v", res)
	}
	if res.TxHash == "" {
		t.Fatalf("expected a block hash receipt")
	}

	blocks, _ := ledger.Blocks(ctx)
	if len(blocks) != 2 {
		t.Fatalf("expected genesis + 1 block, got %d", len(blocks))
	}
	sealed := blocks[1]
	if len(sealed.Transactions) != 1 || sealed.Transactions[0].Amount != 40 {
		t.Fatalf("block must contain exactly the transfer: %+v", sealed.Transactions)
	}
	if sealed.Hash != res.TxHash {
		t.Fatalf("receipt hash mismatch")
	}
	if err := ledger.Verify(ctx); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if len(sink.events) != 1 || sink.events[0].SenderOwnerID != "alice" || sink.events[0].Amount != 40 {
		t.Fatalf("expected completed event for alice, got %+v", sink.events)
	}
	if notifier.last.Kind != notification.KindTransferReceived || notifier.last.Destination != "bob" {
		t.Fatalf("expected receiver notification, got %+v", notifier.last)
	}

	// Receipt stamped onto both histories.
	fromHist, _ := store.History(ctx, from.ID)
	if fromHist[len(fromHist)-1].BlockHash != res.TxHash {
		t.Fatalf("debit entry missing receipt hash")
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	coord, store, ledger, sink, _ := newTestCoordinator(t)
	ctx := context.Background()

	from := seedWallet(t, store, "alice", wallet.KindBank, 30)
	to := seedWallet(t, store, "bob", wallet.KindBank, 0)

	_, err := coord.Transfer(ctx, Input{FromWalletID: from.ID, ToWalletID: to.ID, Amount: 50})
	if !errors.Is(err, wallet.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// No partial effects anywhere.
	fromBal, _ := store.Balance(ctx, from.ID)
	toBal, _ := store.Balance(ctx, to.ID)
	if fromBal != 30 || toBal != 0 {
		t.Fatalf("balances moved on failed transfer: %d/%d", fromBal, toBal)
	}
	blocks, _ := ledger.Blocks(ctx)
	if len(blocks) != 1 {
		t.Fatalf("no block expected, got %d", len(blocks))
	}
	pending, _ := ledger.Pending(ctx)
	if len(pending) != 0 {
		t.Fatalf("no pending record expected, got %d", len(pending))
	}
	if len(sink.events) != 0 {
		t.Fatalf("no event expected on failure")
	}
}

func TestTransferValidation(t *testing.T) {
	coord, store, _, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	from := seedWallet(t, store, "alice", wallet.KindBank, 100)
	to := seedWallet(t, store, "bob", wallet.KindBank, 0)

	if _, err := coord.Transfer(ctx, Input{FromWalletID: from.ID, ToWalletID: to.ID, Amount: 0}); !errors.Is(err, wallet.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := coord.Transfer(ctx, Input{FromWalletID: from.ID, ToWalletID: from.ID, Amount: 10}); !errors.Is(err, ErrSameWallet) {
		t.Fatalf("expected ErrSameWallet, got %v", err)
	}
	if _, err := coord.Transfer(ctx, Input{FromWalletID: "missing", ToWalletID: to.ID, Amount: 10}); !errors.Is(err, wallet.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := coord.Transfer(ctx, Input{FromWalletID: from.ID, ToWalletID: to.ID, Amount: 10, RequestorUserID: "mallory"}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

// faultyLedger fails a configured number of commits before delegating.
type faultyLedger struct {
	chain.Ledger
	failCommits int
}

func (l *faultyLedger) Commit(ctx context.Context) (*chain.Block, error) {
	if l.failCommits > 0 {
		l.failCommits--
		return nil, errors.New("chain unavailable")
	}
	return l.Ledger.Commit(ctx)
}

func TestTransferChainFailureCompensatesWallets(t *testing.T) {
	store := wallet.NewMemoryStore()
	ledger := &faultyLedger{Ledger: chain.NewInMemory(), failCommits: 1}
	sink := &recordingSink{}
	coord := NewCoordinator(store, ledger, sink, nil, logging.Discard())
	ctx := context.Background()

	from := seedWallet(t, store, "alice", wallet.KindBank, 100)
	to := seedWallet(t, store, "bob", wallet.KindBank, 0)

	if _, err := coord.Transfer(ctx, Input{FromWalletID: from.ID, ToWalletID: to.ID, Amount: 40}); err == nil {
		t.Fatalf("expected transfer to fail while the chain is down")
	}

	// The wallet posting is reversed, no block is sealed and no event leaks.
	fromBal, _ := store.Balance(ctx, from.ID)
	toBal, _ := store.Balance(ctx, to.ID)
	if fromBal != 100 || toBal != 0 {
		t.Fatalf("balances not restored after chain failure: %d/%d", fromBal, toBal)
	}
	blocks, _ := ledger.Blocks(ctx)
	if len(blocks) != 1 {
		t.Fatalf("expected genesis only, got %d blocks", len(blocks))
	}
	if len(sink.events) != 0 {
		t.Fatalf("no event expected on failed transfer, got %+v", sink.events)
	}

	// With the chain back, the same transfer goes through.
	res, err := coord.Transfer(ctx, Input{FromWalletID: from.ID, ToWalletID: to.ID, Amount: 40})
	if err != nil {
		t.Fatalf("retry transfer: %v", err)
	}
	if res.FromBalance != 60 || res.ToBalance != 40 {
		t.Fatalf("unexpected balances after retry: %+v", res)
	}
}

// racedLedger simulates a concurrent committer: the first Commit seals the
// caller's pending record itself, lets a later transfer land on top, and then
// reports an empty pool.
type racedLedger struct {
	chain.Ledger
	raced bool
}

func (l *racedLedger) Commit(ctx context.Context) (*chain.Block, error) {
	if l.raced {
		return l.Ledger.Commit(ctx)
	}
	l.raced = true
	if _, err := l.Ledger.Commit(ctx); err != nil {
		return nil, err
	}
	if _, err := l.Ledger.AddPending(ctx, "w-other-src", "w-other-dst", 5); err != nil {
		return nil, err
	}
	if _, err := l.Ledger.Commit(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

func TestTransferRacedCommitReceiptNamesSealingBlock(t *testing.T) {
	store := wallet.NewMemoryStore()
	ledger := &racedLedger{Ledger: chain.NewInMemory()}
	coord := NewCoordinator(store, ledger, nil, nil, logging.Discard())
	ctx := context.Background()

	from := seedWallet(t, store, "alice", wallet.KindBank, 100)
	to := seedWallet(t, store, "bob", wallet.KindBank, 0)

	res, err := coord.Transfer(ctx, Input{FromWalletID: from.ID, ToWalletID: to.ID, Amount: 40})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	blocks, _ := ledger.Blocks(ctx)
	if len(blocks) != 3 { // genesis, our transfer, the later one
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	sealing, tail := blocks[1], blocks[2]
	if res.TxHash != sealing.Hash {
		t.Fatalf("receipt %s does not name the sealing block %s", res.TxHash, sealing.Hash)
	}
	if res.TxHash == tail.Hash {
		t.Fatalf("receipt must not point at the later tail block")
	}

	fromHist, _ := store.History(ctx, from.ID)
	if fromHist[len(fromHist)-1].BlockHash != sealing.Hash {
		t.Fatalf("history stamped with %s, want sealing block %s", fromHist[len(fromHist)-1].BlockHash, sealing.Hash)
	}
}

func TestTransferConcurrentConservesTotalAndStaysNonNegative(t *testing.T) {
	coord, store, ledger, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	a := seedWallet(t, store, "alice", wallet.KindBank, 1_000)
	b := seedWallet(t, store, "bob", wallet.KindBank, 1_000)

	const workers = 40

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := Input{FromWalletID: a.ID, ToWalletID: b.ID, Amount: 90}
			if i%2 == 1 {
				in = Input{FromWalletID: b.ID, ToWalletID: a.ID, Amount: 90}
			}
			_, err := coord.Transfer(ctx, in)
			if err != nil && !errors.Is(err, wallet.ErrInsufficientBalance) {
				t.Errorf("transfer %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	aBal, _ := store.Balance(ctx, a.ID)
	bBal, _ := store.Balance(ctx, b.ID)
	if aBal+bBal != 2_000 {
		t.Fatalf("total not conserved: %d + %d", aBal, bBal)
	}
	if aBal < 0 || bBal < 0 {
		t.Fatalf("negative balance: %d/%d", aBal, bBal)
	}
	if err := ledger.Verify(ctx); err != nil {
		t.Fatalf("verify: %v", err)
	}
}
