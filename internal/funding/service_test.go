package funding

import (
	"context"
	"errors"
	"testing"

	"github.com/zawadi-pay/zawadi_pay/internal/chain"
	"github.com/zawadi-pay/zawadi_pay/internal/logging"
	"github.com/zawadi-pay/zawadi_pay/internal/wallet"
)

func newTestService(t *testing.T) (*Service, *wallet.Service, chain.Ledger) {
	t.Helper()

	wallets := wallet.NewService(wallet.NewMemoryStore())
	ledger := chain.NewInMemory()
	svc, err := NewService(ledger, wallets, StaticConnector{}, logging.Discard())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, wallets, ledger
}

func TestDepositCreditsBankWalletAndSealsBlock(t *testing.T) {
	svc, wallets, ledger := newTestService(t)
	ctx := context.Background()

	result, err := svc.Deposit(ctx, DepositInput{OwnerID: "user-1", Amount: 500, AccountNumber: "0011223344"})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if result.WalletBalance != 500 {
		t.Fatalf("balance = %d, want 500", result.WalletBalance)
	}
	if result.BankReference == "" {
		t.Fatalf("expected a bank reference")
	}
	if result.TxHash == "" {
		t.Fatalf("expected a sealed block hash")
	}

	blocks, err := ledger.Blocks(ctx)
	if err != nil {
		t.Fatalf("blocks: %v", err)
	}
	tail := blocks[len(blocks)-1]
	if len(tail.Transactions) != 1 || tail.Transactions[0].Sender != ExternalBankParty {
		t.Fatalf("tail block does not record the external deposit: %+v", tail.Transactions)
	}

	pair, err := wallets.EnsureUserWallets(ctx, "user-1")
	if err != nil {
		t.Fatalf("ensure wallets: %v", err)
	}
	if pair.Bank.ID != result.WalletID {
		t.Fatalf("deposit landed on wallet %s, want bank wallet %s", result.WalletID, pair.Bank.ID)
	}
}

func TestWithdrawDebitsBankWallet(t *testing.T) {
	svc, _, ledger := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Deposit(ctx, DepositInput{OwnerID: "user-1", Amount: 300, AccountNumber: "0011223344"}); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}

	result, err := svc.Withdraw(ctx, WithdrawInput{OwnerID: "user-1", Amount: 120, AccountNumber: "0011223344"})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if result.WalletBalance != 180 {
		t.Fatalf("balance = %d, want 180", result.WalletBalance)
	}

	blocks, err := ledger.Blocks(ctx)
	if err != nil {
		t.Fatalf("blocks: %v", err)
	}
	tail := blocks[len(blocks)-1]
	if len(tail.Transactions) != 1 || tail.Transactions[0].Receiver != ExternalBankParty {
		t.Fatalf("tail block does not record the withdrawal: %+v", tail.Transactions)
	}
}

func TestWithdrawInsufficientLeavesNoTrace(t *testing.T) {
	svc, wallets, ledger := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Deposit(ctx, DepositInput{OwnerID: "user-1", Amount: 50, AccountNumber: "0011223344"}); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
	before, _ := ledger.Blocks(ctx)

	_, err := svc.Withdraw(ctx, WithdrawInput{OwnerID: "user-1", Amount: 100, AccountNumber: "0011223344"})
	if !errors.Is(err, wallet.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	after, _ := ledger.Blocks(ctx)
	if len(after) != len(before) {
		t.Fatalf("failed withdrawal sealed a block")
	}

	pair, _ := wallets.EnsureUserWallets(ctx, "user-1")
	balance, _ := wallets.Balance(ctx, pair.Bank.ID)
	if balance.Amount != 50 {
		t.Fatalf("balance = %d, want 50", balance.Amount)
	}
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _ := newTestService(t)

	for _, amount := range []int64{0, -10} {
		if _, err := svc.Deposit(context.Background(), DepositInput{OwnerID: "user-1", Amount: amount}); !errors.Is(err, wallet.ErrInvalidAmount) {
			t.Fatalf("amount %d: err = %v, want ErrInvalidAmount", amount, err)
		}
	}
}
