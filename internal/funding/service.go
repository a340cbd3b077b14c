package funding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zawadi-pay/zawadi_pay/internal/chain"
	"github.com/zawadi-pay/zawadi_pay/internal/wallet"
)

// ExternalBankParty is the counterparty recorded on deposits and withdrawals
// that cross the boundary to the external bank.
const ExternalBankParty = "bank:external"

// Service moves money between the external bank account and a user's
// bank-linked wallet, recording every movement on the chain.
type Service struct {
	ledger    chain.Ledger
	wallets   *wallet.Service
	connector BankConnector
	logger    *slog.Logger
}

// NewService builds a funding service.
func NewService(ledger chain.Ledger, wallets *wallet.Service, connector BankConnector, logger *slog.Logger) (*Service, error) {
	if wallets == nil {
		return nil, fmt.Errorf("wallet service is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if connector == nil {
		connector = StaticConnector{}
	}
	return &Service{ledger: ledger, wallets: wallets, connector: connector, logger: logger}, nil
}

// DepositInput captures the required data for a bank deposit.
type DepositInput struct {
	OwnerID       string
	Amount        int64
	AccountNumber string
}

// WithdrawInput captures the required data for a bank withdrawal.
type WithdrawInput struct {
	OwnerID       string
	Amount        int64
	AccountNumber string
}

// Result represents the domain outcome of a funding operation.
type Result struct {
	WalletID      string
	WalletBalance int64
	BankReference string
	TxHash        string
	CompletedAt   time.Time
}

// Deposit authorizes a pull from the external bank account and credits the
// owner's bank-linked wallet.
func (s *Service) Deposit(ctx context.Context, input DepositInput) (Result, error) {
	if input.Amount <= 0 {
		return Result{}, wallet.ErrInvalidAmount
	}

	w, err := s.wallets.Store().EnsureForOwner(ctx, input.OwnerID, wallet.KindBank)
	if err != nil {
		return Result{}, err
	}

	decision, err := s.connector.AuthorizeDeposit(ctx, DepositAuthorization{
		AccountNumber: input.AccountNumber,
		Amount:        input.Amount,
	})
	if err != nil {
		return Result{}, err
	}

	balance, err := s.wallets.Store().Credit(ctx, w.ID, input.Amount, ExternalBankParty)
	if err != nil {
		return Result{}, err
	}

	hash := s.seal(ctx, ExternalBankParty, w.ID, input.Amount)

	return Result{
		WalletID:      w.ID,
		WalletBalance: balance,
		BankReference: decision.Reference,
		TxHash:        hash,
		CompletedAt:   time.Now().UTC(),
	}, nil
}

// Withdraw authorizes a push to the external bank account and debits the
// owner's bank-linked wallet.
func (s *Service) Withdraw(ctx context.Context, input WithdrawInput) (Result, error) {
	if input.Amount <= 0 {
		return Result{}, wallet.ErrInvalidAmount
	}

	w, err := s.wallets.Store().EnsureForOwner(ctx, input.OwnerID, wallet.KindBank)
	if err != nil {
		return Result{}, err
	}

	decision, err := s.connector.AuthorizeWithdrawal(ctx, WithdrawalAuthorization{
		AccountNumber: input.AccountNumber,
		Amount:        input.Amount,
	})
	if err != nil {
		return Result{}, err
	}

	balance, err := s.wallets.Store().Debit(ctx, w.ID, input.Amount, ExternalBankParty)
	if err != nil {
		return Result{}, err
	}

	hash := s.seal(ctx, w.ID, ExternalBankParty, input.Amount)

	return Result{
		WalletID:      w.ID,
		WalletBalance: balance,
		BankReference: decision.Reference,
		TxHash:        hash,
		CompletedAt:   time.Now().UTC(),
	}, nil
}

// seal records the movement on the chain. The wallet posting is already
// final, so chain failures are logged rather than unwound: the entry stays
// in the pending pool or is retried by the next commit.
func (s *Service) seal(ctx context.Context, sender, receiver string, amount int64) string {
	if _, err := s.ledger.AddPending(ctx, sender, receiver, amount); err != nil {
		s.logger.Warn("funding record not queued", slog.Any("error", err))
		return ""
	}
	block, err := s.ledger.Commit(ctx)
	if err != nil {
		s.logger.Warn("funding record not sealed", slog.Any("error", err))
		return ""
	}
	if block == nil {
		return ""
	}
	return block.Hash
}
