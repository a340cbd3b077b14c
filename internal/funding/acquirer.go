package funding

import (
	"context"

	"github.com/google/uuid"
)

// BankConnector represents a link to the external bank that backs every
// bank-linked wallet.
type BankConnector interface {
	AuthorizeDeposit(ctx context.Context, input DepositAuthorization) (AuthorizationDecision, error)
	AuthorizeWithdrawal(ctx context.Context, input WithdrawalAuthorization) (AuthorizationDecision, error)
}

// AuthorizationDecision captures the simulated response from the bank.
type AuthorizationDecision struct {
	Reference string
	Status    string
}

// DepositAuthorization encapsulates details for moving money from the
// external bank account into a wallet.
type DepositAuthorization struct {
	AccountNumber string
	Amount        int64
}

// WithdrawalAuthorization captures data for a payout back to the bank account.
type WithdrawalAuthorization struct {
	AccountNumber string
	Amount        int64
}

// StaticConnector simulates a successful bank integration.
type StaticConnector struct{}

// AuthorizeDeposit approves the deposit with a synthetic reference.
func (StaticConnector) AuthorizeDeposit(_ context.Context, _ DepositAuthorization) (AuthorizationDecision, error) {
	return AuthorizationDecision{Reference: uuid.NewString(), Status: "approved"}, nil
}

// AuthorizeWithdrawal approves the withdrawal with a synthetic reference.
func (StaticConnector) AuthorizeWithdrawal(_ context.Context, _ WithdrawalAuthorization) (AuthorizationDecision, error) {
	return AuthorizationDecision{Reference: uuid.NewString(), Status: "approved"}, nil
}
