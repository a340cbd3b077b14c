package wallet

import (
	"context"
	"time"
)

// Service exposes wallet lookups and lazy provisioning over the store.
type Service struct {
	store Store
}

// NewService builds a wallet service instance.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Store exposes the underlying store for components that post directly
// (transfer coordinator, reward engine, funding).
func (s *Service) Store() Store {
	return s.store
}

// UserWallets holds the pair of wallets every user owns.
type UserWallets struct {
	Bank Wallet
	Coin Wallet
}

// EnsureUserWallets lazily provisions the bank-linked and coin wallets for a
// user on first reference.
func (s *Service) EnsureUserWallets(ctx context.Context, ownerID string) (UserWallets, error) {
	bank, err := s.store.EnsureForOwner(ctx, ownerID, KindBank)
	if err != nil {
		return UserWallets{}, err
	}
	coin, err := s.store.EnsureForOwner(ctx, ownerID, KindCoin)
	if err != nil {
		return UserWallets{}, err
	}
	return UserWallets{Bank: bank, Coin: coin}, nil
}

// EnsureMerchantWallet lazily provisions a merchant's single wallet.
func (s *Service) EnsureMerchantWallet(ctx context.Context, merchantID string) (Wallet, error) {
	return s.store.EnsureForOwner(ctx, merchantID, KindMerchant)
}

// Get retrieves wallet metadata.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	return s.store.Get(ctx, id)
}

// BalanceInfo reports a wallet balance at a point in time.
type BalanceInfo struct {
	WalletID string
	Amount   int64
	AsOf     time.Time
}

// Balance returns the wallet's current balance.
func (s *Service) Balance(ctx context.Context, id string) (BalanceInfo, error) {
	amount, err := s.store.Balance(ctx, id)
	if err != nil {
		return BalanceInfo{}, err
	}
	return BalanceInfo{WalletID: id, Amount: amount, AsOf: time.Now().UTC()}, nil
}

// History returns the ordered transaction history for a wallet.
func (s *Service) History(ctx context.Context, id string) ([]HistoryEntry, error) {
	return s.store.History(ctx, id)
}
