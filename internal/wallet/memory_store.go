package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu        sync.Mutex
	wallets   map[string]Wallet
	histories map[string][]HistoryEntry
	byOwner   map[ownerKey]string
}

type ownerKey struct {
	owner string
	kind  Kind
}

// NewMemoryStore constructs an in-memory wallet store for tests and dev mode.
func NewMemoryStore() Store {
	return &memoryStore{
		wallets:   make(map[string]Wallet),
		histories: make(map[string][]HistoryEntry),
		byOwner:   make(map[ownerKey]string),
	}
}

func (s *memoryStore) Get(_ context.Context, id string) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return w, nil
}

func (s *memoryStore) EnsureForOwner(_ context.Context, ownerID string, kind Kind) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ownerKey{owner: ownerID, kind: kind}
	if id, ok := s.byOwner[key]; ok {
		return s.wallets[id], nil
	}

	w := Wallet{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Kind:      kind,
		Balance:   0,
		CreatedAt: time.Now().UTC(),
	}
	s.wallets[w.ID] = w
	s.byOwner[key] = w.ID
	return w, nil
}

func (s *memoryStore) Balance(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[id]
	if !ok {
		return 0, ErrNotFound
	}
	return w.Balance, nil
}

func (s *memoryStore) Credit(_ context.Context, id string, amount int64, counterparty string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[id]
	if !ok {
		return 0, ErrNotFound
	}
	w.Balance += amount
	s.wallets[id] = w
	s.appendEntry(id, DirectionCredit, amount, counterparty)
	return w.Balance, nil
}

func (s *memoryStore) Debit(_ context.Context, id string, amount int64, counterparty string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[id]
	if !ok {
		return 0, ErrNotFound
	}
	if w.Balance < amount {
		return 0, ErrInsufficientBalance
	}
	w.Balance -= amount
	s.wallets[id] = w
	s.appendEntry(id, DirectionDebit, amount, counterparty)
	return w.Balance, nil
}

func (s *memoryStore) ApplyTransfer(_ context.Context, input ApplyTransferInput) (ApplyTransferResult, error) {
	if input.Amount <= 0 {
		return ApplyTransferResult{}, ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.wallets[input.FromID]
	if !ok {
		return ApplyTransferResult{}, ErrNotFound
	}
	to, ok := s.wallets[input.ToID]
	if !ok {
		return ApplyTransferResult{}, ErrNotFound
	}
	if from.Balance < input.Amount {
		return ApplyTransferResult{}, ErrInsufficientBalance
	}

	from.Balance -= input.Amount
	to.Balance += input.Amount
	s.wallets[from.ID] = from
	s.wallets[to.ID] = to

	fromEntry := s.appendEntry(from.ID, DirectionDebit, input.Amount, to.ID)
	toEntry := s.appendEntry(to.ID, DirectionCredit, input.Amount, from.ID)

	return ApplyTransferResult{
		FromBalance: from.Balance,
		ToBalance:   to.Balance,
		FromEntryID: fromEntry,
		ToEntryID:   toEntry,
	}, nil
}

func (s *memoryStore) StampReceipt(_ context.Context, entryIDs []string, blockHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entries := range s.histories {
		for i := range entries {
			for _, id := range entryIDs {
				if entries[i].ID == id {
					entries[i].BlockHash = blockHash
				}
			}
		}
	}
	return nil
}

func (s *memoryStore) History(_ context.Context, id string) ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[id]; !ok {
		return nil, ErrNotFound
	}
	entries := s.histories[id]
	out := make([]HistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// appendEntry must be called with the store lock held.
func (s *memoryStore) appendEntry(walletID string, dir Direction, amount int64, counterparty string) string {
	entry := HistoryEntry{
		ID:           uuid.New().String(),
		WalletID:     walletID,
		Direction:    dir,
		Amount:       amount,
		Counterparty: counterparty,
		CreatedAt:    time.Now().UTC(),
	}
	s.histories[walletID] = append(s.histories[walletID], entry)
	return entry.ID
}
