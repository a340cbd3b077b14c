package rewards

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryStore struct {
	mu      sync.Mutex
	states  map[string]State
	history map[string][]Record
}

// NewMemoryStore constructs an in-memory reward store for tests and dev mode.
func NewMemoryStore() Store {
	return &memoryStore{
		states:  make(map[string]State),
		history: make(map[string][]Record),
	}
}

func (s *memoryStore) EnsureState(_ context.Context, userID string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.states[userID]; ok {
		return st, nil
	}
	st := State{
		UserID:       userID,
		Spins:        newUserSpins,
		ScratchCards: newUserScratchCards,
	}
	s.states[userID] = st
	return st, nil
}

func (s *memoryStore) SaveState(_ context.Context, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.states[state.UserID]
	if !ok {
		return errors.New("reward state not initialized")
	}
	// Counters are owned by the spend/add operations.
	state.Spins = current.Spins
	state.ScratchCards = current.ScratchCards
	s.states[state.UserID] = state
	return nil
}

func (s *memoryStore) SpendSpin(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.states[userID]
	if st.Spins <= 0 {
		return ErrNoSpins
	}
	st.Spins--
	s.states[userID] = st
	return nil
}

func (s *memoryStore) SpendScratchCard(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.states[userID]
	if st.ScratchCards <= 0 {
		return ErrNoCards
	}
	st.ScratchCards--
	s.states[userID] = st
	return nil
}

func (s *memoryStore) AddSpins(_ context.Context, userID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[userID]
	st.Spins += n
	s.states[userID] = st
	return nil
}

func (s *memoryStore) AddScratchCards(_ context.Context, userID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[userID]
	st.ScratchCards += n
	s.states[userID] = st
	return nil
}

func (s *memoryStore) GrantDailyClaim(_ context.Context, userID string, n int, claimedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[userID]
	if !ok {
		return errors.New("reward state not initialized")
	}
	st.Spins += n
	st.LastClaim = claimedAt.UTC()
	s.states[userID] = st
	return nil
}

func (s *memoryStore) AppendRecord(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[rec.UserID] = append(s.history[rec.UserID], rec)
	return nil
}

func (s *memoryStore) Records(_ context.Context, userID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.history[userID]
	out := make([]Record, len(records))
	copy(out, records)
	return out, nil
}
