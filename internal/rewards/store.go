package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoSpins occurs when a spin is requested with no availability left.
	ErrNoSpins = errors.New("no spins available")

	// ErrNoCards occurs when a scratch is requested with no cards left.
	ErrNoCards = errors.New("no scratch cards available")
)

// AlreadyClaimedError reports a repeated daily claim and when the next one
// becomes eligible.
type AlreadyClaimedError struct {
	NextEligible time.Time
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("daily reward already claimed, next eligible at %s", e.NextEligible.Format(time.RFC3339))
}

// Store persists per-user reward state and history.
//
// SaveState writes streak fields, transfer count and claim stamp only; the
// spin and scratch availability counters move exclusively through the
// dedicated spend/add operations so a decrement can never be lost to a stale
// read-modify-write.
type Store interface {
	// EnsureState returns the user's reward state, creating it with the
	// new-user bonus counters on first reference.
	EnsureState(ctx context.Context, userID string) (State, error)
	SaveState(ctx context.Context, state State) error
	// SpendSpin decrements spin availability exactly once, failing with
	// ErrNoSpins when the counter is zero.
	SpendSpin(ctx context.Context, userID string) error
	// SpendScratchCard decrements card availability exactly once, failing
	// with ErrNoCards when the counter is zero.
	SpendScratchCard(ctx context.Context, userID string) error
	AddSpins(ctx context.Context, userID string, n int) error
	AddScratchCards(ctx context.Context, userID string, n int) error
	// GrantDailyClaim stamps the claim time and adds the granted spins as
	// one mutation: a failure leaves neither the stamp nor the spins applied,
	// so the claim stays retryable.
	GrantDailyClaim(ctx context.Context, userID string, n int, claimedAt time.Time) error
	// AppendRecord appends to the user's reward history.
	AppendRecord(ctx context.Context, rec Record) error
	// Records returns the user's reward history in order.
	Records(ctx context.Context, userID string) ([]Record, error)
}
