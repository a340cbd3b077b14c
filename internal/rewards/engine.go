package rewards

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zawadi-pay/zawadi_pay/internal/notification"
	"github.com/zawadi-pay/zawadi_pay/internal/transfer"
	"github.com/zawadi-pay/zawadi_pay/internal/wallet"
)

// Rand is the injectable random source for reward draws. Tests supply a
// scripted sequence to pin down outcomes.
type Rand interface {
	Intn(n int) int
}

// Engine owns streak state, availability counters and reward history. It
// consumes transfer-completed events and serves the caller-facing draws.
type Engine struct {
	store    Store
	wallets  wallet.Store
	clock    Clock
	rng      Rand
	loc      *time.Location
	notifier notification.Notifier
	logger   *slog.Logger

	locks userLocks
}

// NewEngine builds the reward engine. loc governs calendar-day comparisons;
// nil falls back to UTC.
func NewEngine(store Store, wallets wallet.Store, clock Clock, rng Rand, loc *time.Location, notifier notification.Notifier, logger *slog.Logger) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		store:    store,
		wallets:  wallets,
		clock:    clock,
		rng:      rng,
		loc:      loc,
		notifier: notifier,
		logger:   logger,
		locks:    userLocks{locks: make(map[string]*sync.Mutex)},
	}
}

// Spin draws one spin-wheel outcome. The slot is selected uniformly before
// the animation angle is derived; cashback lands in the user's coin wallet as
// a system credit.
func (e *Engine) Spin(ctx context.Context, userID string) (Outcome, error) {
	unlock := e.locks.lock(userID)
	defer unlock()

	if _, err := e.store.EnsureState(ctx, userID); err != nil {
		return Outcome{}, err
	}
	if err := e.store.SpendSpin(ctx, userID); err != nil {
		return Outcome{}, err
	}

	idx := e.rng.Intn(len(spinSlots))
	slot := spinSlots[idx]

	if slot.Kind == KindCashback {
		if err := e.creditCoins(ctx, userID, slot.Amount, "reward:spin"); err != nil {
			// Undo the decrement so the user keeps the spin.
			if addErr := e.store.AddSpins(ctx, userID, 1); addErr != nil {
				e.logger.Error("spin refund failed", "user", userID, "error", addErr)
			}
			return Outcome{}, err
		}
	}

	e.record(ctx, userID, slot.Kind, slot.Amount, "Spin wheel: "+slot.Label)

	return Outcome{
		Kind:        slot.Kind,
		Amount:      slot.Amount,
		Description: slot.Label,
		Angle:       wheelRotations*360 + idx*(360/len(spinSlots)),
	}, nil
}

// Scratch draws one scratch-card outcome: a uniform amount in the fixed
// inclusive range, credited to the coin wallet.
func (e *Engine) Scratch(ctx context.Context, userID string) (Outcome, error) {
	unlock := e.locks.lock(userID)
	defer unlock()

	if _, err := e.store.EnsureState(ctx, userID); err != nil {
		return Outcome{}, err
	}
	if err := e.store.SpendScratchCard(ctx, userID); err != nil {
		return Outcome{}, err
	}

	amount := int64(scratchMinAmount + e.rng.Intn(scratchMaxAmount-scratchMinAmount+1))

	if err := e.creditCoins(ctx, userID, amount, "reward:scratch"); err != nil {
		if addErr := e.store.AddScratchCards(ctx, userID, 1); addErr != nil {
			e.logger.Error("scratch refund failed", "user", userID, "error", addErr)
		}
		return Outcome{}, err
	}

	desc := fmt.Sprintf("Scratch card: %d coin cashback", amount)
	e.record(ctx, userID, KindCashback, amount, desc)

	return Outcome{Kind: KindCashback, Amount: amount, Description: desc}, nil
}

// ClaimDaily grants one spin at most once per calendar day.
func (e *Engine) ClaimDaily(ctx context.Context, userID string) (ClaimResult, error) {
	unlock := e.locks.lock(userID)
	defer unlock()

	state, err := e.store.EnsureState(ctx, userID)
	if err != nil {
		return ClaimResult{}, err
	}

	now := e.clock.Now()
	if !state.LastClaim.IsZero() && sameCalendarDay(state.LastClaim, now, e.loc) {
		return ClaimResult{}, &AlreadyClaimedError{NextEligible: startOfNextDay(state.LastClaim, e.loc)}
	}

	// Stamp and grant move together: a failure leaves the day unclaimed.
	claimedAt := now.UTC()
	if err := e.store.GrantDailyClaim(ctx, userID, dailyClaimSpins, claimedAt); err != nil {
		return ClaimResult{}, err
	}

	return ClaimResult{ClaimedAt: claimedAt, SpinsAvailable: state.Spins + dailyClaimSpins}, nil
}

// TransferCompleted reacts to a completed transfer: it advances the sender's
// payment streak and the transfer-count bonus. Implements transfer.Sink.
func (e *Engine) TransferCompleted(ctx context.Context, evt transfer.Completed) error {
	userID := evt.SenderOwnerID
	unlock := e.locks.lock(userID)
	defer unlock()

	state, err := e.store.EnsureState(ctx, userID)
	if err != nil {
		return err
	}

	today := e.clock.Now()
	rewardDue := e.advanceStreak(&state.Streak, today)

	state.TransferCount++
	grantCard := state.TransferCount%transfersPerScratchCard == 0

	if err := e.store.SaveState(ctx, state); err != nil {
		return err
	}

	if grantCard {
		if err := e.store.AddScratchCards(ctx, userID, 1); err != nil {
			return err
		}
		e.record(ctx, userID, KindNone, 0,
			fmt.Sprintf("Scratch card earned for %d completed transfers", state.TransferCount))
	}

	if rewardDue {
		// Credit before stamping RewardedStart: a failed credit leaves the
		// streak unrewarded, so the next qualifying payment retries the
		// payout instead of forfeiting it.
		if err := e.creditCoins(ctx, userID, streakRewardAmount, "reward:streak"); err != nil {
			return err
		}
		state.Streak.RewardedStart = state.Streak.StartDate
		if err := e.store.SaveState(ctx, state); err != nil {
			e.logger.Error("streak reward stamp failed", "user", userID, "error", err)
		}
		desc := fmt.Sprintf("%d-day payment streak cashback", streakTargetDays)
		e.record(ctx, userID, KindCashback, streakRewardAmount, desc)
		if e.notifier != nil {
			_ = e.notifier.Send(ctx, notification.Message{
				Kind:        notification.KindRewardIssued,
				Destination: userID,
				Body:        desc,
			})
		}
	}
	return nil
}

// advanceStreak applies one qualifying payment dated today and reports
// whether the threshold reward became due. The reward fires once per
// streak-start: an uninterrupted streak running past the threshold never pays
// twice. RewardedStart is stamped by the caller only after the payout lands.
func (e *Engine) advanceStreak(s *Streak, today time.Time) bool {
	day := civilDate(today, e.loc)

	switch {
	case s.LastPaymentDate.IsZero():
		s.Length = 1
		s.StartDate = day
	default:
		gap := daysBetween(s.LastPaymentDate, day, e.loc)
		switch {
		case gap == 0:
			// Already credited today.
		case gap == 1:
			s.Length++
		default:
			s.Length = 1
			s.StartDate = day
		}
	}
	s.LastPaymentDate = day

	return s.Length >= streakTargetDays && !s.RewardedStart.Equal(s.StartDate)
}

// StreakInfo returns the user's current reward state.
func (e *Engine) StreakInfo(ctx context.Context, userID string) (State, error) {
	return e.store.EnsureState(ctx, userID)
}

// History returns the user's reward history in order.
func (e *Engine) History(ctx context.Context, userID string) ([]Record, error) {
	return e.store.Records(ctx, userID)
}

// creditCoins posts a system credit to the user's coin wallet, provisioning
// it lazily. Reward credits bypass the transfer coordinator: they are issued
// by the system, not moved between peers.
func (e *Engine) creditCoins(ctx context.Context, userID string, amount int64, source string) error {
	coin, err := e.wallets.EnsureForOwner(ctx, userID, wallet.KindCoin)
	if err != nil {
		return err
	}
	_, err = e.wallets.Credit(ctx, coin.ID, amount, source)
	return err
}

func (e *Engine) record(ctx context.Context, userID string, kind Kind, amount int64, description string) {
	rec := Record{
		ID:          uuid.New().String(),
		UserID:      userID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		CreatedAt:   e.clock.Now().UTC(),
	}
	if err := e.store.AppendRecord(ctx, rec); err != nil {
		e.logger.Warn("append reward record failed", "user", userID, "error", err)
	}
}

type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (u *userLocks) lock(userID string) func() {
	u.mu.Lock()
	m, ok := u.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		u.locks[userID] = m
	}
	u.mu.Unlock()

	m.Lock()
	return m.Unlock
}
