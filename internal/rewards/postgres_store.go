package rewards

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists reward state and history in PostgreSQL. Availability
// counters are decremented with conditional updates so a draw can never spend
// more than the counter holds, regardless of concurrent processes.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a reward store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureState(ctx context.Context, userID string) (State, error) {
	_, err := s.db.Exec(ctx, `INSERT INTO reward_states (user_id, spins, scratch_cards, transfer_count, streak_length, created_at)
        VALUES ($1, $2, $3, 0, 0, $4)
        ON CONFLICT (user_id) DO NOTHING`, userID, newUserSpins, newUserScratchCards, time.Now().UTC())
	if err != nil {
		return State{}, err
	}

	row := s.db.QueryRow(ctx, `SELECT user_id, spins, scratch_cards, transfer_count, streak_length,
        streak_start, last_payment, rewarded_start, last_claim
        FROM reward_states WHERE user_id = $1`, userID)

	var st State
	var streakStart, lastPayment, rewardedStart, lastClaim *time.Time
	if err := row.Scan(&st.UserID, &st.Spins, &st.ScratchCards, &st.TransferCount, &st.Streak.Length,
		&streakStart, &lastPayment, &rewardedStart, &lastClaim); err != nil {
		return State{}, err
	}
	st.Streak.StartDate = deref(streakStart)
	st.Streak.LastPaymentDate = deref(lastPayment)
	st.Streak.RewardedStart = deref(rewardedStart)
	st.LastClaim = deref(lastClaim)
	return st, nil
}

func (s *PostgresStore) SaveState(ctx context.Context, state State) error {
	cmd, err := s.db.Exec(ctx, `UPDATE reward_states
        SET transfer_count = $1, streak_length = $2, streak_start = $3,
            last_payment = $4, rewarded_start = $5, last_claim = $6
        WHERE user_id = $7`,
		state.TransferCount, state.Streak.Length, nilIfZero(state.Streak.StartDate),
		nilIfZero(state.Streak.LastPaymentDate), nilIfZero(state.Streak.RewardedStart),
		nilIfZero(state.LastClaim), state.UserID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errors.New("reward state not initialized")
	}
	return nil
}

func (s *PostgresStore) SpendSpin(ctx context.Context, userID string) error {
	cmd, err := s.db.Exec(ctx, `UPDATE reward_states SET spins = spins - 1
        WHERE user_id = $1 AND spins > 0`, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNoSpins
	}
	return nil
}

func (s *PostgresStore) SpendScratchCard(ctx context.Context, userID string) error {
	cmd, err := s.db.Exec(ctx, `UPDATE reward_states SET scratch_cards = scratch_cards - 1
        WHERE user_id = $1 AND scratch_cards > 0`, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNoCards
	}
	return nil
}

func (s *PostgresStore) AddSpins(ctx context.Context, userID string, n int) error {
	_, err := s.db.Exec(ctx, `UPDATE reward_states SET spins = spins + $1 WHERE user_id = $2`, n, userID)
	return err
}

func (s *PostgresStore) AddScratchCards(ctx context.Context, userID string, n int) error {
	_, err := s.db.Exec(ctx, `UPDATE reward_states SET scratch_cards = scratch_cards + $1 WHERE user_id = $2`, n, userID)
	return err
}

func (s *PostgresStore) GrantDailyClaim(ctx context.Context, userID string, n int, claimedAt time.Time) error {
	cmd, err := s.db.Exec(ctx, `UPDATE reward_states SET spins = spins + $1, last_claim = $2
        WHERE user_id = $3`, n, claimedAt.UTC(), userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errors.New("reward state not initialized")
	}
	return nil
}

func (s *PostgresStore) AppendRecord(ctx context.Context, rec Record) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		id = uuid.New()
	}
	_, err = s.db.Exec(ctx, `INSERT INTO reward_history (id, user_id, kind, amount, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, id, rec.UserID, string(rec.Kind), rec.Amount, rec.Description, rec.CreatedAt.UTC())
	return err
}

func (s *PostgresStore) Records(ctx context.Context, userID string) ([]Record, error) {
	rows, err := s.db.Query(ctx, `SELECT id, user_id, kind, amount, description, created_at
        FROM reward_history WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var kind string
		var createdAt time.Time
		if err := rows.Scan(&rec.ID, &rec.UserID, &kind, &rec.Amount, &rec.Description, &createdAt); err != nil {
			return nil, err
		}
		rec.Kind = Kind(kind)
		rec.CreatedAt = createdAt.UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func nilIfZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
