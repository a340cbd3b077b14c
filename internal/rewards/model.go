package rewards

import "time"

// Kind classifies a reward payout.
type Kind string

const (
	KindCashback Kind = "cashback"
	KindDiscount Kind = "discount"
	KindNone     Kind = "none"
)

// Record is one append-only reward history entry. Never mutated after
// creation.
type Record struct {
	ID          string
	UserID      string
	Kind        Kind
	Amount      int64
	Description string
	CreatedAt   time.Time
}

// Streak tracks consecutive calendar days with at least one qualifying
// payment. Dates are stored normalized to midnight UTC of the civil date in
// the engine's timezone.
type Streak struct {
	Length          int
	StartDate       time.Time
	LastPaymentDate time.Time
	// RewardedStart is the start date of the streak that last earned the
	// threshold reward; it prevents a second payout for the same
	// uninterrupted streak.
	RewardedStart time.Time
}

// State is the per-user reward state. Availability counters move only through
// the store's dedicated spend/add operations.
type State struct {
	UserID        string
	Spins         int
	ScratchCards  int
	TransferCount int
	Streak        Streak
	LastClaim     time.Time
}

// Slot is one position on the spin wheel.
type Slot struct {
	Kind   Kind
	Amount int64
	Label  string
}

// Outcome reports a spin or scratch draw. Angle is presentation-only spin
// animation data; it is derived from the already-selected slot and never
// influences selection.
type Outcome struct {
	Kind        Kind
	Amount      int64
	Description string
	Angle       int
}

// ClaimResult reports a successful daily claim.
type ClaimResult struct {
	ClaimedAt      time.Time
	SpinsAvailable int
}

var spinSlots = []Slot{
	{Kind: KindCashback, Amount: 25, Label: "25 coin cashback"},
	{Kind: KindCashback, Amount: 50, Label: "50 coin cashback"},
	{Kind: KindNone, Amount: 0, Label: "try again"},
	{Kind: KindCashback, Amount: 100, Label: "100 coin cashback"},
	{Kind: KindDiscount, Amount: 10, Label: "10% merchant discount"},
	{Kind: KindCashback, Amount: 250, Label: "250 coin cashback"},
}

const (
	// wheelRotations is how many full turns the client animation makes before
	// settling on the selected slot.
	wheelRotations = 4

	scratchMinAmount = 10
	scratchMaxAmount = 100

	streakTargetDays   = 7
	streakRewardAmount = 500

	transfersPerScratchCard = 3

	newUserSpins        = 1
	newUserScratchCards = 1
	dailyClaimSpins     = 1
)
