package wallet

import "time"

// Kind distinguishes the wallet types an identity can hold.
type Kind string

const (
	// KindBank is the bank-linked wallet funded from outside the system.
	KindBank Kind = "bank"
	// KindCoin is the digital-coin wallet that receives reward credits.
	KindCoin Kind = "coin"
	// KindMerchant is the single wallet a merchant holds.
	KindMerchant Kind = "merchant"
)

// Wallet is a per-identity balance in minor currency units.
type Wallet struct {
	ID        string
	OwnerID   string
	Kind      Kind
	Balance   int64
	CreatedAt time.Time
}

// Direction marks a history entry as money in or money out.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// HistoryEntry records one balance movement. BlockHash is stamped after the
// transfer is sealed into the chain and stays empty for system credits that
// never reach it.
type HistoryEntry struct {
	ID           string
	WalletID     string
	Direction    Direction
	Amount       int64
	Counterparty string
	BlockHash    string
	CreatedAt    time.Time
}
