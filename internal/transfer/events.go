package transfer

import (
	"context"
	"time"
)

// Completed is emitted after a transfer has been applied and sealed into the
// chain. Consumers must treat it as best-effort: delivery never fails or
// blocks the transfer itself.
type Completed struct {
	SenderOwnerID  string
	SenderWalletID string
	ReceiverWallet string
	Amount         int64
	Timestamp      time.Time
}

// Sink receives transfer-completed events (the reward engine in production).
type Sink interface {
	TransferCompleted(ctx context.Context, evt Completed) error
}
