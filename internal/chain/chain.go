package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidAmount occurs when a transfer record carries a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrChainIntegrity indicates a stored block no longer matches its recorded
	// hash or its predecessor link. Treated as fatal; never raised on the
	// commit path.
	ErrChainIntegrity = errors.New("chain integrity violation")
)

// GenesisPrevHash is the previous-hash value of the genesis block.
const GenesisPrevHash = "0"

// TransferRecord is a single committed or pending value transfer.
type TransferRecord struct {
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// Block batches transfer records and links to its predecessor by hash.
// Blocks are immutable once appended.
type Block struct {
	Index        uint64           `json:"index"`
	Transactions []TransferRecord `json:"transactions"`
	Timestamp    time.Time        `json:"timestamp"`
	PrevHash     string           `json:"prev_hash"`
	Hash         string           `json:"hash"`
}

// Ledger is the append-only, hash-linked record of transfers.
type Ledger interface {
	// AddPending queues a transfer record for the next block and returns its
	// position in the pending pool. Balances are not validated here.
	AddPending(ctx context.Context, sender, receiver string, amount int64) (int, error)
	// Commit seals the entire pending pool into one new block. Returns nil
	// with no error when nothing is pending.
	Commit(ctx context.Context) (*Block, error)
	// Verify recomputes every block hash and checks linkage from genesis to
	// tail, returning ErrChainIntegrity on the first mismatch.
	Verify(ctx context.Context) error
	// Blocks returns the committed chain in order.
	Blocks(ctx context.Context) ([]Block, error)
	// Pending returns a snapshot of the uncommitted pool.
	Pending(ctx context.Context) ([]TransferRecord, error)
}

// ComputeHash digests a block's content deterministically: fields are
// serialized in a fixed order so equal content always yields equal digests.
func ComputeHash(index uint64, txs []TransferRecord, timestamp time.Time, prevHash string) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(index, 10))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(timestamp.UTC().UnixNano(), 10))
	b.WriteByte('|')
	b.WriteString(prevHash)
	for _, tx := range txs {
		b.WriteByte('|')
		b.WriteString(tx.Sender)
		b.WriteByte(',')
		b.WriteString(tx.Receiver)
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(tx.Amount, 10))
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(tx.CreatedAt.UTC().UnixNano(), 10))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// NewGenesisBlock builds the chain's first block: index 1, no transactions,
// previous hash "0".
func NewGenesisBlock(now time.Time) Block {
	g := Block{
		Index:        1,
		Transactions: nil,
		Timestamp:    now.UTC(),
		PrevHash:     GenesisPrevHash,
	}
	g.Hash = ComputeHash(g.Index, g.Transactions, g.Timestamp, g.PrevHash)
	return g
}

// VerifyBlocks checks hashes and linkage over an already loaded chain.
func VerifyBlocks(blocks []Block) error {
	for i, blk := range blocks {
		if got := ComputeHash(blk.Index, blk.Transactions, blk.Timestamp, blk.PrevHash); got != blk.Hash {
			return errorAt(blk.Index, "hash mismatch")
		}
		if i == 0 {
			if blk.PrevHash != GenesisPrevHash {
				return errorAt(blk.Index, "genesis prev hash")
			}
			continue
		}
		if blk.PrevHash != blocks[i-1].Hash {
			return errorAt(blk.Index, "broken link")
		}
	}
	return nil
}

func errorAt(index uint64, reason string) error {
	return &integrityError{index: index, reason: reason}
}

type integrityError struct {
	index  uint64
	reason string
}

func (e *integrityError) Error() string {
	return "chain integrity violation at block " + strconv.FormatUint(e.index, 10) + ": " + e.reason
}

func (e *integrityError) Unwrap() error { return ErrChainIntegrity }
