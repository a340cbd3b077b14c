package chain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists the block chain and pending pool in PostgreSQL.
// Commit runs in a single transaction so concurrent AddPending calls land
// either in the block being sealed or in the next pool, never both.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger and guarantees the
// genesis block exists.
func NewPostgresLedger(ctx context.Context, db *pgxpool.Pool) (*PostgresLedger, error) {
	l := &PostgresLedger{db: db}
	if err := l.ensureGenesis(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *PostgresLedger) ensureGenesis(ctx context.Context) error {
	var count int
	if err := l.db.QueryRow(ctx, `SELECT COUNT(*) FROM blocks`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	g := NewGenesisBlock(time.Now())
	return l.insertBlock(ctx, g)
}

func (l *PostgresLedger) insertBlock(ctx context.Context, blk Block) error {
	payload, err := json.Marshal(blk.Transactions)
	if err != nil {
		return err
	}
	_, err = l.db.Exec(ctx, `INSERT INTO blocks (idx, transactions, created_at, prev_hash, hash)
        VALUES ($1, $2, $3, $4, $5)`, blk.Index, payload, blk.Timestamp.UTC(), blk.PrevHash, blk.Hash)
	return err
}

// AddPending queues a transfer in the pending pool table.
func (l *PostgresLedger) AddPending(ctx context.Context, sender, receiver string, amount int64) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if _, err := l.db.Exec(ctx, `INSERT INTO pending_transfers (id, sender, receiver, amount, created_at)
        VALUES ($1, $2, $3, $4, $5)`, uuid.New(), sender, receiver, amount, time.Now().UTC()); err != nil {
		return 0, err
	}
	var position int
	if err := l.db.QueryRow(ctx, `SELECT COUNT(*) FROM pending_transfers`).Scan(&position); err != nil {
		return 0, err
	}
	return position, nil
}

// Commit seals the whole pending pool into one block inside a transaction.
func (l *PostgresLedger) Commit(ctx context.Context) (*Block, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	rows, err := tx.Query(ctx, `SELECT sender, receiver, amount, created_at
        FROM pending_transfers ORDER BY created_at, id FOR UPDATE`)
	if err != nil {
		return nil, err
	}
	var pending []TransferRecord
	for rows.Next() {
		var rec TransferRecord
		var createdAt time.Time
		if err := rows.Scan(&rec.Sender, &rec.Receiver, &rec.Amount, &createdAt); err != nil {
			rows.Close()
			return nil, err
		}
		rec.CreatedAt = createdAt.UTC()
		pending = append(pending, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	var tailIndex uint64
	var tailHash string
	if err := tx.QueryRow(ctx, `SELECT idx, hash FROM blocks ORDER BY idx DESC LIMIT 1`).Scan(&tailIndex, &tailHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChainIntegrity
		}
		return nil, err
	}

	blk := Block{
		Index:        tailIndex + 1,
		Transactions: pending,
		Timestamp:    time.Now().UTC(),
		PrevHash:     tailHash,
	}
	blk.Hash = ComputeHash(blk.Index, blk.Transactions, blk.Timestamp, blk.PrevHash)

	payload, err := json.Marshal(blk.Transactions)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO blocks (idx, transactions, created_at, prev_hash, hash)
        VALUES ($1, $2, $3, $4, $5)`, blk.Index, payload, blk.Timestamp, blk.PrevHash, blk.Hash); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM pending_transfers`); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &blk, nil
}

// Verify loads the full chain and checks hashes and linkage.
func (l *PostgresLedger) Verify(ctx context.Context) error {
	blocks, err := l.Blocks(ctx)
	if err != nil {
		return err
	}
	return VerifyBlocks(blocks)
}

// Blocks returns the committed chain ordered by index.
func (l *PostgresLedger) Blocks(ctx context.Context) ([]Block, error) {
	rows, err := l.db.Query(ctx, `SELECT idx, transactions, created_at, prev_hash, hash FROM blocks ORDER BY idx`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []Block
	for rows.Next() {
		var blk Block
		var payload []byte
		var createdAt time.Time
		if err := rows.Scan(&blk.Index, &payload, &createdAt, &blk.PrevHash, &blk.Hash); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &blk.Transactions); err != nil {
				return nil, err
			}
		}
		blk.Timestamp = createdAt.UTC()
		blocks = append(blocks, blk)
	}
	return blocks, rows.Err()
}

// Pending returns the uncommitted pool ordered by arrival.
func (l *PostgresLedger) Pending(ctx context.Context) ([]TransferRecord, error) {
	rows, err := l.db.Query(ctx, `SELECT sender, receiver, amount, created_at FROM pending_transfers ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []TransferRecord
	for rows.Next() {
		var rec TransferRecord
		var createdAt time.Time
		if err := rows.Scan(&rec.Sender, &rec.Receiver, &rec.Amount, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedAt = createdAt.UTC()
		pending = append(pending, rec)
	}
	return pending, rows.Err()
}
