package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists wallets and history entries in PostgreSQL. Two-wallet
// postings run in one transaction with row locks taken in sorted wallet-id
// order, so overlapping transfers serialize without deadlocking.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a wallet store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Wallet, error) {
	return scanWallet(s.db.QueryRow(ctx, `SELECT id, owner_id, kind, balance, created_at FROM wallets WHERE id = $1`, id))
}

func (s *PostgresStore) EnsureForOwner(ctx context.Context, ownerID string, kind Kind) (Wallet, error) {
	_, err := s.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, kind, balance, created_at)
        VALUES ($1, $2, $3, 0, $4)
        ON CONFLICT (owner_id, kind) DO NOTHING`, uuid.New(), ownerID, string(kind), time.Now().UTC())
	if err != nil {
		return Wallet{}, err
	}
	return scanWallet(s.db.QueryRow(ctx, `SELECT id, owner_id, kind, balance, created_at
        FROM wallets WHERE owner_id = $1 AND kind = $2`, ownerID, string(kind)))
}

func (s *PostgresStore) Balance(ctx context.Context, id string) (int64, error) {
	var balance int64
	if err := s.db.QueryRow(ctx, `SELECT balance FROM wallets WHERE id = $1`, id).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}

func (s *PostgresStore) Credit(ctx context.Context, id string, amount int64, counterparty string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var balance int64
	if err := tx.QueryRow(ctx, `UPDATE wallets SET balance = balance + $1 WHERE id = $2 RETURNING balance`, amount, id).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, mapConflict(err)
	}
	if _, err := insertEntry(ctx, tx, id, DirectionCredit, amount, counterparty); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, mapConflict(err)
	}
	return balance, nil
}

func (s *PostgresStore) Debit(ctx context.Context, id string, amount int64, counterparty string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var balance int64
	err = tx.QueryRow(ctx, `UPDATE wallets SET balance = balance - $1
        WHERE id = $2 AND balance >= $1 RETURNING balance`, amount, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either unknown wallet or not enough funds; disambiguate.
			if _, getErr := s.Get(ctx, id); getErr != nil {
				return 0, getErr
			}
			return 0, ErrInsufficientBalance
		}
		return 0, mapConflict(err)
	}
	if _, err := insertEntry(ctx, tx, id, DirectionDebit, amount, counterparty); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, mapConflict(err)
	}
	return balance, nil
}

func (s *PostgresStore) ApplyTransfer(ctx context.Context, input ApplyTransferInput) (ApplyTransferResult, error) {
	if input.Amount <= 0 {
		return ApplyTransferResult{}, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ApplyTransferResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// Lock both rows in sorted id order regardless of transfer direction.
	first, second := input.FromID, input.ToID
	if second < first {
		first, second = second, first
	}
	for _, id := range []string{first, second} {
		var locked string
		if err := tx.QueryRow(ctx, `SELECT id FROM wallets WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ApplyTransferResult{}, ErrNotFound
			}
			return ApplyTransferResult{}, mapConflict(err)
		}
	}

	var fromBalance int64
	if err := tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE id = $1`, input.FromID).Scan(&fromBalance); err != nil {
		return ApplyTransferResult{}, mapConflict(err)
	}
	if fromBalance < input.Amount {
		return ApplyTransferResult{}, ErrInsufficientBalance
	}

	res := ApplyTransferResult{}
	if err := tx.QueryRow(ctx, `UPDATE wallets SET balance = balance - $1 WHERE id = $2 RETURNING balance`,
		input.Amount, input.FromID).Scan(&res.FromBalance); err != nil {
		return ApplyTransferResult{}, mapConflict(err)
	}
	if err := tx.QueryRow(ctx, `UPDATE wallets SET balance = balance + $1 WHERE id = $2 RETURNING balance`,
		input.Amount, input.ToID).Scan(&res.ToBalance); err != nil {
		return ApplyTransferResult{}, mapConflict(err)
	}

	if res.FromEntryID, err = insertEntry(ctx, tx, input.FromID, DirectionDebit, input.Amount, input.ToID); err != nil {
		return ApplyTransferResult{}, err
	}
	if res.ToEntryID, err = insertEntry(ctx, tx, input.ToID, DirectionCredit, input.Amount, input.FromID); err != nil {
		return ApplyTransferResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ApplyTransferResult{}, mapConflict(err)
	}
	return res, nil
}

func (s *PostgresStore) StampReceipt(ctx context.Context, entryIDs []string, blockHash string) error {
	for _, id := range entryIDs {
		if _, err := s.db.Exec(ctx, `UPDATE wallet_entries SET block_hash = $1 WHERE id = $2`, blockHash, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, id string) ([]HistoryEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `SELECT id, wallet_id, direction, amount, counterparty, COALESCE(block_hash, ''), created_at
        FROM wallet_entries WHERE wallet_id = $1 ORDER BY created_at, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var dir string
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.WalletID, &dir, &e.Amount, &e.Counterparty, &e.BlockHash, &createdAt); err != nil {
			return nil, err
		}
		e.Direction = Direction(dir)
		e.CreatedAt = createdAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func insertEntry(ctx context.Context, tx pgx.Tx, walletID string, dir Direction, amount int64, counterparty string) (string, error) {
	id := uuid.New()
	_, err := tx.Exec(ctx, `INSERT INTO wallet_entries (id, wallet_id, direction, amount, counterparty, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, id, walletID, string(dir), amount, counterparty, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	var kind string
	var createdAt time.Time
	if err := row.Scan(&w.ID, &w.OwnerID, &kind, &w.Balance, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	w.Kind = Kind(kind)
	w.CreatedAt = createdAt.UTC()
	return w, nil
}

// mapConflict translates Postgres serialization and deadlock failures into
// ErrConflict so the coordinator can retry them.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return ErrConflict
		}
	}
	return err
}
