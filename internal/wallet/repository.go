package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// TransferResult carries both legs of a completed transfer together with the
// post-commit state of the wallets involved.
type TransferResult struct {
	From     Wallet
	To       Wallet
	OutEntry LedgerEntry
	InEntry  LedgerEntry
}

// Repository persists wallets and their ledger entries. Fund and Transfer are
// single attempts: a version race surfaces as ErrConcurrencyConflict and the
// caller decides whether to retry.
type Repository interface {
	Create(ctx context.Context, w Wallet) error
	Get(ctx context.Context, id string) (Wallet, error)
	ListByUser(ctx context.Context, userID string) ([]Wallet, error)
	Fund(ctx context.Context, walletID string, amount decimal.Decimal) (Wallet, LedgerEntry, error)
	Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (TransferResult, error)
}

// orderWalletIDs returns the pair in its fixed global order. Every transfer
// touches rows lower-id first, so two concurrent transfers can never wait on
// each other in a cycle regardless of their from/to direction.
func orderWalletIDs(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// PostgresRepository stores wallets in PostgreSQL using version-conditioned
// updates instead of explicit row locks.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const walletColumns = `id, user_id, balance, version, created_at, updated_at`

// Create inserts a wallet record.
func (r *PostgresRepository) Create(ctx context.Context, w Wallet) error {
	_, err := r.db.Exec(ctx, `INSERT INTO wallets (id, user_id, balance, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		w.ID, w.UserID, w.Balance, w.Version, w.CreatedAt.UTC(), w.UpdatedAt.UTC())
	return err
}

// Get fetches a wallet by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
	return scanWallet(row)
}

// ListByUser returns all wallets owned by a user, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Wallet, error) {
	rows, err := r.db.Query(ctx, `SELECT `+walletColumns+` FROM wallets
        WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// Fund applies one optimistic-lock attempt: read the wallet, then update it
// conditioned on the version still matching. Zero affected rows means another
// mutation committed in between and the attempt reports ErrConcurrencyConflict.
func (r *PostgresRepository) Fund(ctx context.Context, walletID string, amount decimal.Decimal) (Wallet, LedgerEntry, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Wallet{}, LedgerEntry{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := getWalletTx(ctx, tx, walletID)
	if err != nil {
		return Wallet{}, LedgerEntry{}, err
	}

	now := time.Now().UTC()
	newBalance := w.Balance.Add(amount)

	tag, err := tx.Exec(ctx, `UPDATE wallets
        SET balance = $1, version = version + 1, updated_at = $2
        WHERE id = $3 AND version = $4`,
		newBalance, now, walletID, w.Version)
	if err != nil {
		return Wallet{}, LedgerEntry{}, err
	}
	if tag.RowsAffected() == 0 {
		return Wallet{}, LedgerEntry{}, ErrConcurrencyConflict
	}

	entry, err := insertEntry(ctx, tx, walletID, amount, TypeFund, "", now)
	if err != nil {
		return Wallet{}, LedgerEntry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Wallet{}, LedgerEntry{}, err
	}

	w.Balance = newBalance
	w.Version++
	w.UpdatedAt = now
	return w, entry, nil
}

// Transfer moves funds between two wallets in one local transaction. Reads
// and conditional updates always touch the lower-ordered wallet first; see
// orderWalletIDs. Both legs commit or neither does.
func (r *PostgresRepository) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (TransferResult, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	firstID, secondID := orderWalletIDs(fromID, toID)

	first, err := getWalletTx(ctx, tx, firstID)
	if err != nil {
		return TransferResult{}, err
	}
	second, err := getWalletTx(ctx, tx, secondID)
	if err != nil {
		return TransferResult{}, err
	}

	from, to := first, second
	if from.ID != fromID {
		from, to = second, first
	}

	// Funds check happens after both reads and before any write, so an
	// insufficient balance never leaves a half-applied transfer behind.
	if from.Balance.LessThan(amount) {
		return TransferResult{}, ErrInsufficientFunds
	}

	now := time.Now().UTC()
	from.Balance = from.Balance.Sub(amount)
	to.Balance = to.Balance.Add(amount)

	for _, id := range []string{firstID, secondID} {
		w := &from
		if to.ID == id {
			w = &to
		}
		tag, err := tx.Exec(ctx, `UPDATE wallets
            SET balance = $1, version = version + 1, updated_at = $2
            WHERE id = $3 AND version = $4`,
			w.Balance, now, w.ID, w.Version)
		if err != nil {
			return TransferResult{}, err
		}
		if tag.RowsAffected() == 0 {
			return TransferResult{}, ErrConcurrencyConflict
		}
	}
	from.Version++
	to.Version++
	from.UpdatedAt = now
	to.UpdatedAt = now

	referenceID := uuid.NewString()
	outEntry, err := insertEntry(ctx, tx, from.ID, amount, TypeTransferOut, referenceID, now)
	if err != nil {
		return TransferResult{}, err
	}
	inEntry, err := insertEntry(ctx, tx, to.ID, amount, TypeTransferIn, referenceID, now)
	if err != nil {
		return TransferResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, err
	}

	return TransferResult{From: from, To: to, OutEntry: outEntry, InEntry: inEntry}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (Wallet, error) {
	var w Wallet
	var createdAt, updatedAt time.Time
	if err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.Version, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	w.CreatedAt = createdAt.UTC()
	w.UpdatedAt = updatedAt.UTC()
	return w, nil
}

func getWalletTx(ctx context.Context, tx pgx.Tx, id string) (Wallet, error) {
	row := tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
	return scanWallet(row)
}

func insertEntry(ctx context.Context, tx pgx.Tx, walletID string, amount decimal.Decimal, entryType, referenceID string, now time.Time) (LedgerEntry, error) {
	entry := LedgerEntry{
		ID:          uuid.NewString(),
		WalletID:    walletID,
		Amount:      amount,
		Type:        entryType,
		Status:      StatusCompleted,
		ReferenceID: referenceID,
		CreatedAt:   now,
	}

	var ref any
	if referenceID != "" {
		ref = referenceID
	}

	_, err := tx.Exec(ctx, `INSERT INTO wallet_transactions (id, wallet_id, amount, type, status, reference_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.WalletID, entry.Amount, entry.Type, entry.Status, ref, now)
	if err != nil {
		return LedgerEntry{}, err
	}
	return entry, nil
}
