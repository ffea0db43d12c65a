package history

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateEvent reports that a record with the same transaction id is
// already stored. For an at-least-once log this is a success outcome: the
// event was processed before and must simply be acknowledged again.
var ErrDuplicateEvent = errors.New("event already recorded")

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint breach.
const uniqueViolation = "23505"

// Repository persists and queries history records.
type Repository interface {
	Insert(ctx context.Context, rec Record) error
	ListByWallet(ctx context.Context, walletID string) ([]Record, error)
	ListByUser(ctx context.Context, userID string) ([]Record, error)
}

// PostgresRepository stores history records in PostgreSQL. Deduplication is
// attempt-insert: the unique index on transaction_id decides, so concurrent
// redeliveries cannot race the way a check-then-insert would.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert writes one record, mapping a unique violation on transaction_id to
// ErrDuplicateEvent.
func (r *PostgresRepository) Insert(ctx context.Context, rec Record) error {
	_, err := r.db.Exec(ctx, `INSERT INTO transaction_events
        (id, wallet_id, user_id, amount, event_type, transaction_id, event_data, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.WalletID, rec.UserID, rec.Amount, rec.EventType, rec.TransactionID,
		[]byte(rec.EventData), rec.ReceivedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateEvent
		}
		return err
	}
	return nil
}

const recordColumns = `id, wallet_id, user_id, amount, event_type, transaction_id, event_data, created_at`

// ListByWallet returns the history of one wallet, most recent first.
func (r *PostgresRepository) ListByWallet(ctx context.Context, walletID string) ([]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT `+recordColumns+` FROM transaction_events
        WHERE wallet_id = $1 ORDER BY created_at DESC`, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListByUser returns a user's activity across all their wallets, most recent first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT `+recordColumns+` FROM transaction_events
        WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func collectRecords(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var rec Record
		var data []byte
		var receivedAt time.Time
		if err := rows.Scan(&rec.ID, &rec.WalletID, &rec.UserID, &rec.Amount, &rec.EventType,
			&rec.TransactionID, &data, &receivedAt); err != nil {
			return nil, err
		}
		rec.EventData = data
		rec.ReceivedAt = receivedAt.UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}
