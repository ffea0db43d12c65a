package wallet

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tumapay/tumapay/internal/event"
)

// Service owns the wallet lifecycle: creation, funding and transfers. It
// wraps the repository's single-shot mutations in a bounded retry loop and
// publishes domain events only after the local transaction has committed.
type Service struct {
	repo       Repository
	publisher  event.Publisher
	logger     *slog.Logger
	maxRetries int
}

// NewService builds a wallet service. maxRetries bounds how often a mutation
// is re-attempted after a version conflict; negative values are treated as 0.
func NewService(repo Repository, publisher event.Publisher, logger *slog.Logger, maxRetries int) *Service {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Service{repo: repo, publisher: publisher, logger: logger, maxRetries: maxRetries}
}

// Create provisions a wallet with balance 0 and version 0.
func (s *Service) Create(ctx context.Context, userID string) (Wallet, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Wallet{}, ErrInvalidUser
	}

	now := time.Now().UTC()
	w := Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Balance:   decimal.Zero,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// Get retrieves a wallet by id.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	return s.repo.Get(ctx, id)
}

// ListByUser returns all wallets owned by a user, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Wallet, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Fund adds amount to the wallet balance and records one FUND ledger entry.
// On success one FUND event is emitted, keyed by the new entry's id.
func (s *Service) Fund(ctx context.Context, walletID string, amount decimal.Decimal) (Wallet, LedgerEntry, error) {
	if err := validateAmount(amount); err != nil {
		return Wallet{}, LedgerEntry{}, err
	}

	var (
		w     Wallet
		entry LedgerEntry
		err   error
	)
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		w, entry, err = s.repo.Fund(ctx, walletID, amount)
		if !errors.Is(err, ErrConcurrencyConflict) {
			break
		}
	}
	if err != nil {
		return Wallet{}, LedgerEntry{}, err
	}

	s.publish(ctx, s.newEvent(entry, w.UserID))
	return w, entry, nil
}

// Transfer moves amount between two wallets atomically and emits one event
// per ledger entry, each carrying its own entry id as the idempotency key.
func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (TransferResult, error) {
	if err := validateAmount(amount); err != nil {
		return TransferResult{}, err
	}
	if fromID == toID {
		return TransferResult{}, ErrSameWallet
	}

	var (
		res TransferResult
		err error
	)
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		res, err = s.repo.Transfer(ctx, fromID, toID, amount)
		if !errors.Is(err, ErrConcurrencyConflict) {
			break
		}
	}
	if err != nil {
		return TransferResult{}, err
	}

	s.publish(ctx,
		s.newEvent(res.OutEntry, res.From.UserID),
		s.newEvent(res.InEntry, res.To.UserID),
	)
	return res, nil
}

// validateAmount accepts strictly positive decimals with scale at most 4.
func validateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(4)) {
		return ErrInvalidAmount
	}
	return nil
}

func (s *Service) newEvent(entry LedgerEntry, userID string) event.Event {
	return event.Event{
		ID:            uuid.NewString(),
		WalletID:      entry.WalletID,
		UserID:        userID,
		Amount:        entry.Amount,
		EventType:     entry.Type,
		TransactionID: entry.ID,
		CreatedAt:     entry.CreatedAt,
	}
}

// publish runs strictly after commit. A publication failure does not undo the
// mutation: the caller still sees success and the gap is surfaced in the logs.
func (s *Service) publish(ctx context.Context, events ...event.Event) {
	for _, evt := range events {
		full, err := evt.WithPayload()
		if err == nil {
			err = s.publisher.Publish(ctx, full)
		}
		if err != nil {
			s.logger.Error("publish wallet event",
				slog.String("event_type", evt.EventType),
				slog.String("wallet_id", evt.WalletID),
				slog.String("transaction_id", evt.TransactionID),
				slog.Any("error", err),
			)
		}
	}
}
