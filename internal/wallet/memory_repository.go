package wallet

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memoryRepository struct {
	mu      sync.Mutex
	wallets map[string]Wallet
	entries []LedgerEntry
}

// NewMemoryRepository constructs an in-memory repository for tests. It keeps
// the same version and conflict semantics as the PostgreSQL implementation.
func NewMemoryRepository() Repository {
	return &memoryRepository{wallets: make(map[string]Wallet)}
}

func (r *memoryRepository) Create(_ context.Context, w Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.wallets[w.ID]; exists {
		return errors.New("wallet exists")
	}
	r.wallets[w.ID] = w
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var wallets []Wallet
	for _, w := range r.wallets {
		if w.UserID == userID {
			wallets = append(wallets, w)
		}
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].CreatedAt.After(wallets[j].CreatedAt) })
	return wallets, nil
}

func (r *memoryRepository) Fund(_ context.Context, walletID string, amount decimal.Decimal) (Wallet, LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.wallets[walletID]
	if !ok {
		return Wallet{}, LedgerEntry{}, ErrWalletNotFound
	}

	now := time.Now().UTC()
	w.Balance = w.Balance.Add(amount)
	w.Version++
	w.UpdatedAt = now
	r.wallets[walletID] = w

	entry := r.appendEntry(walletID, amount, TypeFund, "", now)
	return w, entry, nil
}

func (r *memoryRepository) Transfer(_ context.Context, fromID, toID string, amount decimal.Decimal) (TransferResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	from, ok := r.wallets[fromID]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}
	to, ok := r.wallets[toID]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}

	if from.Balance.LessThan(amount) {
		return TransferResult{}, ErrInsufficientFunds
	}

	now := time.Now().UTC()
	from.Balance = from.Balance.Sub(amount)
	to.Balance = to.Balance.Add(amount)
	from.Version++
	to.Version++
	from.UpdatedAt = now
	to.UpdatedAt = now
	r.wallets[fromID] = from
	r.wallets[toID] = to

	referenceID := uuid.NewString()
	outEntry := r.appendEntry(fromID, amount, TypeTransferOut, referenceID, now)
	inEntry := r.appendEntry(toID, amount, TypeTransferIn, referenceID, now)

	return TransferResult{From: from, To: to, OutEntry: outEntry, InEntry: inEntry}, nil
}

func (r *memoryRepository) appendEntry(walletID string, amount decimal.Decimal, entryType, referenceID string, now time.Time) LedgerEntry {
	entry := LedgerEntry{
		ID:          uuid.NewString(),
		WalletID:    walletID,
		Amount:      amount,
		Type:        entryType,
		Status:      StatusCompleted,
		ReferenceID: referenceID,
		CreatedAt:   now,
	}
	r.entries = append(r.entries, entry)
	return entry
}
