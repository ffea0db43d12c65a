package history

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.Mutex
	byTxnID map[string]struct{}
	records []Record
}

// NewMemoryRepository constructs an in-memory repository for tests with the
// same dedup contract as the PostgreSQL implementation.
func NewMemoryRepository() Repository {
	return &memoryRepository{byTxnID: make(map[string]struct{})}
}

func (r *memoryRepository) Insert(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byTxnID[rec.TransactionID]; exists {
		return ErrDuplicateEvent
	}
	r.byTxnID[rec.TransactionID] = struct{}{}
	r.records = append(r.records, rec)
	return nil
}

func (r *memoryRepository) ListByWallet(_ context.Context, walletID string) ([]Record, error) {
	return r.list(func(rec Record) bool { return rec.WalletID == walletID }), nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Record, error) {
	return r.list(func(rec Record) bool { return rec.UserID == userID }), nil
}

func (r *memoryRepository) list(match func(Record) bool) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Record
	for _, rec := range r.records {
		if match(rec) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	return out
}
