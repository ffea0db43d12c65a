package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func record(txnID, walletID, userID string, receivedAt time.Time) Record {
	return Record{
		ID:            "rec-" + txnID,
		WalletID:      walletID,
		UserID:        userID,
		Amount:        decimal.RequireFromString("10.00"),
		EventType:     "FUND",
		TransactionID: txnID,
		ReceivedAt:    receivedAt,
	}
}

func TestMemoryRepositoryDeduplicates(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Insert(ctx, record("txn-1", "w1", "alice", now)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := repo.Insert(ctx, record("txn-1", "w1", "alice", now.Add(time.Second)))
	if !errors.Is(err, ErrDuplicateEvent) {
		t.Fatalf("expected ErrDuplicateEvent, got %v", err)
	}

	records, err := repo.ListByWallet(ctx, "w1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
}

func TestMemoryRepositoryFiltersAndOrders(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Now().UTC()

	inserts := []Record{
		record("txn-1", "w1", "alice", base),
		record("txn-2", "w2", "bob", base.Add(time.Second)),
		record("txn-3", "w1", "alice", base.Add(2*time.Second)),
	}
	for _, rec := range inserts {
		if err := repo.Insert(ctx, rec); err != nil {
			t.Fatalf("insert %s: %v", rec.TransactionID, err)
		}
	}

	byWallet, err := repo.ListByWallet(ctx, "w1")
	if err != nil {
		t.Fatalf("list by wallet: %v", err)
	}
	if len(byWallet) != 2 {
		t.Fatalf("expected 2 records for w1, got %d", len(byWallet))
	}
	if byWallet[0].TransactionID != "txn-3" || byWallet[1].TransactionID != "txn-1" {
		t.Fatalf("expected newest first, got %s then %s", byWallet[0].TransactionID, byWallet[1].TransactionID)
	}

	byUser, err := repo.ListByUser(ctx, "bob")
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(byUser) != 1 || byUser[0].TransactionID != "txn-2" {
		t.Fatalf("unexpected records for bob: %+v", byUser)
	}
}
