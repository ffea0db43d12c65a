package history

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tumapay/tumapay/internal/event"
	"github.com/tumapay/tumapay/internal/logging"
)

func newTestConsumer(repo Repository) *Consumer {
	c := NewConsumer(repo, logging.Discard(), nil, "wallet-events", "history-service", 1)
	c.minBackoff = time.Millisecond
	c.maxBackoff = 5 * time.Millisecond
	return c
}

func fundPayload(t *testing.T, transactionID string) []byte {
	t.Helper()
	evt := event.Event{
		ID:            "evt-" + transactionID,
		WalletID:      "w1",
		UserID:        "alice",
		Amount:        decimal.RequireFromString("10.00"),
		EventType:     event.TypeFund,
		TransactionID: transactionID,
		CreatedAt:     time.Now().UTC(),
	}
	withPayload, err := evt.WithPayload()
	if err != nil {
		t.Fatalf("embed payload: %v", err)
	}
	raw, err := json.Marshal(withPayload)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return raw
}

func TestIngestIsIdempotent(t *testing.T) {
	repo := NewMemoryRepository()
	c := newTestConsumer(repo)
	ctx := context.Background()

	payload := fundPayload(t, "txn-1")
	for i := 0; i < 3; i++ {
		if err := c.Ingest(ctx, payload); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	records, err := repo.ListByWallet(ctx, "w1")
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record after redelivery, got %d", len(records))
	}
	if records[0].TransactionID != "txn-1" {
		t.Fatalf("unexpected transaction id %s", records[0].TransactionID)
	}
}

func TestIngestSkipsMalformedPayloads(t *testing.T) {
	repo := NewMemoryRepository()
	c := newTestConsumer(repo)
	ctx := context.Background()

	bad := [][]byte{
		[]byte("not json"),
		[]byte(`{"wallet_id":"w1","event_type":"FUND"}`), // no transaction id
		[]byte(`{"transaction_id":"txn-x"}`),             // no wallet id
	}
	for _, payload := range bad {
		if err := c.Ingest(ctx, payload); err != nil {
			t.Fatalf("malformed payload must be skipped, got %v", err)
		}
	}

	// A valid event after the bad batch still lands.
	if err := c.Ingest(ctx, fundPayload(t, "txn-2")); err != nil {
		t.Fatalf("ingest valid event: %v", err)
	}

	records, err := repo.ListByWallet(ctx, "w1")
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected only the valid event, got %d records", len(records))
	}
}

// flakyRepository fails the first N inserts before recovering.
type flakyRepository struct {
	Repository
	failures int
	calls    int
}

func (r *flakyRepository) Insert(ctx context.Context, rec Record) error {
	r.calls++
	if r.calls <= r.failures {
		return errors.New("store unavailable")
	}
	return r.Repository.Insert(ctx, rec)
}

func TestIngestRetriesTransientFailures(t *testing.T) {
	repo := &flakyRepository{Repository: NewMemoryRepository(), failures: 2}
	c := newTestConsumer(repo)
	ctx := context.Background()

	if err := c.Ingest(ctx, fundPayload(t, "txn-3")); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if repo.calls != 3 {
		t.Fatalf("expected 3 insert attempts, got %d", repo.calls)
	}

	records, err := repo.ListByWallet(ctx, "w1")
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected the record to land after retries, got %d", len(records))
	}
}

func TestIngestStopsOnCancellation(t *testing.T) {
	repo := &flakyRepository{Repository: NewMemoryRepository(), failures: 1 << 30}
	c := newTestConsumer(repo)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Ingest(ctx, fundPayload(t, "txn-4"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context error, got %v", err)
	}

	records, listErr := repo.Repository.ListByWallet(context.Background(), "w1")
	if listErr != nil {
		t.Fatalf("list records: %v", listErr)
	}
	if len(records) != 0 {
		t.Fatalf("nothing should have been recorded, got %d", len(records))
	}
}
