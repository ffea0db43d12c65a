package history

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/tumapay/tumapay/internal/event"
)

const (
	defaultMinBackoff = 250 * time.Millisecond
	defaultMaxBackoff = 10 * time.Second
)

// Consumer drains wallet events from the log and materializes them as
// history records. Offsets are committed only after the record write durably
// succeeded or was recognized as a duplicate, so a crash mid-flight causes
// redelivery rather than loss.
type Consumer struct {
	repo    Repository
	logger  *slog.Logger
	brokers []string
	topic   string
	groupID string
	workers int

	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewConsumer builds a consumer running the given number of workers. All
// workers join one consumer group, so each partition is owned by exactly one
// worker at a time.
func NewConsumer(repo Repository, logger *slog.Logger, brokers []string, topic, groupID string, workers int) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{
		repo:       repo,
		logger:     logger,
		brokers:    brokers,
		topic:      topic,
		groupID:    groupID,
		workers:    workers,
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
	}
}

// Run blocks until the context is canceled and all workers have drained.
func (c *Consumer) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			c.runWorker(ctx, worker)
		}(i)
	}
	wg.Wait()
}

func (c *Consumer) runWorker(ctx context.Context, worker int) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.brokers,
		GroupID:     c.groupID,
		Topic:       c.topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
	})
	defer reader.Close()

	logger := c.logger.With(slog.Int("worker", worker))
	logger.Info("consumer worker started", slog.String("topic", c.topic), slog.String("group", c.groupID))

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				logger.Info("consumer worker stopping")
				return
			}
			logger.Error("fetch message", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.minBackoff):
			}
			continue
		}

		if err := c.Ingest(ctx, msg.Value); err != nil {
			// Only context cancellation escapes Ingest; the offset stays
			// uncommitted and the message is redelivered on restart.
			return
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("commit offset", slog.Any("error", err),
				slog.Int("partition", msg.Partition), slog.Int64("offset", msg.Offset))
		}
	}
}

// Ingest persists a single raw event payload. It returns nil once the message
// may be acknowledged: either the record was written, it already existed, or
// the payload is permanently undecodable and is skipped. Transient store
// failures are retried in place with capped backoff; only context
// cancellation makes Ingest give up, leaving the message unacknowledged.
func (c *Consumer) Ingest(ctx context.Context, payload []byte) error {
	evt, err := decodeEvent(payload)
	if err != nil {
		// Permanent: a payload that cannot decode today will not decode on
		// redelivery either. Skip it so the partition keeps moving.
		c.logger.Error("skip undecodable event", slog.Any("error", err))
		return nil
	}

	rec := Record{
		ID:            uuid.NewString(),
		WalletID:      evt.WalletID,
		UserID:        evt.UserID,
		Amount:        evt.Amount,
		EventType:     evt.EventType,
		TransactionID: evt.TransactionID,
		EventData:     evt.EventData,
		ReceivedAt:    time.Now().UTC(),
	}

	delay := c.minBackoff
	for {
		err := c.repo.Insert(ctx, rec)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrDuplicateEvent) {
			c.logger.Debug("event already recorded",
				slog.String("transaction_id", rec.TransactionID),
				slog.String("event_type", rec.EventType))
			return nil
		}

		c.logger.Warn("history insert failed, retrying",
			slog.String("transaction_id", rec.TransactionID),
			slog.Duration("backoff", delay),
			slog.Any("error", err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > c.maxBackoff {
			delay = c.maxBackoff
		}
	}
}

// decodeEvent unmarshals and validates an event payload. Events without the
// identifying fields cannot be deduplicated and are treated as undecodable.
func decodeEvent(payload []byte) (event.Event, error) {
	var evt event.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return event.Event{}, err
	}
	if evt.TransactionID == "" || evt.WalletID == "" || evt.EventType == "" {
		return event.Event{}, errors.New("event missing required fields")
	}
	return evt, nil
}
