package event

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Event types mirror the wallet ledger entry types.
const (
	TypeFund        = "FUND"
	TypeTransferOut = "TRANSFER_OUT"
	TypeTransferIn  = "TRANSFER_IN"
)

// Event is the unit published to the wallet events topic. TransactionID is
// the stable idempotency key: it equals the ledger entry id behind the
// mutation, so each leg of a transfer is deduplicated independently.
// EventData carries the serialized event itself for audit replay.
type Event struct {
	ID            string          `json:"id"`
	WalletID      string          `json:"wallet_id"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	EventType     string          `json:"event_type"`
	TransactionID string          `json:"transaction_id"`
	CreatedAt     time.Time       `json:"created_at"`
	EventData     json.RawMessage `json:"event_data,omitempty"`
}

// WithPayload returns a copy of the event whose EventData holds the event's
// own serialization, taken before the payload field is set.
func (e Event) WithPayload() (Event, error) {
	bare := e
	bare.EventData = nil
	raw, err := json.Marshal(bare)
	if err != nil {
		return Event{}, err
	}
	e.EventData = raw
	return e, nil
}
