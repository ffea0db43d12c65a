package history

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Record is the deduplicated materialization of one wallet domain event.
// Records are append-only: never updated, never deleted. At most one record
// exists per TransactionID, enforced by a unique index.
type Record struct {
	ID            string
	WalletID      string
	UserID        string
	Amount        decimal.Decimal
	EventType     string
	TransactionID string
	EventData     json.RawMessage
	ReceivedAt    time.Time
}
