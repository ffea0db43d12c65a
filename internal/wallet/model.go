package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger entry types. The sign of a mutation is implied by the type; the
// stored amount is always positive.
const (
	TypeFund        = "FUND"
	TypeTransferOut = "TRANSFER_OUT"
	TypeTransferIn  = "TRANSFER_IN"
)

// Ledger entry statuses.
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Wallet is a stored-value account for a single user. Version increases by
// exactly one on every successful mutation and backs the optimistic lock.
type Wallet struct {
	ID        string
	UserID    string
	Balance   decimal.Decimal
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LedgerEntry is an immutable audit row describing one balance mutation.
// The two legs of a transfer share one ReferenceID.
type LedgerEntry struct {
	ID          string
	WalletID    string
	Amount      decimal.Decimal
	Type        string
	Status      string
	ReferenceID string
	CreatedAt   time.Time
}
