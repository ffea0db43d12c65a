package history

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes read queries over the history store.
type Handler struct {
	repo Repository
}

// NewHandler builds a history HTTP handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

type recordResponse struct {
	ID            string          `json:"id"`
	WalletID      string          `json:"wallet_id"`
	UserID        string          `json:"user_id"`
	Amount        string          `json:"amount"`
	EventType     string          `json:"event_type"`
	TransactionID string          `json:"transaction_id"`
	EventData     json.RawMessage `json:"event_data,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toRecordResponses(records []Record) []recordResponse {
	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, recordResponse{
			ID:            rec.ID,
			WalletID:      rec.WalletID,
			UserID:        rec.UserID,
			Amount:        rec.Amount.StringFixed(4),
			EventType:     rec.EventType,
			TransactionID: rec.TransactionID,
			EventData:     rec.EventData,
			CreatedAt:     rec.ReceivedAt,
		})
	}
	return out
}

// WalletHistory returns the event history of one wallet, most recent first.
func (h *Handler) WalletHistory(c *fiber.Ctx) error {
	records, err := h.repo.ListByWallet(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": toRecordResponses(records)})
}

// UserActivity returns a user's events across all their wallets, most recent first.
func (h *Handler) UserActivity(c *fiber.Ctx) error {
	records, err := h.repo.ListByUser(c.UserContext(), c.Params("userId"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": toRecordResponses(records)})
}

func storeError(c *fiber.Ctx, err error) error {
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"code":    "STORE_UNAVAILABLE",
		"error":   err.Error(),
	})
}
