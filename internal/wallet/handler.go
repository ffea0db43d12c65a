package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	UserID string `json:"user_id"`
}

type fundRequest struct {
	Amount string `json:"amount"`
}

type transferRequest struct {
	ToWalletID string `json:"to_wallet_id"`
	Amount     string `json:"amount"`
}

type walletResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Balance   string    `json:"balance"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

type entryResponse struct {
	TransactionID string    `json:"transaction_id"`
	WalletID      string    `json:"wallet_id"`
	Amount        string    `json:"amount"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	ReferenceID   string    `json:"reference_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toWalletResponse(w Wallet) walletResponse {
	return walletResponse{
		ID:        w.ID,
		UserID:    w.UserID,
		Balance:   w.Balance.StringFixed(4),
		Version:   w.Version,
		CreatedAt: w.CreatedAt,
	}
}

func toEntryResponse(e LedgerEntry) entryResponse {
	return entryResponse{
		TransactionID: e.ID,
		WalletID:      e.WalletID,
		Amount:        e.Amount.StringFixed(4),
		Type:          e.Type,
		Status:        e.Status,
		ReferenceID:   e.ReferenceID,
		CreatedAt:     e.CreatedAt,
	}
}

// Create provisions a wallet for a user.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "INVALID_BODY", err.Error())
	}
	w, err := h.service.Create(c.UserContext(), req.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"success": true, "data": toWalletResponse(w)})
}

// Get returns a wallet's balance and version.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, err := h.service.Get(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": toWalletResponse(w)})
}

// ListByUser returns the wallets owned by a user, newest first.
func (h *Handler) ListByUser(c *fiber.Ctx) error {
	wallets, err := h.service.ListByUser(c.UserContext(), c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]walletResponse, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, toWalletResponse(w))
	}
	return c.JSON(fiber.Map{"success": true, "data": out})
}

// Fund adds money to a wallet and returns the new balance.
func (h *Handler) Fund(c *fiber.Ctx) error {
	var req fundRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "INVALID_BODY", err.Error())
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return respondError(c, ErrInvalidAmount)
	}

	w, entry, err := h.service.Fund(c.UserContext(), c.Params("walletId"), amount)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{
		"wallet":      toWalletResponse(w),
		"transaction": toEntryResponse(entry),
	}})
}

// Transfer moves money from the path wallet to the destination wallet.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "INVALID_BODY", err.Error())
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return respondError(c, ErrInvalidAmount)
	}

	res, err := h.service.Transfer(c.UserContext(), c.Params("walletId"), req.ToWalletID, amount)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{
		"from_balance": res.From.Balance.StringFixed(4),
		"to_balance":   res.To.Balance.StringFixed(4),
		"transactions": []entryResponse{toEntryResponse(res.OutEntry), toEntryResponse(res.InEntry)},
	}})
}

// respondError maps the wallet error taxonomy onto distinct HTTP statuses and
// machine-readable codes so clients can tell a retryable conflict from a hard
// failure.
func respondError(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	code := "INTERNAL"
	message := "an unexpected error occurred"

	switch {
	case errors.Is(err, ErrWalletNotFound):
		status, code, message = http.StatusNotFound, "WALLET_NOT_FOUND", err.Error()
	case errors.Is(err, ErrInvalidUser):
		status, code, message = http.StatusBadRequest, "USER_REQUIRED", err.Error()
	case errors.Is(err, ErrInvalidAmount):
		status, code, message = http.StatusBadRequest, "INVALID_AMOUNT", err.Error()
	case errors.Is(err, ErrSameWallet):
		status, code, message = http.StatusBadRequest, "SAME_WALLET", err.Error()
	case errors.Is(err, ErrInsufficientFunds):
		status, code, message = http.StatusBadRequest, "INSUFFICIENT_FUNDS", err.Error()
	case errors.Is(err, ErrConcurrencyConflict):
		status, code, message = http.StatusConflict, "CONCURRENCY_CONFLICT", err.Error()
	}

	return c.Status(status).JSON(fiber.Map{"success": false, "code": code, "error": message})
}

func badRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{"success": false, "code": code, "error": message})
}
