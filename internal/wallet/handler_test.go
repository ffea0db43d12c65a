package wallet

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/tumapay/tumapay/internal/event"
	"github.com/tumapay/tumapay/internal/logging"
)

func newTestApp(t *testing.T) (*fiber.App, *event.MemoryPublisher) {
	t.Helper()
	pub := event.NewMemoryPublisher()
	svc := NewService(NewMemoryRepository(), pub, logging.Discard(), 3)
	h := NewHandler(svc)

	app := fiber.New()
	app.Post("/wallets", h.Create)
	app.Get("/wallets/:walletId", h.Get)
	app.Get("/users/:userId/wallets", h.ListByUser)
	app.Post("/wallets/:walletId/fund", h.Fund)
	app.Post("/wallets/:walletId/transfer", h.Transfer)
	return app, pub
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var parsed map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, parsed
}

func createWallet(t *testing.T, app *fiber.App, userID string) string {
	t.Helper()
	status, body := doJSON(t, app, http.MethodPost, "/wallets", map[string]string{"user_id": userID})
	if status != http.StatusCreated {
		t.Fatalf("create wallet: status %d, body %v", status, body)
	}
	data := body["data"].(map[string]any)
	return data["id"].(string)
}

func TestWalletLifecycleOverHTTP(t *testing.T) {
	app, _ := newTestApp(t)

	id := createWallet(t, app, "alice")

	status, body := doJSON(t, app, http.MethodGet, "/wallets/"+id, nil)
	if status != http.StatusOK {
		t.Fatalf("get wallet: status %d", status)
	}
	data := body["data"].(map[string]any)
	if data["balance"] != "0.0000" {
		t.Fatalf("expected balance 0.0000, got %v", data["balance"])
	}

	status, body = doJSON(t, app, http.MethodPost, "/wallets/"+id+"/fund", map[string]string{"amount": "100.00"})
	if status != http.StatusOK {
		t.Fatalf("fund: status %d, body %v", status, body)
	}
	wallet := body["data"].(map[string]any)["wallet"].(map[string]any)
	if wallet["balance"] != "100.0000" {
		t.Fatalf("expected balance 100.0000, got %v", wallet["balance"])
	}
	if wallet["version"] != float64(1) {
		t.Fatalf("expected version 1, got %v", wallet["version"])
	}

	status, body = doJSON(t, app, http.MethodGet, "/users/alice/wallets", nil)
	if status != http.StatusOK {
		t.Fatalf("list wallets: status %d", status)
	}
	if wallets := body["data"].([]any); len(wallets) != 1 {
		t.Fatalf("expected one wallet, got %d", len(wallets))
	}
}

func TestTransferOverHTTP(t *testing.T) {
	app, pub := newTestApp(t)

	from := createWallet(t, app, "alice")
	to := createWallet(t, app, "bob")

	if status, body := doJSON(t, app, http.MethodPost, "/wallets/"+from+"/fund", map[string]string{"amount": "100.00"}); status != http.StatusOK {
		t.Fatalf("fund: status %d, body %v", status, body)
	}

	status, body := doJSON(t, app, http.MethodPost, "/wallets/"+from+"/transfer", map[string]string{
		"to_wallet_id": to,
		"amount":       "30.00",
	})
	if status != http.StatusOK {
		t.Fatalf("transfer: status %d, body %v", status, body)
	}
	data := body["data"].(map[string]any)
	if data["from_balance"] != "70.0000" || data["to_balance"] != "30.0000" {
		t.Fatalf("unexpected balances %v / %v", data["from_balance"], data["to_balance"])
	}
	txns := data["transactions"].([]any)
	if len(txns) != 2 {
		t.Fatalf("expected two transactions, got %d", len(txns))
	}
	if got := txns[0].(map[string]any)["type"]; got != TypeTransferOut {
		t.Fatalf("expected first leg %s, got %v", TypeTransferOut, got)
	}

	if events := pub.Events(); len(events) != 3 {
		t.Fatalf("expected 3 published events, got %d", len(events))
	}
}

func TestHandlerErrorCodes(t *testing.T) {
	app, _ := newTestApp(t)

	from := createWallet(t, app, "alice")
	to := createWallet(t, app, "bob")

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"missing wallet", http.MethodGet, "/wallets/missing", nil, http.StatusNotFound, "WALLET_NOT_FOUND"},
		{"empty user", http.MethodPost, "/wallets", map[string]string{"user_id": ""}, http.StatusBadRequest, "USER_REQUIRED"},
		{"unparseable amount", http.MethodPost, "/wallets/" + from + "/fund", map[string]string{"amount": "ten"}, http.StatusBadRequest, "INVALID_AMOUNT"},
		{"too many decimals", http.MethodPost, "/wallets/" + from + "/fund", map[string]string{"amount": "1.00001"}, http.StatusBadRequest, "INVALID_AMOUNT"},
		{"self transfer", http.MethodPost, "/wallets/" + from + "/transfer", map[string]string{"to_wallet_id": from, "amount": "1.00"}, http.StatusBadRequest, "SAME_WALLET"},
		{"insufficient funds", http.MethodPost, "/wallets/" + from + "/transfer", map[string]string{"to_wallet_id": to, "amount": "1.00"}, http.StatusBadRequest, "INSUFFICIENT_FUNDS"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := doJSON(t, app, tc.method, tc.path, tc.body)
			if status != tc.status {
				t.Fatalf("expected status %d, got %d (body %v)", tc.status, status, body)
			}
			if body["success"] != false {
				t.Fatalf("expected success=false, got %v", body["success"])
			}
			if body["code"] != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, body["code"])
			}
		})
	}
}
