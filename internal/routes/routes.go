package routes

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tumapay/tumapay/internal/config"
	"github.com/tumapay/tumapay/internal/event"
	"github.com/tumapay/tumapay/internal/history"
	"github.com/tumapay/tumapay/internal/middleware"
	"github.com/tumapay/tumapay/internal/wallet"
)

// WalletDeps aggregates the dependencies of the wallet service routes.
// A nil DB selects the in-memory repository, which only makes sense in dev
// and tests.
type WalletDeps struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Cache     *redis.Client
	Publisher event.Publisher
	Logger    *slog.Logger
}

// HistoryDeps aggregates the dependencies of the history service routes.
// Repo overrides the DB-backed repository when set; tests use it to share one
// store between the consumer and the handlers.
type HistoryDeps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Repo   history.Repository
	Logger *slog.Logger
}

// SetupWallet configures middlewares and the wallet service routes.
func SetupWallet(app *fiber.App, d WalletDeps) error {
	if !isDev(d.Cfg.AppEnv) && d.DB == nil {
		return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	registerWalletHealth(app, d)

	var repo wallet.Repository
	if d.DB != nil {
		repo = wallet.NewPostgresRepository(d.DB)
	} else {
		repo = wallet.NewMemoryRepository()
	}

	svc := wallet.NewService(repo, d.Publisher, d.Logger, d.Cfg.MutationRetries)
	h := wallet.NewHandler(svc)

	app.Post("/wallets", h.Create)
	app.Get("/wallets/:walletId", h.Get)
	app.Get("/users/:userId/wallets", h.ListByUser)
	app.Post("/wallets/:walletId/fund", h.Fund)
	app.Post("/wallets/:walletId/transfer", h.Transfer)

	return nil
}

// SetupHistory configures middlewares and the history service routes.
func SetupHistory(app *fiber.App, d HistoryDeps) error {
	if !isDev(d.Cfg.AppEnv) && d.DB == nil && d.Repo == nil {
		return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	registerHistoryHealth(app, d)

	repo := d.Repo
	if repo == nil {
		if d.DB != nil {
			repo = history.NewPostgresRepository(d.DB)
		} else {
			repo = history.NewMemoryRepository()
		}
	}

	h := history.NewHandler(repo)

	app.Get("/wallets/:walletId/history", h.WalletHistory)
	app.Get("/users/:userId/activity", h.UserActivity)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
