package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tumapay/tumapay/internal/config"
)

// Server wraps a Fiber application. Route wiring is delegated to the caller
// so the wallet and history services can share one lifecycle.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// New instantiates the HTTP server and applies the provided route setup.
func New(cfg config.Config, configure func(*fiber.App) error) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	if err := configure(app); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg}, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
