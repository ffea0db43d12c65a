package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"github.com/tumapay/tumapay/internal/config"
	"github.com/tumapay/tumapay/internal/history"
	"github.com/tumapay/tumapay/internal/infra"
	"github.com/tumapay/tumapay/internal/logging"
	"github.com/tumapay/tumapay/internal/routes"
	"github.com/tumapay/tumapay/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := history.NewPostgresRepository(db)

	consumer := history.NewConsumer(repo, logger, cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, cfg.ConsumerWorkers)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		consumer.Run(ctx)
	}()

	srv, err := server.New(cfg, func(app *fiber.App) error {
		return routes.SetupHistory(app, routes.HistoryDeps{
			Cfg:    cfg,
			DB:     db,
			Repo:   repo,
			Logger: logger,
		})
	})
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	// Workers stop fetching on cancel; uncommitted messages are simply
	// redelivered to the next instance.
	stopConsumer()
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		logger.Warn("consumer did not drain before deadline")
	}

	logger.Info("history service exited cleanly")
}
