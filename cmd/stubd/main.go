package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/trade-companion/internal/config"
	"github.com/spec-kit/trade-companion/internal/observability"
	"github.com/spec-kit/trade-companion/internal/stub"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	server := stub.NewServer(cfg, logger)
	for _, seed := range [][3]string{
		{"demo@example.com", "password1", "Demo"},
		{"support" + cfg.Auth.AdminDomainSuffix, "password1", "Support"},
	} {
		if err := server.Seed(seed[0], seed[1], seed[2]); err != nil {
			logger.Fatal("failed to seed account", zap.String("email", seed[0]), zap.Error(err))
		}
	}

	app := fiber.New()
	server.Router(app)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
