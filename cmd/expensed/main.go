// Command expensed runs the expense reporting HTTP service: receipt upload
// and extraction, trip and per-diem rate management, the expense ledger, and
// report generation.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/blackcape/expense-reporter/internal/auth"
	"github.com/blackcape/expense-reporter/internal/common"
	"github.com/blackcape/expense-reporter/internal/extract"
	"github.com/blackcape/expense-reporter/internal/gsa"
	"github.com/blackcape/expense-reporter/internal/ledger"
	"github.com/blackcape/expense-reporter/internal/receipt"
	"github.com/blackcape/expense-reporter/internal/report"
	"github.com/blackcape/expense-reporter/internal/server"
	"github.com/blackcape/expense-reporter/internal/store"
	"github.com/blackcape/expense-reporter/internal/trip"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("service exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg := common.LoadConfig()
	if cfg.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if cfg.Gemini.APIKey == "" {
		return errors.New("GEMINI_API_KEY must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, err := store.Open(cfg.Storage.DBPath, logger)
	if err != nil {
		return err
	}
	defer kv.Close()

	receipts, err := receipt.NewStore(ctx, kv, logger)
	if err != nil {
		return err
	}
	items, err := ledger.New(ctx, kv, logger)
	if err != nil {
		return err
	}

	rates := gsa.NewClient(cfg.GSA.BaseURL, cfg.GSA.APIKey, cfg.GSA.Timeout, logger)
	trips, err := trip.NewRegistry(ctx, kv, rates, logger)
	if err != nil {
		return err
	}

	gemini, err := extract.NewGeminiExtractor(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Timeout, logger)
	if err != nil {
		return err
	}
	extractor := extract.NewRetrying(gemini, cfg.Gemini.MaxRetries, logger)

	sessions := auth.NewSessionStore(cfg.Auth.SessionTTL)
	verifier := auth.NewGoogleVerifier(logger)
	authSvc := auth.NewService(verifier, sessions, cfg.Auth.JWTSecret, cfg.Auth.AllowedDomain, cfg.Auth.SessionTTL, logger)

	renderer := report.NewXLSXRenderer(logger)

	srv := server.New(receipts, items, trips, extractor, rates, renderer, authSvc, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(cfg.Server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
