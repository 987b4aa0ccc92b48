package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/smsledger/internal/auth"
	"github.com/MrJamesThe3rd/smsledger/internal/config"
	"github.com/MrJamesThe3rd/smsledger/internal/connection"
	connectionStore "github.com/MrJamesThe3rd/smsledger/internal/connection/store"
	"github.com/MrJamesThe3rd/smsledger/internal/database"
	apiHttp "github.com/MrJamesThe3rd/smsledger/internal/http"
	matchingHandler "github.com/MrJamesThe3rd/smsledger/internal/http/matching"
	"github.com/MrJamesThe3rd/smsledger/internal/http/smsimport"
	"github.com/MrJamesThe3rd/smsledger/internal/http/smsregister"
	txHandler "github.com/MrJamesThe3rd/smsledger/internal/http/transaction"
	"github.com/MrJamesThe3rd/smsledger/internal/http/webhook"
	"github.com/MrJamesThe3rd/smsledger/internal/importer"
	"github.com/MrJamesThe3rd/smsledger/internal/logger"
	"github.com/MrJamesThe3rd/smsledger/internal/matching"
	matchingStore "github.com/MrJamesThe3rd/smsledger/internal/matching/store"
	"github.com/MrJamesThe3rd/smsledger/internal/parser"
	"github.com/MrJamesThe3rd/smsledger/internal/pipeline"
	"github.com/MrJamesThe3rd/smsledger/internal/transaction"
	txStore "github.com/MrJamesThe3rd/smsledger/internal/transaction/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.SMS.WebhookSecret == "" {
		slog.Warn("SMS_WEBHOOK_SECRET is not set; the sms webhook accepts unauthenticated requests", "env", cfg.App.Env)
	}

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	p := parser.New(parser.WithLocation(cfg.Location()))

	var (
		transactionService = transaction.NewService(txStore.New(db))
		matchingService    = matching.NewService(matchingStore.New(db))
		importService      = importer.NewService(cfg.SMS.BackupMaxMessages)
		pipelineService    = pipeline.NewService(p, transactionService,
			pipeline.WithCategorizer(matchingService),
			pipeline.WithWorkers(cfg.SMS.ParseWorkers),
		)
		connectionManager = connection.NewManager(connectionStore.New(db), transactionService, p,
			connection.WithCategorizer(matchingService),
		)
	)

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	router := apiHttp.New(tokens, apiHttp.Handlers{
		Transactions: txHandler.NewHandler(transactionService),
		Matching:     matchingHandler.NewHandler(matchingService),
		SMSImport:    smsimport.NewHandler(pipelineService, transactionService, importService, cfg.SMS.DefaultMinConfidence),
		SMSRegister:  smsregister.NewHandler(connectionManager, cfg.SMS.WebhookBaseURL),
		Webhook:      webhook.NewHandler(connectionManager, cfg.SMS.WebhookSecret),
	}, apiHttp.Options{
		Timeout:     cfg.Server.Timeout,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
