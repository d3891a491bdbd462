package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/liliang-cn/docuchat/internal/api"
	"github.com/liliang-cn/docuchat/internal/llm"
	"github.com/liliang-cn/docuchat/internal/notify"
	"github.com/liliang-cn/docuchat/internal/repository"
	"github.com/liliang-cn/docuchat/internal/service"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database (session audit trail and event log)
	db, err := repository.NewDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	sessionRepo := repository.NewSessionRepository(db)
	eventRepo := repository.NewEventRepository(db)

	// Status events go to the log, the event store and live subscribers
	hub := notify.NewHub(logger, cfg.Server.AllowOrigins)
	notifier := notify.Multi{
		notify.NewLogNotifier(logger),
		notify.NewStoreNotifier(eventRepo, logger),
		hub,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	provider, err := llm.NewProvider(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize llm provider: %w", err)
	}

	// Initialize services
	orchestrator := service.NewOrchestratorService(provider, cfg.LLM, logger)
	ingestService := service.NewIngestService(logger)
	chatService := service.NewChatService(cfg.Session, ingestService, orchestrator, notifier, sessionRepo, logger)
	adminService := service.NewAdminService(eventRepo, sessionRepo, chatService)

	router := api.SetupRouter(cfg, chatService, adminService, hub, logger)

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting DocuChat server",
			zap.String("address", cfg.Address()),
			zap.String("base_url", cfg.Server.BaseURL),
			zap.String("provider", cfg.LLM.Provider),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Cancels in-flight questions and closes the audit rows
	chatService.Shutdown()

	logger.Info("Server exited")
	return nil
}
