package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopledger/internal/certificate"
	"shopledger/internal/config"
	"shopledger/internal/database"
	"shopledger/internal/event"
	"shopledger/internal/handler"
	"shopledger/internal/identifier"
	"shopledger/internal/inventory"
	"shopledger/internal/repository"
	"shopledger/internal/router"
	"shopledger/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting shopledger API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		return fmt.Errorf("failed to ensure database schema: %w", err)
	}

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(pool, logger)
	certRepo := repository.NewCertificateRepository(pool, logger)

	// Initialize mail publisher with local no-op fallback
	var mail event.Publisher
	if cfg.Mail.Enabled {
		mail, err = event.NewAMQPPublisher(cfg.Mail.URL, cfg.Mail.Queue, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to connect to mail broker, mail events disabled")
			mail = event.NewNopPublisher()
		}
	} else {
		mail = event.NewNopPublisher()
		logger.Info().Msg("mail events disabled")
	}
	defer mail.Close()

	// Initialize inventory snapshot client
	var stock inventory.Client
	if cfg.Inventory.Enabled {
		stock = inventory.NewClient(cfg.Inventory.URL, logger)
	} else {
		stock = inventory.NewNopClient()
		logger.Info().Msg("inventory snapshots disabled")
	}

	// Initialize ledger components
	ids := identifier.New()
	validator := certificate.NewValidator(certRepo, logger)
	allocator := certificate.NewAllocator(validator, logger)
	settler := certificate.NewSettler(orderRepo, certRepo, logger)

	// Initialize services
	orderService := service.NewOrderService(
		orderRepo, allocator, settler, ids, stock, mail, cfg.Ledger.TaxRate, logger)
	certificateService := service.NewCertificateService(
		certRepo, validator, ids, mail, cfg.Ledger.CertificateValidityDays, logger)

	// Initialize HTTP handlers
	orderHandler := handler.NewOrderHandler(orderService, logger)
	certificateHandler := handler.NewCertificateHandler(certificateService, logger)

	// Initialize router
	mux := router.New(orderHandler, certificateHandler, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
