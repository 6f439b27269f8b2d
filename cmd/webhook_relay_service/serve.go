package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aradsms/webhook_relay/internal/platform/config"
	"github.com/aradsms/webhook_relay/internal/platform/database"
	"github.com/aradsms/webhook_relay/internal/platform/logger"
	"github.com/aradsms/webhook_relay/internal/platform/messagebroker"
	"github.com/aradsms/webhook_relay/internal/webhook_relay_service/adapters/events"
	"github.com/aradsms/webhook_relay/internal/webhook_relay_service/adapters/whatsapp"
	"github.com/aradsms/webhook_relay/internal/webhook_relay_service/app"
	"github.com/aradsms/webhook_relay/internal/webhook_relay_service/domain"
	mongorepo "github.com/aradsms/webhook_relay/internal/webhook_relay_service/repository/mongo"
	pgrepo "github.com/aradsms/webhook_relay/internal/webhook_relay_service/repository/postgres"
	httptransport "github.com/aradsms/webhook_relay/internal/webhook_relay_service/transport/http"
)

const storeRetryInterval = 5 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	mainCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		return err
	}
	if err := cfg.ValidateForServe(); err != nil {
		slog.Error("Invalid configuration", "service", serviceName, "error", err)
		return err
	}

	appLogger := logger.New(cfg.LogLevel).With("service", serviceName)
	appLogger.Info("Starting service...",
		"port", cfg.ServerPort,
		"store_driver", cfg.StoreDriver,
		"nats_enabled", cfg.NATSURL != "",
		"signature_check", cfg.WhatsAppAppSecret != "",
		"dedupe_window", cfg.DedupeWindow.String(),
	)

	store, err := openStore(mainCtx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize message store", "error", err)
		return err
	}

	sender := whatsapp.NewClient(whatsapp.ClientConfig{
		BaseURL:       cfg.WhatsAppAPIBaseURL,
		APIVersion:    cfg.WhatsAppAPIVersion,
		PhoneNumberID: cfg.WhatsAppPhoneID,
		AccessToken:   cfg.WhatsAppToken,
		Timeout:       cfg.SendTimeout,
	}, nil, appLogger)

	announcer, natsClient := newAnnouncer(cfg, appLogger)

	dispatcher := app.NewEventDispatcher(
		store.repo,
		sender,
		announcer,
		app.NewDedupeWindow(cfg.DedupeWindow),
		validator.New(),
		appLogger,
	)
	verifier := app.NewWebhookVerifier(cfg.VerifyToken, appLogger)
	readiness := httptransport.NewReadiness()

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Webhook:   httptransport.NewWebhookHandler(verifier, dispatcher, appLogger),
		Readiness: readiness,
		AppSecret: cfg.WhatsAppAppSecret,
		Logger:    appLogger,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info(fmt.Sprintf("Bot is running on port %d", cfg.ServerPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := newStoreWaiter(store, cfg, appLogger).Wait(groupCtx); err != nil {
			return nil // cancelled during shutdown
		}
		readiness.MarkReady()
		appLogger.Info("Connected to message store", "driver", store.conn.Driver())
		_ = app.SendStartupNotification(groupCtx, sender, cfg.StartupNotifyRecipient, appLogger)
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		appLogger.Info("Shutdown signal received, shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("HTTP server shutdown failed", "error", err)
		} else {
			appLogger.Info("HTTP server shut down gracefully.")
		}
		if natsClient != nil {
			natsClient.Close()
		}
		if err := store.conn.Close(shutdownCtx); err != nil {
			appLogger.Error("Failed to close message store", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Service stopped with error", "error", err)
		return err
	}
	appLogger.Info("Service shutdown complete.")
	return nil
}

// storeHandle is the configured store connection, its repository and an
// optional step run once the store answers (schema creation for Postgres).
type storeHandle struct {
	conn    database.Connection
	repo    domain.MessageRepository
	prepare func(ctx context.Context) error
}

// openStore creates the configured store client and repository. Neither
// touches the network; storeWaiter does.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storeHandle, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		conn, err := database.NewPostgresConnection(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return &storeHandle{
			conn: conn,
			repo: pgrepo.NewPgMessageRepository(conn.Pool, logger),
			prepare: func(ctx context.Context) error {
				return pgrepo.EnsureSchema(ctx, conn.Pool)
			},
		}, nil
	default:
		conn, err := database.NewMongoConnection(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, cfg.MongoTLS)
		if err != nil {
			return nil, err
		}
		return &storeHandle{
			conn: conn,
			repo: mongorepo.NewMongoMessageRepository(conn.MessagesCollection(), logger),
		}, nil
	}
}

// storeWaiter pings the store until it answers and then runs prepare.
type storeWaiter struct {
	store    database.Connection
	prepare  func(ctx context.Context) error
	timeout  time.Duration
	interval time.Duration
	logger   *slog.Logger
}

func newStoreWaiter(handle *storeHandle, cfg *config.Config, logger *slog.Logger) *storeWaiter {
	return &storeWaiter{
		store:    handle.conn,
		prepare:  handle.prepare,
		timeout:  cfg.StoreConnectTimeout,
		interval: storeRetryInterval,
		logger:   logger,
	}
}

// Wait retries until the store is usable. It only returns an error when ctx
// is cancelled.
func (w *storeWaiter) Wait(ctx context.Context) error {
	for {
		err := w.ping(ctx)
		if err == nil {
			return nil
		}
		w.logger.Error("Error connecting to message store", "driver", w.store.Driver(), "error", err, "retry_in", w.interval.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

func (w *storeWaiter) ping(ctx context.Context) error {
	pingCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	if err := w.store.Ping(pingCtx); err != nil {
		return err
	}
	if w.prepare != nil {
		if err := w.prepare(pingCtx); err != nil {
			return fmt.Errorf("prepare store: %w", err)
		}
	}
	return nil
}

// newAnnouncer returns a CloudEvents announcer over NATS when NATS_URL is set.
// A failed NATS connection degrades to the no-op announcer.
func newAnnouncer(cfg *config.Config, logger *slog.Logger) (domain.EventAnnouncer, *messagebroker.NATSClient) {
	if cfg.NATSURL == "" {
		return events.NopAnnouncer{}, nil
	}
	nc, err := messagebroker.NewNATSClient(cfg.NATSURL, serviceName, logger)
	if err != nil {
		logger.Error("Failed to connect to NATS, event announcements disabled", "error", err)
		return events.NopAnnouncer{}, nil
	}
	logger.Info("Successfully connected to NATS")
	return events.NewCloudEventAnnouncer(nc, "/"+serviceName, logger), nc
}
