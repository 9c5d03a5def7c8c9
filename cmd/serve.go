package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"authchat/internal/api"
	"authchat/internal/auth"
	"authchat/internal/chat"
	"authchat/internal/config"
	"authchat/internal/database"
	"authchat/internal/logging"
	"authchat/internal/mail"
	"authchat/internal/observability"
)

const (
	connectTimeout  = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

func runServe(cmd *cobra.Command, flags *config.Flags) error {
	cfg, err := loadConfig(cmd, flags, true)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	client, err := database.ConnectMongoDB(connectCtx, cfg.MongoURI, logger)
	cancel()
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn("Error disconnecting from DB", zap.Error(err))
		}
	}()

	store := database.NewUserStore(database.GetUserCollection(client, cfg.MongoDB))
	if err := store.EnsureIndexes(ctx); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "ensure indexes").Wrap(err)
	}

	handler, err := buildServer(ctx, cfg, store, client, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:      handler,
		Addr:         cfg.Addr(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Chat.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("SERVER_FAILED").With("addr", srv.Addr).Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return oops.Code("SERVER_FAILED").With("operation", "shutdown").Wrap(err)
	}
	logger.Info("Server exiting gracefully.")
	return nil
}

// buildServer wires the services and the HTTP surface.
func buildServer(ctx context.Context, cfg *config.Config, store auth.UserStore, client *mongo.Client, logger *zap.Logger) (http.Handler, error) {
	metrics := observability.NewMetrics()

	mailer, err := newMailer(cfg.SMTP, metrics, logger)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, time.Now)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	authSvc, err := auth.NewService(store, auth.NewBcryptHasher(auth.DefaultBcryptCost), tokens, mailer,
		auth.WithResetBaseURL(cfg.FrontendURL),
		auth.WithMailTimeout(cfg.SMTP.Timeout),
		auth.WithLogger(logger.Named("auth")),
	)
	if err != nil {
		return nil, err
	}

	proxy := chat.NewProxy(newGenerator(ctx, cfg.Chat, logger), cfg.Chat.Timeout, logger.Named("chat"), metrics)

	var health api.HealthFunc
	if client != nil {
		health = func(ctx context.Context) error { return database.Ping(ctx, client) }
	}

	return api.NewServer(api.Options{
		Auth:        authSvc,
		Chat:        proxy,
		Health:      health,
		Metrics:     metrics,
		Logger:      logger,
		FrontendURL: cfg.FrontendURL,
		AccessLog:   os.Stdout,
	})
}

// newMailer returns an SMTP sender, or a sender that always fails when no
// SMTP host is configured.
func newMailer(cfg config.SMTPConfig, recorder mail.Recorder, logger *zap.Logger) (auth.Mailer, error) {
	sender, err := mail.NewSMTPSender(cfg, recorder)
	if errors.Is(err, mail.ErrNotConfigured) {
		logger.Warn("SMTP_HOST is not set, password reset mails are disabled")
		return mail.Disabled{}, nil
	}
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "configure SMTP").Wrap(err)
	}
	return sender, nil
}

// newGenerator returns the Gemini client, or Unavailable when it cannot be
// built. The chat route stays mounted either way.
func newGenerator(ctx context.Context, cfg config.ChatConfig, logger *zap.Logger) chat.Generator {
	if cfg.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set, chat replies will use the fallback")
		return chat.Unavailable{}
	}
	gen, err := chat.NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, "")
	if err != nil {
		logger.Warn("Gemini client unavailable", zap.Error(err))
		return chat.Unavailable{}
	}
	return gen
}
