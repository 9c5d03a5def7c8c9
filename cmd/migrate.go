package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"authchat/internal/config"
	"authchat/internal/database"
	"authchat/internal/logging"
)

const migrateTimeout = time.Minute

func newMigrateCmd(flags *config.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the MongoDB indexes",
		Long:  `Create the unique index on user emails. Safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, flags)
		},
	}
}

func runMigrate(cmd *cobra.Command, flags *config.Flags) error {
	cfg, err := loadConfig(cmd, flags, false)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
	defer cancel()

	client, err := database.ConnectMongoDB(ctx, cfg.MongoURI, logger)
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

	cmd.Println("Indexes are up to date")
	return nil
}
