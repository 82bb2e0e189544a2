package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/Portunus/gate/internal/db"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store/mongo"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations (sqlite) or create indexes (mongo)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		switch appConfig.Storage.Driver {
		case "sqlite":
			sqlDB, err := db.Open(ctx, db.Config{Path: appConfig.Storage.SQLitePath})
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			versions, err := db.Applied(ctx, sqlDB)
			if err != nil {
				return err
			}
			logger.Info(
				"migrations applied",
				slog.String("path", appConfig.Storage.SQLitePath),
				slog.Any("versions", versions),
			)
			return nil

		case "mongo":
			client, st, err := mongo.Connect(ctx, appConfig.Storage.MongoURI, appConfig.Storage.MongoDatabase)
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(ctx) }()

			if err := st.EnsureIndexes(ctx); err != nil {
				return err
			}
			logger.Info("indexes ensured", slog.String("database", appConfig.Storage.MongoDatabase))
			return nil
		}

		return fmt.Errorf("nothing to migrate for driver %q", appConfig.Storage.Driver)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
