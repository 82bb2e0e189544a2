package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/BrandonDHaskell/Portunus/gate/internal/config"
	"github.com/BrandonDHaskell/Portunus/gate/internal/db"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store/dataapi"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store/memory"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store/mongo"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store/sqlite"
)

// backend is the storage wiring selected by the config.
type backend struct {
	directory store.Directory
	seeder    store.Seeder
	events    store.ScanEventStore
	stats     store.StatsStore

	// sqlDB and sqliteEvents are set only for the sqlite driver.
	sqlDB        *sql.DB
	sqliteEvents *sqlite.ScanEventStore

	closers []func(context.Context) error
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}

	switch cfg.Storage.Driver {
	case "sqlite":
		sqlDB, err := db.Open(ctx, db.Config{Path: cfg.Storage.SQLitePath})
		if err != nil {
			return nil, err
		}
		writer := db.NewWorker(sqlDB)
		dir := sqlite.NewDirectory(sqlDB, writer)

		b.sqlDB = sqlDB
		b.sqliteEvents = sqlite.NewScanEventStore(sqlDB, writer)
		b.directory, b.seeder = dir, dir
		b.events = b.sqliteEvents
		b.stats = sqlite.NewStatsStore(sqlDB, writer)
		b.closers = append(b.closers, func(context.Context) error {
			writer.Close()
			return sqlDB.Close()
		})

	case "mongo":
		client, st, err := mongo.Connect(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, client.Disconnect)
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = b.Close(ctx)
			return nil, err
		}
		b.directory, b.seeder = st, st
		b.events, b.stats = st, st

	case "memory":
		dir := memory.NewDirectory()
		if cfg.Storage.Fixtures != "" {
			fx, err := store.LoadFixtures(cfg.Storage.Fixtures)
			if err != nil {
				return nil, err
			}
			if err := fx.Apply(ctx, dir); err != nil {
				return nil, fmt.Errorf("apply fixtures: %w", err)
			}
		}
		b.directory, b.seeder = dir, dir
		b.events = memory.NewScanEventStore()
		b.stats = memory.NewStatsStore()

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Directory.Source == "dataapi" {
		b.directory = dataapi.New(dataapi.Config{
			BaseURL: cfg.Directory.DataAPIURL,
			APIKey:  cfg.Directory.DataAPIKey,
		})
	}

	logger.Debug(
		"storage ready",
		slog.String("driver", cfg.Storage.Driver),
		slog.String("directory", cfg.Directory.Source),
	)
	return b, nil
}

// Close releases the backend in reverse order of acquisition.
func (b *backend) Close(ctx context.Context) error {
	var firstErr error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.closers = nil
	return firstErr
}
