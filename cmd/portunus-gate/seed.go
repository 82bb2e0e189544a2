package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/Portunus/gate/internal/db"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
)

var (
	seedFixtures string
	seedDev      bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load directory records into the configured store",
	Long: `Load organizations, locations, access points and user links from a
YAML fixtures file, or insert the built-in development records (sqlite only).
`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if appConfig.Storage.Driver == "memory" {
			return errors.New("the memory driver does not persist; set storage.fixtures instead")
		}
		if seedFixtures == "" && !seedDev {
			return errors.New("one of --fixtures or --dev is required")
		}

		b, err := openBackend(ctx, appConfig)
		if err != nil {
			return err
		}
		defer func() { _ = b.Close(ctx) }()

		if seedDev {
			if b.sqlDB == nil {
				return errors.New("--dev requires the sqlite driver")
			}
			if err := db.SeedDev(ctx, b.sqlDB); err != nil {
				return err
			}
			logger.Info(
				"dev records seeded",
				slog.String("location_id", db.DevLocationID),
				slog.String("access_point_id", db.DevAccessPointID),
			)
		}

		if seedFixtures != "" {
			fx, err := store.LoadFixtures(seedFixtures)
			if err != nil {
				return err
			}
			if err := fx.Apply(ctx, b.seeder); err != nil {
				return err
			}
			logger.Info(
				"fixtures loaded",
				slog.String("file", seedFixtures),
				slog.Int("organizations", len(fx.Organizations)),
				slog.Int("access_points", len(fx.AccessPoints)),
			)
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFixtures, "fixtures", "", "YAML fixtures file to load")
	seedCmd.Flags().BoolVar(&seedDev, "dev", false, "Insert the development organization and access point")
	rootCmd.AddCommand(seedCmd)
}
