package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

var statsScope string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print scan counters for an organization or the global scope",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		b, err := openBackend(ctx, appConfig)
		if err != nil {
			return err
		}
		defer func() { _ = b.Close(ctx) }()

		counters, err := b.stats.ScanCounters(ctx, statsScope)
		if err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(struct {
				Scope string `json:"scope"`
				types.ScanCounters
			}{statsScope, counters})
		}
		fmt.Printf("scope:   %s\ntotal:   %d\ngranted: %d\ndenied:  %d\n",
			statsScope, counters.Total, counters.Granted, counters.Denied)
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsScope, "scope", types.GlobalStatsScope, "Organization id, or \"global\"")
	rootCmd.AddCommand(statsCmd)
}
