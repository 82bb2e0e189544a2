package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	eventsAccessPoint string
	eventsLimit       int
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List the most recent scan events for an access point (sqlite only)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		b, err := openBackend(ctx, appConfig)
		if err != nil {
			return err
		}
		defer func() { _ = b.Close(ctx) }()

		if b.sqliteEvents == nil {
			return errors.New("events requires the sqlite driver")
		}

		evs, err := b.sqliteEvents.RecentScanEvents(ctx, eventsAccessPoint, eventsLimit)
		if err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(evs)
		}
		for _, ev := range evs {
			outcome := "denied"
			if ev.Granted {
				outcome = "granted"
			}
			fmt.Printf("%s  %s  %-7s  %-22s  user=%s  cards=%s\n",
				ev.CreatedAt.Format(time.RFC3339), ev.ID, outcome, ev.GrantType,
				orDash(ev.UserID), orDash(hex.EncodeToString(ev.CardHash)))
		}
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	eventsCmd.Flags().StringVar(&eventsAccessPoint, "access-point", "", "Access point id")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 20, "Maximum number of events")
	_ = eventsCmd.MarkFlagRequired("access-point")
	rootCmd.AddCommand(eventsCmd)
}
