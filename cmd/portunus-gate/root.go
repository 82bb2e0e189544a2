package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/BrandonDHaskell/Portunus/gate/internal/config"
)

var (
	appConfig  config.Config
	settings   = config.New()
	logger     = slog.New(slog.NewTextHandler(os.Stdout, nil))
	configFile string
	jsonOutput bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "portunus-gate",
	Short: "Access evaluation engine for Portunus access points.",
	Long: `Decides whether a scanned identity may pass an access point and
returns the scan data the device should act on.
`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable or disable debug mode")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Enable JSON output")

	_ = settings.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	cfg, err := config.Load(settings, configFile)
	if err != nil {
		logFatal("failed to load config", err, "config", configFile)
	}
	appConfig = cfg
}

func initLogger() {
	logLevel := slog.LevelInfo
	if appConfig.Debug {
		logLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.Kitchen,
			NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
		})
	}

	logger = slog.New(handler)
}

func logFatal(msg string, err error, kv ...any) {
	args := append([]any{slog.String("error", err.Error())}, kv...)
	logger.Error(msg, args...)
	os.Exit(1)
}
