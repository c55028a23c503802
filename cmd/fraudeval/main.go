package main

import (
	"os"

	"fraud-eval/internal/cfg"
	"fraud-eval/internal/common"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var logLevel string

var root = &cobra.Command{
	Use:   "fraudeval",
	Short: "Compare fraud classifiers on card transaction records",
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		setupLogging(logLevel)
	},
	SilenceUsage: true,
}

func init() {
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default $LOG_LEVEL or info)")
	root.AddCommand(
		runCmd,
		describeCmd,
		generateCmd,
		historyCmd,
		versionCmd,
	)
}

func main() {
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(level string) {
	if level == "" {
		level = os.Getenv(common.EnvLogLevel)
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// loadSettings reads .env, the optional YAML file and the environment.
// The configured log level replaces the startup one unless --log-level was
// given. Flags are applied by the caller, which validates again afterwards.
func loadSettings() cfg.Settings {
	if err := cfg.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env")
	}
	settings, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if !root.PersistentFlags().Changed("log-level") {
		setupLogging(settings.LogLevel)
	}
	return settings
}
