package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-queue/internal/config"
	"github.com/oshokin/alarm-queue/internal/logger"
	"github.com/oshokin/alarm-queue/internal/version"
)

// errUnknownLogLevel is returned for a level name zap does not know.
var errUnknownLogLevel = errors.New("unknown log level")

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command; the work is done by subcommands.
	rootCmd = &cobra.Command{
		Use:   "alarm-queue",
		Short: "Exercise the alarm-priority message queue.",
		Long: `Runs demonstrations, acceptance scenarios and stress tests against the
alarm-priority message queue.

At most one alarm message is outstanding at a time and it is always delivered
before normal messages, which are delivered first-in first-out.
Settings are read from a YAML file; defaults apply when it does not exist.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}
)

// Execute runs the alarm-queue CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging applies the log level from the flag or, failing that, from the settings file.
func setupLogging(_ *cobra.Command, _ []string) error {
	level := logLevel
	if level == "" {
		cfg, err := config.LoadOrDefault(configPath)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}

		level = cfg.LogLevel
	}

	parsed, ok := logger.ParseLogLevel(level)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, level)
	}

	logger.SetLevel(parsed)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}
