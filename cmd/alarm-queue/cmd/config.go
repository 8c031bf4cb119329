package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-queue/internal/config"
)

// overwrite allows replacing an existing settings file.
var overwrite bool

// configCmd writes a settings file filled with defaults.
var configCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a settings file with default values.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := os.Stat(configPath); err == nil && !overwrite {
			return fmt.Errorf("%s already exists, use --force to replace it", configPath)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("check settings file: %w", err)
		}

		if err := config.Save(configPath, config.Default()); err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Settings written to %s\n", configPath)

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	configCmd.Flags().BoolVarP(&overwrite, "force", "f", false, "replace an existing settings file")
	rootCmd.AddCommand(configCmd)
}
