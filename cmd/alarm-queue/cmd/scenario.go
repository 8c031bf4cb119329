package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-queue/internal/service/scenario"
)

// scenarioDiscipline overrides the configured discipline.
var scenarioDiscipline string

// scenarioCmd runs the acceptance sequence.
var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Run the acceptance scenario and print PASS/FAIL per step.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Setup graceful shutdown handling.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		result, err := scenario.Run(ctx, &scenario.Options{
			ConfigPath: configPath,
			Discipline: scenarioDiscipline,
		})
		if result != nil {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "discipline: %s\n", result.Discipline)

			for _, s := range result.Steps {
				if s.Passed() {
					_, _ = fmt.Fprintf(out, "PASS  %s\n", s.Name)

					continue
				}

				_, _ = fmt.Fprintf(out, "FAIL  %s: %v\n", s.Name, s.Err)
			}
		}

		return err
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	scenarioCmd.Flags().
		StringVarP(&scenarioDiscipline, "discipline", "d", "", "blocking or non-blocking, overrides the settings file")
	rootCmd.AddCommand(scenarioCmd)
}
