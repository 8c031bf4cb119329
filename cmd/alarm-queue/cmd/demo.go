package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-queue/internal/service/demo"
)

// pause between demonstration steps.
var pause time.Duration

// demoCmd runs the threaded demonstration.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the producer/consumer demonstration.",
	Long: `Runs three short demonstrations on a blocking queue: a consumer waiting for
a slow producer, a second alarm sender suspended until the slot is freed, and
normal messages drained in order.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Setup graceful shutdown handling.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		report, err := demo.Run(ctx, &demo.Options{
			ConfigPath: configPath,
			Pause:      pause,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, d := range report.Deliveries {
			marker := " "
			if d.IsAlarm() {
				marker = "!"
			}

			_, _ = fmt.Fprintf(out, "%s %-18s %-7s %v\n", marker, d.Part, d.Kind, d.Payload)
		}

		_, _ = fmt.Fprintf(out, "second alarm waited %s, final size %d\n", report.AlarmWait, report.FinalSize)

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	demoCmd.Flags().DurationVarP(&pause, "pause", "p", demo.DefaultPause, "delay used to steer the goroutines")
	rootCmd.AddCommand(demoCmd)
}
