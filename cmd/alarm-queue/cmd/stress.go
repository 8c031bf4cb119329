package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-queue/internal/service/stress"
)

var (
	// stressOptions collects flag overrides.
	stressOptions stress.Options
	// alarmRatio backs the --alarm-ratio flag.
	alarmRatio float64
)

// stressCmd runs concurrent producers and consumers against one queue.
var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Stress the queue with concurrent producers and consumers.",
	Long: `Starts producers sending uniquely identified messages and consumers receiving
them, then verifies that nothing was duplicated, lost or reordered and that no
more than one alarm was outstanding at a time. Flags override the settings file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Setup graceful shutdown handling.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		opts := stressOptions
		opts.ConfigPath = configPath

		if cmd.Flags().Changed("alarm-ratio") {
			opts.AlarmRatio = &alarmRatio
		}

		report, err := stress.Run(ctx, &opts)
		if report != nil {
			printReport(cmd, report)
		}

		return err
	},
}

// printReport renders the run summary as aligned columns.
func printReport(cmd *cobra.Command, r *stress.Report) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	rows := []struct {
		name  string
		value any
	}{
		{"actor", r.Actor},
		{"discipline", r.Discipline},
		{"seed", r.Seed},
		{"producers x consumers", fmt.Sprintf("%d x %d", r.Producers, r.Consumers)},
		{"sent (alarms)", fmt.Sprintf("%d (%d)", r.Sent, r.SentAlarms)},
		{"received", r.Received},
		{"duplicates", r.Duplicates},
		{"lost", r.Lost},
		{"corrupted", r.Corrupted},
		{"order violations", r.OrderViolations},
		{"max alarms", r.MaxAlarms},
		{"send retries", r.SendRetries},
		{"receive retries", r.ReceiveRetries},
		{"blocked sends", r.Metrics.BlockedSends},
		{"blocked receives", r.Metrics.BlockedReceives},
		{"average wait", r.Metrics.AverageWait()},
		{"elapsed", r.Elapsed},
	}

	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%v\n", row.name, row.value)
	}

	_ = w.Flush()
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := stressCmd.Flags()
	flags.StringVarP(&stressOptions.Discipline, "discipline", "d", "", "blocking or non-blocking")
	flags.IntVar(&stressOptions.Producers, "producers", 0, "number of producers")
	flags.IntVar(&stressOptions.Consumers, "consumers", 0, "number of consumers")
	flags.IntVarP(&stressOptions.Messages, "messages", "n", 0, "messages per producer")
	flags.Float64Var(&alarmRatio, "alarm-ratio", 0, "share of alarm messages in [0, 1]")
	flags.Uint64Var(&stressOptions.Seed, "seed", 0, "seed for kind selection")
	flags.DurationVarP(&stressOptions.Timeout, "timeout", "t", 0, "deadline of the whole run")
	flags.StringVar(&stressOptions.HistoryFile, "history", "", "append a record of the run to this JSON file")
	rootCmd.AddCommand(stressCmd)
}
