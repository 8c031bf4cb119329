package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-queue/internal/repository/history"
)

// historyCmd prints the records appended by `stress --history`.
var historyCmd = &cobra.Command{
	Use:   "history <file>",
	Short: "Show recorded stress runs.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := history.NewFileRepository(args[0]).Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "RECORDED\tDISCIPLINE\tPxC\tRECEIVED\tELAPSED\tRESULT")

		for _, rec := range records {
			result := "ok"
			if !rec.OK() {
				result = "failed"
			}

			_, _ = fmt.Fprintf(w, "%s\t%s\t%dx%d\t%d/%d\t%s\t%s\n",
				rec.RecordedAt.Local().Format(time.DateTime),
				rec.Discipline,
				rec.Producers, rec.Consumers,
				rec.Received, rec.Sent,
				rec.Elapsed.Round(time.Millisecond),
				result,
			)
		}

		return w.Flush()
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(historyCmd)
}
