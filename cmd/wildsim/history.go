package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/wildsim/internal/persistence"
)

func historyCommand() *cobra.Command {
	var (
		dbPath string
		limit  int
	)
	c := &cobra.Command{
		Use:   "history",
		Short: "List recent simulation runs from the run database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := persistence.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.RecentRuns(limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTARTED\tSEED\tTICKS\tSENT\tFAILED\tSTOP")
			for _, r := range runs {
				stop := "running"
				if r.StopReason.Valid {
					stop = r.StopReason.String
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
					r.ID[:8],
					humanize.Time(r.Started()),
					r.Seed,
					humanize.Comma(r.Ticks),
					humanize.Comma(r.Sent),
					humanize.Comma(r.Failed),
					stop,
				)
			}
			return w.Flush()
		},
	}

	flags := c.Flags()
	flags.StringVar(&dbPath, "db", envOrDefault("WILDSIM_DB", "data/wildsim.db"), "SQLite run database.")
	flags.IntVar(&limit, "limit", 10, "Number of runs to show.")
	return c
}
