package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"loom/internal/engine"
	"loom/internal/review"
	"loom/internal/unit"
)

// newStatusCommand summarizes the store: unit counts by status and the state
// of the review queue.
func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show unit counts and review queue state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine.Engine) error {
				stats, err := eng.Store().Stats(cmd.Context())
				if err != nil {
					return err
				}
				summary, err := review.NewFlow(eng).Summary(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n", eng.Store().Path())

				rows := make([][]string, 0, len(stats))
				total := 0
				for _, status := range unit.AllStatuses() {
					count, ok := stats[status]
					if !ok {
						continue
					}
					total += count
					rows = append(rows, []string{string(status), strconv.Itoa(count)})
				}
				rows = append(rows, []string{"total", strconv.Itoa(total)})
				fmt.Fprintln(out, renderTable(out,
					[]string{"Status", "Units"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				fmt.Fprintln(out, summary)
				return nil
			})
		},
	}
}
