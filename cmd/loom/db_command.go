package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loom/internal/engine"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database utilities",
	}

	dbCmd.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Run an integrity check against the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine.Engine) error {
				health, err := eng.Store().CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database:     %s\n", health.Path)
				fmt.Fprintf(out, "Size:         %d bytes\n", health.SizeBytes)
				fmt.Fprintf(out, "Journal mode: %s\n", health.JournalMode)
				fmt.Fprintf(out, "Integrity:    %s\n", health.Integrity)
				fmt.Fprintf(out, "Packets:      %d\n", health.Packets)
				total := 0
				for _, count := range health.Units {
					total += count
				}
				fmt.Fprintf(out, "Units:        %d\n", total)
				if !health.Healthy() {
					return fmt.Errorf("integrity check failed: %s", health.Integrity)
				}
				return nil
			})
		},
	})

	return dbCmd
}
