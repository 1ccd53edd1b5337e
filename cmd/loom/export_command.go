package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"loom/internal/engine"
	"loom/internal/export"
)

// newExportCommand extracts approved units as a JSONL or CSV dataset.
func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		format     string
		translator string
		taskType   string
		fromRaw    string
		toRaw      string
		outPath    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export approved units as a training dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			parsedFormat, ok := export.ParseFormat(strings.ToLower(strings.TrimSpace(format)))
			if !ok {
				return fmt.Errorf("unknown format %q (expected jsonl or csv)", format)
			}

			filter := export.Filter{
				TranslatorID: strings.TrimSpace(translator),
				TaskType:     strings.TrimSpace(taskType),
			}
			if fromRaw != "" {
				from, err := parseDateFlag(fromRaw, false)
				if err != nil {
					return fmt.Errorf("invalid --from date: %w", err)
				}
				filter.From = &from
			}
			if toRaw != "" {
				to, err := parseDateFlag(toRaw, true)
				if err != nil {
					return fmt.Errorf("invalid --to date: %w", err)
				}
				filter.To = &to
			}

			return ctx.withEngine(func(eng *engine.Engine) error {
				records, err := export.NewGate(eng.Store()).Approved(cmd.Context(), filter, actor)
				if err != nil {
					return err
				}

				target := strings.TrimSpace(outPath)
				if target == "" {
					cfg, err := ctx.ensureConfig()
					if err != nil {
						return err
					}
					name := fmt.Sprintf("loom-export-%s.%s", time.Now().UTC().Format("20060102-150405"), parsedFormat)
					target = filepath.Join(cfg.Paths.ExportDir, name)
				}

				file, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer file.Close()

				if err := export.Write(file, records, parsedFormat); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d record(s) to %s\n", len(records), target)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "jsonl", "Dataset format (jsonl or csv)")
	cmd.Flags().StringVar(&translator, "translator", "", "Only units assigned to this translator")
	cmd.Flags().StringVar(&taskType, "task-type", "", "Only packets with this task type")
	cmd.Flags().StringVar(&fromRaw, "from", "", "Earliest review date (YYYY-MM-DD or RFC3339), inclusive")
	cmd.Flags().StringVar(&toRaw, "to", "", "Latest review date (YYYY-MM-DD or RFC3339), inclusive")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (defaults into the export directory)")
	return cmd
}

// parseDateFlag accepts RFC3339 timestamps or bare dates; a bare end date is
// widened to the end of that day so the range stays inclusive.
func parseDateFlag(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Nanosecond).UTC(), nil
	}
	return day.UTC(), nil
}
