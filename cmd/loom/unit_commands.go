package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"loom/internal/engine"
)

// newUnitsCommand lists a translator's workable units.
func newUnitsCommand(ctx *commandContext) *cobra.Command {
	var translatorID string

	cmd := &cobra.Command{
		Use:   "units",
		Short: "List units assigned to a translator",
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(translatorID)
			if id == "" {
				if actor, err := ctx.actor(); err == nil {
					id = actor.ID
				}
			}
			return ctx.withEngine(func(eng *engine.Engine) error {
				items, err := eng.ListAssigned(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintf(out, "No workable units for %s\n", id)
					return nil
				}
				rows := make([][]string, len(items))
				for i, item := range items {
					note := item.RejectionReason
					rows[i] = []string{
						strconv.FormatInt(item.ID, 10),
						item.PacketID[:8],
						strconv.Itoa(item.SequenceNumber),
						string(item.Status),
						truncate(item.SourceText, 44),
						truncate(note, 32),
					}
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"Unit", "Packet", "Seq", "Status", "Source", "Rejection"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&translatorID, "translator", "", "Translator id (defaults to --actor)")
	return cmd
}

// newDraftCommand saves in-progress target text without submitting.
func newDraftCommand(ctx *commandContext) *cobra.Command {
	var text string
	var textFile string

	cmd := &cobra.Command{
		Use:   "draft <unit-id>",
		Short: "Save draft target text for a unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			unitID, err := parseUnitID(args[0])
			if err != nil {
				return err
			}
			target, err := resolveText(text, textFile)
			if err != nil {
				return err
			}
			return ctx.withEngine(func(eng *engine.Engine) error {
				item, err := eng.SaveDraft(cmd.Context(), unitID, target, actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved draft for unit %d (%s)\n", item.ID, item.Status)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Target text")
	cmd.Flags().StringVar(&textFile, "text-file", "", "Read target text from a file")
	return cmd
}

// newSubmitCommand moves a unit into the review queue.
func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var text string
	var textFile string

	cmd := &cobra.Command{
		Use:   "submit <unit-id>",
		Short: "Submit a unit for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			unitID, err := parseUnitID(args[0])
			if err != nil {
				return err
			}
			target := ""
			if text != "" || textFile != "" {
				target, err = resolveText(text, textFile)
				if err != nil {
					return err
				}
			}
			return ctx.withEngine(func(eng *engine.Engine) error {
				item, err := eng.Submit(cmd.Context(), unitID, target, actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Unit %d submitted for review\n", item.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Final target text (omit to submit the saved draft)")
	cmd.Flags().StringVar(&textFile, "text-file", "", "Read target text from a file")
	return cmd
}

func parseUnitID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid unit id %q", raw)
	}
	return id, nil
}

func resolveText(text, textFile string) (string, error) {
	if strings.TrimSpace(textFile) != "" {
		content, err := os.ReadFile(textFile)
		if err != nil {
			return "", fmt.Errorf("read target text: %w", err)
		}
		return string(content), nil
	}
	if text == "" {
		return "", fmt.Errorf("target text required: pass --text or --text-file")
	}
	return text, nil
}
