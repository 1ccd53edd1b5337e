package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"loom/internal/engine"
	"loom/internal/review"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Work the QA review queue",
	}

	reviewCmd.AddCommand(newReviewQueueCommand(ctx))
	reviewCmd.AddCommand(newReviewNextCommand(ctx))
	reviewCmd.AddCommand(newReviewApproveCommand(ctx))
	reviewCmd.AddCommand(newReviewRejectCommand(ctx))

	return reviewCmd
}

func newReviewQueueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show units awaiting review, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine.Engine) error {
				queue, err := review.NewFlow(eng).Queue(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(queue) == 0 {
					fmt.Fprintln(out, "Review queue is empty")
					return nil
				}
				rows := make([][]string, len(queue))
				for i, item := range queue {
					submitted := ""
					if item.SubmittedAt != nil {
						submitted = item.SubmittedAt.Local().Format("2006-01-02 15:04")
					}
					rows[i] = []string{
						strconv.FormatInt(item.ID, 10),
						item.PacketID[:8],
						item.AssignedTo,
						submitted,
						truncate(item.TargetText, 48),
					}
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"Unit", "Packet", "Translator", "Submitted", "Target"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newReviewNextCommand(ctx *commandContext) *cobra.Command {
	var afterID int64

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next unit to review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine.Engine) error {
				item, err := review.NewFlow(eng).Next(cmd.Context(), afterID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Unit:       %d\n", item.ID)
				fmt.Fprintf(out, "Packet:     %s\n", item.PacketID)
				fmt.Fprintf(out, "Translator: %s\n", item.AssignedTo)
				fmt.Fprintf(out, "Source:     %s\n", item.SourceText)
				fmt.Fprintf(out, "Target:     %s\n", item.TargetText)
				if item.RejectionReason != "" {
					fmt.Fprintf(out, "Previously rejected: %s\n", item.RejectionReason)
				}
				fmt.Fprintf(out, "Checklist:  %s\n", strings.Join(eng.Checklist(), ", "))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&afterID, "after", 0, "Return the unit following this one in queue order")
	return cmd
}

func newReviewApproveCommand(ctx *commandContext) *cobra.Command {
	var checked []string

	cmd := &cobra.Command{
		Use:   "approve <unit-id>",
		Short: "Approve a unit, deriving its quality score from the checklist",
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
			return ctx.withEngine(func(eng *engine.Engine) error {
				item, err := review.NewFlow(eng).Approve(cmd.Context(), unitID, checked, actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Approved unit %d with quality score %d\n", item.ID, item.QualityScore)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&checked, "check", nil, "Checklist item that passed (repeatable)")
	return cmd
}

func newReviewRejectCommand(ctx *commandContext) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reject <unit-id>",
		Short: "Reject a unit back to its translator",
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
			return ctx.withEngine(func(eng *engine.Engine) error {
				item, err := review.NewFlow(eng).Reject(cmd.Context(), unitID, reason, actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rejected unit %d back to %s\n", item.ID, item.AssignedTo)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Why the unit failed review (required)")
	return cmd
}
