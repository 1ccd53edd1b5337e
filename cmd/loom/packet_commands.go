package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"loom/internal/engine"
	"loom/internal/segment"
	"loom/internal/unit"
)

func newPacketCommand(ctx *commandContext) *cobra.Command {
	packetCmd := &cobra.Command{
		Use:   "packet",
		Short: "Create and inspect work packets",
	}

	packetCmd.AddCommand(newPacketCreateCommand(ctx))
	packetCmd.AddCommand(newPacketListCommand(ctx))
	packetCmd.AddCommand(newPacketShowCommand(ctx))
	packetCmd.AddCommand(newPacketArchiveCommand(ctx))

	return packetCmd
}

func newPacketCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		sourceRef   string
		sourceFile  string
		templateRef string
		styleTagRef string
		taskType    string
		granularity string
		translators []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Segment a source document and distribute units across a roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			if strings.TrimSpace(sourceFile) == "" {
				return fmt.Errorf("--source-file is required")
			}
			text, err := os.ReadFile(sourceFile)
			if err != nil {
				return fmt.Errorf("read source document: %w", err)
			}

			return ctx.withEngine(func(eng *engine.Engine) error {
				packet, items, err := eng.CreatePacket(cmd.Context(), engine.CreatePacketRequest{
					SourceRef:     sourceRef,
					SourceText:    string(text),
					TemplateRef:   templateRef,
					StyleTagRef:   styleTagRef,
					TaskType:      taskType,
					Granularity:   segment.Granularity(granularity),
					TranslatorIDs: translators,
				}, actor)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created packet %s with %d unit(s)\n", packet.ID, len(items))
				rows := make([][]string, len(items))
				for i, item := range items {
					rows[i] = []string{
						strconv.FormatInt(item.ID, 10),
						strconv.Itoa(item.SequenceNumber),
						item.AssignedTo,
						truncate(item.SourceText, 60),
					}
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"Unit", "Seq", "Translator", "Source"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sourceRef, "source-ref", "", "Identifier of the source document")
	cmd.Flags().StringVar(&sourceFile, "source-file", "", "Path to the source document text")
	cmd.Flags().StringVar(&templateRef, "template-ref", "", "Identifier of the task template")
	cmd.Flags().StringVar(&styleTagRef, "style-tag", "", "Optional style tag reference")
	cmd.Flags().StringVar(&taskType, "task-type", "", "Task type recorded on the packet (default translation)")
	cmd.Flags().StringVar(&granularity, "granularity", "sentence", "Segmentation granularity (sentence or paragraph)")
	cmd.Flags().StringSliceVar(&translators, "translator", nil, "Roster translator id (repeatable, order matters)")
	return cmd
}

func newPacketListCommand(ctx *commandContext) *cobra.Command {
	var includeArchived bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work packets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine.Engine) error {
				packets, err := eng.Store().ListPackets(cmd.Context(), includeArchived)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(packets) == 0 {
					fmt.Fprintln(out, "No packets found")
					return nil
				}
				rows := make([][]string, len(packets))
				for i, packet := range packets {
					rows[i] = []string{
						packet.ID,
						packet.SourceRef,
						packet.TaskType,
						string(packet.Granularity),
						string(packet.Status),
						packet.CreatedAt.Local().Format("2006-01-02 15:04"),
					}
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"Packet", "Source", "Task", "Granularity", "Status", "Created"},
					rows,
					nil,
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&includeArchived, "archived", false, "Include archived packets")
	return cmd
}

func newPacketShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <packet-id>",
		Short: "Show one packet with its progress and units",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine.Engine) error {
				packetID := strings.TrimSpace(args[0])
				packet, err := eng.Store().GetPacket(cmd.Context(), packetID)
				if err != nil {
					return err
				}
				if packet == nil {
					return fmt.Errorf("packet %s not found", packetID)
				}
				progress, err := eng.Store().PacketProgress(cmd.Context(), packetID)
				if err != nil {
					return err
				}
				items, err := eng.Store().ItemsForPacket(cmd.Context(), packetID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Packet:      %s\n", packet.ID)
				fmt.Fprintf(out, "Source:      %s\n", packet.SourceRef)
				fmt.Fprintf(out, "Template:    %s\n", packet.TemplateRef)
				if packet.StyleTagRef != "" {
					fmt.Fprintf(out, "Style tag:   %s\n", packet.StyleTagRef)
				}
				fmt.Fprintf(out, "Task type:   %s\n", packet.TaskType)
				fmt.Fprintf(out, "Granularity: %s\n", packet.Granularity)
				fmt.Fprintf(out, "Status:      %s\n", packet.Status)
				fmt.Fprintf(out, "Progress:    %s\n", formatProgress(progress))

				rows := make([][]string, len(items))
				for i, item := range items {
					rows[i] = []string{
						strconv.FormatInt(item.ID, 10),
						strconv.Itoa(item.SequenceNumber),
						item.AssignedTo,
						string(item.Status),
						scoreLabel(item.QualityScore),
						truncate(item.SourceText, 48),
					}
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"Unit", "Seq", "Translator", "Status", "Score", "Source"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newPacketArchiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <packet-id>",
		Short: "Archive a packet so it is hidden from default listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			return ctx.withEngine(func(eng *engine.Engine) error {
				packetID := strings.TrimSpace(args[0])
				if err := eng.ArchivePacket(cmd.Context(), packetID, actor); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Archived packet %s\n", packetID)
				return nil
			})
		},
	}
}

func formatProgress(progress map[unit.Status]int) string {
	if len(progress) == 0 {
		return "no units"
	}
	parts := make([]string, 0, len(progress))
	for _, status := range unit.AllStatuses() {
		if count, ok := progress[status]; ok && count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", count, status))
		}
	}
	return strings.Join(parts, ", ")
}

func scoreLabel(score int) string {
	if score == 0 {
		return "-"
	}
	return strconv.Itoa(score)
}

func truncate(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max-1]) + "…"
}
