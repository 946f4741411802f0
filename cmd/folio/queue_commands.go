package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"folio/internal/client"
	"folio/internal/workspace"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the upload queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueReplaceCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(reqCtx context.Context, api *client.Client) error {
				var statuses []string
				if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
					statuses = strings.Split(trimmed, ",")
				}
				items, err := api.Queue(reqCtx, statuses...)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.DisplayName,
						item.Status,
						progressCell(item),
						detailCell(item),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "File", "Status", "Progress", "Detail"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Comma-separated status filter (pending,uploading,processing,complete,error,duplicate)")
	return cmd
}

func progressCell(item *workspace.ItemView) string {
	switch item.Status {
	case "uploading", "processing":
		if item.ProgressPhase != "" {
			return fmt.Sprintf("%d%% (%s)", item.ProgressPercent, item.ProgressPhase)
		}
		return fmt.Sprintf("%d%%", item.ProgressPercent)
	case "complete":
		return "100%"
	default:
		return "-"
	}
}

func detailCell(item *workspace.ItemView) string {
	switch item.Status {
	case "error":
		if item.Rejected {
			return "rejected: " + item.ErrorMessage
		}
		return item.ErrorMessage
	case "duplicate":
		return "exists at " + item.DuplicatePath
	default:
		return ""
	}
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one queue item in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(reqCtx context.Context, api *client.Client) error {
				item, err := api.Item(reqCtx, id)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Item %d\n", item.ID)
				fmt.Fprintf(out, "  File:      %s\n", item.DisplayName)
				fmt.Fprintf(out, "  Source:    %s\n", item.SourcePath)
				fmt.Fprintf(out, "  Size:      %d bytes\n", item.SizeBytes)
				fmt.Fprintf(out, "  Status:    %s\n", item.Status)
				fmt.Fprintf(out, "  Progress:  %s\n", progressCell(item))
				if item.ErrorMessage != "" {
					fmt.Fprintf(out, "  Error:     %s (rejected: %s)\n", item.ErrorMessage, yesNo(item.Rejected))
				}
				if item.DuplicatePath != "" {
					fmt.Fprintf(out, "  Duplicate: %s\n", item.DuplicatePath)
				}
				if item.ManifestJSON != "" {
					fmt.Fprintf(out, "  Manifest:  %s\n", item.ManifestJSON)
				}
				if item.DraftJSON != "" {
					fmt.Fprintf(out, "  Draft:     %s\n", item.DraftJSON)
				}
				return nil
			})
		},
	}
}

func newQueueReplaceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "replace <id>",
		Short: "Re-upload a duplicate or failed item, overwriting the existing document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(reqCtx context.Context, api *client.Client) error {
				item, err := api.Replace(reqCtx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "item %d re-queued with replace\n", item.ID)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a pending or settled item from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(reqCtx context.Context, api *client.Client) error {
				if err := api.Remove(reqCtx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "item %d removed\n", id)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all complete, error, and duplicate items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(reqCtx context.Context, api *client.Client) error {
				cleared, err := api.ClearTerminal(reqCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %d items\n", cleared)
				return nil
			})
		},
	}
}

func parseItemID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid item id %q", raw)
	}
	return id, nil
}
