package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"folio/internal/client"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(reqCtx context.Context, api *client.Client) error {
				status, err := api.Status(reqCtx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Daemon:   running (%s)\n", status.ArchiveURL)
				fmt.Fprintf(out, "Slots:    %d of %d in use\n", status.ActiveTransfers, status.MaxConcurrent)
				fmt.Fprintf(out, "Clients:  %d event subscribers\n", status.Subscribers)
				fmt.Fprintf(out, "Queue DB: %s\n", status.QueueDBPath)

				rows := [][]string{
					{"pending", strconv.Itoa(status.Queue.Pending)},
					{"active", strconv.Itoa(status.Queue.Active)},
					{"complete", strconv.Itoa(status.Queue.Complete)},
					{"error", strconv.Itoa(status.Queue.Error)},
					{"duplicate", strconv.Itoa(status.Queue.Duplicate)},
					{"total", strconv.Itoa(status.Queue.Total)},
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Status", "Items"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}
