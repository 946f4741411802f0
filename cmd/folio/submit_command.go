package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"folio/internal/bibliography"
	"folio/internal/client"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var title string
	var authors []string
	var year int
	var tags []string

	cmd := &cobra.Command{
		Use:   "submit <file> [file...]",
		Short: "Queue files for upload to the archive service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := bibliography.Draft{
				Title:   title,
				Authors: authors,
				Year:    year,
				Tags:    tags,
			}
			draft.Normalize()
			if err := draft.Validate(); err != nil {
				return err
			}
			if !draft.IsZero() && len(args) > 1 {
				return fmt.Errorf("bibliography flags apply to a single file; got %d", len(args))
			}

			drafts := make(map[string]string)
			if !draft.IsZero() {
				encoded, err := draft.Encode()
				if err != nil {
					return err
				}
				drafts[args[0]] = encoded
			}

			return ctx.withClient(func(reqCtx context.Context, api *client.Client) error {
				resp, err := api.Submit(reqCtx, args, drafts)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, item := range resp.Items {
					if item.Rejected {
						fmt.Fprintf(out, "rejected %s: %s\n", item.DisplayName, item.ErrorMessage)
						continue
					}
					fmt.Fprintf(out, "queued %s (item %d)\n", item.DisplayName, item.ID)
				}
				for path, msg := range resp.Errors {
					fmt.Fprintf(out, "failed %s: %s\n", path, msg)
				}
				if len(resp.Errors) > 0 {
					return fmt.Errorf("%d of %d submissions failed", len(resp.Errors), len(args))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Bibliography title for the submitted file")
	cmd.Flags().StringSliceVar(&authors, "author", nil, "Bibliography author (repeatable)")
	cmd.Flags().IntVar(&year, "year", 0, "Publication year")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Catalog tag (repeatable)")
	return cmd
}
