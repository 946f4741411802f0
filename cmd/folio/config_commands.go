package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"folio/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "library_dir        = %s\n", cfg.Paths.LibraryDir)
			fmt.Fprintf(out, "log_dir            = %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "api_bind           = %s\n", cfg.Paths.APIBind)
			fmt.Fprintf(out, "archive_url        = %s\n", cfg.Archive.URL)
			fmt.Fprintf(out, "max_concurrent     = %d\n", cfg.Uploader.MaxConcurrent)
			fmt.Fprintf(out, "transfer_timeout   = %ds\n", cfg.Uploader.TransferTimeout)
			fmt.Fprintf(out, "allowed_extensions = %s\n", strings.Join(cfg.Uploader.AllowedExtensions, ", "))
			fmt.Fprintf(out, "log_format         = %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "log_level          = %s\n", cfg.Logging.Level)
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}
			if err := config.WriteSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	return cmd
}
