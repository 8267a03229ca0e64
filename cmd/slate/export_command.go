package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"slate/internal/config"
	"slate/internal/exporter"
	"slate/internal/scene"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export the scene as an XMEML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}
			return ctx.withScene(func(cfg *config.Config, store *scene.Store, log *slog.Logger) error {
				exp := exporter.New(cfg, store, log)
				if err := exp.Run(cmd.Context(), path, refresh); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s\n", path)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false,
		"Refresh stale or invisible clips before exporting")
	return cmd
}
