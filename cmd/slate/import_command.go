package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"slate/internal/config"
	"slate/internal/importer"
	"slate/internal/scene"
	"slate/internal/services"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var startFrame int

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import XMEML or AAF documents into the scene",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := importer.Options{}
			if cmd.Flags().Changed("start-frame") {
				opts.UseStartFrame = true
				opts.StartFrame = startFrame
			}

			return ctx.withScene(func(cfg *config.Config, store *scene.Store, log *slog.Logger) error {
				imp := importer.New(cfg, store, ctx.converter(cfg), ctx.prober(cfg), log)
				var skipped int
				for _, arg := range args {
					path, err := filepath.Abs(arg)
					if err != nil {
						return fmt.Errorf("resolve input path: %w", err)
					}
					if _, statErr := os.Stat(path); statErr != nil {
						err = services.Wrap(services.ErrNotFound, "import", "open", "", statErr)
					} else {
						err = imp.Run(cmd.Context(), path, opts)
					}
					if err != nil {
						// Environment-level failures abort the whole batch;
						// a bad input is skipped and the rest still land.
						if services.Fatal(err) {
							return err
						}
						log.Warn("input skipped", "path", path, "err", err)
						fmt.Fprintf(cmd.ErrOrStderr(), "Skipped %s: %v\n", path, err)
						skipped++
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Imported %s\n", path)
				}
				if skipped > 0 {
					return services.Wrap(services.ErrValidation, "import", "finish",
						fmt.Sprintf("%d of %d inputs skipped", skipped, len(args)), nil)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&startFrame, "start-frame", config.Default().Import.StartFrame,
		"Shift the imported sequence so it starts at this frame")
	return cmd
}
