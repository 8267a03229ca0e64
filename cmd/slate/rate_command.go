package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"slate/internal/config"
	"slate/internal/fps"
	"slate/internal/scene"
)

func newRateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rate [name]",
		Short: "Show or set the scene frame rate by name (film, pal, ntsc, ...)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withScene(func(cfg *config.Config, store *scene.Store, log *slog.Logger) error {
				if len(args) == 0 {
					rate, err := store.GlobalRate(cmd.Context())
					if err != nil {
						return err
					}
					if rate.Zero() {
						fmt.Fprintln(cmd.OutOrStdout(), "Frame rate unspecified")
						return nil
					}
					if name, ok := rate.Name(); ok {
						fmt.Fprintf(cmd.OutOrStdout(), "%s fps (%s)\n", rate, name)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "%s fps\n", rate)
					}
					return nil
				}

				rate, ok := fps.FromName(args[0])
				if !ok {
					return fmt.Errorf("unknown frame rate name %q", args[0])
				}
				if err := store.SetGlobalRate(cmd.Context(), rate); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Frame rate set to %s fps (%s)\n", rate, args[0])
				return nil
			})
		},
	}
}
