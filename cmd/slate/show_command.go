package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"slate/internal/config"
	"slate/internal/scene"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the scene's shots, audio clips, and settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withScene(func(cfg *config.Config, store *scene.Store, log *slog.Logger) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				runCtx := cmd.Context()

				rate, err := store.GlobalRate(runCtx)
				if err != nil {
					return err
				}
				tc, startFrame, err := store.ProductionTimecode(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderSectionHeader("Scene", colorize))
				fmt.Fprintf(out, "  Frame rate:     %s fps\n", rate)
				fmt.Fprintf(out, "  Timecode:       %s (start frame %d)\n", tc, startFrame)
				fmt.Fprintln(out)

				shots, err := store.Shots(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderSectionHeader("Shots", colorize))
				if len(shots) == 0 {
					fmt.Fprintln(out, "  (none)")
				} else {
					fmt.Fprintln(out, renderShotsTable(shots))
				}
				fmt.Fprintln(out)

				clips, err := store.AudioClips(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderSectionHeader("Audio", colorize))
				if len(clips) == 0 {
					fmt.Fprintln(out, "  (none)")
				} else {
					fmt.Fprintln(out, renderAudioTable(clips))
				}
				return nil
			})
		},
	}
}

func renderShotsTable(shots []*scene.Shot) string {
	headers := []string{"ID", "NAME", "TRACK", "START", "END", "OFFSET", "MUTE", "LINKED", "MEDIA"}
	rows := make([][]string, 0, len(shots))
	for _, shot := range shots {
		linked := ""
		if shot.LinkedAudioID != 0 {
			linked = strconv.FormatInt(shot.LinkedAudioID, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(shot.ID, 10),
			shot.Name,
			strconv.Itoa(shot.Track),
			strconv.Itoa(shot.SequenceStart),
			strconv.Itoa(shot.SequenceEnd),
			strconv.Itoa(shot.ClipZeroOffset),
			yesNo(shot.Mute),
			linked,
			shot.MediaPath,
		})
	}
	return renderTable(headers, rows, 1, 3, 4, 5, 6)
}

func renderAudioTable(clips []*scene.AudioClip) string {
	headers := []string{"ID", "NAME", "ORDER", "START", "END", "OFFSET", "BOUND", "FILE"}
	rows := make([][]string, 0, len(clips))
	for _, clip := range clips {
		rows = append(rows, []string{
			strconv.FormatInt(clip.ID, 10),
			clip.Name,
			strconv.Itoa(clip.Order),
			strconv.Itoa(clip.SequenceStart),
			strconv.Itoa(clip.SequenceEnd),
			strconv.Itoa(clip.Offset),
			yesNo(clip.Bound),
			clip.FilePath,
		})
	}
	return renderTable(headers, rows, 1, 3, 4, 5, 6)
}
