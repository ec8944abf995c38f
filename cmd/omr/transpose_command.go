package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HariKoor/OMR-API/internal/config"
	"github.com/HariKoor/OMR-API/internal/music"
	"github.com/HariKoor/OMR-API/internal/musicxml"
)

func newTransposeCommand() *cobra.Command {
	var targetFifths int
	var outputPath string

	cmd := &cobra.Command{
		Use:         "transpose <score.xml>",
		Short:       "Transpose a score document into another key",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := music.CheckKey(targetFifths); err != nil {
				return err
			}
			input, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			output := strings.TrimSpace(outputPath)
			if output != "" {
				if output, err = config.ExpandPath(output); err != nil {
					return err
				}
			}

			summary, err := musicxml.ParseSummary(input)
			if err != nil {
				return err
			}
			target := music.Key(targetFifths)
			result, err := musicxml.TransposeFile(summary, target, output)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Transposed %s to %s\n", summary.KeyDisplay(), music.KeyDisplayName(target))
			fmt.Fprintf(out, "Shift: %d semitones, notes rewritten: %d, key markers updated: %d\n",
				result.Shift, result.NotesTransposed, result.KeysUpdated)
			fmt.Fprintf(out, "Output: %s\n", result.OutputPath)
			return nil
		},
	}

	cmd.Flags().IntVarP(&targetFifths, "to", "t", 0, "Target key as a fifths value in [-7, 7]")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output document path")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
