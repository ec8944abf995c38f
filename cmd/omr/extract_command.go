package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HariKoor/OMR-API/internal/config"
	"github.com/HariKoor/OMR-API/internal/mxl"
)

func newExtractCommand() *cobra.Command {
	var destDir string

	cmd := &cobra.Command{
		Use:         "extract <score.mxl>",
		Short:       "Unpack a compressed MusicXML container",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			dest := strings.TrimSpace(destDir)
			if dest != "" {
				if dest, err = config.ExpandPath(dest); err != nil {
					return err
				}
			}

			dir, err := mxl.Extract(input, dest)
			if err != nil {
				return err
			}
			score, err := mxl.FindScore(dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Extracted to %s\n", dir)
			fmt.Fprintf(out, "Score document: %s\n", score)
			return nil
		},
	}

	cmd.Flags().StringVarP(&destDir, "dest", "d", "", "Extraction directory")
	return cmd
}
