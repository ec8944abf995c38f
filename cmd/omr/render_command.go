package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HariKoor/OMR-API/internal/config"
	"github.com/HariKoor/OMR-API/internal/services/musescore"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "render <score.xml>",
		Short: "Render a score document to PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
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

			client, err := musescore.New(cfg.Tools.MuseScoreBin, cfg.Tools.RenderTimeoutSeconds)
			if err != nil {
				return err
			}
			pdfPath, err := client.Render(cmd.Context(), input, output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s\n", pdfPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output PDF path")
	return cmd
}
