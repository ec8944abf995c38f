package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HariKoor/OMR-API/internal/config"
	"github.com/HariKoor/OMR-API/internal/services/audiveris"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "scan <score.pdf>",
		Short: "Run optical music recognition over a PDF",
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
			dest := strings.TrimSpace(outputDir)
			if dest == "" {
				stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
				dest = filepath.Join(filepath.Dir(input), stem+"_omr")
			} else if dest, err = config.ExpandPath(dest); err != nil {
				return err
			}

			client, err := audiveris.New(cfg.Tools.AudiverisBin, cfg.Tools.OMRTimeoutSeconds)
			if err != nil {
				return err
			}
			export, err := client.Recognize(cmd.Context(), input, dest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recognized score written to %s\n", export)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for recognition output")
	return cmd
}
