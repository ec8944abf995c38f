package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/HariKoor/OMR-API/internal/config"
	"github.com/HariKoor/OMR-API/internal/musicxml"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "inspect <score.xml>",
		Short:       "Show the key, time signature, and part of a score document",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			summary, err := musicxml.ParseSummary(input)
			if err != nil {
				return err
			}

			timeValue := "Unknown"
			if summary.Time != nil {
				timeValue = summary.Time.String()
			}
			partValue := "Unknown"
			if strings.TrimSpace(summary.PartName) != "" {
				partValue = cases.Title(language.Und).String(summary.PartName)
			}

			rows := [][]string{
				{"File", summary.Path},
				{"Key", summary.KeyDisplay()},
				{"Time", timeValue},
				{"Part", partValue},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}
