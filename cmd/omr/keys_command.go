package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/HariKoor/OMR-API/internal/api"
)

func newKeysCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "keys",
		Short:       "List the supported key signatures",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, 15)
			for _, view := range api.KeyViews() {
				rows = append(rows, []string{
					strconv.Itoa(view.Fifths),
					view.Name,
					view.Display,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Fifths", "Tonic", "Key"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
