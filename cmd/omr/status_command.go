package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/HariKoor/OMR-API/internal/api"
	"github.com/HariKoor/OMR-API/internal/deps"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and external tool status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}

			status, reachable := fetchDaemonStatus(cfg.Paths.APIBind)
			if reachable {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusOK,
					fmt.Sprintf("running (pid %d)", status.PID), colorize))
				fmt.Fprintln(out, renderStatusLine("Sessions", statusInfo,
					strconv.Itoa(status.SessionCount), colorize))
				fmt.Fprintln(out, renderStatusLine("Session DB", statusInfo,
					status.SessionDBPath, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn,
					fmt.Sprintf("not reachable at %s; start it with omrd", cfg.Paths.APIBind), colorize))
			}

			for _, line := range renderSectionHeader("External tools", colorize) {
				fmt.Fprintln(out, line)
			}
			tools := status.Dependencies
			if !reachable {
				tools = api.DependencyViews(deps.CheckBinaries(deps.Requirements(cfg)))
			}
			for _, tool := range tools {
				kind := statusOK
				message := tool.Command
				if !tool.Available {
					kind = statusError
					message = tool.Detail
				}
				fmt.Fprintln(out, renderStatusLine(tool.Name, kind, message, colorize))
			}
			return nil
		},
	}
}

// fetchDaemonStatus queries a running daemon; reachable is false when no
// daemon answers on the configured bind address.
func fetchDaemonStatus(bind string) (api.StatusResponse, bool) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/api/status", bind))
	if err != nil {
		return api.StatusResponse{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return api.StatusResponse{}, false
	}

	var status api.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return api.StatusResponse{}, false
	}
	return status, true
}
