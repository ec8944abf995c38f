// Package deps verifies that the external tools the service shells out to
// are actually installed.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/HariKoor/OMR-API/internal/config"
)

// Requirement defines an external binary the service relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the external tool set for the given configuration.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "Audiveris",
			Command:     cfg.Tools.AudiverisBin,
			Description: "optical music recognition (PDF to MusicXML)",
		},
		{
			Name:        "MuseScore",
			Command:     cfg.Tools.MuseScoreBin,
			Description: "score rendering (MusicXML to PDF)",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
// Commands given as absolute paths are checked directly; bare names are
// resolved through PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if filepath.IsAbs(cmd) {
			info, err := os.Stat(cmd)
			if err != nil || info.IsDir() {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
				results = append(results, status)
				continue
			}
		} else if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// AllAvailable reports whether every non-optional dependency is present.
func AllAvailable(statuses []Status) bool {
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			return false
		}
	}
	return true
}
