// Package deps reports whether the external programs animlab shells out to
// are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"animlab/internal/config"
)

// Requirement defines an external dependency animlab relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements lists the programs used by the configured synthesizer and renderer.
// The renderer is optional: without one, render jobs only write plans.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "Speech synthesizer",
			Command:     cfg.TTS.Command,
			Description: "Generates scene narration audio",
		},
		{
			Name:        "Animation renderer",
			Command:     cfg.Render.Command,
			Description: "Renders scene animations from render plans",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
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
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the unavailable, non-optional dependencies.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
