// Package deps reports availability of the external binaries the pipeline
// shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"framemill/internal/config"
	"framemill/internal/services"
)

// Requirement defines an external tool the pipeline relies on.
type Requirement struct {
	Name    string
	Command string
}

// Status reports the availability of a requirement.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// Requirements returns the binaries a run needs, resolved from config.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "VapourSynth pipe", Command: cfg.Tools.VSPipe},
		{Name: "FFmpeg", Command: cfg.Tools.FFmpeg},
		{Name: "FFprobe", Command: cfg.Tools.FFprobe},
	}
}

// Check evaluates the provided requirements and reports availability.
func Check(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{Requirement: req}
		cmd := strings.TrimSpace(req.Command)
		if cmd == "" {
			status.Detail = "command not configured"
		} else if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		} else {
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}

// Verify returns a run-fatal error when any required binary is missing.
func Verify(cfg *config.Config) error {
	var missing []string
	for _, status := range Check(Requirements(cfg)) {
		if !status.Available {
			missing = append(missing, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
		}
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrFilesystem, "deps", "verify", strings.Join(missing, ", "), nil)
	}
	return nil
}
