package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary visiontune relies on.
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
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		if resolved != cmd {
			status.Detail = resolved
		}
		results = append(results, status)
	}
	return results
}

// TrainerRequirements lists the binaries a training run needs. The NVIDIA
// tooling is only reported, never required, and is skipped for CPU training.
func TrainerRequirements(trainerBinary, device string) []Requirement {
	reqs := []Requirement{
		{
			Name:        "Ultralytics CLI",
			Command:     trainerBinary,
			Description: "Required for training and export",
		},
	}
	if !strings.EqualFold(strings.TrimSpace(device), "cpu") {
		reqs = append(reqs, Requirement{
			Name:        "nvidia-smi",
			Command:     "nvidia-smi",
			Description: "Reports GPU availability for device " + strings.TrimSpace(device),
			Optional:    true,
		})
	}
	return reqs
}

// MissingRequired returns the names of required dependencies that are unavailable.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
