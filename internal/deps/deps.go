package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency the highlighter relies on.
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
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := ResolveExecutable(cmd); err != nil {
			status.Available = false
			status.Detail = err.Error()
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// ResolveExecutable returns the absolute path of command. Bare names are
// looked up on PATH; paths must name an executable regular file.
func ResolveExecutable(command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", fmt.Errorf("command not configured")
	}
	if !strings.ContainsAny(command, `/\`) {
		resolved, err := exec.LookPath(command)
		if err != nil {
			return "", fmt.Errorf("binary %q not found", command)
		}
		return resolved, nil
	}
	info, err := os.Stat(command)
	if err != nil {
		return "", fmt.Errorf("binary %q not found", command)
	}
	if !isExecutable(info) {
		return "", fmt.Errorf("%q is not an executable file", command)
	}
	return command, nil
}
