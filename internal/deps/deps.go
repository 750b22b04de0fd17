package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Requirement names an external binary the splitter runs.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the outcome of looking up one Requirement. Command is the value
// as configured, Path the executable it resolved to.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Location returns the resolved path when known, otherwise the command.
func (s Status) Location() string {
	if s.Path != "" {
		return s.Path
	}
	return s.Command
}

// CheckBinaries looks up each requirement in order.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Command:     strings.TrimSpace(req.Command),
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		status.Path, status.Detail = locate(status.Command)
		status.Available = status.Detail == ""
		results = append(results, status)
	}
	return results
}

// Missing returns the required binaries that could not be found.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}

// locate resolves command and, on failure, describes why. A command with a
// path separator is checked in place; a bare name is searched on PATH.
func locate(command string) (path, detail string) {
	if command == "" {
		return "", "command not configured"
	}
	if strings.ContainsRune(command, filepath.Separator) || strings.Contains(command, "/") {
		info, err := os.Stat(command)
		switch {
		case err != nil:
			return "", fmt.Sprintf("binary %q not found", command)
		case !isExecutable(info):
			return "", fmt.Sprintf("%s is not executable", command)
		}
		return command, ""
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Sprintf("binary %q not found", command)
	}
	return resolved, ""
}
