package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobe picks the ffprobe binary to run. An explicitly configured
// ffprobe wins; otherwise an ffprobe sitting next to a custom ffmpeg binary is
// preferred, falling back to "ffprobe" from PATH.
func ResolveFFprobe(ffmpegCommand, ffprobeCommand string) string {
	if configured := strings.TrimSpace(ffprobeCommand); configured != "" && configured != "ffprobe" {
		return configured
	}
	if status := CheckFFprobeForFFmpeg(ffmpegCommand); status.Available {
		return status.Command
	}
	return "ffprobe"
}

// CheckFFprobeForFFmpeg reports the ffprobe binary paired with ffmpegCommand.
// Static ffmpeg builds ship both tools in one directory, so the sidecar next
// to the resolved ffmpeg is checked before PATH.
func CheckFFprobeForFFmpeg(ffmpegCommand string) Status {
	result := Status{
		Name:        "FFprobe",
		Description: "Used to read source durations and media reports",
	}

	ffmpegBinary := strings.TrimSpace(ffmpegCommand)
	if ffmpegBinary != "" {
		if resolved, err := exec.LookPath(ffmpegBinary); err == nil {
			if candidate, ok := ffprobeSidecarCandidate(resolved); ok {
				if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
					result.Command = candidate
					result.Path = candidate
					result.Available = true
					return result
				}
			}
		}
	}

	ffprobeName := "ffprobe"
	if ffprobePath, err := exec.LookPath(ffprobeName); err == nil {
		result.Command = ffprobePath
		result.Path = ffprobePath
		result.Available = true
		return result
	}

	result.Command = ffprobeName
	result.Available = false
	result.Detail = fmt.Sprintf("binary %q not found", ffprobeName)
	return result
}

func ffprobeSidecarCandidate(ffmpegPath string) (string, bool) {
	if ffmpegPath == "" {
		return "", false
	}
	dir := filepath.Dir(ffmpegPath)
	name := "ffprobe"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(dir, name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
