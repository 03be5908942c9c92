package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobe picks the ffprobe binary to pair with ffmpegCommand.
//
// Static ffmpeg builds ship ffprobe beside ffmpeg. When ffprobeCommand is
// the bare default and ffmpeg resolves to a directory holding an executable
// ffprobe, that sidecar is preferred so both tools come from the same build.
// Anything else returns ffprobeCommand unchanged.
func ResolveFFprobe(ffmpegCommand, ffprobeCommand string) string {
	ffprobeCommand = strings.TrimSpace(ffprobeCommand)
	if ffprobeCommand != "" && ffprobeCommand != "ffprobe" {
		return ffprobeCommand
	}
	ffmpegBinary := strings.TrimSpace(ffmpegCommand)
	if ffmpegBinary != "" && ffmpegBinary != "ffmpeg" {
		if resolved, err := exec.LookPath(ffmpegBinary); err == nil {
			if candidate, ok := sidecarCandidate(resolved, "ffprobe"); ok {
				if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
					return candidate
				}
			}
		}
	}
	return "ffprobe"
}

// CheckFFprobe reports the ffprobe binary the cropper will probe with.
func CheckFFprobe(ffmpegCommand, ffprobeCommand string) Status {
	command := ResolveFFprobe(ffmpegCommand, ffprobeCommand)
	result := Status{
		Name:        "FFprobe",
		Command:     command,
		Description: "Reads source dimensions before cropping",
	}
	resolved, err := ResolveExecutable(command)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	result.Command = resolved
	result.Available = true
	return result
}

func sidecarCandidate(binaryPath, name string) (string, bool) {
	if binaryPath == "" {
		return "", false
	}
	dir := filepath.Dir(binaryPath)
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(dir, name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
