package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"highlighter/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	binDir     string
	configPath string
	clipDir    string
}

// setupCLITestEnv writes a config whose ffmpeg, ffprobe and detector are
// shell stubs: ffprobe reports 1920x1080, ffmpeg touches its last argument,
// and the detector prints detectorOutput.
func setupCLITestEnv(t *testing.T, detectorOutput string) *cliTestEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs unavailable on windows")
	}

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("HIGHLIGHTER_DETECTOR", "")
	binDir := filepath.Join(base, "bin")

	testsupport.WriteScript(t, filepath.Join(binDir, "ffprobe"), "echo 1920,1080\n")
	testsupport.WriteScript(t, filepath.Join(binDir, "ffmpeg"), "for last; do :; done\necho clip > \"$last\"\n")
	testsupport.WriteScript(t, filepath.Join(binDir, "detector"), "cat <<'OUT'\n"+detectorOutput+"\nOUT\n")

	env := &cliTestEnv{
		baseDir:    base,
		binDir:     binDir,
		configPath: filepath.Join(base, "config.toml"),
		clipDir:    filepath.Join(base, "clips"),
	}
	config := fmt.Sprintf(`[paths]
temp_dir = %q
clip_dir = %q
log_dir = %q
state_dir = %q

[detector]
executable = %q

[ffmpeg]
ffmpeg_binary = %q
ffprobe_binary = %q
export_workers = 2

[channels.alpha]
channel_id = 7
display_name = "Alpha"

[logging]
level = "error"
`,
		filepath.Join(base, "temp"),
		env.clipDir,
		filepath.Join(base, "logs"),
		filepath.Join(base, "state"),
		filepath.Join(binDir, "detector"),
		filepath.Join(binDir, "ffmpeg"),
		filepath.Join(binDir, "ffprobe"),
	)
	if err := os.WriteFile(env.configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n%s", needle, haystack)
	}
}
