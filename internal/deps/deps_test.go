package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestResolveExecutable(t *testing.T) {
	dir := t.TempDir()
	script := []byte("#!/bin/sh\nexit 0\n")
	exe := filepath.Join(dir, "detector")
	if err := os.WriteFile(exe, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	plain := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if got, err := ResolveExecutable(exe); err != nil || got != exe {
		t.Fatalf("expected %q, got %q err=%v", exe, got, err)
	}
	if _, err := ResolveExecutable(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing path")
	}
	if runtime.GOOS != "windows" {
		if _, err := ResolveExecutable(plain); err == nil {
			t.Fatal("expected error for non-executable file")
		}
	}
	if _, err := ResolveExecutable(dir); err == nil {
		t.Fatal("expected error for directory")
	}
	if _, err := ResolveExecutable("  "); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestResolveFFprobePrefersSidecar(t *testing.T) {
	tmp := t.TempDir()
	ffmpegPath := filepath.Join(tmp, executableName("ffmpeg"))
	ffprobePath := filepath.Join(tmp, executableName("ffprobe"))
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(ffmpegPath, script, 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	if err := os.WriteFile(ffprobePath, script, 0o755); err != nil {
		t.Fatalf("write ffprobe sidecar: %v", err)
	}

	if got := ResolveFFprobe(ffmpegPath, "ffprobe"); got != ffprobePath {
		t.Fatalf("expected sidecar %q, got %q", ffprobePath, got)
	}
	if got := ResolveFFprobe(ffmpegPath, "/custom/ffprobe"); got != "/custom/ffprobe" {
		t.Fatalf("explicit ffprobe must win, got %q", got)
	}
	status := CheckFFprobe(ffmpegPath, "")
	if !status.Available || status.Command != ffprobePath {
		t.Fatalf("expected sidecar to be available, got %#v", status)
	}
}

func TestResolveFFprobeFallsBackToPath(t *testing.T) {
	tmp := t.TempDir()
	ffmpegPath := filepath.Join(tmp, executableName("ffmpeg"))
	if err := os.WriteFile(ffmpegPath, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	if got := ResolveFFprobe(ffmpegPath, ""); got != "ffprobe" {
		t.Fatalf("expected PATH fallback, got %q", got)
	}
}

func TestCheckFFprobeNotFound(t *testing.T) {
	t.Setenv("PATH", "")
	status := CheckFFprobe("ffmpeg", "ffprobe")
	if status.Available {
		t.Fatal("expected ffprobe resolution to fail")
	}
	if status.Detail == "" {
		t.Fatal("expected detail message when ffprobe is unavailable")
	}
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}
