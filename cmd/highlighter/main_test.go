package main

import (
	"os"
	"path/filepath"
	"testing"

	"highlighter/internal/highlight"
)

const detectorLines = `frame=6000@60; levenshtein=2; text=Player killed Enemy; time=100
frame=6240@60; levenshtein=1; text=Player killed Other; time=104
frame=30000@60; levenshtein=0; text=Found nothing; time=500
frame=oops@60; text=broken; time=600
progress 50%`

func TestClipsGenerateWritesClipsAndListing(t *testing.T) {
	env := setupCLITestEnv(t, detectorLines)
	source := filepath.Join(env.baseDir, "match.mp4")
	if err := os.WriteFile(source, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(env.baseDir, "out")

	out, _, err := runCLI(t, []string{"clips", "generate", source, "--name", "Alpha", "--out", outDir}, env.configPath)
	if err != nil {
		t.Fatalf("clips generate: %v", err)
	}
	requireContains(t, out, "1 of 1 intervals exported")
	requireContains(t, out, "Player killed Enemy")

	listing := filepath.Join(outDir, "match.json")
	intervals, err := highlight.ReadListing(listing)
	if err != nil {
		t.Fatalf("read listing: %v", err)
	}
	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %+v", intervals)
	}
	got := intervals[0]
	if got.StartTime != 85 || got.EndTime != 114 || got.Frame != 6000 {
		t.Fatalf("unexpected interval %+v", got)
	}
	if got.ClipFile == "" || filepath.Dir(got.ClipFile) != outDir {
		t.Fatalf("expected clip inside %s, got %q", outDir, got.ClipFile)
	}
	if _, err := os.Stat(got.ClipFile); err != nil {
		t.Fatalf("expected clip on disk: %v", err)
	}

	// Replaying the listing leaves the existing clip alone.
	out, _, err = runCLI(t, []string{"clips", "export", listing, source, "--name", "Alpha"}, env.configPath)
	if err != nil {
		t.Fatalf("clips export: %v", err)
	}
	requireContains(t, out, filepath.Base(got.ClipFile))
	replayed, err := highlight.ReadListing(listing)
	if err != nil {
		t.Fatal(err)
	}
	if replayed[0].ClipFile != got.ClipFile {
		t.Fatalf("expected clip reused, got %q want %q", replayed[0].ClipFile, got.ClipFile)
	}
}

func TestClipsGenerateMissingSource(t *testing.T) {
	env := setupCLITestEnv(t, "")
	_, _, err := runCLI(t, []string{"clips", "generate", filepath.Join(env.baseDir, "missing.mp4"), "--name", "Alpha"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestClipsListWithoutConfig(t *testing.T) {
	dir := t.TempDir()
	listing := filepath.Join(dir, "42.json")
	if err := highlight.WriteListing(listing, []highlight.ClipInterval{
		{Frame: 6000, Text: "Player killed Enemy", StartTime: 85, EndTime: 114},
	}); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"clips", "list", listing}, filepath.Join(dir, "absent.toml"))
	if err != nil {
		t.Fatalf("clips list: %v", err)
	}
	requireContains(t, out, "1:25.0")
	requireContains(t, out, "0 of 1 intervals exported")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, "")

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Channels: alpha")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t, "")
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "not configured")
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t, "")
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No recordings processed yet")
}
