package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"highlighter/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCatalog_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/recordings" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	result := CheckCatalog(context.Background(), srv.URL+"/api/v1/", time.Second)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckCatalog_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result := CheckCatalog(context.Background(), srv.URL, time.Second)
	if result.Passed {
		t.Fatal("expected failure for 503")
	}
}

func TestCheckCatalog_MissingURL(t *testing.T) {
	result := CheckCatalog(context.Background(), "", time.Second)
	if result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReportsMissingDetector(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.TempDir = t.TempDir()
	cfg.Paths.ClipDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Detector.Executable = filepath.Join(t.TempDir(), "missing-detector")

	results := RunAll(context.Background(), &cfg)
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}
	for _, r := range results[:3] {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	failed := Failed(results)
	found := false
	for _, r := range failed {
		if r.Name == "Detector" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected detector failure, got %+v", failed)
	}
}

func TestRunAll_PassesWithStubBinaries(t *testing.T) {
	bin := t.TempDir()
	for _, name := range []string{"ffmpeg", "ffprobe", "detector"} {
		if err := os.WriteFile(filepath.Join(bin, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.Default()
	cfg.Paths.TempDir = t.TempDir()
	cfg.Paths.ClipDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Detector.Executable = filepath.Join(bin, "detector")
	cfg.FFmpeg.FFmpegBinary = filepath.Join(bin, "ffmpeg")
	cfg.FFmpeg.FFprobeBinary = "ffprobe"

	if failed := Failed(RunAll(context.Background(), &cfg)); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}
}
