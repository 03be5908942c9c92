package trimmer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"highlighter/internal/highlight"
	"highlighter/internal/media/ffprobe"
	"highlighter/internal/procexec"
	"highlighter/internal/services"
	"highlighter/internal/testsupport"
	"highlighter/internal/trimmer"
)

type stubProber struct {
	dims  ffprobe.Dimensions
	err   error
	calls int
}

func (p *stubProber) Dimensions(context.Context, string) (ffprobe.Dimensions, error) {
	p.calls++
	return p.dims, p.err
}

// pipelineExecutor plays ffmpeg for the crop pass and the detector for
// everything else.
type pipelineExecutor struct {
	detectorLines []string
	detectorErr   error
	cropCalls     int
	detectCalls   int
	detectArgs    []string
}

func (e *pipelineExecutor) Run(_ context.Context, binary string, args []string, onStdout func(string)) error {
	if filepath.Base(binary) == "ffmpeg" {
		e.cropCalls++
		return os.WriteFile(args[len(args)-1], []byte("cropped"), 0o644)
	}
	e.detectCalls++
	e.detectArgs = append([]string(nil), args...)
	for _, line := range e.detectorLines {
		onStdout(line)
	}
	return e.detectorErr
}

type touchProcess struct{ output string }

func (p touchProcess) PID() int    { return 1 }
func (p touchProcess) Wait() error { return os.WriteFile(p.output, []byte("clip"), 0o644) }

type touchStarter struct {
	mu    sync.Mutex
	calls int
}

func (s *touchStarter) Start(_ context.Context, _ string, args []string) (procexec.Process, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return touchProcess{output: args[len(args)-1]}, nil
}

type fixture struct {
	opts    trimmer.Options
	source  string
	clipDir string
	prober  *stubProber
	exec    *pipelineExecutor
	starter *touchStarter
}

func newFixture(t *testing.T, deleteTemp bool) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(), testsupport.WithDeleteTemporaryFiles(deleteTemp))
	source := filepath.Join(testsupport.BaseDir(cfg), "downloads", "42.mp4")
	testsupport.WriteFile(t, source, 128)

	opts := trimmer.OptionsFromConfig(cfg)
	opts.Prefix = "42."
	return &fixture{
		opts:    opts,
		source:  source,
		clipDir: filepath.Join(cfg.Paths.ClipDir, "run"),
		prober:  &stubProber{dims: ffprobe.Dimensions{Width: 1920, Height: 1080}},
		exec: &pipelineExecutor{detectorLines: []string{
			"frame=6000@60;levenshtein=1;text=Alpha killed Bravo;time=100",
			"frame=6240@60;levenshtein=0;text=Alpha killed Charlie;time=104",
			"frame=6500@60;text=Bomb found;time=108",
			"frame=30000@60;text=Alpha killed Delta;time=500",
		}},
		starter: &touchStarter{},
	}
}

func (f *fixture) trimmer(t *testing.T) *trimmer.Trimmer {
	t.Helper()
	tr, err := trimmer.New(f.opts, nil,
		trimmer.WithProber(f.prober),
		trimmer.WithExecutor(f.exec),
		trimmer.WithStarter(f.starter),
	)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestNewFailsWithoutDetector(t *testing.T) {
	opts := trimmer.Options{DetectorExecutable: filepath.Join(t.TempDir(), "missing"), FFmpegBinary: "ffmpeg"}
	_, err := trimmer.New(opts, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestGenerateClipsRunsFullPipeline(t *testing.T) {
	f := newFixture(t, false)
	tr := f.trimmer(t)
	if tr.Stage() != trimmer.StageIdle {
		t.Fatalf("expected idle before running, got %s", tr.Stage())
	}

	intervals, err := tr.GenerateClips(context.Background(), f.source, f.clipDir, "Alpha")
	if err != nil {
		t.Fatalf("GenerateClips returned error: %v", err)
	}
	if tr.Stage() != trimmer.StageDone {
		t.Fatalf("expected done, got %s", tr.Stage())
	}
	if len(intervals) != 2 {
		t.Fatalf("expected 2 merged intervals, got %+v", intervals)
	}
	if intervals[0].StartTime != 85 || intervals[0].EndTime != 114 {
		t.Fatalf("unexpected first interval %+v", intervals[0])
	}
	for _, interval := range intervals {
		if interval.ClipFile == "" {
			t.Fatalf("expected clip file for %+v", interval)
		}
		if _, err := os.Stat(interval.ClipFile); err != nil {
			t.Fatalf("expected clip on disk: %v", err)
		}
		if filepath.Dir(interval.ClipFile) != f.clipDir {
			t.Fatalf("clip written outside clip dir: %s", interval.ClipFile)
		}
	}
	if f.exec.cropCalls != 1 || f.exec.detectCalls != 1 || f.starter.calls != 2 {
		t.Fatalf("unexpected call counts crop=%d detect=%d trim=%d", f.exec.cropCalls, f.exec.detectCalls, f.starter.calls)
	}
	if len(f.exec.detectArgs) != 2 || f.exec.detectArgs[0] != "Alpha" || f.exec.detectArgs[1] != tr.CroppedFile() {
		t.Fatalf("unexpected detector args %v", f.exec.detectArgs)
	}
	if tr.CroppedFile() != trimmer.CroppedPath(f.opts.TempDir, "42.", f.source) {
		t.Fatalf("unexpected cropped file %s", tr.CroppedFile())
	}
}

func TestProbeFailureNeverInvokesCropper(t *testing.T) {
	f := newFixture(t, false)
	tr, err := trimmer.New(f.opts, nil,
		trimmer.WithProber(ffprobe.New("ffprobe", ffprobe.WithRunner(func(context.Context, string, ...string) ([]byte, error) {
			return []byte("not,dimensions\n"), nil
		}))),
		trimmer.WithExecutor(f.exec),
		trimmer.WithStarter(f.starter),
	)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = tr.GenerateClips(context.Background(), f.source, f.clipDir, "Alpha")
	if !errors.Is(err, services.ErrProbe) {
		t.Fatalf("expected ErrProbe, got %v", err)
	}
	if !services.IsFatalForSource(err) {
		t.Fatal("probe failure must be fatal for the source")
	}
	if f.exec.cropCalls != 0 || f.exec.detectCalls != 0 || f.starter.calls != 0 {
		t.Fatalf("no later stage may run after a probe failure: crop=%d detect=%d trim=%d", f.exec.cropCalls, f.exec.detectCalls, f.starter.calls)
	}
	if tr.Stage() != trimmer.StageCropping {
		t.Fatalf("expected trimmer to stop in cropping, got %s", tr.Stage())
	}
}

func TestExistingCroppedFileIsReused(t *testing.T) {
	f := newFixture(t, false)
	tr := f.trimmer(t)
	cropped := trimmer.CroppedPath(f.opts.TempDir, f.opts.Prefix, f.source)
	testsupport.WriteFile(t, cropped, 16)

	if _, err := tr.GenerateClips(context.Background(), f.source, f.clipDir, "Alpha"); err != nil {
		t.Fatalf("GenerateClips returned error: %v", err)
	}
	if f.exec.cropCalls != 0 || f.prober.calls != 0 {
		t.Fatalf("expected crop to be skipped, crop=%d probe=%d", f.exec.cropCalls, f.prober.calls)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cropped); err != nil {
		t.Fatalf("cropped file must survive Close when cleanup is off: %v", err)
	}
}

func TestStaleCroppedFileIsRecroppedAndClosed(t *testing.T) {
	f := newFixture(t, true)
	tr := f.trimmer(t)
	cropped := trimmer.CroppedPath(f.opts.TempDir, f.opts.Prefix, f.source)
	testsupport.WriteFile(t, cropped, 16)

	if _, err := tr.GenerateClips(context.Background(), f.source, f.clipDir, "Alpha"); err != nil {
		t.Fatalf("GenerateClips returned error: %v", err)
	}
	if f.exec.cropCalls != 1 {
		t.Fatalf("expected stale crop to be redone, got %d", f.exec.cropCalls)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cropped); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected Close to delete cropped file, stat err=%v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
}

func TestSourcesSharingTempDirGetSeparateCrops(t *testing.T) {
	f := newFixture(t, false)
	f.opts.Prefix = ""
	tr := f.trimmer(t)

	other := filepath.Join(filepath.Dir(f.source), "other", "42.mp4")
	testsupport.WriteFile(t, other, 128)

	if _, err := tr.GenerateClips(context.Background(), f.source, f.clipDir, "Alpha"); err != nil {
		t.Fatalf("first GenerateClips returned error: %v", err)
	}
	first := tr.CroppedFile()
	if _, err := tr.GenerateClips(context.Background(), other, f.clipDir, "Alpha"); err != nil {
		t.Fatalf("second GenerateClips returned error: %v", err)
	}
	second := tr.CroppedFile()

	if first == second {
		t.Fatalf("expected distinct working copies, both runs used %s", first)
	}
	if f.exec.cropCalls != 2 || f.prober.calls != 2 {
		t.Fatalf("expected each source to be cropped, crop=%d probe=%d", f.exec.cropCalls, f.prober.calls)
	}
	if f.exec.detectArgs[1] != second {
		t.Fatalf("detector scanned %s, want %s", f.exec.detectArgs[1], second)
	}
	if filepath.Dir(first) != f.opts.TempDir || filepath.Dir(second) != f.opts.TempDir {
		t.Fatalf("working copies must live in temp dir: %s %s", first, second)
	}
}

func TestDetectorLaunchFailureStopsBeforeExport(t *testing.T) {
	f := newFixture(t, false)
	f.exec.detectorErr = &procexec.StartError{Binary: "detector", Err: errors.New("exec format error")}
	tr := f.trimmer(t)

	_, err := tr.GenerateClips(context.Background(), f.source, f.clipDir, "Alpha")
	if !errors.Is(err, services.ErrDetectorLaunch) {
		t.Fatalf("expected ErrDetectorLaunch, got %v", err)
	}
	if f.starter.calls != 0 {
		t.Fatalf("export must not run, got %d trims", f.starter.calls)
	}
	if tr.Stage() != trimmer.StageDetecting {
		t.Fatalf("expected detecting, got %s", tr.Stage())
	}
}

func TestGenerateClipsWithNoDetections(t *testing.T) {
	f := newFixture(t, false)
	f.exec.detectorLines = nil
	tr := f.trimmer(t)

	intervals, err := tr.GenerateClips(context.Background(), f.source, f.clipDir, "Alpha")
	if err != nil {
		t.Fatalf("expected empty result to succeed, got %v", err)
	}
	if len(intervals) != 0 || f.starter.calls != 0 {
		t.Fatalf("expected no clips, got %+v calls=%d", intervals, f.starter.calls)
	}
	if tr.Stage() != trimmer.StageDone {
		t.Fatalf("expected done, got %s", tr.Stage())
	}
}

func TestGenerateClipsMissingSource(t *testing.T) {
	f := newFixture(t, false)
	tr := f.trimmer(t)
	_, err := tr.GenerateClips(context.Background(), filepath.Join(t.TempDir(), "absent.mp4"), f.clipDir, "Alpha")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExportClipsReplaysListing(t *testing.T) {
	f := newFixture(t, false)
	tr := f.trimmer(t)

	intervals, err := tr.GenerateClips(context.Background(), f.source, f.clipDir, "Alpha")
	if err != nil {
		t.Fatal(err)
	}
	listing := filepath.Join(f.clipDir, "42.json")
	if err := highlight.WriteListing(listing, intervals); err != nil {
		t.Fatal(err)
	}
	saved, err := highlight.ReadListing(listing)
	if err != nil {
		t.Fatal(err)
	}

	replayed, err := tr.ExportClips(context.Background(), saved, f.source, f.clipDir, "Alpha", false)
	if err != nil {
		t.Fatalf("ExportClips returned error: %v", err)
	}
	if f.starter.calls != 2 {
		t.Fatalf("expected replay without overwrite to skip existing clips, got %d trims", f.starter.calls)
	}
	if f.exec.detectCalls != 1 {
		t.Fatalf("export-only must not run detection, got %d", f.exec.detectCalls)
	}

	if _, err := tr.ExportClips(context.Background(), replayed, f.source, f.clipDir, "Alpha", true); err != nil {
		t.Fatal(err)
	}
	if f.starter.calls != 4 {
		t.Fatalf("expected overwrite to re-export both clips, got %d trims", f.starter.calls)
	}
}

func TestStageNames(t *testing.T) {
	want := []string{"idle", "cropping", "detecting", "merging", "exporting", "done"}
	for i, name := range want {
		if got := trimmer.Stage(i).String(); got != name {
			t.Fatalf("stage %d: got %q want %q", i, got, name)
		}
	}
}
