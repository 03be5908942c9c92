package trimmer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"highlighter/internal/config"
	"highlighter/internal/crop"
	"highlighter/internal/deps"
	"highlighter/internal/detector"
	"highlighter/internal/export"
	"highlighter/internal/fileutil"
	"highlighter/internal/highlight"
	"highlighter/internal/logging"
	"highlighter/internal/media/ffprobe"
	"highlighter/internal/procexec"
	"highlighter/internal/services"
)

// Prober reads source dimensions.
type Prober interface {
	Dimensions(ctx context.Context, path string) (ffprobe.Dimensions, error)
}

// Options holds the tunables for a Trimmer.
type Options struct {
	DetectorExecutable   string
	FFmpegBinary         string
	FFprobeBinary        string
	Threads              int
	ExportWorkers        int
	Preamble             float64
	Postamble            float64
	Padding              float64
	DeriveTimeFromFrame  bool
	TempDir              string
	Prefix               string
	DeleteTemporaryFiles bool
	CropTimeoutSeconds   int
	DetectorTimeout      int
	ExportTimeoutSeconds int
}

// OptionsFromConfig maps configuration onto trimmer options. Prefix is left
// for the caller.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DetectorExecutable:   cfg.Detector.Executable,
		FFmpegBinary:         cfg.FFmpeg.FFmpegBinary,
		FFprobeBinary:        deps.ResolveFFprobe(cfg.FFmpeg.FFmpegBinary, cfg.FFmpeg.FFprobeBinary),
		Threads:              cfg.FFmpeg.Threads,
		ExportWorkers:        cfg.FFmpeg.ExportWorkers,
		Preamble:             cfg.Detector.Preamble,
		Postamble:            cfg.Detector.Postamble,
		Padding:              cfg.Detector.Padding,
		DeriveTimeFromFrame:  cfg.Detector.DeriveTimeFromFrame,
		TempDir:              cfg.Paths.TempDir,
		DeleteTemporaryFiles: cfg.Workflow.DeleteTemporaryFiles,
		CropTimeoutSeconds:   cfg.FFmpeg.CropTimeoutSeconds,
		DetectorTimeout:      cfg.Detector.TimeoutSeconds,
		ExportTimeoutSeconds: cfg.FFmpeg.ExportTimeoutSeconds,
	}
}

// Option configures a Trimmer.
type Option func(*Trimmer)

// WithProber overrides the dimension probe (primarily for tests).
func WithProber(prober Prober) Option {
	return func(t *Trimmer) {
		if prober != nil {
			t.prober = prober
		}
	}
}

// WithExecutor overrides the executor shared by the crop pass and the
// detector (primarily for tests).
func WithExecutor(exec procexec.Executor) Option {
	return func(t *Trimmer) {
		if exec != nil {
			t.exec = exec
		}
	}
}

// WithStarter overrides how trim processes are launched (primarily for tests).
func WithStarter(starter procexec.Starter) Option {
	return func(t *Trimmer) {
		if starter != nil {
			t.starter = starter
		}
	}
}

// WithTokenSource overrides the clip filename disambiguator.
func WithTokenSource(token func() string) Option {
	return func(t *Trimmer) {
		t.token = token
	}
}

// Trimmer runs the highlight pipeline for one source at a time.
type Trimmer struct {
	opts     Options
	logger   *slog.Logger
	prober   Prober
	exec     procexec.Executor
	starter  procexec.Starter
	token    func() string
	cropper  *crop.Cropper
	detector *detector.Runner
	exporter *export.Exporter

	mu          sync.Mutex
	stage       Stage
	croppedFile string
}

// New validates the detector executable and wires the pipeline stages. A
// missing detector fails with services.ErrConfiguration.
func New(opts Options, logger *slog.Logger, options ...Option) (*Trimmer, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	resolved, err := deps.ResolveExecutable(opts.DetectorExecutable)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "init", "detector", "failed to find the highlight executable", err)
	}
	opts.DetectorExecutable = resolved
	if strings.TrimSpace(opts.TempDir) == "" {
		opts.TempDir = "temp"
	}

	t := &Trimmer{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "trimmer"),
		stage:  StageIdle,
	}
	for _, opt := range options {
		opt(t)
	}
	if t.prober == nil {
		t.prober = ffprobe.New(opts.FFprobeBinary)
	}

	cropOpts := []crop.Option{crop.WithLogger(logger), crop.WithTimeout(opts.CropTimeoutSeconds)}
	detectorOpts := []detector.Option{detector.WithLogger(logger), detector.WithTimeout(opts.DetectorTimeout)}
	if t.exec != nil {
		cropOpts = append(cropOpts, crop.WithExecutor(t.exec))
		detectorOpts = append(detectorOpts, detector.WithExecutor(t.exec))
	}
	exportOpts := []export.Option{export.WithLogger(logger), export.WithTimeout(opts.ExportTimeoutSeconds), export.WithStarter(t.starter)}
	if t.token != nil {
		exportOpts = append(exportOpts, export.WithTokenSource(t.token))
	}

	if t.cropper, err = crop.New(opts.FFmpegBinary, opts.Threads, cropOpts...); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "init", "cropper", "", err)
	}
	parse := detector.ParseOptions{
		Preamble:            opts.Preamble,
		Postamble:           opts.Postamble,
		DeriveTimeFromFrame: opts.DeriveTimeFromFrame,
	}
	if t.detector, err = detector.New(opts.DetectorExecutable, parse, detectorOpts...); err != nil {
		return nil, err
	}
	if t.exporter, err = export.New(opts.FFmpegBinary, opts.ExportWorkers, exportOpts...); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "init", "exporter", "", err)
	}
	return t, nil
}

// Stage returns the step the trimmer last entered.
func (t *Trimmer) Stage() Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stage
}

// CroppedFile returns the working copy path of the most recent run.
func (t *Trimmer) CroppedFile() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.croppedFile
}

// CroppedPath names the working copy for source inside tempDir. The name
// carries the source stem and a digest of its absolute path, so two sources
// sharing a temp dir and prefix never reuse each other's crop.
func CroppedPath(tempDir, prefix, source string) string {
	abs, err := filepath.Abs(source)
	if err != nil {
		abs = filepath.Clean(source)
	}
	stem := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	digest := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+abs))
	return filepath.Join(tempDir, fmt.Sprintf("%s%s.%s.cropped.mp4", prefix, stem, digest.String()[:8]))
}

func (t *Trimmer) enter(ctx context.Context, stage Stage) (context.Context, *slog.Logger) {
	t.mu.Lock()
	t.stage = stage
	t.mu.Unlock()
	stageCtx := services.WithStage(ctx, stage.String())
	logger := logging.WithContext(stageCtx, t.logger)
	if stage != StageDone {
		logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	}
	return stageCtx, logger
}

// GenerateClips crops source, detects highlights for displayName, merges
// them and exports one clip per interval into clipDir. Stage failures carry
// services.ErrProbe, ErrCrop, ErrDetectorLaunch or ErrTimeout; export
// failures only leave the affected interval without a clip file.
func (t *Trimmer) GenerateClips(ctx context.Context, source, clipDir, displayName string) ([]highlight.ClipInterval, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, services.Wrap(services.ErrValidation, StageIdle.String(), "validate", "source path required", nil)
	}
	if !fileutil.Exists(source) {
		return nil, services.Wrap(services.ErrNotFound, StageIdle.String(), "validate", fmt.Sprintf("source %s does not exist", source), nil)
	}

	cropped := CroppedPath(t.opts.TempDir, t.opts.Prefix, source)
	t.mu.Lock()
	t.croppedFile = cropped
	t.mu.Unlock()

	if err := t.cropStage(ctx, source, cropped); err != nil {
		return nil, err
	}

	detections, err := t.detectStage(ctx, displayName, cropped)
	if err != nil {
		return nil, err
	}

	intervals := t.mergeStage(ctx, detections)

	return t.exportStage(ctx, intervals, export.Request{
		SourcePath:  source,
		OutputDir:   clipDir,
		Prefix:      t.opts.Prefix,
		DisplayName: displayName,
	})
}

// ExportClips replays intervals through the export stage only. Intervals
// that already have an existing clip file are skipped unless overwrite is
// set.
func (t *Trimmer) ExportClips(ctx context.Context, intervals []highlight.ClipInterval, source, clipDir, displayName string, overwrite bool) ([]highlight.ClipInterval, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, services.Wrap(services.ErrValidation, StageIdle.String(), "validate", "source path required", nil)
	}
	if !fileutil.Exists(source) {
		return nil, services.Wrap(services.ErrNotFound, StageIdle.String(), "validate", fmt.Sprintf("source %s does not exist", source), nil)
	}
	return t.exportStage(ctx, intervals, export.Request{
		SourcePath:  source,
		OutputDir:   clipDir,
		Prefix:      t.opts.Prefix,
		DisplayName: displayName,
		Overwrite:   overwrite,
	})
}

func (t *Trimmer) cropStage(ctx context.Context, source, cropped string) error {
	stageCtx, logger := t.enter(ctx, StageCropping)

	needed, err := t.cropper.Prepare(cropped, t.opts.DeleteTemporaryFiles)
	if err != nil {
		return t.fail(logger, err)
	}
	if !needed {
		logger.Info("stage completed", logging.String(logging.FieldEventType, "stage_complete"), logging.Bool("reused", true))
		return nil
	}

	dims, err := t.prober.Dimensions(stageCtx, source)
	if err != nil {
		return t.fail(logger, services.Wrap(services.ErrProbe, StageCropping.String(), "ffprobe", fmt.Sprintf("could not read dimensions of %s", source), err))
	}
	if err := t.cropper.Crop(stageCtx, source, cropped, dims); err != nil {
		return t.fail(logger, err)
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.CroppedFile(cropped),
	)
	return nil
}

func (t *Trimmer) detectStage(ctx context.Context, displayName, cropped string) ([]highlight.Detection, error) {
	stageCtx, logger := t.enter(ctx, StageDetecting)
	detections, stats, err := t.detector.Run(stageCtx, displayName, cropped)
	if err != nil {
		return nil, t.fail(logger, err)
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("detections", len(detections)),
		logging.Int("malformed_lines", stats.Malformed),
	)
	return detections, nil
}

func (t *Trimmer) mergeStage(ctx context.Context, detections []highlight.Detection) []highlight.ClipInterval {
	_, logger := t.enter(ctx, StageMerging)
	intervals := highlight.Merge(detections, t.opts.Padding)
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("highlights", len(intervals)),
		logging.Int("detections", len(detections)),
	)
	return intervals
}

func (t *Trimmer) exportStage(ctx context.Context, intervals []highlight.ClipInterval, req export.Request) ([]highlight.ClipInterval, error) {
	stageCtx, logger := t.enter(ctx, StageExporting)
	report, err := t.exporter.Export(stageCtx, intervals, req)
	if err != nil {
		return report.Intervals, t.fail(logger, err)
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("exported", report.Exported()),
		logging.Int("skipped", report.Skipped()),
		logging.Int("failed", report.Failed()),
	)
	t.enter(ctx, StageDone)
	return report.Intervals, nil
}

func (t *Trimmer) fail(logger *slog.Logger, err error) error {
	logging.ErrorWithContext(logger, "stage failed", "stage_failure",
		logging.String("error_kind", services.Marker(err)),
		logging.Error(err),
	)
	return err
}

// Close removes the cropped working copy when temporary file deletion is
// enabled. It is safe to call more than once.
func (t *Trimmer) Close() error {
	if !t.opts.DeleteTemporaryFiles {
		return nil
	}
	cropped := t.CroppedFile()
	removed, err := fileutil.RemoveIfExists(cropped)
	if err != nil {
		return fmt.Errorf("remove cropped file: %w", err)
	}
	if removed {
		t.logger.Debug("removed cropped working copy", logging.CroppedFile(cropped))
	}
	return nil
}
