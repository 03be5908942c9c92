package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"highlighter/internal/catalog"
	"highlighter/internal/config"
	"highlighter/internal/deps"
	"highlighter/internal/fileutil"
	"highlighter/internal/highlight"
	"highlighter/internal/ledger"
	"highlighter/internal/logging"
	"highlighter/internal/media/ffprobe"
	"highlighter/internal/notifications"
	"highlighter/internal/services"
	"highlighter/internal/trimmer"
)

// ErrLocked is returned when another batch holds the state lock.
var ErrLocked = errors.New("another highlighter batch is already running")

// clipDirLayout names the per-run clip directory.
const clipDirLayout = "20060102T150405Z"

// Catalog lists and downloads recordings.
type Catalog interface {
	ListRecordings(ctx context.Context, channelID, gameType uint32, since time.Time) ([]catalog.Recording, error)
	Download(ctx context.Context, sourceURL, dst string, opts catalog.DownloadOptions) (int64, error)
}

// Verifier inspects a downloaded source before it is trimmed.
type Verifier interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Pipeline is the part of the trimmer the batch drives.
type Pipeline interface {
	GenerateClips(ctx context.Context, source, clipDir, displayName string) ([]highlight.ClipInterval, error)
	Close() error
}

// PipelineFactory builds one pipeline per recording.
type PipelineFactory func(opts trimmer.Options, logger *slog.Logger) (Pipeline, error)

// Option configures a Runner.
type Option func(*Runner)

// WithVerifier overrides the download verifier (primarily for tests).
func WithVerifier(v Verifier) Option {
	return func(r *Runner) {
		if v != nil {
			r.verifier = v
		}
	}
}

// WithPipelineFactory overrides how trimmers are built (primarily for tests).
func WithPipelineFactory(factory PipelineFactory) Option {
	return func(r *Runner) {
		if factory != nil {
			r.newPipeline = factory
		}
	}
}

// WithNotifier overrides the ntfy notifier built from config.
func WithNotifier(n notifications.Service) Option {
	return func(r *Runner) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithClock overrides the time source used for clip directories and history.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithProgress sends download progress bars to w.
func WithProgress(w io.Writer) Option {
	return func(r *Runner) {
		r.progress = w
	}
}

// Runner processes channels one recording at a time.
type Runner struct {
	cfg         *config.Config
	ledger      *ledger.Ledger
	catalog     Catalog
	logger      *slog.Logger
	verifier    Verifier
	newPipeline PipelineFactory
	notifier    notifications.Service
	now         func() time.Time
	progress    io.Writer
	lock        *flock.Flock
}

// Summary totals one batch.
type Summary struct {
	RunID      string
	ClipDir    string
	Recordings int
	Succeeded  int
	Failed     int
	Skipped    int
	Clips      int
	Runs       []ledger.Run
}

// New wires a Runner. The detector is required before any work starts.
func New(cfg *config.Config, store *ledger.Ledger, cat Catalog, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil || store == nil || cat == nil {
		return nil, errors.New("batch runner requires config, ledger, and catalog")
	}
	if err := cfg.RequireDetector(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "init", "", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{
		cfg:     cfg,
		ledger:  store,
		catalog: cat,
		logger:  logging.NewComponentLogger(logger, "batch"),
		now:     time.Now,
		lock:    flock.New(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.verifier == nil {
		r.verifier = ffprobe.New(deps.ResolveFFprobe(cfg.FFmpeg.FFmpegBinary, cfg.FFmpeg.FFprobeBinary))
	}
	if r.notifier == nil {
		r.notifier = notifications.NewService(cfg)
	}
	if r.newPipeline == nil {
		r.newPipeline = func(opts trimmer.Options, logger *slog.Logger) (Pipeline, error) {
			return trimmer.New(opts, logger)
		}
	}
	return r, nil
}

// Run processes the named channels, or every configured channel when none
// are named. Errors are returned only when the batch could not start; per
// recording outcomes are in the summary and the ledger.
func (r *Runner) Run(ctx context.Context, channels []string) (Summary, error) {
	names, err := r.resolveChannels(channels)
	if err != nil {
		return Summary{}, err
	}

	ok, err := r.lock.TryLock()
	if err != nil {
		return Summary{}, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return Summary{}, ErrLocked
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			r.logger.Warn("failed to release batch lock", logging.Error(err))
		}
	}()

	started := r.now()
	summary := Summary{
		RunID:   uuid.NewString(),
		ClipDir: filepath.Join(r.cfg.Paths.ClipDir, r.now().UTC().Format(clipDirLayout)),
	}
	ctx = services.WithRequestID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("channels", len(names)),
		logging.String("clip_dir", summary.ClipDir),
	)

	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		r.runChannel(ctx, name, &summary)
	}

	logger.Info("batch completed",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("recordings", summary.Recordings),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("clips", summary.Clips),
	)
	if ctx.Err() == nil {
		if err := r.notifier.NotifyBatchCompleted(ctx, notifications.BatchSummary{
			Recordings: summary.Recordings,
			Succeeded:  summary.Succeeded,
			Failed:     summary.Failed,
			Clips:      summary.Clips,
			ClipDir:    summary.ClipDir,
			Duration:   r.now().Sub(started),
		}); err != nil {
			logger.Warn("batch notification failed", logging.Error(err))
		}
	}
	return summary, ctx.Err()
}

func (r *Runner) resolveChannels(requested []string) ([]string, error) {
	if len(requested) == 0 {
		names := r.cfg.ChannelNames()
		if len(names) == 0 {
			return nil, services.Wrap(services.ErrConfiguration, "batch", "channels", "no channels configured", nil)
		}
		return names, nil
	}
	out := make([]string, 0, len(requested))
	for _, name := range requested {
		name = strings.TrimSpace(name)
		if _, ok := r.cfg.Channels[name]; !ok {
			return nil, services.Wrap(services.ErrValidation, "batch", "channels", fmt.Sprintf("unknown channel %q", name), nil)
		}
		out = append(out, name)
	}
	return out, nil
}

func (r *Runner) runChannel(ctx context.Context, name string, summary *Summary) {
	ch := r.cfg.Channels[name]
	ctx = services.WithChannel(ctx, name)
	logger := logging.WithContext(ctx, r.logger)

	since, err := r.ledger.LastRecording(ctx, name)
	if err != nil {
		logging.ErrorWithContext(logger, "failed to read channel bookmark", "bookmark_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the ledger database under state_dir"),
		)
		return
	}
	recordings, err := r.catalog.ListRecordings(ctx, ch.ChannelID, r.cfg.Catalog.GameType, since)
	if err != nil {
		logging.ErrorWithContext(logger, "failed to list recordings", "catalog_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check catalog.base_url and network access"),
		)
		return
	}
	sort.SliceStable(recordings, func(i, j int) bool {
		return recordings[i].CreatedAt.Before(recordings[j].CreatedAt)
	})
	logger.Info("recordings found",
		logging.String(logging.FieldEventType, "catalog_listed"),
		logging.Int("count", len(recordings)),
		logging.String("since", since.UTC().Format(time.RFC3339)),
	)

	for _, rec := range recordings {
		if ctx.Err() != nil {
			return
		}
		run := r.processRecording(ctx, name, ch, rec, summary.ClipDir)
		run.RunID = summary.RunID
		if _, err := r.ledger.RecordRun(ctx, run); err != nil {
			logger.Warn("failed to record run history", logging.Error(err))
		}
		summary.Recordings++
		summary.Clips += run.Clips
		switch run.Status {
		case ledger.StatusSucceeded:
			summary.Succeeded++
		case ledger.StatusSkipped:
			summary.Skipped++
		default:
			summary.Failed++
			if ctx.Err() == nil {
				if err := r.notifier.NotifyRecordingFailed(ctx, name, run.RecordingID, errors.New(run.ErrorMessage)); err != nil {
					logger.Warn("failure notification failed", logging.Error(err))
				}
			}
		}
		summary.Runs = append(summary.Runs, run)
	}
}

// SourcePath is where the recording's source is downloaded.
func (r *Runner) SourcePath(rec catalog.Recording) string {
	return filepath.Join(r.cfg.Paths.TempDir, fmt.Sprintf("%d.source.mp4", rec.ID))
}

func (r *Runner) processRecording(ctx context.Context, name string, ch config.Channel, rec catalog.Recording, clipDir string) ledger.Run {
	ctx = services.WithRecordingID(ctx, int64(rec.ID))
	logger := logging.WithContext(ctx, r.logger)
	run := ledger.Run{
		Channel:     name,
		RecordingID: int64(rec.ID),
		StartedAt:   r.now(),
	}
	finish := func(status ledger.Status, err error) ledger.Run {
		run.Status = status
		run.FinishedAt = r.now()
		if err != nil {
			run.ErrorMessage = err.Error()
			logging.ErrorWithContext(logger, "recording failed", "recording_failed",
				logging.Error(err),
				logging.String("recording", rec.Name),
				logging.String(logging.FieldErrorHint, hintFor(err)),
			)
		}
		return run
	}

	done, err := r.ledger.Succeeded(ctx, run.RecordingID)
	if err != nil {
		return finish(ledger.StatusFailed, err)
	}
	if done {
		logger.Info("recording already processed", logging.String(logging.FieldEventType, "recording_skipped"))
		r.advance(ctx, logger, name, rec)
		return finish(ledger.StatusSkipped, nil)
	}

	source := r.SourcePath(rec)
	if r.cfg.Workflow.DeleteTemporaryFiles {
		defer func() {
			if _, err := fileutil.RemoveIfExists(source); err != nil {
				logger.Warn("failed to delete source file", logging.SourceFile(source), logging.Error(err))
			}
		}()
	}

	if err := r.fetch(ctx, rec, source); err != nil {
		return finish(ledger.StatusFailed, err)
	}

	opts := trimmer.OptionsFromConfig(r.cfg)
	opts.Prefix = fmt.Sprintf("%d.", rec.ID)
	pipeline, err := r.newPipeline(opts, r.logger)
	if err != nil {
		return finish(ledger.StatusFailed, err)
	}
	intervals, genErr := pipeline.GenerateClips(ctx, source, clipDir, ch.DisplayName)
	if err := pipeline.Close(); err != nil {
		logger.Warn("failed to clean up trimmer", logging.Error(err))
	}
	if genErr != nil {
		return finish(ledger.StatusFailed, genErr)
	}

	for _, interval := range intervals {
		if interval.ClipFile != "" {
			run.Clips++
		} else {
			run.FailedClips++
		}
	}
	run.ListingPath = filepath.Join(clipDir, fmt.Sprintf("%d.json", rec.ID))
	if err := highlight.WriteListing(run.ListingPath, intervals); err != nil {
		run.ListingPath = ""
		return finish(ledger.StatusFailed, services.Wrap(services.ErrExport, "batch", "listing", "write clip listing", err))
	}
	r.advance(ctx, logger, name, rec)
	logger.Info("recording processed",
		logging.String(logging.FieldEventType, "recording_complete"),
		logging.Int("clips", run.Clips),
		logging.Int("failed_clips", run.FailedClips),
		logging.String("listing", run.ListingPath),
	)
	return finish(ledger.StatusSucceeded, nil)
}

func (r *Runner) fetch(ctx context.Context, rec catalog.Recording, source string) error {
	if !fileutil.Exists(source) {
		dlCtx := ctx
		if secs := r.cfg.Workflow.DownloadTimeoutSeconds; secs > 0 {
			var cancel context.CancelFunc
			dlCtx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
			defer cancel()
		}
		if _, err := r.catalog.Download(dlCtx, rec.SourceURL(), source, catalog.DownloadOptions{Progress: r.progress}); err != nil {
			if errors.Is(dlCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return services.Wrap(services.ErrTimeout, "batch", "download", "download timed out", err)
			}
			return err
		}
	}

	info, err := r.verifier.Inspect(ctx, source)
	if err != nil {
		return services.Wrap(services.ErrProbe, "batch", "verify", "inspect downloaded source", err)
	}
	if info.VideoStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, "batch", "verify", "downloaded source has no video stream", nil)
	}
	return nil
}

func (r *Runner) advance(ctx context.Context, logger *slog.Logger, name string, rec catalog.Recording) {
	if err := r.ledger.SetLastRecording(ctx, name, rec.CreatedAt); err != nil {
		logger.Warn("failed to advance channel bookmark", logging.Error(err))
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrConfiguration):
		return "check the detector and ffmpeg settings"
	case errors.Is(err, services.ErrTimeout):
		return "raise the matching timeout in the config"
	case errors.Is(err, services.ErrProbe), errors.Is(err, services.ErrValidation):
		return "the downloaded source may be corrupt; delete it and rerun"
	case errors.Is(err, services.ErrTransient), errors.Is(err, services.ErrNotFound):
		return "check catalog availability and rerun"
	default:
		return "check logs for details"
	}
}
