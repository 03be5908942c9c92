package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"highlighter/internal/fileutil"
	"highlighter/internal/highlight"
	"highlighter/internal/logging"
	"highlighter/internal/procexec"
	"highlighter/internal/services"
	"highlighter/internal/textutil"
)

const (
	stageName   = "exporting"
	tokenLength = 5
)

// Option configures the exporter.
type Option func(*Exporter)

// WithStarter injects a custom process starter (primarily for tests).
func WithStarter(starter procexec.Starter) Option {
	return func(e *Exporter) {
		if starter != nil {
			e.starter = starter
		}
	}
}

// WithLogger attaches a logger for export progress.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTimeout kills an individual trim after seconds; zero disables the limit.
func WithTimeout(seconds int) Option {
	return func(e *Exporter) {
		e.timeoutSeconds = seconds
	}
}

// WithTokenSource overrides the random filename disambiguator.
func WithTokenSource(token func() string) Option {
	return func(e *Exporter) {
		if token != nil {
			e.token = token
		}
	}
}

// Exporter runs stream-copy trims.
type Exporter struct {
	binary         string
	workers        int
	timeoutSeconds int
	starter        procexec.Starter
	logger         *slog.Logger
	token          func() string
	now            func() time.Time
}

// Request describes one export pass over a source recording.
type Request struct {
	SourcePath  string
	OutputDir   string
	Prefix      string
	DisplayName string
	Overwrite   bool
}

// Result records what happened to one interval.
type Result struct {
	Index      int
	Output     string
	Skipped    bool
	PID        int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Report is the outcome of an export pass. Intervals mirrors the input with
// ClipFile set for every clip that exists after the pass.
type Report struct {
	Intervals []highlight.ClipInterval
	Results   []Result
}

// Exported counts intervals trimmed during this pass.
func (r Report) Exported() int {
	n := 0
	for _, res := range r.Results {
		if !res.Skipped && res.Err == nil {
			n++
		}
	}
	return n
}

// Skipped counts intervals whose clip already existed.
func (r Report) Skipped() int {
	n := 0
	for _, res := range r.Results {
		if res.Skipped {
			n++
		}
	}
	return n
}

// Failed counts intervals whose trim failed.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// New constructs an Exporter running at most workers trims at once.
func New(binary string, workers int, opts ...Option) (*Exporter, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	if workers < 1 {
		workers = 1
	}
	e := &Exporter{
		binary:  binary,
		workers: workers,
		starter: procexec.CommandStarter{},
		logger:  logging.NewNop(),
		token:   randomToken,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "exporter")
	return e, nil
}

// Workers returns the concurrency bound.
func (e *Exporter) Workers() int { return e.workers }

// OutputPath builds the clip filename for interval:
// {prefix}{name}-{frame}-{token}.mp4 inside dir.
func (e *Exporter) OutputPath(dir, prefix, displayName string, interval highlight.ClipInterval) string {
	name := fmt.Sprintf("%s%s-%d-%s.mp4", prefix, textutil.ClipSegment(displayName), interval.Frame, e.token())
	return filepath.Join(dir, name)
}

// Args assembles the trim invocation. The seek must precede the input for
// ffmpeg to seek without decoding.
func (e *Exporter) Args(interval highlight.ClipInterval, source, output string) []string {
	start := interval.StartTime
	duration := interval.Duration()
	if start < 0 {
		duration += start
		start = 0
	}
	if duration < 0 {
		duration = 0
	}
	return []string{
		"-hide_banner",
		"-loglevel", "panic",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", source,
		"-c", "copy",
		output,
	}
}

// Export trims every interval out of req.SourcePath. Per-interval failures
// are reported in the Report and never returned; the error is reserved for
// problems that prevent the pass from starting.
func (e *Exporter) Export(ctx context.Context, intervals []highlight.ClipInterval, req Request) (Report, error) {
	report := Report{
		Intervals: append([]highlight.ClipInterval(nil), intervals...),
		Results:   make([]Result, len(intervals)),
	}
	if len(intervals) == 0 {
		return report, nil
	}
	if strings.TrimSpace(req.SourcePath) == "" {
		return report, services.Wrap(services.ErrExport, stageName, "validate", "source path required", nil)
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return report, services.Wrap(services.ErrExport, stageName, "prepare", "create clip directory", err)
	}

	var mu sync.Mutex
	var group errgroup.Group
	group.SetLimit(e.workers)

	for i := range report.Intervals {
		interval := report.Intervals[i]
		if !req.Overwrite && interval.ClipFile != "" && fileutil.Exists(interval.ClipFile) {
			report.Results[i] = Result{Index: i, Output: interval.ClipFile, Skipped: true}
			e.logger.Debug("clip already exported", logging.ClipFile(interval.ClipFile))
			continue
		}

		output := e.OutputPath(req.OutputDir, req.Prefix, req.DisplayName, interval)
		group.Go(func() error {
			res := e.trim(ctx, i, interval, req.SourcePath, output)
			mu.Lock()
			report.Results[i] = res
			if res.Err == nil {
				report.Intervals[i].ClipFile = res.Output
			} else {
				report.Intervals[i].ClipFile = ""
			}
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	e.logger.Info("export pass finished",
		logging.String(logging.FieldEventType, "export_summary"),
		logging.Int("exported", report.Exported()),
		logging.Int("skipped", report.Skipped()),
		logging.Int("failed", report.Failed()),
	)
	return report, nil
}

func (e *Exporter) trim(ctx context.Context, index int, interval highlight.ClipInterval, source, output string) Result {
	res := Result{Index: index, Output: output}
	if _, err := fileutil.RemoveIfExists(output); err != nil {
		res.Err = services.Wrap(services.ErrExport, stageName, "prepare", "remove existing clip", err)
		e.warn(res, interval)
		return res
	}

	runCtx, cancel := procexec.WithTimeout(ctx, e.timeoutSeconds)
	defer cancel()

	res.StartedAt = e.now()
	proc, err := e.starter.Start(runCtx, e.binary, e.Args(interval, source, output))
	if err != nil {
		res.FinishedAt = e.now()
		res.Err = services.Wrap(services.ErrExport, stageName, "start", "launch trim", err)
		e.warn(res, interval)
		return res
	}
	res.PID = proc.PID()
	e.logger.Info("exporting clip",
		logging.ClipFile(output),
		logging.Window(interval.StartTime, interval.EndTime),
		logging.String("text", interval.Text),
	)

	err = proc.Wait()
	res.FinishedAt = e.now()
	switch {
	case err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.Err = services.Wrap(services.ErrExport, stageName, "wait", fmt.Sprintf("trim exceeded %ds", e.timeoutSeconds), fmt.Errorf("%w: %w", services.ErrTimeout, err))
	case err != nil:
		res.Err = services.Wrap(services.ErrExport, stageName, "wait", "trim failed", err)
	case !fileutil.Exists(output):
		res.Err = services.Wrap(services.ErrExport, stageName, "verify", "ffmpeg produced no clip", nil)
	}
	if res.Err != nil {
		_, _ = fileutil.RemoveIfExists(output)
		e.warn(res, interval)
		return res
	}

	e.logger.Info("clip exported",
		logging.String(logging.FieldEventType, "clip_exported"),
		logging.ClipFile(output),
		logging.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
	)
	return res
}

func (e *Exporter) warn(res Result, interval highlight.ClipInterval) {
	logging.WarnWithContext(e.logger, "clip export failed", "clip_export_failed",
		logging.ClipFile(res.Output),
		logging.Window(interval.StartTime, interval.EndTime),
		logging.Error(res.Err),
		logging.String(logging.FieldErrorHint, "re-run the export from the listing to retry"),
		logging.String(logging.FieldImpact, "clip missing from listing"),
	)
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:tokenLength]
}
