package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"highlighter/internal/highlight"
	"highlighter/internal/logging"
	"highlighter/internal/procexec"
	"highlighter/internal/services"
)

const stageName = "detecting"

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec procexec.Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger attaches a logger for detector diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTimeout kills the detector after seconds; zero disables the limit.
func WithTimeout(seconds int) Option {
	return func(r *Runner) {
		r.timeoutSeconds = seconds
	}
}

// Runner invokes the detector executable.
type Runner struct {
	executable     string
	opts           ParseOptions
	timeoutSeconds int
	exec           procexec.Executor
	logger         *slog.Logger
}

// Stats summarises one detector run.
type Stats struct {
	Lines     int
	Malformed int
	Accepted  int
}

// New constructs a Runner for executable.
func New(executable string, opts ParseOptions, options ...Option) (*Runner, error) {
	executable = strings.TrimSpace(executable)
	if executable == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "init", "detector executable required", nil)
	}
	r := &Runner{
		executable: executable,
		opts:       opts,
		logger:     logging.NewNop(),
	}
	for _, opt := range options {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "detector")
	return r, nil
}

// Executable returns the configured detector path.
func (r *Runner) Executable() string { return r.executable }

// Run scans croppedPath for displayName and returns the detections in the
// order the detector printed them. An empty result is not an error.
func (r *Runner) Run(ctx context.Context, displayName, croppedPath string) ([]highlight.Detection, Stats, error) {
	var (
		detections []highlight.Detection
		stats      Stats
	)

	runCtx, cancel := procexec.WithTimeout(ctx, r.timeoutSeconds)
	defer cancel()

	onLine := func(line string) {
		stats.Lines++
		d, ok, err := ParseLine(line, r.opts)
		if err != nil {
			stats.Malformed++
			r.logger.Debug("discarding malformed detector record",
				logging.String("line", line),
				logging.Error(err),
			)
			return
		}
		if !ok {
			return
		}
		stats.Accepted++
		detections = append(detections, d)
	}

	exec := r.exec
	if exec == nil {
		exec = procexec.CommandExecutor{
			Stderr: func(line string) {
				r.logger.Debug("detector stderr", logging.String("line", line))
			},
			StdoutDropped: func(size int) {
				stats.Lines++
				stats.Malformed++
				r.logger.Debug("discarding oversized detector record", logging.Int("bytes", size))
			},
		}
	}

	err := exec.Run(runCtx, r.executable, []string{displayName, croppedPath}, onLine)
	switch {
	case err == nil:
	case procexec.IsStartError(err):
		return nil, stats, services.Wrap(services.ErrDetectorLaunch, stageName, "launch", fmt.Sprintf("could not start %s", r.executable), err)
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return nil, stats, services.Wrap(services.ErrTimeout, stageName, "wait", fmt.Sprintf("detector exceeded %ds", r.timeoutSeconds), err)
	case ctx.Err() != nil:
		return nil, stats, fmt.Errorf("detector interrupted: %w", ctx.Err())
	default:
		logging.WarnWithContext(r.logger, "detector exited with error; keeping parsed detections", "detector_exit",
			logging.Error(err),
			logging.Int("detections", len(detections)),
			logging.String(logging.FieldErrorHint, "check the detector's stderr at debug level"),
		)
	}

	r.logger.Info("detector finished",
		logging.Int("lines", stats.Lines),
		logging.Int("malformed", stats.Malformed),
		logging.Int("detections", stats.Accepted),
	)
	return detections, stats, nil
}
