package crop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"highlighter/internal/fileutil"
	"highlighter/internal/logging"
	"highlighter/internal/media/ffprobe"
	"highlighter/internal/procexec"
	"highlighter/internal/services"
)

const stageName = "cropping"

// Option configures the cropper.
type Option func(*Cropper)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec procexec.Executor) Option {
	return func(c *Cropper) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger attaches a logger for crop diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cropper) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout bounds each crop pass; zero disables the limit.
func WithTimeout(seconds int) Option {
	return func(c *Cropper) {
		c.timeoutSeconds = seconds
	}
}

// Cropper runs the ffmpeg crop pass.
type Cropper struct {
	binary         string
	threads        int
	timeoutSeconds int
	exec           procexec.Executor
	logger         *slog.Logger
}

// New constructs a Cropper invoking binary with the given thread count.
func New(binary string, threads int, opts ...Option) (*Cropper, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	if threads < 1 {
		threads = 1
	}
	c := &Cropper{
		binary:  binary,
		threads: threads,
		exec:    procexec.CommandExecutor{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "cropper")
	return c, nil
}

// Prepare reports whether a crop pass is still needed for dst. An existing
// working copy is reused unless deleteStale is set, in which case it is
// removed so the caller re-crops.
func (c *Cropper) Prepare(dst string, deleteStale bool) (bool, error) {
	if !fileutil.Exists(dst) {
		return true, nil
	}
	if !deleteStale {
		c.logger.Info("reusing cropped working copy",
			logging.CroppedFile(dst),
			logging.String(logging.FieldEventType, "crop_reused"),
		)
		return false, nil
	}
	if _, err := fileutil.RemoveIfExists(dst); err != nil {
		return false, services.Wrap(services.ErrCrop, stageName, "remove stale", "could not delete stale cropped file", err)
	}
	c.logger.Info("removed stale cropped working copy", logging.CroppedFile(dst))
	return true, nil
}

// Args assembles the ffmpeg invocation for a crop pass.
func (c *Cropper) Args(src, dst string, rect Rect) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "panic",
		"-i", src,
		"-an",
		"-filter:v", rect.Filter(),
		"-threads", strconv.Itoa(c.threads),
		dst,
	}
}

// Crop writes the kill-feed region of src to dst. A failed or interrupted pass
// never leaves a partial dst behind.
func (c *Cropper) Crop(ctx context.Context, src, dst string, dims ffprobe.Dimensions) error {
	if strings.TrimSpace(src) == "" || strings.TrimSpace(dst) == "" {
		return services.Wrap(services.ErrCrop, stageName, "validate", "source and destination required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return services.Wrap(services.ErrCrop, stageName, "prepare", "create working directory", err)
	}

	rect := RectFor(dims)
	c.logger.Info("cropping source",
		logging.SourceFile(src),
		logging.CroppedFile(dst),
		logging.String("dimensions", dims.String()),
		logging.String("filter", rect.Filter()),
		logging.Int("threads", c.threads),
	)

	runCtx, cancel := procexec.WithTimeout(ctx, c.timeoutSeconds)
	defer cancel()

	if err := c.exec.Run(runCtx, c.binary, c.Args(src, dst, rect), nil); err != nil {
		_, _ = fileutil.RemoveIfExists(dst)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrCrop, stageName, "ffmpeg", fmt.Sprintf("crop exceeded %ds", c.timeoutSeconds), fmt.Errorf("%w: %w", services.ErrTimeout, err))
		}
		return services.Wrap(services.ErrCrop, stageName, "ffmpeg", "crop pass failed", err)
	}
	if !fileutil.Exists(dst) {
		return services.Wrap(services.ErrCrop, stageName, "verify", "ffmpeg produced no cropped file", nil)
	}
	return nil
}
