package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"highlighter/internal/procexec"
)

// Runner executes binary with args and returns its stdout.
type Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// Prober runs ffprobe queries.
type Prober struct {
	binary string
	run    Runner
}

// Option configures a Prober.
type Option func(*Prober)

// WithRunner overrides how ffprobe is executed.
func WithRunner(run Runner) Option {
	return func(p *Prober) {
		if run != nil {
			p.run = run
		}
	}
}

// New constructs a Prober for binary, defaulting to "ffprobe" on PATH.
func New(binary string, opts ...Option) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	p := &Prober{binary: binary, run: procexec.Output}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Binary returns the ffprobe executable the prober invokes.
func (p *Prober) Binary() string { return p.binary }

// Dimensions holds the pixel size of a video stream.
type Dimensions struct {
	Width  int
	Height int
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Dimensions reports the width and height of the first video stream of path.
func (p *Prober) Dimensions(ctx context.Context, path string) (Dimensions, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Dimensions{}, errors.New("ffprobe dimensions: empty path")
	}
	output, err := p.run(ctx, p.binary,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0",
		"--", path,
	)
	if err != nil {
		return Dimensions{}, fmt.Errorf("ffprobe dimensions: %w", err)
	}
	return ParseDimensions(output)
}

// ParseDimensions decodes the "width,height" line ffprobe prints in csv mode.
// Only the first non-empty line is considered.
func ParseDimensions(output []byte) (Dimensions, error) {
	var line string
	for _, candidate := range strings.Split(string(output), "\n") {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			line = candidate
			break
		}
	}
	if line == "" {
		return Dimensions{}, errors.New("ffprobe dimensions: no video stream reported")
	}
	parts := strings.Split(strings.TrimSuffix(line, ","), ",")
	if len(parts) != 2 {
		return Dimensions{}, fmt.Errorf("ffprobe dimensions: unexpected output %q", line)
	}
	width, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Dimensions{}, fmt.Errorf("ffprobe dimensions: width %q: %w", parts[0], err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Dimensions{}, fmt.Errorf("ffprobe dimensions: height %q: %w", parts[1], err)
	}
	if width <= 0 || height <= 0 {
		return Dimensions{}, fmt.Errorf("ffprobe dimensions: non-positive size %dx%d", width, height)
	}
	return Dimensions{Width: width, Height: height}, nil
}

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	FrameRate string `json:"avg_frame_rate"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Inspect executes ffprobe against path and decodes the JSON response.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	output, err := p.run(ctx, p.binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// FrameRate returns the average frame rate of the first video stream, or 0
// when unavailable. ffprobe reports rates as "num/den".
func (r Result) FrameRate() float64 {
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "video") {
			continue
		}
		num, den, ok := strings.Cut(stream.FrameRate, "/")
		if !ok {
			rate := parseFloat(stream.FrameRate)
			if math.IsNaN(rate) {
				return 0
			}
			return rate
		}
		n := parseFloat(num)
		d := parseFloat(den)
		if math.IsNaN(n) || math.IsNaN(d) || d == 0 {
			return 0
		}
		return n / d
	}
	return 0
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
