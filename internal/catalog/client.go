package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"highlighter/internal/logging"
	"highlighter/internal/services"
)

const (
	catalogStage   = "catalog"
	downloadBuffer = 16 * 1024
	whereTimeFmt   = "2006-01-02T15:04:05"

	defaultRequestTimeout = 30 * time.Second
)

// Client queries the recordings API.
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	logger         *slog.Logger
	requestTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithRequestTimeout bounds each catalog listing request. Downloads are
// bounded by their context only.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// New constructs a Client rooted at baseURL. A nil httpClient uses a client
// without an overall timeout so long downloads are not cut off; listing
// requests are bounded separately.
func New(baseURL string, httpClient *http.Client, logger *slog.Logger, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("catalog base url required")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse catalog base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Client{
		baseURL:        parsed,
		http:           httpClient,
		logger:         logging.NewComponentLogger(logger, "catalog"),
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WhereClause builds the recordings filter for a channel. A zero gameType or
// since omits that condition.
func WhereClause(channelID, gameType uint32, since time.Time) string {
	var b strings.Builder
	b.WriteString("channelId:eq:")
	b.WriteString(strconv.FormatUint(uint64(channelID), 10))
	if gameType != 0 {
		b.WriteString(",typeId:eq:")
		b.WriteString(strconv.FormatUint(uint64(gameType), 10))
	}
	if !since.IsZero() {
		b.WriteString(",createdAt:gt:")
		b.WriteString(since.UTC().Format(whereTimeFmt))
		b.WriteString("z")
	}
	return b.String()
}

// ListRecordings returns the channel's recordings for gameType created after
// since.
func (c *Client) ListRecordings(ctx context.Context, channelID, gameType uint32, since time.Time) ([]Recording, error) {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: "recordings"})
	query := url.Values{}
	query.Set("where", WhereClause(channelID, gameType, since))
	endpoint.RawQuery = query.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, catalogStage, "build request", "", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, catalogStage, "list recordings", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		marker := services.ErrTransient
		if resp.StatusCode == http.StatusNotFound {
			marker = services.ErrNotFound
		}
		return nil, services.Wrap(marker, catalogStage, "list recordings", fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var recordings []Recording
	if err := json.NewDecoder(resp.Body).Decode(&recordings); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, catalogStage, "list recordings", "decode response", err)
	}
	c.logger.Debug("listed recordings",
		logging.Int64("channel_id", int64(channelID)),
		logging.Int("count", len(recordings)),
	)
	return recordings, nil
}

// DownloadOptions controls progress reporting for Download.
type DownloadOptions struct {
	// Progress receives a progress bar when non-nil.
	Progress io.Writer
}

// Download fetches sourceURL into dst. Data is streamed to a ".part" file
// that is renamed into place on success, so dst only ever holds a complete
// download.
func (c *Client) Download(ctx context.Context, sourceURL, dst string, opts DownloadOptions) (int64, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return 0, services.Wrap(services.ErrNotFound, "download", "validate", "recording has no raw source", nil)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, services.Wrap(services.ErrValidation, "download", "prepare", "create download directory", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "download", "build request", "", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "download", "fetch", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, services.Wrap(services.ErrTransient, "download", "fetch", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	part := dst + ".part"
	file, err := os.Create(part)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "download", "create", "open partial file", err)
	}
	cleanup := func() {
		_ = file.Close()
		_ = os.Remove(part)
	}

	var writer io.Writer = file
	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("downloading "+filepath.Base(dst)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(250*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		writer = io.MultiWriter(file, bar)
	}

	started := time.Now()
	written, err := io.CopyBuffer(writer, resp.Body, make([]byte, downloadBuffer))
	if err != nil {
		cleanup()
		return written, services.Wrap(services.ErrTransient, "download", "copy", "stream interrupted", err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		cleanup()
		return written, services.Wrap(services.ErrTransient, "download", "copy", fmt.Sprintf("short download: %d of %d bytes", written, resp.ContentLength), nil)
	}
	if bar != nil {
		_ = bar.Finish()
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(part)
		return written, services.Wrap(services.ErrTransient, "download", "close", "flush partial file", err)
	}
	if err := os.Rename(part, dst); err != nil {
		_ = os.Remove(part)
		return written, services.Wrap(services.ErrTransient, "download", "rename", "move download into place", err)
	}

	c.logger.Info("downloaded source",
		logging.String(logging.FieldEventType, "download_complete"),
		logging.SourceFile(dst),
		logging.String("size", humanize.Bytes(uint64(written))),
		logging.Duration("elapsed", time.Since(started)),
	)
	return written, nil
}
