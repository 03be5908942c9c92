package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"highlighter/internal/config"
)

const userAgent = "Highlighter-Go/0.1.0"

// Service defines the notification surface exposed to the batch runner.
type Service interface {
	NotifyBatchCompleted(ctx context.Context, summary BatchSummary) error
	NotifyRecordingFailed(ctx context.Context, channel string, recordingID int64, err error) error
	TestNotification(ctx context.Context) error
}

// BatchSummary is the subset of a batch outcome worth pushing.
type BatchSummary struct {
	Recordings int
	Succeeded  int
	Failed     int
	Clips      int
	ClipDir    string
	Duration   time.Duration
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		failures: cfg.Notifications.Failures,
		empty:    cfg.Notifications.EmptyBatches,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	failures bool
	empty    bool
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, summary BatchSummary) error {
	if summary.Recordings == 0 && !n.empty {
		return nil
	}
	duration := summary.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	data := payload{
		title:   "Highlighter - Batch Complete",
		message: fmt.Sprintf("🎯 %d clips from %d recordings in %s", summary.Clips, summary.Recordings, duration),
		tags:    []string{"highlighter", "batch", "completed"},
	}
	if summary.Failed > 0 {
		data.title = "Highlighter - Batch Complete (with errors)"
		data.message = fmt.Sprintf("%d clips; %d recordings succeeded, %d failed in %s", summary.Clips, summary.Succeeded, summary.Failed, duration)
	}
	if dir := strings.TrimSpace(summary.ClipDir); dir != "" && summary.Clips > 0 {
		data.message += "\nClips: " + dir
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRecordingFailed(ctx context.Context, channel string, recordingID int64, err error) error {
	if !n.failures {
		return nil
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "❌ Recording %d", recordingID)
	if channel = strings.TrimSpace(channel); channel != "" {
		builder.WriteString(" on ")
		builder.WriteString(channel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	return n.send(ctx, payload{
		title:    "Highlighter - Error",
		message:  builder.String(),
		tags:     []string{"highlighter", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Highlighter - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"highlighter", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyBatchCompleted(context.Context, BatchSummary) error          { return nil }
func (noopService) NotifyRecordingFailed(context.Context, string, int64, error) error { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
