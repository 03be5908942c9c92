package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"highlighter/internal/config"
	"highlighter/internal/notifications"
)

type capture struct {
	calls    int
	title    string
	tags     string
	priority string
	body     string
}

func newServer(t *testing.T, status int) (*httptest.Server, *capture) {
	t.Helper()
	got := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.calls++
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		data, _ := io.ReadAll(r.Body)
		got.body = string(data)
		w.WriteHeader(status)
		_, _ = w.Write([]byte("nope"))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func serviceFor(url string, mutate func(*config.Config)) notifications.Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	if mutate != nil {
		mutate(&cfg)
	}
	return notifications.NewService(&cfg)
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyBatchCompleted(context.Background(), notifications.BatchSummary{Recordings: 3}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyBatchCompleted(t *testing.T) {
	tests := []struct {
		name        string
		summary     notifications.BatchSummary
		expectTitle string
		expectBody  string
	}{
		{
			name:        "clean batch",
			summary:     notifications.BatchSummary{Recordings: 2, Succeeded: 2, Clips: 5, ClipDir: "/clips/20200601T120000Z", Duration: 90 * time.Second},
			expectTitle: "Highlighter - Batch Complete",
			expectBody:  "🎯 5 clips from 2 recordings in 1m30s\nClips: /clips/20200601T120000Z",
		},
		{
			name:        "batch with failures",
			summary:     notifications.BatchSummary{Recordings: 3, Succeeded: 1, Failed: 2, Clips: 0, Duration: time.Minute},
			expectTitle: "Highlighter - Batch Complete (with errors)",
			expectBody:  "0 clips; 1 recordings succeeded, 2 failed in 1m0s",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := newServer(t, http.StatusOK)
			svc := serviceFor(srv.URL, nil)
			if err := svc.NotifyBatchCompleted(context.Background(), tt.summary); err != nil {
				t.Fatalf("NotifyBatchCompleted returned error: %v", err)
			}
			if got.title != tt.expectTitle {
				t.Fatalf("title = %q", got.title)
			}
			if got.body != tt.expectBody {
				t.Fatalf("body = %q", got.body)
			}
			if got.tags != "highlighter,batch,completed" {
				t.Fatalf("tags = %q", got.tags)
			}
		})
	}
}

func TestNotifyBatchCompletedSkipsEmptyBatches(t *testing.T) {
	srv, got := newServer(t, http.StatusOK)
	svc := serviceFor(srv.URL, nil)
	if err := svc.NotifyBatchCompleted(context.Background(), notifications.BatchSummary{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.calls != 0 {
		t.Fatalf("expected empty batch to be silent, got %d requests", got.calls)
	}

	svc = serviceFor(srv.URL, func(cfg *config.Config) { cfg.Notifications.EmptyBatches = true })
	if err := svc.NotifyBatchCompleted(context.Background(), notifications.BatchSummary{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.calls != 1 {
		t.Fatalf("expected empty batch notification when enabled, got %d", got.calls)
	}
}

func TestNotifyRecordingFailed(t *testing.T) {
	srv, got := newServer(t, http.StatusOK)
	svc := serviceFor(srv.URL, nil)
	if err := svc.NotifyRecordingFailed(context.Background(), "alpha", 42, errors.New("crop error: cropping: ffmpeg")); err != nil {
		t.Fatalf("NotifyRecordingFailed returned error: %v", err)
	}
	if got.body != "❌ Recording 42 on alpha: crop error: cropping: ffmpeg" {
		t.Fatalf("body = %q", got.body)
	}
	if got.priority != "high" {
		t.Fatalf("priority = %q", got.priority)
	}

	quiet := serviceFor(srv.URL, func(cfg *config.Config) { cfg.Notifications.Failures = false })
	if err := quiet.NotifyRecordingFailed(context.Background(), "alpha", 43, errors.New("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.calls != 1 {
		t.Fatalf("expected failure notifications disabled, got %d requests", got.calls)
	}
}

func TestSendReportsHTTPErrors(t *testing.T) {
	srv, _ := newServer(t, http.StatusForbidden)
	svc := serviceFor(srv.URL, nil)
	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected status error with body, got %v", err)
	}
}
