package ledger

import (
	"context"
	"fmt"
	"time"
)

// Status is the outcome of processing one recording.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Run is one recording processed by a batch.
type Run struct {
	ID           int64
	RunID        string
	Channel      string
	RecordingID  int64
	Status       Status
	Clips        int
	FailedClips  int
	ListingPath  string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration is the wall time spent on the recording.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RecordRun appends run to the history and returns its row id.
func (l *Ledger) RecordRun(ctx context.Context, run Run) (int64, error) {
	res, err := l.execWithRetry(ctx, `
INSERT INTO runs (run_id, channel, recording_id, status, clips, failed_clips, listing_path, error_message, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Channel, run.RecordingID, string(run.Status), run.Clips, run.FailedClips,
		run.ListingPath, run.ErrorMessage, formatTime(run.StartedAt), formatTime(run.FinishedAt))
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read run id: %w", err)
	}
	return id, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (l *Ledger) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := `SELECT id, run_id, channel, recording_id, status, clips, failed_clips, listing_path, error_message, started_at, finished_at
FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var status, started, finished string
		if err := rows.Scan(&r.ID, &r.RunID, &r.Channel, &r.RecordingID, &status, &r.Clips, &r.FailedClips,
			&r.ListingPath, &r.ErrorMessage, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Status = Status(status)
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Succeeded reports whether recordingID already has a successful run.
func (l *Ledger) Succeeded(ctx context.Context, recordingID int64) (bool, error) {
	ctx = ensureContext(ctx)
	var count int
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM runs WHERE recording_id = ? AND status = ?",
		recordingID, string(StatusSucceeded),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check recording history: %w", err)
	}
	return count > 0, nil
}
