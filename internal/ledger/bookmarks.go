package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Bookmark is the newest recording time processed for a channel.
type Bookmark struct {
	Channel       string
	LastRecording time.Time
	UpdatedAt     time.Time
}

// LastRecording returns the channel's bookmark, or the zero time when the
// channel has never been processed.
func (l *Ledger) LastRecording(ctx context.Context, channel string) (time.Time, error) {
	ctx = ensureContext(ctx)
	var value string
	err := l.db.QueryRowContext(ctx, "SELECT last_recording FROM bookmarks WHERE channel = ?", channel).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read bookmark: %w", err)
	}
	return parseTime(value)
}

// SetLastRecording moves the channel's bookmark to at. A bookmark never moves
// backwards.
func (l *Ledger) SetLastRecording(ctx context.Context, channel string, at time.Time) error {
	_, err := l.execWithRetry(ctx, `
INSERT INTO bookmarks (channel, last_recording, updated_at) VALUES (?, ?, ?)
ON CONFLICT(channel) DO UPDATE SET
    last_recording = CASE WHEN excluded.last_recording > bookmarks.last_recording THEN excluded.last_recording ELSE bookmarks.last_recording END,
    updated_at = excluded.updated_at`,
		channel, formatTime(at), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("write bookmark: %w", err)
	}
	return nil
}

// Bookmarks lists every channel bookmark ordered by channel.
func (l *Ledger) Bookmarks(ctx context.Context) ([]Bookmark, error) {
	ctx = ensureContext(ctx)
	rows, err := l.db.QueryContext(ctx, "SELECT channel, last_recording, updated_at FROM bookmarks ORDER BY channel")
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	var out []Bookmark
	for rows.Next() {
		var b Bookmark
		var last, updated string
		if err := rows.Scan(&b.Channel, &last, &updated); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		if b.LastRecording, err = parseTime(last); err != nil {
			return nil, err
		}
		if b.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
