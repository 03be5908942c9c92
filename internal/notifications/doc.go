// Package notifications pushes batch outcomes to ntfy.
//
// The ntfy topic comes from the [notifications] section of config.toml; when
// it is empty NewService returns a no-op so callers never branch on whether
// notifications are enabled. Only batch completion and per-recording
// failures are published.
package notifications
