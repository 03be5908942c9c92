package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDetector(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeWorkflow()
	c.normalizeCatalog()
	c.normalizeChannels()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ClipDir) == "" {
		c.Paths.ClipDir = defaultClipDir
	}
	if c.Paths.ClipDir, err = expandPath(c.Paths.ClipDir); err != nil {
		return fmt.Errorf("paths.clip_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDetector() error {
	c.Detector.Executable = strings.TrimSpace(c.Detector.Executable)
	if c.Detector.Executable == "" {
		if value, ok := os.LookupEnv("HIGHLIGHTER_DETECTOR"); ok {
			c.Detector.Executable = strings.TrimSpace(value)
		}
	}
	if c.Detector.Executable != "" && strings.ContainsAny(c.Detector.Executable, `/\~`) {
		expanded, err := expandPath(c.Detector.Executable)
		if err != nil {
			return fmt.Errorf("detector.executable: %w", err)
		}
		c.Detector.Executable = expanded
	}
	if c.Detector.TimeoutSeconds < 0 {
		c.Detector.TimeoutSeconds = 0
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.FFmpegBinary = strings.TrimSpace(c.FFmpeg.FFmpegBinary)
	if c.FFmpeg.FFmpegBinary == "" {
		c.FFmpeg.FFmpegBinary = defaultFFmpegBinary
	}
	c.FFmpeg.FFprobeBinary = strings.TrimSpace(c.FFmpeg.FFprobeBinary)
	if c.FFmpeg.FFprobeBinary == "" {
		c.FFmpeg.FFprobeBinary = defaultFFprobeBinary
	}
	if c.FFmpeg.Threads == 0 {
		c.FFmpeg.Threads = defaultThreads
	}
	if c.FFmpeg.ExportWorkers == 0 {
		c.FFmpeg.ExportWorkers = defaultExportWorkers()
	}
	if c.FFmpeg.CropTimeoutSeconds < 0 {
		c.FFmpeg.CropTimeoutSeconds = 0
	}
	if c.FFmpeg.ExportTimeoutSeconds < 0 {
		c.FFmpeg.ExportTimeoutSeconds = 0
	}
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.Schedule = strings.TrimSpace(c.Workflow.Schedule)
	if c.Workflow.Schedule == "" {
		c.Workflow.Schedule = defaultSchedule
	}
	if c.Workflow.DownloadTimeoutSeconds < 0 {
		c.Workflow.DownloadTimeoutSeconds = 0
	}
}

func (c *Config) normalizeCatalog() {
	c.Catalog.BaseURL = strings.TrimSpace(c.Catalog.BaseURL)
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaultCatalogBaseURL
	}
	if !strings.HasSuffix(c.Catalog.BaseURL, "/") {
		c.Catalog.BaseURL += "/"
	}
	if c.Catalog.RequestTimeout <= 0 {
		c.Catalog.RequestTimeout = defaultCatalogRequestLimit
	}
}

func (c *Config) normalizeChannels() {
	if c.Channels == nil {
		c.Channels = map[string]Channel{}
		return
	}
	for name, channel := range c.Channels {
		channel.DisplayName = strings.TrimSpace(channel.DisplayName)
		c.Channels[name] = channel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
