package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable. The detector executable is
// not required here so that commands which never run detection (listing,
// export-only replays, status) still load; the trimmer enforces it.
func (c *Config) Validate() error {
	if err := c.validateDetector(); err != nil {
		return err
	}
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateChannels(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDetector() error {
	if c.Detector.Preamble < 0 {
		return errors.New("detector.preamble must be >= 0")
	}
	if c.Detector.Postamble < 0 {
		return errors.New("detector.postamble must be >= 0")
	}
	if c.Detector.Padding < 0 {
		return errors.New("detector.padding must be >= 0")
	}
	return nil
}

func (c *Config) validateFFmpeg() error {
	if c.FFmpeg.Threads < 1 {
		return errors.New("ffmpeg.threads must be positive")
	}
	if c.FFmpeg.ExportWorkers < 1 {
		return errors.New("ffmpeg.export_workers must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Workflow.Schedule); err != nil {
		return fmt.Errorf("workflow.schedule %q is invalid: %w", c.Workflow.Schedule, err)
	}
	return nil
}

func (c *Config) validateChannels() error {
	for _, name := range c.ChannelNames() {
		channel := c.Channels[name]
		if strings.TrimSpace(name) == "" {
			return errors.New("channels: channel names must not be empty")
		}
		if channel.ChannelID == 0 {
			return fmt.Errorf("channels.%s.channel_id must be set", name)
		}
		if channel.DisplayName == "" {
			return fmt.Errorf("channels.%s.display_name must be set", name)
		}
	}
	return nil
}

// RequireDetector reports a configuration error when no detector executable
// is configured.
func (c *Config) RequireDetector() error {
	if strings.TrimSpace(c.Detector.Executable) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/highlighter/config.toml"
		}
		return fmt.Errorf("detector.executable is required. Set HIGHLIGHTER_DETECTOR or edit %s (create with 'highlighter config init')", defaultPath)
	}
	return nil
}
