package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	TempDir  string `toml:"temp_dir"`
	ClipDir  string `toml:"clip_dir"`
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Detector configures the external kill-feed text detector and the windows
// built around each of its detections.
type Detector struct {
	Executable          string  `toml:"executable"`
	Preamble            float64 `toml:"preamble"`
	Postamble           float64 `toml:"postamble"`
	Padding             float64 `toml:"padding"`
	DeriveTimeFromFrame bool    `toml:"derive_time_from_frame"`
	TimeoutSeconds      int     `toml:"timeout_seconds"`
}

// FFmpeg configures the inspection, crop and trim tools.
type FFmpeg struct {
	FFmpegBinary         string `toml:"ffmpeg_binary"`
	FFprobeBinary        string `toml:"ffprobe_binary"`
	Threads              int    `toml:"threads"`
	ExportWorkers        int    `toml:"export_workers"`
	CropTimeoutSeconds   int    `toml:"crop_timeout_seconds"`
	ExportTimeoutSeconds int    `toml:"export_timeout_seconds"`
}

// Workflow contains batch behaviour and scheduling.
type Workflow struct {
	DeleteTemporaryFiles   bool   `toml:"delete_temporary_files"`
	Schedule               string `toml:"schedule"`
	DownloadTimeoutSeconds int    `toml:"download_timeout_seconds"`
}

// Catalog contains configuration for the recordings catalog API.
type Catalog struct {
	BaseURL        string `toml:"base_url"`
	GameType       uint32 `toml:"game_type"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Channel is one streaming channel whose recordings are scanned.
type Channel struct {
	ChannelID   uint32 `toml:"channel_id"`
	DisplayName string `toml:"display_name"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Failures       bool   `toml:"failures"`
	EmptyBatches   bool   `toml:"empty_batches"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the highlighter.
//
// Configuration sections by subsystem:
//   - Paths: working, clip, log and state directories
//   - Detector: detector executable and detection window sizing
//   - FFmpeg: probe/crop/trim binaries, threads, export workers, timeouts
//   - Workflow: temporary file cleanup and the watch schedule
//   - Catalog: recordings API endpoint and game filter
//   - Channels: channels to scan, keyed by a short name
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths              `toml:"paths"`
	Detector      Detector           `toml:"detector"`
	FFmpeg        FFmpeg             `toml:"ffmpeg"`
	Workflow      Workflow           `toml:"workflow"`
	Catalog       Catalog            `toml:"catalog"`
	Channels      map[string]Channel `toml:"channels"`
	Notifications Notifications      `toml:"notifications"`
	Logging       Logging            `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/highlighter/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("highlighter.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a batch run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.TempDir, c.Paths.ClipDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ChannelNames returns the configured channel keys in a stable order.
func (c *Config) ChannelNames() []string {
	names := make([]string, 0, len(c.Channels))
	for name := range c.Channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LockPath is the file guarding against concurrent batch runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "highlighter.lock")
}

// LedgerPath is the SQLite database holding bookmarks and run history.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
