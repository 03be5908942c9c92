package config

import "runtime"

const (
	defaultTempDir             = "~/.local/share/highlighter/temp"
	defaultClipDir             = "~/.local/share/highlighter/clips"
	defaultLogDir              = "~/.local/share/highlighter/logs"
	defaultStateDir            = "~/.local/share/highlighter/state"
	defaultPreamble            = 15
	defaultPostamble           = 10
	defaultPadding             = 10
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultThreads             = 4
	defaultCropTimeout         = 4 * 3600
	defaultExportTimeout       = 600
	defaultSchedule            = "@every 1h"
	defaultDownloadTimeout     = 6 * 3600
	defaultCatalogBaseURL      = "https://mixer.com/api/v1/"
	defaultGameType            = 20097
	defaultCatalogRequestLimit = 30
	defaultNtfyRequestTimeout  = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TempDir:  defaultTempDir,
			ClipDir:  defaultClipDir,
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Detector: Detector{
			Preamble:  defaultPreamble,
			Postamble: defaultPostamble,
			Padding:   defaultPadding,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:         defaultFFmpegBinary,
			FFprobeBinary:        defaultFFprobeBinary,
			Threads:              defaultThreads,
			ExportWorkers:        defaultExportWorkers(),
			CropTimeoutSeconds:   defaultCropTimeout,
			ExportTimeoutSeconds: defaultExportTimeout,
		},
		Workflow: Workflow{
			Schedule:               defaultSchedule,
			DownloadTimeoutSeconds: defaultDownloadTimeout,
		},
		Catalog: Catalog{
			BaseURL:        defaultCatalogBaseURL,
			GameType:       defaultGameType,
			RequestTimeout: defaultCatalogRequestLimit,
		},
		Channels: map[string]Channel{},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			Failures:       true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultExportWorkers() int {
	if n := runtime.NumCPU(); n > 1 {
		return n
	}
	return 1
}
