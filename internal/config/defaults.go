package config

const (
	defaultVSPipeBinary        = "vspipe"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultFilterScript        = "upscale.vpy"
	defaultTargetWidth         = 3840
	defaultTargetHeight        = 2160
	defaultTargetFPS           = "25/1"
	defaultPixelFormat         = "yuv422p10le"
	defaultWatchdogTimeout     = 30
	defaultWatchdogInterval    = 1
	defaultLogDir              = "~/.local/share/framemill"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultSkipExisting        = true
	defaultProfileEnabled      = true
	defaultRecursiveBatch      = false
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Tools: Tools{
			VSPipe:       defaultVSPipeBinary,
			FFmpeg:       defaultFFmpegBinary,
			FFprobe:      defaultFFprobeBinary,
			FilterScript: defaultFilterScript,
		},
		Pipeline: Pipeline{
			TargetWidth:  defaultTargetWidth,
			TargetHeight: defaultTargetHeight,
			TargetFPS:    defaultTargetFPS,
			PixelFormat:  defaultPixelFormat,
		},
		Watchdog: Watchdog{
			TimeoutSeconds:       defaultWatchdogTimeout,
			CheckIntervalSeconds: defaultWatchdogInterval,
		},
		Batch: Batch{
			SkipExisting: defaultSkipExisting,
			Recursive:    defaultRecursiveBatch,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Profile: Profile{
			Enabled: defaultProfileEnabled,
		},
	}
}
