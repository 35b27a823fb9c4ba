package config

const (
	defaultWorkDir           = "~/.local/share/subforge/work"
	defaultOutputDir         = "~/subtitles"
	defaultLogDir            = "~/.local/share/subforge/logs"
	defaultLogRetentionDays  = 30
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds = 120
	defaultTargetLanguage    = "en"
	defaultDisplayMode       = "dual"
	defaultFrameRate         = 30.0
	defaultViewportWidth     = 1920
	defaultViewportHeight    = 1080
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultBrowserBinary     = "chromium"
	defaultQueuePollInterval = 5
	defaultHeartbeatInterval = 15
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Translate: Translate{
			TargetLanguage: defaultTargetLanguage,
			DisplayMode:    defaultDisplayMode,
			ReviewEnabled:  true,
		},
		Scrub: Scrub{
			Enabled: true,
		},
		Render: Render{
			FrameRate:      defaultFrameRate,
			ViewportWidth:  defaultViewportWidth,
			ViewportHeight: defaultViewportHeight,
			KeepAudio:      true,
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			BrowserBinary:  defaultBrowserBinary,
		},
		Workflow: Workflow{
			QueuePollInterval: defaultQueuePollInterval,
			HeartbeatInterval: defaultHeartbeatInterval,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
