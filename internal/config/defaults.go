package config

const (
	defaultModelName         = "tiny"
	defaultRecordingSeconds  = 10
	defaultMaxSeconds        = 30
	defaultSampleRate        = 16000
	defaultChannels          = 1
	defaultArtifactPath      = "temp_recorded_audio.wav"
	defaultBackend           = "auto"
	defaultStallGraceSeconds = 5
	defaultLanguage          = "en"
	defaultLogLevel          = "warn"
)

// Default returns a Config populated with the built-in defaults.
func Default() Config {
	return Config{
		Model: Model{
			Name:         defaultModelName,
			AutoDownload: true,
		},
		Recording: Recording{
			DefaultSeconds:    defaultRecordingSeconds,
			MaxSeconds:        defaultMaxSeconds,
			SampleRate:        defaultSampleRate,
			Channels:          defaultChannels,
			ArtifactPath:      defaultArtifactPath,
			Backend:           defaultBackend,
			StallGraceSeconds: defaultStallGraceSeconds,
		},
		Transcription: Transcription{
			Language: defaultLanguage,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
		UI: UI{
			Banner: true,
		},
	}
}
