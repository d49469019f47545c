package config

import "runtime"

const (
	defaultConfigPath       = "~/.config/aaxsplit/config.toml"
	defaultLibraryDir       = "./audio"
	defaultStateDir         = "~/.local/share/aaxsplit"
	defaultLogDir           = "~/.local/share/aaxsplit/logs"
	defaultBitrate          = 96
	defaultSnipIntroSeconds = 2.2
	defaultSnipOutroSeconds = 3.6
	defaultCodec            = "libvorbis"
	defaultFormat           = "ogg"
	defaultExtension        = "ogg"
	defaultFFmpeg           = "ffmpeg"
	defaultFFprobe          = "ffprobe"
	defaultDomain           = "www.audible.co.uk"
	defaultDownloadBaseURL  = "http://cdl.audible.com/cgi-bin/aw_assemble_title_dynamic.aa"
	defaultDownloadAgent    = "Audible ADM 6.6.0.19;Windows Vista  Build 9200"
	defaultDownloadTimeout  = 3600
	defaultNtfyTimeout      = 10
	defaultLogFormat        = "console"
	defaultLogRetentionDays = 30
	defaultLogLevel         = "info"

	// ActivationBytesEnv supplies additional comma-separated activation keys.
	ActivationBytesEnv = "AAXSPLIT_ACTIVATION_BYTES"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		Conversion: Conversion{
			Bitrate:          defaultBitrate,
			Parallel:         runtime.NumCPU(),
			Snip:             true,
			SnipIntroSeconds: defaultSnipIntroSeconds,
			SnipOutroSeconds: defaultSnipOutroSeconds,
			Codec:            defaultCodec,
			Format:           defaultFormat,
			Extension:        defaultExtension,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
		},
		Metadata: Metadata{
			Domain: defaultDomain,
		},
		Download: Download{
			BaseURL:        defaultDownloadBaseURL,
			UserAgent:      defaultDownloadAgent,
			TimeoutSeconds: defaultDownloadTimeout,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
