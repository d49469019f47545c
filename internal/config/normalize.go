package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeConversion()
	c.normalizeTools()
	c.normalizeMetadata()
	c.normalizeDownload()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		c.Paths.LibraryDir = defaultLibraryDir
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.MetadataDir, err = expandPath(c.Paths.MetadataDir); err != nil {
		return fmt.Errorf("paths.metadata_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeConversion() {
	if c.Conversion.Parallel <= 0 {
		c.Conversion.Parallel = runtime.NumCPU()
	}
	c.Conversion.Codec = strings.TrimSpace(c.Conversion.Codec)
	if c.Conversion.Codec == "" {
		c.Conversion.Codec = defaultCodec
	}
	c.Conversion.Format = strings.TrimSpace(c.Conversion.Format)
	if c.Conversion.Format == "" {
		c.Conversion.Format = defaultFormat
	}
	c.Conversion.Extension = strings.TrimPrefix(strings.TrimSpace(c.Conversion.Extension), ".")
	if c.Conversion.Extension == "" {
		c.Conversion.Extension = c.Conversion.Format
	}

	keys := append([]string(nil), c.Conversion.ActivationBytes...)
	if value, ok := os.LookupEnv(ActivationBytesEnv); ok {
		keys = append(keys, strings.Split(value, ",")...)
	}
	c.Conversion.ActivationBytes = NormalizeKeys(keys)
}

// NormalizeKeys trims, lowercases, and de-duplicates activation keys while
// preserving their order.
func NormalizeKeys(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		normalized := strings.ToLower(strings.TrimSpace(key))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobe
	}
}

func (c *Config) normalizeMetadata() {
	c.Metadata.Domain = strings.TrimSpace(c.Metadata.Domain)
	if c.Metadata.Domain == "" {
		c.Metadata.Domain = defaultDomain
	}
}

func (c *Config) normalizeDownload() {
	c.Download.BaseURL = strings.TrimSpace(c.Download.BaseURL)
	if c.Download.BaseURL == "" {
		c.Download.BaseURL = defaultDownloadBaseURL
	}
	c.Download.UserAgent = strings.TrimSpace(c.Download.UserAgent)
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = defaultDownloadAgent
	}
	if c.Download.TimeoutSeconds <= 0 {
		c.Download.TimeoutSeconds = defaultDownloadTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeout
	}
	c.Jellyfin.URL = strings.TrimRight(strings.TrimSpace(c.Jellyfin.URL), "/")
	c.Jellyfin.APIKey = strings.TrimSpace(c.Jellyfin.APIKey)
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
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
