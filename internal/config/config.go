package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir  string `toml:"library_dir"`
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
	MetadataDir string `toml:"metadata_dir"`
}

// Conversion contains the knobs that shape chapter output.
type Conversion struct {
	Bitrate           int      `toml:"bitrate"`
	Parallel          int      `toml:"parallel"`
	Snip              bool     `toml:"snip"`
	SnipIntroSeconds  float64  `toml:"snip_intro_seconds"`
	SnipOutroSeconds  float64  `toml:"snip_outro_seconds"`
	Codec             string   `toml:"codec"`
	Format            string   `toml:"format"`
	Extension         string   `toml:"extension"`
	JobTimeoutSeconds int      `toml:"job_timeout_seconds"`
	ActivationBytes   []string `toml:"activation_bytes"`
}

// Tools names the external binaries.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Metadata contains book metadata lookup settings.
type Metadata struct {
	Domain         string `toml:"domain"`
	AcceptMismatch bool   `toml:"accept_mismatch"`
}

// Download contains settings for fetching containers described by .adh files.
type Download struct {
	BaseURL        string `toml:"base_url"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications contains ntfy settings for end-of-run summaries.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Jellyfin contains settings for refreshing a Jellyfin library after books
// are added.
type Jellyfin struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	APIKey  string `toml:"api_key"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for aaxsplit.
//
// Configuration sections by subsystem:
//   - Paths: library, state, log and metadata directories
//   - Conversion: bitrate, parallelism, snip lengths, output codec, keys
//   - Tools: ffmpeg/ffprobe executables
//   - Metadata: catalog lookups and mismatch policy
//   - Download: .adh descriptor downloads
//   - Notifications: ntfy run summaries
//   - Jellyfin: library refresh after new books land
//   - Logging: log format, level and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Conversion    Conversion    `toml:"conversion"`
	Tools         Tools         `toml:"tools"`
	Metadata      Metadata      `toml:"metadata"`
	Download      Download      `toml:"download"`
	Notifications Notifications `toml:"notifications"`
	Jellyfin      Jellyfin      `toml:"jellyfin"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
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

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("aaxsplit.toml")
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

// EnsureDirectories creates the directories the converter writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LibraryDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for transcoding.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFmpeg); bin != "" {
		return bin
	}
	return defaultFFmpeg
}

// FFprobeBinary returns the ffprobe executable used for container inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFprobe); bin != "" {
		return bin
	}
	return defaultFFprobe
}

// HistoryPath returns the location of the conversion history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
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

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	redacted := *c
	if len(c.Conversion.ActivationBytes) > 0 {
		redacted.Conversion.ActivationBytes = make([]string, len(c.Conversion.ActivationBytes))
		for i := range c.Conversion.ActivationBytes {
			redacted.Conversion.ActivationBytes[i] = "********"
		}
	}
	if redacted.Jellyfin.APIKey != "" {
		redacted.Jellyfin.APIKey = "********"
	}
	data, err := toml.Marshal(redacted)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
