package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateConversion(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateJellyfin(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateJellyfin() error {
	if !c.Jellyfin.Enabled {
		return nil
	}
	if c.Jellyfin.URL == "" {
		return errors.New("jellyfin.url must be set when jellyfin is enabled")
	}
	if c.Jellyfin.APIKey == "" {
		return errors.New("jellyfin.api_key must be set when jellyfin is enabled")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateConversion() error {
	if err := ensurePositiveMap(map[string]int{
		"conversion.bitrate":  c.Conversion.Bitrate,
		"conversion.parallel": c.Conversion.Parallel,
	}); err != nil {
		return err
	}
	if c.Conversion.SnipIntroSeconds < 0 {
		return errors.New("conversion.snip_intro_seconds must be >= 0")
	}
	if c.Conversion.SnipOutroSeconds < 0 {
		return errors.New("conversion.snip_outro_seconds must be >= 0")
	}
	if c.Conversion.JobTimeoutSeconds < 0 {
		return errors.New("conversion.job_timeout_seconds must be >= 0 (0 disables the timeout)")
	}
	for _, key := range c.Conversion.ActivationBytes {
		if strings.ContainsAny(key, " \t") {
			return fmt.Errorf("conversion.activation_bytes: %q contains whitespace", key)
		}
	}
	return nil
}

func (c *Config) validateDownload() error {
	if strings.TrimSpace(c.Download.BaseURL) == "" {
		return errors.New("download.base_url must be set")
	}
	if c.Download.TimeoutSeconds <= 0 {
		return errors.New("download.timeout_seconds must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
