// Package config loads, normalizes, and validates aaxsplit configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the AAXSPLIT_ACTIVATION_BYTES
// environment fallback. The Config value is threaded explicitly into every
// component; nothing in the conversion pipeline reads process-wide settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
