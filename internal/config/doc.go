// Package config loads, normalizes, and validates despatch configuration data.
//
// It supplies repository defaults (including the three print sites), expands
// user paths (including tilde shortcuts), reads TOML files, and honours
// environment fallbacks such as DESPATCH_INTAKE_TOKEN. The Config type is
// constructed once by the CLI and passed explicitly to every component; the
// per-site view handed to the journal, exporter and sweeper is produced by
// (*Config).Site.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
