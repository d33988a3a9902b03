// Package config loads, normalizes, and validates animlab configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment overrides such as ANIMLAB_DATABASE_URL. The Config type
// centralizes every knob the daemon and CLI need so storage, media
// directories, and external tool settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
