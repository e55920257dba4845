// Package config loads, normalizes, and validates menumatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the AZURE_OPENAI_* and
// AZURE_VISION_* environment variables for service credentials. The Config
// type centralizes every knob the CLI and batch runner need so image,
// catalog, and results locations plus service credentials are discovered in
// one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
