package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable. Missing service credentials
// are not an error here; availability is decided by preflight checks.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDescriber(); err != nil {
		return err
	}
	if err := c.validateTagger(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ImagesDir) == "" {
		return errors.New("paths.images_dir must be set")
	}
	if strings.TrimSpace(c.Paths.CatalogFile) == "" {
		return errors.New("paths.catalog_file must be set")
	}
	if strings.TrimSpace(c.Paths.ResultsDir) == "" {
		return errors.New("paths.results_dir must be set")
	}
	return nil
}

func (c *Config) validateDescriber() error {
	if err := validateEndpoint("describer.endpoint", c.Describer.Endpoint); err != nil {
		return err
	}
	if c.Describer.TimeoutSeconds <= 0 {
		return errors.New("describer.timeout_seconds must be positive")
	}
	if c.Describer.MaxCatalogEntries <= 0 {
		return errors.New("describer.max_catalog_entries must be positive")
	}
	return nil
}

func (c *Config) validateTagger() error {
	if err := validateEndpoint("tagger.endpoint", c.Tagger.Endpoint); err != nil {
		return err
	}
	if c.Tagger.TimeoutSeconds <= 0 {
		return errors.New("tagger.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if _, err := filepath.Match(c.Batch.ImagePattern, ""); err != nil {
		return fmt.Errorf("batch.image_pattern %q is not a valid glob: %w", c.Batch.ImagePattern, err)
	}
	if strings.ContainsAny(c.Batch.ImagePattern, `/\`) {
		return errors.New("batch.image_pattern must match file names, not paths")
	}
	if c.Batch.Workers < 1 || c.Batch.Workers > maxWorkers {
		return fmt.Errorf("batch.workers must be between 1 and %d", maxWorkers)
	}
	if !c.Describer.Enabled && !c.Tagger.Enabled {
		return errors.New("at least one of describer.enabled or tagger.enabled must be true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}

func validateEndpoint(field, value string) error {
	if value == "" {
		return nil
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", field)
	}
	return nil
}
