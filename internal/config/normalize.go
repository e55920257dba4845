package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDescriber()
	c.normalizeTagger()
	c.normalizeBatch()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.ImagesDir, err = expandPath(c.Paths.ImagesDir); err != nil {
		return fmt.Errorf("paths.images_dir: %w", err)
	}
	if c.Paths.CatalogFile, err = expandPath(c.Paths.CatalogFile); err != nil {
		return fmt.Errorf("paths.catalog_file: %w", err)
	}
	if c.Paths.ResultsDir, err = expandPath(c.Paths.ResultsDir); err != nil {
		return fmt.Errorf("paths.results_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

// envOverride replaces *field with the trimmed value of the first set,
// non-empty environment variable.
func envOverride(field *string, keys ...string) {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			*field = strings.TrimSpace(value)
			return
		}
	}
	*field = strings.TrimSpace(*field)
}

func (c *Config) normalizeDescriber() {
	envOverride(&c.Describer.Endpoint, "AZURE_OPENAI_ENDPOINT")
	envOverride(&c.Describer.APIKey, "AZURE_OPENAI_API_KEY")
	envOverride(&c.Describer.APIVersion, "AZURE_OPENAI_API_VERSION")
	envOverride(&c.Describer.Deployment, "AZURE_OPENAI_DEPLOYMENT")
	c.Describer.Endpoint = strings.TrimRight(c.Describer.Endpoint, "/")
	if c.Describer.APIVersion == "" {
		c.Describer.APIVersion = defaultDescriberVersion
	}
	if c.Describer.Deployment == "" {
		c.Describer.Deployment = defaultDeployment
	}
	if c.Describer.TimeoutSeconds <= 0 {
		c.Describer.TimeoutSeconds = defaultDescriberTimeout
	}
	if c.Describer.MaxCatalogEntries <= 0 {
		c.Describer.MaxCatalogEntries = defaultMaxCatalogEntries
	}
}

func (c *Config) normalizeTagger() {
	envOverride(&c.Tagger.Endpoint, "AZURE_VISION_ENDPOINT")
	envOverride(&c.Tagger.Key, "AZURE_VISION_KEY")
	envOverride(&c.Tagger.Region, "AZURE_VISION_REGION")
	c.Tagger.Endpoint = strings.TrimRight(c.Tagger.Endpoint, "/")
	if c.Tagger.Region == "" {
		c.Tagger.Region = defaultTaggerRegion
	}
	c.Tagger.APIVersion = strings.TrimSpace(c.Tagger.APIVersion)
	if c.Tagger.APIVersion == "" {
		c.Tagger.APIVersion = defaultTaggerVersion
	}
	c.Tagger.Language = strings.TrimSpace(c.Tagger.Language)
	if c.Tagger.Language == "" {
		c.Tagger.Language = defaultTaggerLanguage
	}
	if c.Tagger.TimeoutSeconds <= 0 {
		c.Tagger.TimeoutSeconds = defaultTaggerTimeout
	}
}

func (c *Config) normalizeBatch() {
	c.Batch.ImagePattern = strings.TrimSpace(c.Batch.ImagePattern)
	if c.Batch.ImagePattern == "" {
		c.Batch.ImagePattern = defaultImagePattern
	}
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = defaultWorkers
	}
}

func (c *Config) normalizeLedger() error {
	if strings.TrimSpace(c.Ledger.Path) == "" {
		c.Ledger.Path = defaultLedgerPath
	}
	var err error
	if c.Ledger.Path, err = expandPath(strings.TrimSpace(c.Ledger.Path)); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	return nil
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
}
