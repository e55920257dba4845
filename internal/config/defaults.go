package config

const (
	defaultConfigPath        = "~/.config/menumatch/config.toml"
	projectConfigName        = "menumatch.toml"
	defaultImagesDir         = "images"
	defaultCatalogFile       = "food-descriptions.txt"
	defaultResultsDir        = "results"
	defaultLogDir            = "~/.local/share/menumatch/logs"
	defaultLedgerPath        = "~/.local/share/menumatch/ledger.db"
	defaultDescriberVersion  = "2024-12-01-preview"
	defaultDeployment        = "o1"
	defaultDescriberTimeout  = 120
	defaultMaxCatalogEntries = 100
	defaultTaggerVersion     = "2024-02-01"
	defaultTaggerRegion      = "westus"
	defaultTaggerLanguage    = "en"
	defaultTaggerTimeout     = 60
	defaultImagePattern      = "*.jpeg"
	defaultWorkers           = 2
	maxWorkers               = 32
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ImagesDir:   defaultImagesDir,
			CatalogFile: defaultCatalogFile,
			ResultsDir:  defaultResultsDir,
			LogDir:      defaultLogDir,
		},
		Describer: Describer{
			Enabled:           true,
			APIVersion:        defaultDescriberVersion,
			Deployment:        defaultDeployment,
			TimeoutSeconds:    defaultDescriberTimeout,
			MaxCatalogEntries: defaultMaxCatalogEntries,
		},
		Tagger: Tagger{
			Enabled:        true,
			Region:         defaultTaggerRegion,
			APIVersion:     defaultTaggerVersion,
			Language:       defaultTaggerLanguage,
			TimeoutSeconds: defaultTaggerTimeout,
		},
		Batch: Batch{
			ImagePattern: defaultImagePattern,
			Workers:      defaultWorkers,
			CopyMatched:  true,
		},
		Ledger: Ledger{
			Enabled: true,
			Path:    defaultLedgerPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
