package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"menumatch/internal/config"
)

// DefaultCatalog is the catalog written by NewConfig unless WithCatalog
// replaces it.
var DefaultCatalog = []string{"Chicken Sandwich", "Turkey Club", "Veggie Wrap"}

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
	catalog []string
	images  []string
}

// NewConfig produces a config seeded with unique temp directories per test.
// The images directory and catalog file exist on return; both services are
// enabled without endpoints.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ImagesDir = filepath.Join(base, "images")
	cfgVal.Paths.CatalogFile = filepath.Join(base, "catalog.txt")
	cfgVal.Paths.ResultsDir = filepath.Join(base, "results")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Ledger.Path = filepath.Join(base, "ledger.db")
	cfgVal.Logging.Level = "warn"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
		catalog: DefaultCatalog,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := os.MkdirAll(cfgVal.Paths.ImagesDir, 0o755); err != nil {
		t.Fatalf("mkdir images dir: %v", err)
	}
	for _, name := range builder.images {
		WriteImage(t, filepath.Join(cfgVal.Paths.ImagesDir, name), 64)
	}
	if builder.catalog != nil {
		content := strings.Join(builder.catalog, "\n") + "\n"
		if err := os.WriteFile(cfgVal.Paths.CatalogFile, []byte(content), 0o644); err != nil {
			t.Fatalf("write catalog: %v", err)
		}
	}

	return builder.cfg
}

// WithDescriber points the describer at endpoint with a test key.
func WithDescriber(endpoint string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Describer.Enabled = true
		b.cfg.Describer.Endpoint = endpoint
		b.cfg.Describer.APIKey = "test-key"
	}
}

// WithTagger points the tagger at endpoint with a test key.
func WithTagger(endpoint string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tagger.Enabled = true
		b.cfg.Tagger.Endpoint = endpoint
		b.cfg.Tagger.Key = "test-key"
	}
}

// WithoutTagger disables the tagger.
func WithoutTagger() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tagger.Enabled = false
	}
}

// WithCatalog replaces the catalog lines. No lines leaves the catalog file
// unwritten.
func WithCatalog(lines ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(lines) == 0 {
			b.catalog = nil
			return
		}
		b.catalog = lines
	}
}

// WithImages writes small placeholder files with the given names into the
// images directory.
func WithImages(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.images = append(b.images, names...)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ImagesDir)
}

// WriteConfigFile encodes cfg as TOML at path.
func WriteConfigFile(t testing.TB, path string, cfg *config.Config) {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
