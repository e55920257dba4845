package preflight

import (
	"context"

	"menumatch/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name    string
	Passed  bool
	Skipped bool
	Detail  string
}

// HealthChecker is satisfied by the describer client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// AvailabilityChecker is satisfied by the tagger client.
type AvailabilityChecker interface {
	Available() bool
}

// Services carries the constructed clients. Nil entries are reported as
// skipped.
type Services struct {
	Describer HealthChecker
	Tagger    AvailabilityChecker
}

// RunAll executes every applicable preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config, svc Services) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckReadableDir("Images directory", cfg.Paths.ImagesDir),
		CheckReadableFile("Catalog file", cfg.Paths.CatalogFile),
		CheckDirectoryAccess("Results directory", cfg.Paths.ResultsDir),
	}

	if cfg.Describer.Enabled && svc.Describer != nil {
		results = append(results, CheckDescriber(ctx, svc.Describer))
	} else {
		results = append(results, Result{Name: DescriberName, Skipped: true, Detail: "disabled"})
	}
	if cfg.Tagger.Enabled && svc.Tagger != nil {
		results = append(results, CheckTagger(svc.Tagger))
	} else {
		results = append(results, Result{Name: TaggerName, Skipped: true, Detail: "disabled"})
	}
	return results
}

// AllPassed reports whether every non-skipped result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Skipped && !r.Passed {
			return false
		}
	}
	return true
}
