package analyzer

import (
	"context"
	"log/slog"
	"time"

	"menumatch/internal/config"
	"menumatch/internal/logging"
	"menumatch/internal/services"
	"menumatch/internal/services/llm"
	"menumatch/internal/services/vision"
)

const healthCheckTimeout = 30 * time.Second

// NewDescriberClient builds the describer client from configuration.
func NewDescriberClient(cfg config.Describer, opts ...llm.Option) *llm.Client {
	return llm.NewClient(llm.Config{
		Endpoint:          cfg.Endpoint,
		APIKey:            cfg.APIKey,
		APIVersion:        cfg.APIVersion,
		Deployment:        cfg.Deployment,
		TimeoutSeconds:    cfg.TimeoutSeconds,
		MaxCatalogEntries: cfg.MaxCatalogEntries,
	}, opts...)
}

// NewTaggerClient builds the tagger client from configuration.
func NewTaggerClient(cfg config.Tagger, opts ...vision.Option) *vision.Client {
	return vision.NewClient(vision.Config{
		Endpoint:       cfg.Endpoint,
		Key:            cfg.Key,
		Region:         cfg.Region,
		APIVersion:     cfg.APIVersion,
		Language:       cfg.Language,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, opts...)
}

// CheckedDescriber is a describer that can prove it is reachable.
type CheckedDescriber interface {
	Describer
	HealthCheck(ctx context.Context) error
}

// CheckedTagger is a tagger that can report whether it is configured.
type CheckedTagger interface {
	Tagger
	Available() bool
}

// Sources holds the collaborators that passed their availability checks.
// A nil field means the source is unavailable.
type Sources struct {
	Describer Describer
	Tagger    Tagger
}

// SelectSources checks each candidate and keeps the available ones. Running
// with a single source requires allowSingle.
func SelectSources(ctx context.Context, describer CheckedDescriber, tagger CheckedTagger, allowSingle bool, logger *slog.Logger) (Sources, error) {
	logger = logging.NewComponentLogger(logger, "analyzer")
	var sources Sources

	if describer != nil {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := describer.HealthCheck(checkCtx)
		cancel()
		if err != nil {
			logging.WarnWithContext(logger, "describer unavailable", "describer_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check describer endpoint, api_key, and deployment"),
				logging.String(logging.FieldImpact, "primary analysis disabled for this run"),
			)
		} else {
			sources.Describer = describer
			logger.Info("describer available")
		}
	}
	if tagger != nil {
		if tagger.Available() {
			sources.Tagger = tagger
			logger.Info("tagger available")
		} else {
			logging.WarnWithContext(logger, "tagger unavailable", "tagger_unavailable",
				logging.String(logging.FieldErrorHint, "set tagger endpoint and key"),
				logging.String(logging.FieldImpact, "secondary analysis disabled for this run"),
			)
		}
	}

	mode, err := ModeFor(sources.Describer != nil, sources.Tagger != nil)
	if err != nil {
		return Sources{}, err
	}
	if mode != ModeFused && !allowSingle {
		return Sources{}, services.Wrap(services.ErrConfiguration, stageName, "select sources",
			"only the "+string(mode)+" source is available; enable allow_single_service to continue", nil)
	}
	logger.Info("analysis mode selected", logging.String("mode", string(mode)))
	return sources, nil
}
