package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"menumatch/internal/logging"
	"menumatch/internal/matching"
	"menumatch/internal/services"
)

// Describer produces the primary free-text analysis of an image.
type Describer interface {
	DescribeImage(ctx context.Context, image []byte, catalog []string, secondary *matching.SecondarySignals) (string, error)
}

// Tagger produces structured secondary signals for an image.
type Tagger interface {
	Analyze(ctx context.Context, image []byte) (matching.SecondarySignals, error)
}

// Mode names which sources contribute to an analysis.
type Mode string

const (
	ModeFused     Mode = "fused"
	ModeDescriber Mode = "describer"
	ModeTagger    Mode = "tagger"
)

// ErrNoServices is returned when neither source is available.
var ErrNoServices = errors.New("no AI services available")

const (
	stageName     = "analyze"
	stageDescribe = "describe"
	stageTag      = "tag"
)

// Analyzer runs one image through the available sources and the matching
// engine. It is safe for concurrent use when its collaborators are.
type Analyzer struct {
	engine    *matching.Engine
	describer Describer
	tagger    Tagger
	mode      Mode
	logger    *slog.Logger
}

// New builds an analyzer. Either source may be nil, but not both.
func New(engine *matching.Engine, describer Describer, tagger Tagger, logger *slog.Logger) (*Analyzer, error) {
	if engine == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "init", "matching engine required", nil)
	}
	mode, err := ModeFor(describer != nil, tagger != nil)
	if err != nil {
		return nil, err
	}
	return &Analyzer{
		engine:    engine,
		describer: describer,
		tagger:    tagger,
		mode:      mode,
		logger:    logging.NewComponentLogger(logger, "analyzer"),
	}, nil
}

// ModeFor picks the analysis mode for the available sources.
func ModeFor(hasDescriber, hasTagger bool) (Mode, error) {
	switch {
	case hasDescriber && hasTagger:
		return ModeFused, nil
	case hasDescriber:
		return ModeDescriber, nil
	case hasTagger:
		return ModeTagger, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, stageName, "init", "", ErrNoServices)
	}
}

// Mode reports the analysis mode.
func (a *Analyzer) Mode() Mode {
	return a.mode
}

// AnalyzeFile reads the image at path and analyzes it.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (matching.Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		marker := services.ErrExternalTool
		if errors.Is(err, os.ErrNotExist) {
			marker = services.ErrNotFound
		}
		return matching.Outcome{}, services.Wrap(marker, stageName, "read image", path, err)
	}
	return a.AnalyzeImage(ctx, filepath.Base(path), data)
}

// AnalyzeImage analyzes image bytes. fileName supplies the extension for the
// match filename.
func (a *Analyzer) AnalyzeImage(ctx context.Context, fileName string, image []byte) (matching.Outcome, error) {
	if len(image) == 0 {
		return matching.Outcome{}, services.Wrap(services.ErrValidation, stageName, "read image", fileName+" is empty", nil)
	}
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	logger := logging.WithContext(ctx, a.logger).With(
		logging.String(logging.FieldImage, fileName),
		logging.String("mode", string(a.mode)),
	)

	switch a.mode {
	case ModeFused:
		return a.analyzeFused(ctx, logger, fileName, image)
	case ModeDescriber:
		text, err := a.describer.DescribeImage(services.WithStage(ctx, stageDescribe), image, a.engine.Catalog(), nil)
		if err != nil {
			return matching.Outcome{}, fmt.Errorf("describe %s: %w", fileName, err)
		}
		return a.engine.Evaluate(matching.Input{
			FileName: fileName,
			Primary:  text,
			Methods:  []string{matching.MethodPrimary},
		}), nil
	default:
		signals, err := a.tagger.Analyze(services.WithStage(ctx, stageTag), image)
		if err != nil {
			return matching.Outcome{}, fmt.Errorf("tag %s: %w", fileName, err)
		}
		signals = signals.Normalize()
		out := a.engine.Evaluate(matching.Input{
			FileName: fileName,
			Primary:  matching.DescribeSecondary(signals),
			Methods:  []string{matching.MethodSecondary},
		})
		out.SecondaryAnalysis = &signals
		return out, nil
	}
}

func (a *Analyzer) analyzeFused(ctx context.Context, logger *slog.Logger, fileName string, image []byte) (matching.Outcome, error) {
	signals, err := a.tagger.Analyze(services.WithStage(ctx, stageTag), image)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return matching.Outcome{}, ctxErr
		}
		logging.WarnWithContext(logger, "secondary analysis failed; continuing with primary only",
			"secondary_degraded",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check tagger endpoint and key"),
			logging.String(logging.FieldImpact, "no secondary signals fused for this image"),
		)
		signals = matching.NewSecondarySignals()
	}
	signals = signals.Normalize()

	text, err := a.describer.DescribeImage(services.WithStage(ctx, stageDescribe), image, a.engine.Catalog(), &signals)
	if err != nil {
		return matching.Outcome{}, fmt.Errorf("describe %s: %w", fileName, err)
	}

	out := a.engine.Evaluate(matching.Input{
		FileName:  fileName,
		Primary:   text,
		Secondary: &signals,
	})
	logger.Debug("model comparison", logging.Args(ComparisonAttrs(text, signals, out.SynergyNotes)...)...)
	return out, nil
}

var (
	primaryCaptionPattern = regexp.MustCompile(`(?:^|\n)([^:]*?)(?:Confidence|$)`)
	primaryTextPattern    = regexp.MustCompile(`(?i)TEXT DETECTED:\s*(.*?)(?:\n|$)`)
)

// ComparisonAttrs summarizes how the two sources saw the same image.
func ComparisonAttrs(primary string, secondary matching.SecondarySignals, notes []string) []logging.Attr {
	caption := ""
	if m := primaryCaptionPattern.FindStringSubmatch(primary); m != nil {
		caption = strings.TrimSpace(m[1])
	}
	primaryText := "None"
	if m := primaryTextPattern.FindStringSubmatch(primary); m != nil {
		primaryText = m[1]
	}
	secondaryText := "None"
	if len(secondary.DetectedTexts) > 0 {
		texts := make([]string, 0, len(secondary.DetectedTexts))
		for _, dt := range secondary.DetectedTexts {
			texts = append(texts, dt.Text)
		}
		secondaryText = strings.Join(texts, ", ")
	}
	return []logging.Attr{
		logging.String("primary_caption", caption),
		logging.String("secondary_caption", secondary.Caption),
		logging.String("primary_text", primaryText),
		logging.String("secondary_text", secondaryText),
		logging.String("synergy", strings.Join(notes, "; ")),
	}
}
