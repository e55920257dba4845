package matching

import (
	"log/slog"
	"strings"

	"menumatch/internal/logging"
)

// Engine runs the matching pipeline against a fixed catalog. It is safe for
// concurrent use; Evaluate holds no state between calls.
type Engine struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewEngine returns an engine over catalog. A nil logger discards output.
func NewEngine(catalog Catalog, logger *slog.Logger) *Engine {
	return &Engine{
		catalog: catalog,
		logger:  logging.NewComponentLogger(logger, "matching"),
	}
}

// Catalog returns the catalog the engine matches against.
func (e *Engine) Catalog() Catalog {
	return e.catalog
}

// Evaluate produces the outcome for one image. It never fails.
func (e *Engine) Evaluate(in Input) Outcome {
	logger := e.logger.With(logging.String(logging.FieldImage, in.FileName))

	analysis := in.Primary
	notes := []string{}
	methods := in.Methods
	boost := 0.0
	var secondary *SecondarySignals

	if in.Secondary != nil {
		normalized := in.Secondary.Normalize()
		secondary = &normalized
		fusion := Fuse(in.Primary, normalized)
		analysis = fusion.Text
		notes = fusion.SynergyNotes
		methods = fusion.AnalysisMethods
		boost = fusion.ConfidenceBoost
		for _, note := range notes {
			logger.Debug("synergy note", logging.String("note", note))
		}
	}
	if len(methods) == 0 {
		methods = []string{MethodPrimary}
	}

	text := strings.ToLower(analysis)
	parsed := ParseSignals(text)
	candidate := Match(parsed, text, e.catalog)
	resolved := ResolveConfidence(parsed, candidate.Score, boost)

	out := Outcome{
		Description:        analysis,
		Score:              candidate.Score,
		Confidence:         resolved.Confidence,
		OriginalConfidence: resolved.OriginalConfidence,
		SynergyBoost:       resolved.SynergyBoost,
		SynergyNotes:       notes,
		AnalysisMethods:    append([]string(nil), methods...),
	}
	if secondary != nil {
		out.PrimaryAnalysis = in.Primary
		out.SecondaryAnalysis = secondary
	}

	switch {
	case parsed.ExplicitUnmatchedLabel != nil:
		out.Match = UnmatchedPrefix + " " + *parsed.ExplicitUnmatchedLabel
		out.IsExplicitUnmatched = true
		out.UnmatchedReason = ReasonExplicitUnmatched
		logger.Info("match decision", logging.Args(logging.DecisionAttrs("match", "explicit_unmatched", ReasonExplicitUnmatched, out.Match)...)...)
	case !candidate.Found() || candidate.Score < WeakMatchThreshold:
		out.Match = UnmatchedPrefix + " " + SynthesizeUnmatchedLabel(text)
		out.UnmatchedReason = ReasonNoGoodMatch
		logger.Info("match decision", logging.Args(append(
			logging.DecisionAttrs("match", "unmatched", ReasonNoGoodMatch, out.Match),
			logging.Score("best_score", candidate.Score),
			logging.Float64("threshold", WeakMatchThreshold),
		)...)...)
	default:
		out.Match = *candidate.Description
		logger.Info("match decision", logging.Args(append(
			logging.DecisionAttrs("match", "matched", matchReason(parsed, candidate), out.Match),
			logging.Score("score", candidate.Score),
		)...)...)
	}

	out.MatchFilename = MatchFilename(out.Match, out.Confidence, in.FileName)
	logger.Debug("confidence resolved",
		logging.Score("confidence", out.Confidence),
		logging.Score("original_confidence", out.OriginalConfidence),
		logging.Score("synergy_boost", out.SynergyBoost),
		logging.String("match_filename", out.MatchFilename))
	return out
}

func matchReason(parsed ParsedSignals, candidate Candidate) string {
	if parsed.DetectedText != nil && *parsed.DetectedText != "" && candidate.Score == DetectedTextScore {
		return "detected text"
	}
	return "word overlap"
}
