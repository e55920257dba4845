package matching

import "math"

// Confidence caps and floors.
const (
	UnmatchedConfidenceCap   = 0.9
	UnmatchedConfidenceFloor = 0.3
	MaxConfidence            = 1.0
)

// ResolveConfidence combines the reported confidence, the heuristic match
// score and the fusion boost into a value in [0, 1].
//
// A reported confidence of zero or less is treated as missing. Explicit
// unmatched results fall back to max(0.3, score) and are capped at 0.9.
func ResolveConfidence(parsed ParsedSignals, score, boost float64) Resolution {
	reported, hasReported := reportedScale(parsed.ReportedConfidence)

	var base, limit float64
	switch {
	case parsed.ExplicitUnmatchedLabel != nil:
		base = math.Max(UnmatchedConfidenceFloor, score)
		if hasReported {
			base = reported
		}
		limit = UnmatchedConfidenceCap
	case hasReported:
		base = reported
		limit = MaxConfidence
	default:
		base = score
		limit = MaxConfidence
	}

	return Resolution{
		Confidence:         clamp(base+boost, 0, limit),
		OriginalConfidence: clamp(base, 0, MaxConfidence),
		SynergyBoost:       boost,
	}
}

// reportedScale converts a 0-10 reported confidence to the unit range.
func reportedScale(value *float64) (float64, bool) {
	if value == nil || *value <= 0 || math.IsNaN(*value) {
		return 0, false
	}
	return *value / 10, true
}

func clamp(value, lo, hi float64) float64 {
	if math.IsNaN(value) {
		return lo
	}
	return math.Min(math.Max(value, lo), hi)
}
