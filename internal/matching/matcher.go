package matching

import (
	"strings"

	"menumatch/internal/textutil"
)

// DetectedTextScore is the score assigned to a detected-text hit.
const DetectedTextScore = 0.9

// minTokenRunes is the length a catalog word must exceed to count.
const minTokenRunes = 2

// Match selects the catalog entry that best fits fullText.
//
// A non-empty detected text short-circuits the scan: the first entry that
// contains it, or is contained by it, wins with DetectedTextScore. Otherwise
// every entry is scored by word overlap and the highest score wins. A later
// entry must beat the current best, not tie it, so the earliest entry wins
// ties. An empty catalog or an all-zero scan returns no description.
func Match(parsed ParsedSignals, fullText string, catalog Catalog) Candidate {
	if parsed.DetectedText != nil && *parsed.DetectedText != "" {
		if c, ok := matchDetectedText(*parsed.DetectedText, catalog); ok {
			return c
		}
	}

	text := strings.ToLower(fullText)
	var best Candidate
	for idx := range catalog {
		score, ok := overlapScore(text, catalog[idx])
		if !ok {
			continue
		}
		if score > best.Score {
			best = Candidate{Description: &catalog[idx], Score: score}
		}
	}
	return best
}

func matchDetectedText(detected string, catalog Catalog) (Candidate, bool) {
	for idx := range catalog {
		entry := strings.ToLower(catalog[idx])
		if strings.Contains(entry, detected) || strings.Contains(detected, entry) {
			return Candidate{Description: &catalog[idx], Score: DetectedTextScore}, true
		}
	}
	return Candidate{}, false
}

// overlapScore returns the fraction of entry words longer than two runes that
// appear in text. Entries without words report ok=false.
func overlapScore(text, entry string) (float64, bool) {
	words := strings.Fields(strings.ToLower(entry))
	if len(words) == 0 {
		return 0, false
	}
	hits := 0
	for _, word := range words {
		if textutil.RuneLen(word) > minTokenRunes && strings.Contains(text, word) {
			hits++
		}
	}
	return float64(hits) / float64(len(words)), true
}
