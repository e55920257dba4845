package matching

import (
	"regexp"
	"strings"

	"menumatch/internal/textutil"
)

// Unmatched prefixes and reasons.
const (
	UnmatchedPrefix          = "UNMATCHED"
	ReasonNoGoodMatch        = "No good match found"
	ReasonExplicitUnmatched  = "AI explicitly marked as unmatched"
	WeakMatchThreshold       = 0.3
	maxUnmatchedLabelTokens  = 4
	minUnmatchedLabelLetters = 2
)

var (
	detectedTextLine = regexp.MustCompile(`(?i)text detected:.*?\n`)
	confidenceLine   = regexp.MustCompile(`(?i)confidence score:.*?\n`)
)

// SynthesizeUnmatchedLabel builds a short uppercase label from the first four
// alphabetic words of text longer than two runes, after dropping the detected
// text and confidence lines. The result may be empty.
func SynthesizeUnmatchedLabel(text string) string {
	cleaned := detectedTextLine.ReplaceAllString(text, "")
	cleaned = confidenceLine.ReplaceAllString(cleaned, "")

	words := make([]string, 0, maxUnmatchedLabelTokens)
	for _, word := range strings.Fields(cleaned) {
		if !textutil.IsAlpha(word) || textutil.RuneLen(word) <= minUnmatchedLabelLetters {
			continue
		}
		words = append(words, strings.ToUpper(word))
		if len(words) == maxUnmatchedLabelTokens {
			break
		}
	}
	return strings.Join(words, " ")
}

// IsUnmatched reports whether match carries the unmatched prefix.
func IsUnmatched(match string) bool {
	return strings.HasPrefix(match, UnmatchedPrefix)
}
