package matching

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	detectedTextPattern = regexp.MustCompile(`(?i)text detected:\s*([^\n]*)`)
	confidencePattern   = regexp.MustCompile(`(?i)confidence[\s:]*(?:score)?[\s:]*([\d.]+)(?:/10)?`)
	unmatchedPattern    = regexp.MustCompile(`(?i)unmatched[\s\-]*([\p{L}\p{N}_\s]+)`)
)

// ParseSignals extracts every optional signal from text. It never fails; a
// missing or malformed signal is left nil.
func ParseSignals(text string) ParsedSignals {
	return ParsedSignals{
		DetectedText:           ExtractDetectedText(text),
		ReportedConfidence:     ExtractReportedConfidence(text),
		ExplicitUnmatchedLabel: ExtractUnmatchedLabel(text),
	}
}

// ExtractDetectedText returns the lowercased remainder of the first
// "text detected:" line. An empty remainder is returned as an empty string,
// which the matcher treats as no detection.
func ExtractDetectedText(text string) *string {
	m := detectedTextPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	value := strings.ToLower(strings.TrimSpace(m[1]))
	return &value
}

// ExtractReportedConfidence returns the first self-reported confidence on a 0-10
// scale. Values above 10 are assumed to be percentages and divided by ten.
func ExtractReportedConfidence(text string) *float64 {
	m := confidencePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	if value > 10 {
		value /= 10
	}
	return &value
}

// ExtractUnmatchedLabel returns the uppercased label following the first
// "unmatched" marker.
func ExtractUnmatchedLabel(text string) *string {
	m := unmatchedPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	label := strings.ToUpper(strings.TrimSpace(m[1]))
	return &label
}
