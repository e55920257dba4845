package matching

import (
	"strings"
)

// Fusion thresholds.
const (
	FusionTextConfidence = 0.5
	FusionTagConfidence  = 0.7
)

const (
	noteTextDetection = "Added secondary text detection"
	noteFoodTags      = "Added secondary food tags: "
)

// FoodVocabulary is the fixed set of tag names fusion may append.
var FoodVocabulary = []string{
	"food", "sandwich", "bread", "burger", "meal", "lunch", "dinner",
	"breakfast", "plate", "meat", "cheese", "vegetable", "dessert", "salad", "wrap",
}

var foodVocabulary = func() map[string]struct{} {
	set := make(map[string]struct{}, len(FoodVocabulary))
	for _, word := range FoodVocabulary {
		set[word] = struct{}{}
	}
	return set
}()

// Fuse folds confident secondary signals into the primary text.
//
// Confident OCR lines are prepended as a "TEXT DETECTED:" line when the
// primary text has none. Confident food tags not already mentioned are
// appended one per line. The boost is always zero.
func Fuse(primary string, secondary SecondarySignals) Fusion {
	text := primary
	notes := []string{}

	var texts []string
	for _, dt := range secondary.DetectedTexts {
		if dt.Confidence > FusionTextConfidence {
			texts = append(texts, dt.Text)
		}
	}
	if len(texts) > 0 && !strings.Contains(strings.ToLower(primary), "text detected:") {
		text = "TEXT DETECTED: " + strings.Join(texts, " | ") + "\n" + text
		notes = append(notes, noteTextDetection)
	}

	var added []string
	for _, tag := range secondary.Tags {
		if tag.Confidence <= FusionTagConfidence {
			continue
		}
		if _, ok := foodVocabulary[tag.Name]; !ok {
			continue
		}
		if strings.Contains(strings.ToLower(text), strings.ToLower(tag.Name)) {
			continue
		}
		text += "\nSecondary source detected: " + tag.Name
		added = append(added, tag.Name)
	}
	if len(added) > 0 {
		notes = append(notes, noteFoodTags+strings.Join(added, ", "))
	}

	return Fusion{
		Text:            text,
		SynergyNotes:    notes,
		ConfidenceBoost: 0,
		AnalysisMethods: []string{MethodPrimary, MethodSecondary},
	}
}
