package matching

import "testing"

func TestParseSignals(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		wantDetected  *string
		wantReported  *float64
		wantUnmatched *string
	}{
		{
			name:         "detected text and confidence",
			text:         "TEXT DETECTED: Turkey Club\nThis looks like a sandwich.\nConfidence score: 7/10",
			wantDetected: strPtr("turkey club"),
			wantReported: floatPtr(7),
		},
		{
			name:         "detected text is trimmed",
			text:         "text detected:    HAM & SWISS   \nmore",
			wantDetected: strPtr("ham & swiss"),
		},
		{
			name:         "marker followed by newline reads the next line",
			text:         "Text Detected:\nnothing legible",
			wantDetected: strPtr("nothing legible"),
		},
		{
			name:         "empty detected text at end of input",
			text:         "a sandwich\ntext detected:   ",
			wantDetected: strPtr(""),
		},
		{
			name:         "confidence without score keyword",
			text:         "Confidence: 6",
			wantReported: floatPtr(6),
		},
		{
			name:         "percentage rescaled once",
			text:         "confidence score 85",
			wantReported: floatPtr(8.5),
		},
		{
			name:         "decimal confidence",
			text:         "CONFIDENCE SCORE: 7.5/10",
			wantReported: floatPtr(7.5),
		},
		{
			name: "unparsable confidence is absent",
			text: "confidence score: 1.2.3",
		},
		{
			name: "confidence word without number is skipped",
			text: "I have low confidence in this guess.",
		},
		{
			name:         "first confidence wins",
			text:         "confidence in this is low. Confidence score: 3/10. Confidence score: 9/10",
			wantReported: floatPtr(3),
		},
		{
			name:          "explicit unmatched label spans lines",
			text:          "UNMATCHED CHICKEN SNDWCH\nConfidence score: 8/10",
			wantReported:  floatPtr(8),
			wantUnmatched: strPtr("CHICKEN SNDWCH\nCONFIDENCE SCORE"),
		},
		{
			name:          "unmatched with hyphen",
			text:          "unmatched - veg curry",
			wantUnmatched: strPtr("VEG CURRY"),
		},
		{
			name: "no signals",
			text: "A plate of food on a table.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSignals(tt.text)
			assertStrPtr(t, "detected_text", got.DetectedText, tt.wantDetected)
			assertFloatPtr(t, "reported_confidence", got.ReportedConfidence, tt.wantReported)
			assertStrPtr(t, "explicit_unmatched_label", got.ExplicitUnmatchedLabel, tt.wantUnmatched)
		})
	}
}

func assertStrPtr(t *testing.T, field string, got, want *string) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil:
		t.Fatalf("%s = nil, want %q", field, *want)
	case want == nil:
		t.Fatalf("%s = %q, want nil", field, *got)
	case *got != *want:
		t.Fatalf("%s = %q, want %q", field, *got, *want)
	}
}

func assertFloatPtr(t *testing.T, field string, got, want *float64) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil:
		t.Fatalf("%s = nil, want %v", field, *want)
	case want == nil:
		t.Fatalf("%s = %v, want nil", field, *got)
	case *got != *want:
		t.Fatalf("%s = %v, want %v", field, *got, *want)
	}
}

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestExtractorsAlongsideSecondaryTypes(t *testing.T) {
	text := "TEXT DETECTED: Veggie Wrap\nUNMATCHED GRAIN BOWL\nConfidence score: 4/10"

	assertStrPtr(t, "ExtractDetectedText", ExtractDetectedText(text), strPtr("veggie wrap"))
	assertFloatPtr(t, "ExtractReportedConfidence", ExtractReportedConfidence(text), floatPtr(4))
	assertStrPtr(t, "ExtractUnmatchedLabel", ExtractUnmatchedLabel("unmatched grain bowl"), strPtr("GRAIN BOWL"))

	signals := SecondarySignals{DetectedTexts: []DetectedText{{Text: "VEGGIE WRAP", Confidence: 0.9}}}
	if got := ExtractDetectedText("TEXT DETECTED: " + signals.DetectedTexts[0].Text); got == nil || *got != "veggie wrap" {
		t.Fatalf("ExtractDetectedText = %v", got)
	}
	if ExtractDetectedText("no marker here") != nil || ExtractReportedConfidence("no score") != nil || ExtractUnmatchedLabel("matched") != nil {
		t.Fatal("extractors should return nil without their markers")
	}
}
