package matching

// Catalog is the ordered list of reference descriptions a match is chosen
// from. Order decides which entry wins a tie.
type Catalog []string

// Tag is a single label produced by the tagger.
type Tag struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// BoundingBox locates a detected object in pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DetectedObject is an object found by the tagger.
type DetectedObject struct {
	Name        string      `json:"name"`
	Confidence  float64     `json:"confidence"`
	BoundingBox BoundingBox `json:"bounding_box"`
}

// DetectedText is one line read by the tagger's OCR.
type DetectedText struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// SecondarySignals is the structured result of the tagger/OCR source. Every
// slice is non-nil once built through NewSecondarySignals or Normalize so the
// JSON shape never loses a key.
type SecondarySignals struct {
	Caption           string           `json:"caption"`
	CaptionConfidence float64          `json:"caption_confidence"`
	Tags              []Tag            `json:"tags"`
	Objects           []DetectedObject `json:"objects"`
	DetectedTexts     []DetectedText   `json:"detected_texts"`
}

// NewSecondarySignals returns an empty signal set with all slices allocated.
func NewSecondarySignals() SecondarySignals {
	return SecondarySignals{
		Tags:          []Tag{},
		Objects:       []DetectedObject{},
		DetectedTexts: []DetectedText{},
	}
}

// Normalize replaces nil slices with empty ones.
func (s SecondarySignals) Normalize() SecondarySignals {
	if s.Tags == nil {
		s.Tags = []Tag{}
	}
	if s.Objects == nil {
		s.Objects = []DetectedObject{}
	}
	if s.DetectedTexts == nil {
		s.DetectedTexts = []DetectedText{}
	}
	return s
}

// ParsedSignals holds the optional signals extracted from one description.
// A nil field means the signal was absent or could not be parsed.
type ParsedSignals struct {
	DetectedText           *string  `json:"detected_text,omitempty"`
	ReportedConfidence     *float64 `json:"reported_confidence,omitempty"`
	ExplicitUnmatchedLabel *string  `json:"explicit_unmatched_label,omitempty"`
}

// Candidate is the outcome of scoring the catalog.
type Candidate struct {
	Description *string
	Score       float64
}

// Found reports whether a catalog entry was selected.
func (c Candidate) Found() bool {
	return c.Description != nil
}

// Resolution is the bounded confidence produced by ResolveConfidence.
type Resolution struct {
	Confidence         float64
	OriginalConfidence float64
	SynergyBoost       float64
}

// Fusion is the primary text augmented with secondary signals.
type Fusion struct {
	Text            string
	SynergyNotes    []string
	ConfidenceBoost float64
	AnalysisMethods []string
}

// Source names used in analysis_methods.
const (
	MethodPrimary   = "primary"
	MethodSecondary = "secondary"
)

// Input is everything the engine needs for one image.
type Input struct {
	FileName  string
	Primary   string
	Secondary *SecondarySignals
	// Methods overrides the analysis_methods reported for single-source runs.
	// Fused runs always report both sources.
	Methods []string
}

// Outcome is the per-image result record. Field names are part of the
// results.json contract.
type Outcome struct {
	Description         string            `json:"description"`
	Match               string            `json:"match"`
	Score               float64           `json:"score"`
	Confidence          float64           `json:"confidence"`
	OriginalConfidence  float64           `json:"original_confidence"`
	SynergyBoost        float64           `json:"synergy_boost"`
	IsExplicitUnmatched bool              `json:"is_explicit_unmatched"`
	UnmatchedReason     string            `json:"unmatched_reason,omitempty"`
	SynergyNotes        []string          `json:"synergy_notes"`
	AnalysisMethods     []string          `json:"analysis_methods"`
	MatchFilename       string            `json:"match_filename"`
	PrimaryAnalysis     string            `json:"primary_analysis,omitempty"`
	SecondaryAnalysis   *SecondarySignals `json:"secondary_analysis,omitempty"`
}
