package batch

import (
	"strings"

	"menumatch/internal/matching"
)

// Record is one entry of results.json. Failed images carry only FileName,
// Error and ErrorKind.
type Record struct {
	FileName string `json:"file_name"`
	*matching.Outcome
	CopiedFile string `json:"copied_file,omitempty"`
	Error      string `json:"error,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
}

// Failed reports whether the image produced no outcome.
func (r Record) Failed() bool {
	return r.Outcome == nil
}

// Matched reports whether the image resolved to a catalog entry.
func (r Record) Matched() bool {
	return r.Outcome != nil && r.Match != "" && !strings.HasPrefix(r.Match, matching.UnmatchedPrefix)
}

// Summary holds run totals. Unmatched includes failed images.
type Summary struct {
	Total     int     `json:"total"`
	Matched   int     `json:"matched"`
	Unmatched int     `json:"unmatched"`
	Failed    int     `json:"failed"`
	MatchRate float64 `json:"match_rate"`
}

// Summarize counts records.
func Summarize(records []Record) Summary {
	s := Summary{Total: len(records)}
	for _, rec := range records {
		if rec.Matched() {
			s.Matched++
		}
		if rec.Failed() {
			s.Failed++
		}
	}
	s.Unmatched = s.Total - s.Matched
	if s.Total > 0 {
		s.MatchRate = float64(s.Matched) / float64(s.Total) * 100
	}
	return s
}
