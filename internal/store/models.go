package store

import "time"

// RunStatus tracks the lifecycle of a batch run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// Run is one batch invocation.
type Run struct {
	ID           string
	Status       RunStatus
	Mode         string
	ImagesDir    string
	CatalogFile  string
	CatalogSize  int
	ResultsDir   string
	StartedAt    time.Time
	FinishedAt   time.Time
	Total        int
	Matched      int
	Unmatched    int
	Failed       int
	ErrorMessage string
}

// MatchRate returns matched/total as a percentage, or 0 for an empty run.
func (r Run) MatchRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Matched) / float64(r.Total) * 100
}

// Duration reports how long the run took; zero while still running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Result is the ledger row for one image.
type Result struct {
	RunID               string
	Seq                 int
	FileName            string
	Match               string
	Score               float64
	Confidence          float64
	IsExplicitUnmatched bool
	MatchFilename       string
	CopiedFile          string
	ErrorMessage        string
	ErrorKind           string
	RecordJSON          string
	RecordedAt          time.Time
}

// RunTotals are the counters written when a run finishes.
type RunTotals struct {
	Total     int
	Matched   int
	Unmatched int
	Failed    int
}
