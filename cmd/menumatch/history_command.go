package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"menumatch/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var fileName string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show previous runs, one run's results, or one image's history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(cmd.Context(), func(st *store.Store) error {
				out := cmd.OutOrStdout()
				switch {
				case strings.TrimSpace(fileName) != "":
					results, err := st.FileHistory(cmd.Context(), strings.TrimSpace(fileName))
					if err != nil {
						return err
					}
					if jsonOutput {
						return writeJSON(cmd, resultsJSON(results))
					}
					if len(results) == 0 {
						printf(out, "No history for %s\n", fileName)
						return nil
					}
					printResults(out, results, true)
					return nil
				case len(args) == 1:
					run, err := st.GetRun(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					results, err := st.Results(cmd.Context(), run.ID)
					if err != nil {
						return err
					}
					if jsonOutput {
						return writeJSON(cmd, struct {
							Run     runRowJSON   `json:"run"`
							Results []resultJSON `json:"results"`
						}{runToJSON(run), resultsJSON(results)})
					}
					printRunDetail(out, run)
					printResults(out, results, false)
					return nil
				default:
					runs, err := st.ListRuns(cmd.Context(), limit)
					if err != nil {
						return err
					}
					if jsonOutput {
						rows := make([]runRowJSON, 0, len(runs))
						for _, run := range runs {
							rows = append(rows, runToJSON(run))
						}
						return writeJSON(cmd, rows)
					}
					if len(runs) == 0 {
						printf(out, "No runs recorded\n")
						return nil
					}
					printRuns(out, runs)
					return nil
				}
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	cmd.Flags().StringVar(&fileName, "file", "", "Show every recorded result for this image file name")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print as JSON")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

func printRuns(out io.Writer, runs []store.Run) {
	rows := make([][]string, 0, len(runs))
	var total, matched int
	for _, run := range runs {
		total += run.Total
		matched += run.Matched
		rows = append(rows, []string{
			shortID(run.ID),
			formatTime(run.StartedAt),
			string(run.Status),
			run.Mode,
			strconv.Itoa(run.Total),
			strconv.Itoa(run.Matched),
			fmt.Sprintf("%.1f%%", run.MatchRate()),
			formatDuration(run.Duration()),
		})
	}
	headers := []string{"Run", "Started", "Status", "Mode", "Images", "Matched", "Rate", "Duration"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}
	rate := 0.0
	if total > 0 {
		rate = float64(matched) / float64(total) * 100
	}
	footer := []string{"Total", "", "", "", strconv.Itoa(total), strconv.Itoa(matched), fmt.Sprintf("%.1f%%", rate), ""}
	printf(out, "%s\n", renderTableWithFooter(headers, rows, aligns, footer))
}

func printRunDetail(out io.Writer, run store.Run) {
	printf(out, "Run:        %s\n", run.ID)
	printf(out, "Status:     %s\n", run.Status)
	printf(out, "Mode:       %s\n", run.Mode)
	printf(out, "Started:    %s\n", formatTime(run.StartedAt))
	printf(out, "Duration:   %s\n", formatDuration(run.Duration()))
	printf(out, "Images dir: %s\n", run.ImagesDir)
	printf(out, "Catalog:    %s (%d entries)\n", run.CatalogFile, run.CatalogSize)
	printf(out, "Results:    %s\n", run.ResultsDir)
	printf(out, "Matched:    %d/%d (%.1f%%), failed %d\n", run.Matched, run.Total, run.MatchRate(), run.Failed)
	if run.ErrorMessage != "" {
		printf(out, "Error:      %s\n", run.ErrorMessage)
	}
}

func printResults(out io.Writer, results []store.Result, withRun bool) {
	headers := []string{"Image", "Match", "Confidence", "Copied as", "Explicit"}
	if withRun {
		headers = append([]string{"Run", "Recorded"}, headers...)
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		match := r.Match
		confidence := fmt.Sprintf("%.2f", r.Confidence)
		if r.ErrorMessage != "" {
			match = "error: " + r.ErrorKind
			confidence = "-"
		}
		row := []string{r.FileName, match, confidence, r.CopiedFile, yesNo(r.IsExplicitUnmatched)}
		if withRun {
			row = append([]string{shortID(r.RunID), formatTime(r.RecordedAt)}, row...)
		}
		rows = append(rows, row)
	}
	printf(out, "%s\n", renderTable(headers, rows, nil))
}

type runRowJSON struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	Mode        string  `json:"mode"`
	ImagesDir   string  `json:"images_dir"`
	CatalogFile string  `json:"catalog_file"`
	CatalogSize int     `json:"catalog_size"`
	ResultsDir  string  `json:"results_dir"`
	StartedAt   string  `json:"started_at"`
	FinishedAt  string  `json:"finished_at,omitempty"`
	Total       int     `json:"total"`
	Matched     int     `json:"matched"`
	Unmatched   int     `json:"unmatched"`
	Failed      int     `json:"failed"`
	MatchRate   float64 `json:"match_rate"`
	Error       string  `json:"error,omitempty"`
}

func runToJSON(run store.Run) runRowJSON {
	row := runRowJSON{
		ID:          run.ID,
		Status:      string(run.Status),
		Mode:        run.Mode,
		ImagesDir:   run.ImagesDir,
		CatalogFile: run.CatalogFile,
		CatalogSize: run.CatalogSize,
		ResultsDir:  run.ResultsDir,
		StartedAt:   run.StartedAt.UTC().Format(time.RFC3339),
		Total:       run.Total,
		Matched:     run.Matched,
		Unmatched:   run.Unmatched,
		Failed:      run.Failed,
		MatchRate:   run.MatchRate(),
		Error:       run.ErrorMessage,
	}
	if !run.FinishedAt.IsZero() {
		row.FinishedAt = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	return row
}

type resultJSON struct {
	RunID               string  `json:"run_id"`
	Seq                 int     `json:"seq"`
	FileName            string  `json:"file_name"`
	Match               string  `json:"match,omitempty"`
	Score               float64 `json:"score"`
	Confidence          float64 `json:"confidence"`
	IsExplicitUnmatched bool    `json:"is_explicit_unmatched"`
	MatchFilename       string  `json:"match_filename,omitempty"`
	CopiedFile          string  `json:"copied_file,omitempty"`
	Error               string  `json:"error,omitempty"`
	ErrorKind           string  `json:"error_kind,omitempty"`
	RecordedAt          string  `json:"recorded_at"`
}

func resultsJSON(results []store.Result) []resultJSON {
	out := make([]resultJSON, 0, len(results))
	for _, r := range results {
		out = append(out, resultJSON{
			RunID:               r.RunID,
			Seq:                 r.Seq,
			FileName:            r.FileName,
			Match:               r.Match,
			Score:               r.Score,
			Confidence:          r.Confidence,
			IsExplicitUnmatched: r.IsExplicitUnmatched,
			MatchFilename:       r.MatchFilename,
			CopiedFile:          r.CopiedFile,
			Error:               r.ErrorMessage,
			ErrorKind:           r.ErrorKind,
			RecordedAt:          r.RecordedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
