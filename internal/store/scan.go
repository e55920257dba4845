package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, status, mode, images_dir, catalog_file, catalog_size, results_dir, started_at, finished_at, total, matched, unmatched, failed, error_message"

const resultColumns = "run_id, seq, file_name, match, score, confidence, is_explicit_unmatched, match_filename, copied_file, error_message, error_kind, record_json, recorded_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		status      string
		resultsDir  sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
		errMsg      sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&status,
		&run.Mode,
		&run.ImagesDir,
		&run.CatalogFile,
		&run.CatalogSize,
		&resultsDir,
		&startedRaw,
		&finishedRaw,
		&run.Total,
		&run.Matched,
		&run.Unmatched,
		&run.Failed,
		&errMsg,
	); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = RunStatus(status)
	run.ResultsDir = resultsDir.String
	run.ErrorMessage = errMsg.String
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	return run, nil
}

func scanResults(rows *sql.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var (
			r             Result
			match         sql.NullString
			explicit      int
			matchFilename sql.NullString
			copied        sql.NullString
			errMsg        sql.NullString
			errKind       sql.NullString
			record        sql.NullString
			recordedRaw   string
		)
		if err := rows.Scan(
			&r.RunID,
			&r.Seq,
			&r.FileName,
			&match,
			&r.Score,
			&r.Confidence,
			&explicit,
			&matchFilename,
			&copied,
			&errMsg,
			&errKind,
			&record,
			&recordedRaw,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Match = match.String
		r.IsExplicitUnmatched = explicit != 0
		r.MatchFilename = matchFilename.String
		r.CopiedFile = copied.String
		r.ErrorMessage = errMsg.String
		r.ErrorKind = errKind.String
		r.RecordJSON = record.String
		r.RecordedAt = parseTime(recordedRaw)
		results = append(results, r)
	}
	return results, rows.Err()
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func stripLikeWildcards(value string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(value)
}
