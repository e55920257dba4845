package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"menumatch/internal/fileutil"
	"menumatch/internal/logging"
	"menumatch/internal/matching"
	"menumatch/internal/services"
	"menumatch/internal/store"
)

const (
	stageName       = "batch"
	resultsFileName = "results.json"
	runLogFileName  = "run.log"
	lockFileName    = ".menumatch.lock"
	defaultWorkers  = 2
)

// ErrNoImages is returned when discovery finds nothing to process.
var ErrNoImages = errors.New("no images found")

// Analyzer produces the outcome for one image file.
type Analyzer interface {
	AnalyzeFile(ctx context.Context, path string) (matching.Outcome, error)
}

// Ledger persists run history. *store.Store satisfies it.
type Ledger interface {
	CreateRun(ctx context.Context, run store.Run) (store.Run, error)
	RecordResult(ctx context.Context, result store.Result) error
	FinishRun(ctx context.Context, id string, status store.RunStatus, totals store.RunTotals, errMsg string) error
}

// Plan describes one batch run.
type Plan struct {
	ImagesDir   string
	Pattern     string
	Sample      int
	ResultsBase string
	CatalogFile string
	CatalogSize int
	Mode        string
}

// Report is what a run produced.
type Report struct {
	RunID       string
	ResultsDir  string
	ResultsFile string
	Records     []Record
	Summary     Summary
	Skipped     int
	Cancelled   bool
}

// Runner processes a directory of images on a bounded worker pool.
type Runner struct {
	analyzer    Analyzer
	workers     int
	copyMatched bool
	ledger      Ledger
	progress    func(total int) Progress
	now         func() time.Time
	logger      *slog.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithCopyMatched toggles copying analyzed images into the results directory.
func WithCopyMatched(enabled bool) Option {
	return func(r *Runner) {
		r.copyMatched = enabled
	}
}

// WithLedger records runs in the given ledger.
func WithLedger(l Ledger) Option {
	return func(r *Runner) {
		r.ledger = l
	}
}

// WithProgress sets the progress reporter factory.
func WithProgress(factory func(total int) Progress) Option {
	return func(r *Runner) {
		if factory != nil {
			r.progress = factory
		}
	}
}

// WithClock overrides the clock used to name the results directory.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner builds a runner around analyzer.
func NewRunner(analyzer Analyzer, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		analyzer:    analyzer,
		workers:     defaultWorkers,
		copyMatched: true,
		progress:    func(int) Progress { return nopProgress{} },
		now:         time.Now,
		logger:      logging.NewComponentLogger(logger, "batch"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run discovers, analyzes, and records every image in plan. A cancelled
// context stops scheduling; completed records are still written and the
// returned error wraps the context error.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Report, error) {
	images, err := Discover(plan.ImagesDir, plan.Pattern)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "discover",
			fmt.Sprintf("%s in %s", plan.Pattern, plan.ImagesDir), ErrNoImages)
	}
	if plan.Sample > 0 && plan.Sample < len(images) {
		r.logger.Info("sampling images",
			logging.Int("sample", plan.Sample),
			logging.Int("available", len(images)),
		)
		images = Sample(images, plan.Sample)
	}

	if err := os.MkdirAll(plan.ResultsBase, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "results dir", plan.ResultsBase, err)
	}
	lock := flock.New(filepath.Join(plan.ResultsBase, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire results lock: %w", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "results lock",
			"another run is writing to "+plan.ResultsBase, nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release results lock", logging.Error(err))
		}
	}()

	runDir, err := fileutil.CreateTimestampedDir(plan.ResultsBase, r.now())
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "results dir", plan.ResultsBase, err)
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger, closeLog := r.runLogger(runDir)
	defer closeLog()
	logger = logging.WithContext(ctx, logger)

	if r.ledger != nil {
		if _, err := r.ledger.CreateRun(ctx, store.Run{
			ID:          runID,
			Mode:        plan.Mode,
			ImagesDir:   plan.ImagesDir,
			CatalogFile: plan.CatalogFile,
			CatalogSize: plan.CatalogSize,
			ResultsDir:  runDir,
			StartedAt:   r.now(),
		}); err != nil {
			return nil, fmt.Errorf("ledger: %w", err)
		}
	}

	logger.Info("batch started",
		logging.Int("images", len(images)),
		logging.Int("workers", r.workers),
		logging.String("mode", plan.Mode),
		logging.String("results_dir", runDir),
	)

	slots := r.process(ctx, images, logger)

	report := &Report{
		RunID:       runID,
		ResultsDir:  runDir,
		ResultsFile: filepath.Join(runDir, resultsFileName),
	}
	for _, rec := range slots {
		if rec == nil {
			report.Skipped++
			continue
		}
		report.Records = append(report.Records, *rec)
	}
	if report.Records == nil {
		report.Records = []Record{}
	}
	report.Cancelled = ctx.Err() != nil
	if report.Skipped > 0 {
		logging.WarnWithContext(logger, "batch interrupted before all images ran", "batch_interrupted",
			logging.Int("skipped", report.Skipped),
			logging.String(logging.FieldErrorHint, "rerun to process the remaining images"),
			logging.String(logging.FieldImpact, "skipped images have no record"),
		)
	}

	if r.copyMatched {
		r.copyImages(images, report.Records, runDir, logger)
	}
	if err := fileutil.WriteJSONAtomic(report.ResultsFile, report.Records); err != nil {
		r.finishLedger(runID, store.RunFailed, Summarize(report.Records), err.Error(), logger)
		return report, fmt.Errorf("write results: %w", err)
	}
	report.Summary = Summarize(report.Records)
	r.recordLedger(runID, report.Records, logger)

	status := store.RunCompleted
	if report.Cancelled {
		status = store.RunCancelled
	}
	r.finishLedger(runID, status, report.Summary, "", logger)

	logger.Info("batch finished",
		logging.Int("total", report.Summary.Total),
		logging.Int("matched", report.Summary.Matched),
		logging.Int("unmatched", report.Summary.Unmatched),
		logging.Int("failed", report.Summary.Failed),
		logging.Float64("match_rate", report.Summary.MatchRate),
		logging.String("results_file", report.ResultsFile),
	)
	if report.Cancelled {
		return report, fmt.Errorf("batch cancelled: %w", context.Cause(ctx))
	}
	return report, nil
}

// process fans images out over the worker pool. Slots stay nil for images
// that never started.
func (r *Runner) process(ctx context.Context, images []string, logger *slog.Logger) []*Record {
	slots := make([]*Record, len(images))
	progress := r.progress(len(images))
	defer progress.Close()

	var g errgroup.Group
	g.SetLimit(r.workers)
	for idx, path := range images {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			rec := r.analyzeOne(ctx, path, logger)
			slots[idx] = &rec
			progress.Done(rec.FileName, rec.Failed())
			return nil
		})
	}
	_ = g.Wait()
	return slots
}

func (r *Runner) analyzeOne(ctx context.Context, path string, logger *slog.Logger) Record {
	name := filepath.Base(path)
	ctx = services.WithImage(ctx, name)
	logger = logger.With(logging.String(logging.FieldImage, name))

	start := time.Now()
	outcome, err := r.analyzer.AnalyzeFile(ctx, path)
	if err != nil {
		kind := services.FailureKind(err)
		logging.ErrorWithContext(logger, "image analysis failed", "image_failed",
			logging.Error(err),
			logging.String("error_kind", kind),
			logging.Bool("retryable", services.Retryable(err)),
		)
		return Record{FileName: name, Error: err.Error(), ErrorKind: kind}
	}
	logger.Info("image analyzed",
		logging.String("match", outcome.Match),
		logging.Score("confidence", outcome.Confidence),
		logging.Duration("elapsed", time.Since(start)),
	)
	return Record{FileName: name, Outcome: &outcome}
}

// copyImages runs in input order so duplicate match filenames get stable
// suffixes.
func (r *Runner) copyImages(images []string, records []Record, runDir string, logger *slog.Logger) {
	sources := make(map[string]string, len(images))
	for _, path := range images {
		sources[filepath.Base(path)] = path
	}
	reserved := make(map[string]struct{}, len(records))
	for i := range records {
		rec := &records[i]
		if rec.Outcome == nil || rec.MatchFilename == "" {
			continue
		}
		src, ok := sources[rec.FileName]
		if !ok {
			continue
		}
		name := fileutil.UniqueName(runDir, rec.MatchFilename, reserved)
		reserved[name] = struct{}{}
		if err := fileutil.CopyFileVerified(src, filepath.Join(runDir, name)); err != nil {
			logging.WarnWithContext(logger, "failed to copy image", "copy_failed",
				logging.String(logging.FieldImage, rec.FileName),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check free space and permissions in the results directory"),
				logging.String(logging.FieldImpact, "record kept without a copied file"),
			)
			continue
		}
		rec.CopiedFile = name
		if name != rec.MatchFilename {
			logger.Debug("match filename already taken",
				logging.String("match_filename", rec.MatchFilename),
				logging.String("copied_file", name),
			)
		}
	}
}

func (r *Runner) recordLedger(runID string, records []Record, logger *slog.Logger) {
	if r.ledger == nil {
		return
	}
	ctx := context.Background()
	for seq, rec := range records {
		row := store.Result{
			RunID:        runID,
			Seq:          seq,
			FileName:     rec.FileName,
			CopiedFile:   rec.CopiedFile,
			ErrorMessage: rec.Error,
			ErrorKind:    rec.ErrorKind,
		}
		if rec.Outcome != nil {
			row.Match = rec.Match
			row.Score = rec.Score
			row.Confidence = rec.Confidence
			row.IsExplicitUnmatched = rec.IsExplicitUnmatched
			row.MatchFilename = rec.MatchFilename
		}
		if raw, err := json.Marshal(rec); err == nil {
			row.RecordJSON = string(raw)
		}
		if err := r.ledger.RecordResult(ctx, row); err != nil {
			logging.WarnWithContext(logger, "failed to record result in ledger", "ledger_write_failed",
				logging.String(logging.FieldImage, rec.FileName),
				logging.Error(err),
				logging.String(logging.FieldImpact, "history is incomplete for this run"),
			)
		}
	}
}

func (r *Runner) finishLedger(runID string, status store.RunStatus, summary Summary, errMsg string, logger *slog.Logger) {
	if r.ledger == nil {
		return
	}
	totals := store.RunTotals{
		Total:     summary.Total,
		Matched:   summary.Matched,
		Unmatched: summary.Unmatched,
		Failed:    summary.Failed,
	}
	if err := r.ledger.FinishRun(context.Background(), runID, status, totals, errMsg); err != nil {
		logging.WarnWithContext(logger, "failed to finish run in ledger", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run stays marked as running in history"),
		)
	}
}

// runLogger tees the runner's logger into a debug-level JSON log inside the
// run directory.
func (r *Runner) runLogger(runDir string) (*slog.Logger, func()) {
	handler, closer, err := logging.NewRunLogHandler(filepath.Join(runDir, runLogFileName))
	if err != nil {
		r.logger.Warn("run log unavailable", logging.Error(err))
		return r.logger, func() {}
	}
	return logging.TeeLogger(r.logger, handler), func() { closeQuietly(closer) }
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
