package batch_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"menumatch/internal/batch"
	"menumatch/internal/logging"
	"menumatch/internal/matching"
	"menumatch/internal/services"
	"menumatch/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeAnalyzer struct {
	mu       sync.Mutex
	outcomes map[string]matching.Outcome
	errs     map[string]error
	hook     func(name string)
	seen     []string
}

func (f *fakeAnalyzer) AnalyzeFile(_ context.Context, path string) (matching.Outcome, error) {
	name := filepath.Base(path)
	f.mu.Lock()
	f.seen = append(f.seen, name)
	f.mu.Unlock()
	if f.hook != nil {
		f.hook(name)
	}
	if err, ok := f.errs[name]; ok {
		return matching.Outcome{}, err
	}
	if out, ok := f.outcomes[name]; ok {
		return out, nil
	}
	return matching.Outcome{
		Match:         "UNMATCHED SOMETHING",
		MatchFilename: "UNMATCHED_SOMETHING_conf0.jpeg",
	}, nil
}

type fakeLedger struct {
	mu       sync.Mutex
	run      store.Run
	results  []store.Result
	status   store.RunStatus
	totals   store.RunTotals
	createEr error
}

func (f *fakeLedger) CreateRun(_ context.Context, run store.Run) (store.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createEr != nil {
		return store.Run{}, f.createEr
	}
	f.run = run
	return run, nil
}

func (f *fakeLedger) RecordResult(_ context.Context, result store.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
	return nil
}

func (f *fakeLedger) FinishRun(_ context.Context, _ string, status store.RunStatus, totals store.RunTotals, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.totals = totals
	return nil
}

var fixedNow = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local) }

func writeImages(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("img-"+name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func turkeyClub() matching.Outcome {
	return matching.Outcome{
		Match:         "Turkey Club",
		Score:         0.9,
		Confidence:    0.8,
		SynergyNotes:  []string{},
		MatchFilename: "Turkey_Club_conf80.jpeg",
	}
}

func TestRunProcessesImagesInOrder(t *testing.T) {
	imagesDir := t.TempDir()
	resultsBase := filepath.Join(t.TempDir(), "results")
	writeImages(t, imagesDir, "f.jpeg", "a.jpeg", "d.jpeg", "b.jpeg", "c.jpeg", "e.jpeg", "notes.txt")

	analyzer := &fakeAnalyzer{
		outcomes: map[string]matching.Outcome{"a.jpeg": turkeyClub(), "d.jpeg": turkeyClub()},
		errs:     map[string]error{"c.jpeg": services.Wrap(services.ErrTimeout, "describer", "chat", "", nil)},
	}
	ledger := &fakeLedger{}
	runner := batch.NewRunner(analyzer, logging.NewNop(),
		batch.WithWorkers(3),
		batch.WithLedger(ledger),
		batch.WithClock(fixedNow),
	)

	report, err := runner.Run(context.Background(), batch.Plan{
		ImagesDir:   imagesDir,
		Pattern:     "*.jpeg",
		ResultsBase: resultsBase,
		Mode:        "fused",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if want := filepath.Join(resultsBase, "2026-01-02_03-04-05"); report.ResultsDir != want {
		t.Fatalf("results dir = %q, want %q", report.ResultsDir, want)
	}
	var names []string
	for _, rec := range report.Records {
		names = append(names, rec.FileName)
	}
	if diff := cmp.Diff([]string{"a.jpeg", "b.jpeg", "c.jpeg", "d.jpeg", "e.jpeg", "f.jpeg"}, names); diff != "" {
		t.Fatalf("record order (-want +got):\n%s", diff)
	}

	failed := report.Records[2]
	if !failed.Failed() || failed.ErrorKind != services.KindTimeout || failed.Error == "" {
		t.Fatalf("failed record = %#v", failed)
	}

	if report.Records[0].CopiedFile != "Turkey_Club_conf80.jpeg" || report.Records[3].CopiedFile != "Turkey_Club_conf80_2.jpeg" {
		t.Fatalf("copied files = %q, %q", report.Records[0].CopiedFile, report.Records[3].CopiedFile)
	}
	copied, err := os.ReadFile(filepath.Join(report.ResultsDir, "Turkey_Club_conf80_2.jpeg"))
	if err != nil || string(copied) != "img-d.jpeg" {
		t.Fatalf("copied content = %q, %v", copied, err)
	}

	want := batch.Summary{Total: 6, Matched: 2, Unmatched: 4, Failed: 1, MatchRate: float64(2) / float64(6) * 100}
	if diff := cmp.Diff(want, report.Summary); diff != "" {
		t.Fatalf("summary (-want +got):\n%s", diff)
	}

	raw, err := os.ReadFile(report.ResultsFile)
	if err != nil {
		t.Fatalf("read results: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(decoded) != 6 || decoded[0]["match"] != "Turkey Club" || decoded[0]["file_name"] != "a.jpeg" {
		t.Fatalf("results.json = %s", raw)
	}
	if _, ok := decoded[2]["match"]; ok {
		t.Fatalf("error record should carry no outcome fields: %v", decoded[2])
	}
	if !bytes.HasPrefix(raw, []byte("[\n  {")) {
		t.Fatalf("results.json not indented: %s", raw[:10])
	}
	if _, err := os.Stat(filepath.Join(report.ResultsDir, "run.log")); err != nil {
		t.Fatalf("run log missing: %v", err)
	}

	if ledger.run.ID != report.RunID || ledger.run.Mode != "fused" {
		t.Fatalf("ledger run = %#v", ledger.run)
	}
	if len(ledger.results) != 6 || ledger.results[2].ErrorKind != services.KindTimeout || ledger.results[0].Match != "Turkey Club" {
		t.Fatalf("ledger results = %#v", ledger.results)
	}
	if ledger.status != store.RunCompleted || ledger.totals.Failed != 1 {
		t.Fatalf("ledger finish = %s %#v", ledger.status, ledger.totals)
	}
}

func TestRunCancellationKeepsCompletedRecords(t *testing.T) {
	imagesDir := t.TempDir()
	writeImages(t, imagesDir, "a.jpeg", "b.jpeg", "c.jpeg", "d.jpeg")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	analyzer := &fakeAnalyzer{hook: func(name string) {
		if name == "b.jpeg" {
			cancel()
		}
	}}
	ledger := &fakeLedger{}
	runner := batch.NewRunner(analyzer, logging.NewNop(), batch.WithWorkers(1), batch.WithLedger(ledger))

	report, err := runner.Run(ctx, batch.Plan{ImagesDir: imagesDir, Pattern: "*.jpeg", ResultsBase: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if report == nil || len(report.Records) != 2 || report.Skipped != 2 || !report.Cancelled {
		t.Fatalf("report = %#v", report)
	}
	raw, err := os.ReadFile(report.ResultsFile)
	if err != nil {
		t.Fatalf("results.json not written: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil || len(decoded) != 2 {
		t.Fatalf("results.json = %s (%v)", raw, err)
	}
	if ledger.status != store.RunCancelled {
		t.Fatalf("ledger status = %s", ledger.status)
	}
}

func TestRunWithoutCopy(t *testing.T) {
	imagesDir := t.TempDir()
	writeImages(t, imagesDir, "a.jpeg")
	analyzer := &fakeAnalyzer{outcomes: map[string]matching.Outcome{"a.jpeg": turkeyClub()}}
	runner := batch.NewRunner(analyzer, nil, batch.WithCopyMatched(false))

	report, err := runner.Run(context.Background(), batch.Plan{ImagesDir: imagesDir, Pattern: "*.jpeg", ResultsBase: t.TempDir()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Records[0].CopiedFile != "" {
		t.Fatalf("copied file = %q", report.Records[0].CopiedFile)
	}
	if _, err := os.Stat(filepath.Join(report.ResultsDir, "Turkey_Club_conf80.jpeg")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("image copied despite copy disabled: %v", err)
	}
}

func TestRunSample(t *testing.T) {
	imagesDir := t.TempDir()
	writeImages(t, imagesDir, "0.jpeg", "1.jpeg", "2.jpeg", "3.jpeg", "4.jpeg", "5.jpeg", "6.jpeg")
	analyzer := &fakeAnalyzer{}
	runner := batch.NewRunner(analyzer, nil, batch.WithWorkers(1))

	report, err := runner.Run(context.Background(), batch.Plan{ImagesDir: imagesDir, Pattern: "*.jpeg", Sample: 3, ResultsBase: t.TempDir()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"0.jpeg", "2.jpeg", "4.jpeg"}, analyzer.seen); diff != "" {
		t.Fatalf("sampled images (-want +got):\n%s", diff)
	}
	if report.Summary.Total != 3 {
		t.Fatalf("total = %d", report.Summary.Total)
	}
}

func TestRunFatalErrors(t *testing.T) {
	t.Run("no images", func(t *testing.T) {
		runner := batch.NewRunner(&fakeAnalyzer{}, nil)
		_, err := runner.Run(context.Background(), batch.Plan{ImagesDir: t.TempDir(), Pattern: "*.jpeg", ResultsBase: t.TempDir()})
		if !errors.Is(err, batch.ErrNoImages) {
			t.Fatalf("err = %v, want ErrNoImages", err)
		}
	})

	t.Run("results locked", func(t *testing.T) {
		imagesDir := t.TempDir()
		writeImages(t, imagesDir, "a.jpeg")
		resultsBase := t.TempDir()
		held := flock.New(filepath.Join(resultsBase, ".menumatch.lock"))
		ok, err := held.TryLock()
		if err != nil || !ok {
			t.Fatalf("pre-lock: %v %v", ok, err)
		}
		defer func() { _ = held.Unlock() }()

		runner := batch.NewRunner(&fakeAnalyzer{}, nil)
		_, err = runner.Run(context.Background(), batch.Plan{ImagesDir: imagesDir, Pattern: "*.jpeg", ResultsBase: resultsBase})
		if !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("err = %v, want configuration error", err)
		}
	})

	t.Run("ledger unavailable", func(t *testing.T) {
		imagesDir := t.TempDir()
		writeImages(t, imagesDir, "a.jpeg")
		analyzer := &fakeAnalyzer{}
		runner := batch.NewRunner(analyzer, nil, batch.WithLedger(&fakeLedger{createEr: errors.New("disk full")}))
		_, err := runner.Run(context.Background(), batch.Plan{ImagesDir: imagesDir, Pattern: "*.jpeg", ResultsBase: t.TempDir()})
		if err == nil {
			t.Fatal("expected ledger error")
		}
		if len(analyzer.seen) != 0 {
			t.Fatalf("images processed despite ledger failure: %v", analyzer.seen)
		}
	})
}
