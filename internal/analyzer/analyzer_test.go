package analyzer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"menumatch/internal/analyzer"
	"menumatch/internal/logging"
	"menumatch/internal/matching"
	"menumatch/internal/services"
)

var lunchCatalog = matching.Catalog{"Turkey Club", "Chicken Sandwich", "Veggie Wrap"}

type fakeDescriber struct {
	mu        sync.Mutex
	text      string
	err       error
	healthErr error
	calls     int
	secondary []*matching.SecondarySignals
	catalog   []string
}

func (f *fakeDescriber) DescribeImage(_ context.Context, _ []byte, catalog []string, secondary *matching.SecondarySignals) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.secondary = append(f.secondary, secondary)
	f.catalog = catalog
	return f.text, f.err
}

func (f *fakeDescriber) HealthCheck(context.Context) error {
	return f.healthErr
}

type fakeTagger struct {
	signals   matching.SecondarySignals
	err       error
	available bool
	calls     int
}

func (f *fakeTagger) Analyze(context.Context, []byte) (matching.SecondarySignals, error) {
	f.calls++
	return f.signals, f.err
}

func (f *fakeTagger) Available() bool {
	return f.available
}

func newAnalyzer(t *testing.T, d analyzer.Describer, tg analyzer.Tagger) *analyzer.Analyzer {
	t.Helper()
	a, err := analyzer.New(matching.NewEngine(lunchCatalog, logging.NewNop()), d, tg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestAnalyzeFused(t *testing.T) {
	describer := &fakeDescriber{text: "This is a sandwich.\nConfidence score: 8/10"}
	tagger := &fakeTagger{signals: matching.SecondarySignals{
		Caption:       "a sandwich on a plate",
		DetectedTexts: []matching.DetectedText{{Text: "TURKEY CLUB", Confidence: 0.93}},
	}}
	a := newAnalyzer(t, describer, tagger)
	if a.Mode() != analyzer.ModeFused {
		t.Fatalf("mode = %q, want fused", a.Mode())
	}

	out, err := a.AnalyzeImage(context.Background(), "lunch.jpeg", []byte{0xff, 0xd8})
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if out.Match != "Turkey Club" {
		t.Fatalf("match = %q, want Turkey Club", out.Match)
	}
	if diff := cmp.Diff([]string{"primary", "secondary"}, out.AnalysisMethods); diff != "" {
		t.Fatalf("methods (-want +got):\n%s", diff)
	}
	if out.MatchFilename != "Turkey_Club_conf80.jpeg" {
		t.Fatalf("match_filename = %q", out.MatchFilename)
	}
	if tagger.calls != 1 || describer.calls != 1 {
		t.Fatalf("calls tagger=%d describer=%d, want 1 each", tagger.calls, describer.calls)
	}
	if describer.secondary[0] == nil || describer.secondary[0].Caption != "a sandwich on a plate" {
		t.Fatalf("describer did not receive secondary signals: %#v", describer.secondary[0])
	}
	if diff := cmp.Diff([]string(lunchCatalog), describer.catalog); diff != "" {
		t.Fatalf("catalog passed to describer (-want +got):\n%s", diff)
	}
}

func TestAnalyzeFusedTaggerFailureDegrades(t *testing.T) {
	describer := &fakeDescriber{text: "This is a chicken sandwich.\nConfidence score: 9/10"}
	tagger := &fakeTagger{err: errors.New("boom")}
	a := newAnalyzer(t, describer, tagger)

	out, err := a.AnalyzeImage(context.Background(), "a.jpeg", []byte{1})
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if out.Match != "Chicken Sandwich" {
		t.Fatalf("match = %q", out.Match)
	}
	if out.SecondaryAnalysis == nil || len(out.SecondaryAnalysis.Tags) != 0 || out.SecondaryAnalysis.Tags == nil {
		t.Fatalf("secondary analysis = %#v, want empty signals", out.SecondaryAnalysis)
	}
	if len(out.SynergyNotes) != 0 {
		t.Fatalf("synergy notes = %v, want none", out.SynergyNotes)
	}
}

func TestAnalyzeFusedCancelledTagger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	describer := &fakeDescriber{text: "anything"}
	a := newAnalyzer(t, describer, &fakeTagger{err: context.Canceled})

	if _, err := a.AnalyzeImage(ctx, "a.jpeg", []byte{1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if describer.calls != 0 {
		t.Fatalf("describer called after cancellation")
	}
}

func TestAnalyzeDescriberOnly(t *testing.T) {
	describer := &fakeDescriber{text: "This is a chicken sandwich with lettuce.\nConfidence score: 9/10"}
	a := newAnalyzer(t, describer, nil)
	if a.Mode() != analyzer.ModeDescriber {
		t.Fatalf("mode = %q", a.Mode())
	}

	out, err := a.AnalyzeImage(context.Background(), "test.jpg", []byte{1})
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if out.Match != "Chicken Sandwich" || out.Confidence != 0.9 {
		t.Fatalf("outcome = %q %v", out.Match, out.Confidence)
	}
	if diff := cmp.Diff([]string{"primary"}, out.AnalysisMethods); diff != "" {
		t.Fatalf("methods (-want +got):\n%s", diff)
	}
	if describer.secondary[0] != nil {
		t.Fatal("describer-only mode should not pass secondary signals")
	}
	if out.SecondaryAnalysis != nil || out.PrimaryAnalysis != "" {
		t.Fatal("describer-only outcome should not carry per-source analyses")
	}
}

func TestAnalyzeTaggerOnly(t *testing.T) {
	tagger := &fakeTagger{signals: matching.SecondarySignals{Caption: "a veggie wrap", CaptionConfidence: 0.9}}
	a := newAnalyzer(t, nil, tagger)
	if a.Mode() != analyzer.ModeTagger {
		t.Fatalf("mode = %q", a.Mode())
	}

	out, err := a.AnalyzeImage(context.Background(), "wrap.jpeg", []byte{1})
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if out.Match != "Veggie Wrap" {
		t.Fatalf("match = %q", out.Match)
	}
	if out.Description != "Caption: a veggie wrap\n" {
		t.Fatalf("description = %q", out.Description)
	}
	if diff := cmp.Diff([]string{"secondary"}, out.AnalysisMethods); diff != "" {
		t.Fatalf("methods (-want +got):\n%s", diff)
	}
	if out.SecondaryAnalysis == nil || out.SecondaryAnalysis.Objects == nil {
		t.Fatalf("secondary analysis = %#v", out.SecondaryAnalysis)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	timeout := services.Wrap(services.ErrTimeout, "describer", "chat", "", nil)

	t.Run("describer failure", func(t *testing.T) {
		a := newAnalyzer(t, &fakeDescriber{err: timeout}, &fakeTagger{})
		_, err := a.AnalyzeImage(context.Background(), "a.jpeg", []byte{1})
		if !errors.Is(err, services.ErrTimeout) {
			t.Fatalf("err = %v, want timeout marker", err)
		}
	})

	t.Run("tagger-only failure", func(t *testing.T) {
		a := newAnalyzer(t, nil, &fakeTagger{err: services.ErrExternalTool})
		_, err := a.AnalyzeImage(context.Background(), "a.jpeg", []byte{1})
		if services.FailureKind(err) != services.KindExternal {
			t.Fatalf("kind = %q, want external", services.FailureKind(err))
		}
	})

	t.Run("empty image", func(t *testing.T) {
		a := newAnalyzer(t, &fakeDescriber{}, nil)
		_, err := a.AnalyzeImage(context.Background(), "a.jpeg", nil)
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("err = %v, want validation marker", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		a := newAnalyzer(t, &fakeDescriber{}, nil)
		_, err := a.AnalyzeFile(context.Background(), filepath.Join(t.TempDir(), "missing.jpeg"))
		if !errors.Is(err, services.ErrNotFound) {
			t.Fatalf("err = %v, want not found marker", err)
		}
	})
}

func TestAnalyzeFileUsesBaseName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "IMG_7.JPEG")
	if err := os.WriteFile(path, []byte{0xff}, 0o644); err != nil {
		t.Fatal(err)
	}
	a := newAnalyzer(t, &fakeDescriber{text: "Veggie wrap.\nConfidence score: 5/10"}, nil)

	out, err := a.AnalyzeFile(context.Background(), path)
	if err != nil {
		t.Fatalf("AnalyzeFile: %v", err)
	}
	if out.MatchFilename != "Veggie_Wrap_conf50.JPEG" {
		t.Fatalf("match_filename = %q", out.MatchFilename)
	}
}

func TestNewRequiresASource(t *testing.T) {
	_, err := analyzer.New(matching.NewEngine(lunchCatalog, nil), nil, nil, nil)
	if !errors.Is(err, analyzer.ErrNoServices) || !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error wrapping ErrNoServices", err)
	}
}

func TestComparisonAttrs(t *testing.T) {
	primary := "TEXT DETECTED: Turkey Club\nThis looks like a sandwich.\nConfidence score: 7/10"
	secondary := matching.SecondarySignals{
		Caption:       "a sandwich",
		DetectedTexts: []matching.DetectedText{{Text: "TURKEY"}, {Text: "CLUB"}},
	}

	got := map[string]string{}
	for _, attr := range analyzer.ComparisonAttrs(primary, secondary, []string{"Added secondary text detection"}) {
		got[attr.Key] = attr.Value.String()
	}
	want := map[string]string{
		"primary_caption":   "This looks like a sandwich.",
		"secondary_caption": "a sandwich",
		"primary_text":      "Turkey Club",
		"secondary_text":    "TURKEY, CLUB",
		"synergy":           "Added secondary text detection",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ComparisonAttrs (-want +got):\n%s", diff)
	}

	empty := map[string]string{}
	for _, attr := range analyzer.ComparisonAttrs("plain", matching.NewSecondarySignals(), nil) {
		empty[attr.Key] = attr.Value.String()
	}
	if empty["primary_text"] != "None" || empty["secondary_text"] != "None" {
		t.Fatalf("missing texts should read None: %v", empty)
	}
}

type contextRecorder struct {
	stages     []string
	requestIDs []string
}

func (r *contextRecorder) record(ctx context.Context) {
	stage, _ := services.StageFromContext(ctx)
	id, _ := services.RequestIDFromContext(ctx)
	r.stages = append(r.stages, stage)
	r.requestIDs = append(r.requestIDs, id)
}

type recordingDescriber struct{ rec *contextRecorder }

func (d recordingDescriber) DescribeImage(ctx context.Context, _ []byte, _ []string, _ *matching.SecondarySignals) (string, error) {
	d.rec.record(ctx)
	return "A wrap.\nConfidence score: 6/10", nil
}

type recordingTagger struct{ rec *contextRecorder }

func (tg recordingTagger) Analyze(ctx context.Context, _ []byte) (matching.SecondarySignals, error) {
	tg.rec.record(ctx)
	return matching.NewSecondarySignals(), nil
}

func TestAnalyzeImageStampsStageAndRequestID(t *testing.T) {
	rec := &contextRecorder{}
	a := newAnalyzer(t, recordingDescriber{rec}, recordingTagger{rec})

	if _, err := a.AnalyzeImage(context.Background(), "wrap.jpeg", []byte{0xff}); err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if diff := cmp.Diff([]string{"tag", "describe"}, rec.stages); diff != "" {
		t.Fatalf("stages (-want +got):\n%s", diff)
	}
	if rec.requestIDs[0] == "" || rec.requestIDs[0] != rec.requestIDs[1] {
		t.Fatalf("request ids = %q, want one shared non-empty id", rec.requestIDs)
	}

	rec.stages, rec.requestIDs = nil, nil
	ctx := services.WithRequestID(context.Background(), "caller-id")
	if _, err := a.AnalyzeImage(ctx, "wrap.jpeg", []byte{0xff}); err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if rec.requestIDs[0] != "caller-id" {
		t.Fatalf("request id = %q, want caller-id", rec.requestIDs[0])
	}
}
