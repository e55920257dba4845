package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"menumatch/internal/matching"
	"menumatch/internal/services"
)

type recordedRequest struct {
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

func completionHandler(t *testing.T, content string, capture *recordedRequest) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, capture); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}, "finish_reason": "stop"},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func testConfig(endpoint string) Config {
	return Config{Endpoint: endpoint + "/", APIKey: "secret", Deployment: "o1", APIVersion: "2024-12-01-preview"}
}

func TestDescribeImageSendsPromptAndImage(t *testing.T) {
	var captured recordedRequest
	var path, version, key string
	handler := completionHandler(t, "TEXT DETECTED: Turkey Club\nTurkey Club\nConfidence score: 8/10", &captured)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		version = r.URL.Query().Get("api-version")
		key = r.Header.Get("api-key")
		handler(w, r)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	secondary := matching.SecondarySignals{Caption: "a sandwich", CaptionConfidence: 0.81}
	got, err := client.DescribeImage(context.Background(), []byte{0xff, 0xd8, 0xff}, []string{"Turkey Club", "Veggie Wrap"}, &secondary)
	if err != nil {
		t.Fatalf("DescribeImage returned error: %v", err)
	}
	if !strings.HasPrefix(got, "TEXT DETECTED: Turkey Club") {
		t.Fatalf("unexpected description %q", got)
	}
	if path != "/openai/deployments/o1/chat/completions" || version != "2024-12-01-preview" || key != "secret" {
		t.Fatalf("unexpected request path=%q version=%q key=%q", path, version, key)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages %#v", captured.Messages)
	}

	var parts []contentPart
	if err := json.Unmarshal(captured.Messages[1].Content, &parts); err != nil {
		t.Fatalf("decode user content: %v", err)
	}
	if len(parts) != 2 || parts[0].Type != "text" || parts[1].Type != "image_url" {
		t.Fatalf("unexpected parts %#v", parts)
	}
	for _, want := range []string{"VISION API CAPTION: a sandwich (Confidence: 0.81)", "Turkey Club\nVeggie Wrap", "FORMAT YOUR RESPONSE AS:"} {
		if !strings.Contains(parts[0].Text, want) {
			t.Fatalf("user prompt missing %q", want)
		}
	}
	if parts[1].ImageURL == nil || parts[1].ImageURL.URL != "data:image/jpeg;base64,/9j/" {
		t.Fatalf("unexpected image url %#v", parts[1].ImageURL)
	}
}

func TestDescribeImageLimitsCatalog(t *testing.T) {
	var captured recordedRequest
	server := httptest.NewServer(completionHandler(t, "ok", &captured))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxCatalogEntries = 2
	client := NewClient(cfg)
	if _, err := client.DescribeImage(context.Background(), []byte("img"), []string{"Alpha Item", "Beta Item", "Gamma Item"}, nil); err != nil {
		t.Fatalf("DescribeImage returned error: %v", err)
	}
	var parts []contentPart
	if err := json.Unmarshal(captured.Messages[1].Content, &parts); err != nil {
		t.Fatalf("decode user content: %v", err)
	}
	if !strings.Contains(parts[0].Text, "Beta Item") || strings.Contains(parts[0].Text, "Gamma Item") {
		t.Fatalf("catalog not limited: %q", parts[0].Text)
	}
	if strings.Contains(parts[0].Text, "VISION API") {
		t.Fatal("vision context should be absent without secondary signals")
	}
}

func TestDescribeImagePathMissingFile(t *testing.T) {
	client := NewClient(testConfig("http://127.0.0.1:1"))
	_, err := client.DescribeImagePath(context.Background(), filepath.Join(t.TempDir(), "nope.jpeg"), nil, nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDescribeImagePathReadsFile(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "Veggie Wrap\nConfidence score: 9/10", nil))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "wrap.jpeg")
	if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	got, err := NewClient(testConfig(server.URL)).DescribeImagePath(context.Background(), path, []string{"Veggie Wrap"}, nil)
	if err != nil || got != "Veggie Wrap\nConfidence score: 9/10" {
		t.Fatalf("DescribeImagePath = %q, %v", got, err)
	}
}

func TestDescribeImageRetriesThrottling(t *testing.T) {
	var calls int32
	success := completionHandler(t, "Veggie Wrap", nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		success(w, r)
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := NewClient(testConfig(server.URL), WithSleeper(func(d time.Duration) { sleeps = append(sleeps, d) }))
	got, err := client.DescribeImage(context.Background(), []byte("img"), []string{"Veggie Wrap"}, nil)
	if err != nil {
		t.Fatalf("DescribeImage returned error: %v", err)
	}
	if got != "Veggie Wrap" || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("got %q after %d calls", got, calls)
	}
	if len(sleeps) != 2 || sleeps[0] != 2*time.Second {
		t.Fatalf("unexpected sleeps %v", sleeps)
	}
}

func TestDescribeImageUnauthorizedIsConfigurationError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"401","message":"Access denied"}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), WithSleeper(func(time.Duration) {}))
	_, err := client.DescribeImage(context.Background(), []byte("img"), nil, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("unauthorized should not retry, got %d calls", calls)
	}
}

func TestDescribeImageEmptyContentExhaustsRetries(t *testing.T) {
	var calls int32
	empty := completionHandler(t, "", nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		empty(w, r)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), WithRetryMaxAttempts(2), WithSleeper(func(time.Duration) {}))
	_, err := client.DescribeImage(context.Background(), []byte("img"), nil, nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external error, got %v", err)
	}
	var emptyErr *emptyContentError
	if !errors.As(err, &emptyErr) || emptyErr.FinishReason != "stop" {
		t.Fatalf("expected empty content error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestDescribeImageRequiresConfiguration(t *testing.T) {
	client := NewClient(Config{Endpoint: "https://example.openai.azure.com"})
	if client.Configured() {
		t.Fatal("client without key should not be configured")
	}
	if _, err := client.DescribeImage(context.Background(), []byte("img"), nil, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := NewClient(testConfig("https://example.openai.azure.com")).DescribeImage(context.Background(), nil, nil, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	var captured recordedRequest
	server := httptest.NewServer(completionHandler(t, "Hello world!", &captured))
	defer server.Close()

	if err := NewClient(testConfig(server.URL)).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	var user string
	if err := json.Unmarshal(captured.Messages[1].Content, &user); err != nil || user != "Say hello world." {
		t.Fatalf("unexpected health prompt %q (%v)", user, err)
	}
}

func TestHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	if err := NewClient(testConfig(server.URL)).HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}
