package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"menumatch/internal/matching"
	"menumatch/internal/services"
)

const (
	defaultHTTPTimeout    = 60 * time.Second
	defaultAPIVersion     = "2024-02-01"
	defaultLanguage       = "en"
	analyzeFeatures       = "caption,tags,objects,read"
	stageName             = "tagger"
)

// Config captures the settings for an Azure AI Vision resource.
type Config struct {
	Endpoint       string
	Key            string
	Region         string
	APIVersion     string
	Language       string
	TimeoutSeconds int
}

// Client calls the Image Analysis REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	backoff    services.Backoff
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.backoff.Attempts = attempts
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.backoff.Sleeper = sleeper
	}
}

// NewClient constructs a vision client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			Endpoint:       strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
			Key:            strings.TrimSpace(cfg.Key),
			Region:         strings.TrimSpace(cfg.Region),
			APIVersion:     strings.TrimSpace(cfg.APIVersion),
			Language:       strings.TrimSpace(cfg.Language),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.APIVersion == "" {
		client.cfg.APIVersion = defaultAPIVersion
	}
	if client.cfg.Language == "" {
		client.cfg.Language = defaultLanguage
	}
	return client
}

// Available reports whether endpoint and key are configured. No request is
// made; a bad key surfaces on the first Analyze call.
func (c *Client) Available() bool {
	return c != nil && c.cfg.Endpoint != "" && c.cfg.Key != ""
}

// AnalyzePath reads the image at path and analyzes it.
func (c *Client) AnalyzePath(ctx context.Context, path string) (matching.SecondarySignals, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return matching.NewSecondarySignals(), services.Wrap(services.ErrNotFound, stageName, "read image", path, err)
	}
	return c.Analyze(ctx, data)
}

// Analyze requests caption, tags, objects, and read results for image.
func (c *Client) Analyze(ctx context.Context, image []byte) (matching.SecondarySignals, error) {
	empty := matching.NewSecondarySignals()
	if !c.Available() {
		return empty, services.Wrap(services.ErrConfiguration, stageName, "analyze", "endpoint and key required", nil)
	}
	if len(image) == 0 {
		return empty, services.Wrap(services.ErrValidation, stageName, "analyze", "image data required", nil)
	}

	var result analyzeResponse
	err := c.backoff.Retry(ctx, func(ctx context.Context) error {
		var err error
		result, err = c.analyzeOnce(ctx, image)
		return err
	}, retryable)
	if err != nil {
		return empty, services.ClassifyHTTP(stageName, "analyze", "check endpoint and key", err)
	}
	return result.signals(), nil
}

func (c *Client) analyzeURL() (string, error) {
	endpoint, err := url.JoinPath(c.cfg.Endpoint, "computervision", "imageanalysis:analyze")
	if err != nil {
		return "", err
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("api-version", c.cfg.APIVersion)
	q.Set("features", analyzeFeatures)
	q.Set("language", c.cfg.Language)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) analyzeOnce(ctx context.Context, image []byte) (analyzeResponse, error) {
	var parsed analyzeResponse
	endpoint, err := c.analyzeURL()
	if err != nil {
		return parsed, fmt.Errorf("vision request: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(image))
	if err != nil {
		return parsed, fmt.Errorf("vision request: new request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.Key)
	if c.cfg.Region != "" {
		req.Header.Set("Ocp-Apim-Subscription-Region", c.cfg.Region)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if id, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set(services.RequestIDHeader, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return parsed, fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return parsed, fmt.Errorf("vision request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return parsed, services.NewStatusError("vision", resp, body)
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return parsed, fmt.Errorf("vision request: decode response: %w", err)
	}
	return parsed, nil
}

// retryable retries throttling, server errors and timeouts.
func retryable(err error) (bool, time.Duration) {
	var statusErr *services.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient(), statusErr.RetryAfter
	}
	return services.IsTimeout(err), 0
}
