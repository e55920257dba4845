package llm

import (
	"bytes"
	"context"
	"encoding/base64"
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
	defaultHTTPTimeout       = 120 * time.Second
	defaultAPIVersion        = "2024-12-01-preview"
	defaultMaxCatalogEntries = 100
	stageName                = "describer"
	configHint               = "check endpoint, api key, and deployment"
)

// Config captures the runtime settings required to talk to an Azure OpenAI
// chat deployment.
type Config struct {
	Endpoint          string
	APIKey            string
	APIVersion        string
	Deployment        string
	TimeoutSeconds    int
	MaxCatalogEntries int
}

// DefaultHTTPTimeout returns the default timeout used for describer requests.
func DefaultHTTPTimeout() time.Duration {
	return defaultHTTPTimeout
}

// Client wraps the Azure OpenAI chat completion API.
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

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.backoff.BaseDelay = baseDelay
		c.backoff.MaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.backoff.Sleeper = sleeper
	}
}

// NewClient constructs a describer client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			Endpoint:          strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
			APIKey:            strings.TrimSpace(cfg.APIKey),
			APIVersion:        strings.TrimSpace(cfg.APIVersion),
			Deployment:        strings.TrimSpace(cfg.Deployment),
			TimeoutSeconds:    cfg.TimeoutSeconds,
			MaxCatalogEntries: cfg.MaxCatalogEntries,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.APIVersion == "" {
		client.cfg.APIVersion = defaultAPIVersion
	}
	if client.cfg.MaxCatalogEntries <= 0 {
		client.cfg.MaxCatalogEntries = defaultMaxCatalogEntries
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Configured reports whether endpoint, key, and deployment are all present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.Endpoint != "" && c.cfg.APIKey != "" && c.cfg.Deployment != ""
}

// Deployment returns the configured model deployment name.
func (c *Client) Deployment() string {
	if c == nil {
		return ""
	}
	return c.cfg.Deployment
}

type emptyContentError struct {
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf(
		"empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.FinishReason,
		e.Refusal,
		e.Snippet,
	)
}

// DescribeImagePath reads the image at path and describes it.
func (c *Client) DescribeImagePath(ctx context.Context, path string, catalog []string, secondary *matching.SecondarySignals) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, stageName, "read image", path, err)
	}
	return c.DescribeImage(ctx, data, catalog, secondary)
}

// DescribeImage sends the image with the catalog-aware prompts and returns the
// model's free-text description. When secondary is non-nil its signals are
// included as a context block ahead of the instructions.
func (c *Client) DescribeImage(ctx context.Context, image []byte, catalog []string, secondary *matching.SecondarySignals) (string, error) {
	if !c.Configured() {
		return "", services.Wrap(services.ErrConfiguration, stageName, "describe", "endpoint, api key, and deployment required", nil)
	}
	if len(image) == 0 {
		return "", services.Wrap(services.ErrValidation, stageName, "describe", "image data required", nil)
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
	payload := chatCompletionRequest{
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: BuildUserPrompt(limitCatalog(catalog, c.cfg.MaxCatalogEntries), secondary)},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			}},
		},
	}
	content, err := c.completionContentWithRetry(ctx, payload)
	if err != nil {
		return "", services.ClassifyHTTP(stageName, "describe", configHint, err)
	}
	return content, nil
}

// HealthCheck issues a minimal chat round trip to verify the endpoint, key,
// and deployment are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.Configured() {
		return services.Wrap(services.ErrConfiguration, stageName, "health", "endpoint, api key, and deployment required", nil)
	}
	payload := chatCompletionRequest{
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful assistant."},
			{Role: "user", Content: "Say hello world."},
		},
	}
	if _, err := c.completionContentWithRetry(ctx, payload); err != nil {
		return services.ClassifyHTTP(stageName, "health", configHint, err)
	}
	return nil
}

func limitCatalog(catalog []string, limit int) []string {
	if limit > 0 && len(catalog) > limit {
		return catalog[:limit]
	}
	return catalog
}

type chatCompletionRequest struct {
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role string `json:"role"`
	// Content is a string or a []contentPart.
	Content any `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatCompletionMessage `json:"message"`
		Delta        chatCompletionMessage `json:"delta"`
		Text         string                `json:"text"`
		FinishReason string                `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type chatCompletionMessage struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
}

func (c *Client) completionContentWithRetry(ctx context.Context, payload chatCompletionRequest) (string, error) {
	var content string
	err := c.backoff.Retry(ctx, func(ctx context.Context) error {
		completion, body, err := c.sendChatRequestOnce(ctx, payload)
		if err != nil {
			return err
		}
		text, finishReason := extractCompletionPayload(completion)
		if text == "" {
			if len(completion.Choices) == 0 {
				return errors.New("empty choices")
			}
			return &emptyContentError{
				FinishReason: finishReason,
				Refusal:      extractCompletionRefusal(completion),
				Snippet:      services.SummarizeBody(string(body)),
			}
		}
		content = text
		return nil
	}, retryable)
	return content, err
}

// retryable retries empty completions, transient statuses and timeouts.
// A Retry-After header takes precedence over the backoff schedule.
func retryable(err error) (bool, time.Duration) {
	var emptyErr *emptyContentError
	if errors.As(err, &emptyErr) {
		return true, 0
	}
	var statusErr *services.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient(), statusErr.RetryAfter
	}
	return services.IsTimeout(err), 0
}

func extractCompletionPayload(completion chatCompletionResponse) (string, string) {
	var finishReason string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if content := firstNonEmpty(choice.Message.Content, choice.Delta.Content, choice.Text); content != "" {
			return content, finishReason
		}
	}
	return "", finishReason
}

func extractCompletionRefusal(completion chatCompletionResponse) string {
	for _, choice := range completion.Choices {
		if refusal := firstNonEmpty(choice.Message.Refusal, choice.Delta.Refusal); refusal != "" {
			return refusal
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (c *Client) completionsURL() (string, error) {
	endpoint, err := url.JoinPath(c.cfg.Endpoint, "openai", "deployments", c.cfg.Deployment, "chat", "completions")
	if err != nil {
		return "", err
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("api-version", c.cfg.APIVersion)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) sendChatRequestOnce(ctx context.Context, payload chatCompletionRequest) (chatCompletionResponse, []byte, error) {
	var completion chatCompletionResponse
	endpoint, err := c.completionsURL()
	if err != nil {
		return completion, nil, fmt.Errorf("describer request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return completion, nil, fmt.Errorf("describer request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return completion, nil, fmt.Errorf("describer request: new request: %w", err)
	}
	req.Header.Set("api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if id, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set(services.RequestIDHeader, id)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return completion, nil, fmt.Errorf("describer request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, nil, fmt.Errorf("describer request: read body (timeout=%s): %w", c.timeoutDuration(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return completion, body, services.NewStatusError("describer", resp, body)
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, body, fmt.Errorf("describer request: decode response: %w", err)
	}
	if completion.Error != nil {
		return completion, body, fmt.Errorf("describer request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	return completion, body, nil
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}
