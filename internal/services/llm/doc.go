// Package llm provides the Azure OpenAI chat client that produces the primary
// free-text description of a food image.
//
// # Prompting
//
// DescribeImage sends a system prompt with food identification guidelines and
// a user prompt listing the catalog (first MaxCatalogEntries lines). The model
// is asked for a "TEXT DETECTED:" line, the best catalog match or an
// "UNMATCHED <ABBREV>" label, and "Confidence score: X/10". When secondary
// signals are available they are rendered as a context block ahead of the
// instructions. The image travels as a base64 JPEG data URL.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.DescribeImage / DescribeImagePath: describe one image.
// Client.HealthCheck: verify endpoint, key, and deployment with a tiny chat.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions, and
// network timeouts with exponential backoff (base 1s, max 10s, up to 3
// attempts by default). Context cancellation aborts retries immediately.
// Returned errors carry the services markers so callers can classify them.
package llm
