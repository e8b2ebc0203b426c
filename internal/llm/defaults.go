package llm

import "context"

// DefaultsClient fills MaxTokens and Temperature on requests that leave them
// zero, so service-level tuning applies without every caller knowing it.
type DefaultsClient struct {
	inner       Client
	maxTokens   int32
	temperature float32
}

// NewDefaultsClient wraps inner with request defaults.
func NewDefaultsClient(inner Client, maxTokens int32, temperature float32) *DefaultsClient {
	return &DefaultsClient{inner: inner, maxTokens: maxTokens, temperature: temperature}
}

// Complete applies the defaults and delegates.
func (c *DefaultsClient) Complete(ctx context.Context, req Request) (Response, error) {
	if req.MaxTokens == 0 {
		req.MaxTokens = c.maxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = c.temperature
	}
	return c.inner.Complete(ctx, req)
}
