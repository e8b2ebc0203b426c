package llm

import (
	"context"
	"time"

	"github.com/atendezap/atendezap/internal/observability/metrics"
)

// InstrumentedClient decorates a provider client with call counters and a
// latency histogram.
type InstrumentedClient struct {
	inner    Client
	provider string
	metrics  *metrics.Metrics
}

// NewInstrumentedClient wraps inner, labeling observations with provider.
func NewInstrumentedClient(inner Client, provider string, m *metrics.Metrics) *InstrumentedClient {
	return &InstrumentedClient{inner: inner, provider: provider, metrics: m}
}

func (c *InstrumentedClient) Complete(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	resp, err := c.inner.Complete(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.ObserveLLM(c.provider, status, time.Since(start))
	return resp, err
}
