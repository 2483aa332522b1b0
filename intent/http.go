package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

var _ Classifier = (*HTTPClient)(nil)

// HTTPClient calls an external classification service over HTTP JSON.
// Requests are rate limited with a token bucket so a burst of user
// messages cannot exhaust the provider quota.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// HTTPOption configures the HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) {
		h.client = c
	}
}

// WithRateLimit sets the sustained requests-per-second limit and burst
// size. Zero rps disables rate limiting.
func WithRateLimit(rps float64, burst int) HTTPOption {
	return func(h *HTTPClient) {
		if rps <= 0 {
			h.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewHTTPClient creates a classifier client for the service at baseURL.
// The default configuration uses a 10s request timeout, traced
// transport, and a 5 rps / burst 10 limiter.
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	h := &HTTPClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

type classifyRequest struct {
	Query   string            `json:"query"`
	Context map[string]string `json:"context,omitempty"`
}

// Classify posts the query to the service's /classify endpoint.
func (h *HTTPClient) Classify(ctx context.Context, query string, meta map[string]string) (*Result, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("concierge/intent: rate limit wait: %w", err)
		}
	}

	body, err := json.Marshal(classifyRequest{Query: query, Context: meta})
	if err != nil {
		return nil, fmt.Errorf("concierge/intent: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		h.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("concierge/intent: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("concierge/intent: decode response: %w", err)
	}
	if result.Type == "" {
		result.Type = TypeUnknown
	}
	return &result, nil
}
