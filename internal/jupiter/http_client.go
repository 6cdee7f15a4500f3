package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bong69rip420/rugwatcher-automator/internal/observability"
	"github.com/bong69rip420/rugwatcher-automator/internal/retry"
)

// Default endpoints (Jupiter swap v1 API).
const (
	DefaultQuoteURL = "https://api.jup.ag/swap/v1/quote"
	DefaultSwapURL  = "https://api.jup.ag/swap/v1/swap"
)

// HTTPClient implements Client over the Jupiter REST API.
// One network attempt per call; transient failures are wrapped with
// retry.Transient for the caller's retry policy.
type HTTPClient struct {
	quoteURL string
	swapURL  string
	client   *http.Client
	metrics  *observability.Metrics
}

// Option configures HTTPClient.
type Option func(*HTTPClient)

// WithEndpoints overrides the quote and swap URLs.
func WithEndpoints(quoteURL, swapURL string) Option {
	return func(c *HTTPClient) {
		c.quoteURL = quoteURL
		c.swapURL = swapURL
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithMetrics records per-operation call latency.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *HTTPClient) {
		c.metrics = m
	}
}

// NewHTTPClient creates a Jupiter API client.
func NewHTTPClient(opts ...Option) *HTTPClient {
	c := &HTTPClient{
		quoteURL: DefaultQuoteURL,
		swapURL:  DefaultSwapURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Client = (*HTTPClient)(nil)

// Quote requests a swap quote.
func (c *HTTPClient) Quote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error) {
	url := fmt.Sprintf("%s?inputMint=%s&outputMint=%s&amount=%d&slippageBps=%d&swapMode=ExactIn",
		c.quoteURL, inputMint, outputMint, amount, slippageBps)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create quote request: %w", err)
	}

	body, err := c.do(req, "quote")
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal quote: %w", err)
	}

	if msg, ok := raw["error"].(string); ok {
		// The aggregator reports unroutable pairs as an error payload.
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, msg)
	}

	q := &Quote{
		InputMint:  inputMint,
		OutputMint: outputMint,
		Raw:        raw,
	}
	q.InAmount = parseAmount(raw["inAmount"])
	q.OutAmount = parseAmount(raw["outAmount"])
	if s, ok := raw["priceImpactPct"].(string); ok {
		q.PriceImpactPct, _ = strconv.ParseFloat(s, 64)
	}
	if plan, ok := raw["routePlan"].([]interface{}); ok {
		q.RouteCount = len(plan)
	}

	if q.RouteCount == 0 || q.OutAmount == 0 {
		return nil, ErrNoRoute
	}

	return q, nil
}

// Swap requests a serialized transaction for the quote.
func (c *HTTPClient) Swap(ctx context.Context, quote *Quote, userPublicKey string) (string, error) {
	payload := map[string]interface{}{
		"quoteResponse":           quote.Raw,
		"userPublicKey":           userPublicKey,
		"wrapAndUnwrapSol":        true,
		"dynamicComputeUnitLimit": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.swapURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(req, "swap")
	if err != nil {
		return "", err
	}

	var result struct {
		SwapTransaction string `json:"swapTransaction"`
		Error           string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal swap: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("swap error: %s", result.Error)
	}
	if result.SwapTransaction == "" {
		return "", fmt.Errorf("no swapTransaction in response")
	}

	return result.SwapTransaction, nil
}

// do executes the request and classifies transport/status failures.
func (c *HTTPClient) do(req *http.Request, operation string) ([]byte, error) {
	start := time.Now()
	resp, err := c.client.Do(req)
	if c.metrics != nil {
		c.metrics.AggregatorCallLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %v", retry.Transient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", retry.Transient, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: rate limited (429)", retry.Transient)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d", retry.Transient, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func parseAmount(v interface{}) uint64 {
	switch val := v.(type) {
	case string:
		n, _ := strconv.ParseUint(val, 10, 64)
		return n
	case float64:
		return uint64(val)
	}
	return 0
}
