// Package stub provides a deterministic jupiter.Client for tests.
package stub

import (
	"context"
	"sync"

	"github.com/bong69rip420/rugwatcher-automator/internal/jupiter"
)

// Client implements jupiter.Client with fixture responses.
type Client struct {
	mu sync.Mutex

	// QuoteFn overrides quote behavior when set; otherwise QuoteResult /
	// QuoteErr are returned as-is.
	QuoteFn     func(inputMint, outputMint string, amount uint64, slippageBps int) (*jupiter.Quote, error)
	QuoteResult *jupiter.Quote
	QuoteErr    error

	SwapResult string
	SwapErr    error

	QuoteCalls int
	SwapCalls  int
}

// NewClient creates an empty stub aggregator.
func NewClient() *Client {
	return &Client{}
}

var _ jupiter.Client = (*Client)(nil)

func (c *Client) Quote(_ context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*jupiter.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.QuoteCalls++
	if c.QuoteFn != nil {
		return c.QuoteFn(inputMint, outputMint, amount, slippageBps)
	}
	if c.QuoteErr != nil {
		return nil, c.QuoteErr
	}
	return c.QuoteResult, nil
}

func (c *Client) Swap(_ context.Context, _ *jupiter.Quote, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SwapCalls++
	if c.SwapErr != nil {
		return "", c.SwapErr
	}
	return c.SwapResult, nil
}
