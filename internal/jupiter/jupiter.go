// Package jupiter wraps the Jupiter swap aggregator HTTP API.
package jupiter

import (
	"context"
	"errors"
)

// ErrNoRoute is returned when the aggregator finds no viable route for
// the requested pair and amount.
var ErrNoRoute = errors.New("no route found")

// Client defines the aggregator operations the executor consumes.
type Client interface {
	// Quote requests a swap quote for amount (smallest unit of the input
	// asset) with the given slippage tolerance in basis points.
	Quote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error)

	// Swap requests a serialized unsigned transaction implementing the
	// quote for the given user public key. Returns base64 transaction bytes.
	Swap(ctx context.Context, quote *Quote, userPublicKey string) (string, error)
}

// Quote is one aggregator quote. Raw carries the full quote payload so
// it can be echoed back verbatim on the swap request.
type Quote struct {
	InputMint      string
	OutputMint     string
	InAmount       uint64
	OutAmount      uint64
	PriceImpactPct float64
	RouteCount     int
	Raw            map[string]interface{}
}
