// Package stub provides a deterministic in-memory solana.Client for tests.
package stub

import (
	"context"
	"fmt"
	"sync"

	"github.com/bong69rip420/rugwatcher-automator/internal/solana"
)

// Client implements solana.Client backed by fixture maps.
type Client struct {
	mu sync.Mutex

	Accounts      map[string]*solana.AccountInfo
	TokenAccounts map[string][]solana.ProgramAccount // keyed by mint
	Signatures    map[string][]solana.SignatureInfo  // keyed by address
	Transactions  map[string]*solana.Transaction     // keyed by signature
	Balances      map[string]uint64                  // lamports by pubkey

	// SendResult is returned by SendTransaction; SendErr overrides it.
	SendResult string
	SendErr    error
	// Statuses holds confirmation results by signature.
	Statuses map[string]*solana.SignatureStatus

	// Errs injects failures per method name ("getAccountInfo", ...).
	Errs map[string]error

	// SentTransactions records every payload passed to SendTransaction.
	SentTransactions []string
}

// NewClient creates an empty stub client.
func NewClient() *Client {
	return &Client{
		Accounts:      make(map[string]*solana.AccountInfo),
		TokenAccounts: make(map[string][]solana.ProgramAccount),
		Signatures:    make(map[string][]solana.SignatureInfo),
		Transactions:  make(map[string]*solana.Transaction),
		Balances:      make(map[string]uint64),
		Statuses:      make(map[string]*solana.SignatureStatus),
		Errs:          make(map[string]error),
	}
}

var _ solana.Client = (*Client)(nil)

func (c *Client) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Errs["getAccountInfo"]; err != nil {
		return nil, err
	}
	return c.Accounts[pubkey], nil
}

func (c *Client) GetTokenAccountsByMint(_ context.Context, mint string) ([]solana.ProgramAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Errs["getProgramAccounts"]; err != nil {
		return nil, err
	}
	return c.TokenAccounts[mint], nil
}

func (c *Client) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Errs["getSignaturesForAddress"]; err != nil {
		return nil, err
	}
	sigs := c.Signatures[address]
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return sigs[:opts.Limit], nil
	}
	return sigs, nil
}

func (c *Client) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Errs["getTransaction"]; err != nil {
		return nil, err
	}
	return c.Transactions[signature], nil
}

func (c *Client) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Errs["getBalance"]; err != nil {
		return 0, err
	}
	return c.Balances[pubkey], nil
}

func (c *Client) SendTransaction(_ context.Context, txBase64 string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SentTransactions = append(c.SentTransactions, txBase64)
	if c.SendErr != nil {
		return "", c.SendErr
	}
	if c.SendResult == "" {
		return fmt.Sprintf("stub-sig-%d", len(c.SentTransactions)), nil
	}
	return c.SendResult, nil
}

func (c *Client) GetSignatureStatuses(_ context.Context, signatures ...string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Errs["getSignatureStatuses"]; err != nil {
		return nil, err
	}
	statuses := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		statuses[i] = c.Statuses[sig]
	}
	return statuses, nil
}
