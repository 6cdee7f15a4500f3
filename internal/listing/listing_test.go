package listing

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/bong69rip420/rugwatcher-automator/internal/solana"
	"github.com/bong69rip420/rugwatcher-automator/internal/solana/stub"
	"github.com/bong69rip420/rugwatcher-automator/internal/throttle"
)

func creationTx(sig, mint string, blockTime int64) *solana.Transaction {
	return &solana.Transaction{
		Signature: sig,
		BlockTime: blockTime,
		Meta: &solana.TransactionMeta{
			LogMessages: []string{
				"Program log: Instruction: Create",
				"Program log: done",
			},
			PostTokenBalances: []solana.TokenBalance{
				{AccountIndex: 0, Mint: solana.WSOLMint, Amount: 10},
				{AccountIndex: 1, Mint: mint, Amount: 1_000_000},
			},
		},
	}
}

func newRPCSource(t *testing.T, c *stub.Client, programs ...string) *RPCSource {
	t.Helper()
	s, err := NewRPCSource(RPCSourceOptions{
		RPC:         c,
		Throttle:    throttle.New(time.Microsecond),
		Programs:    programs,
		MaxAttempts: 1,
		BaseDelay:   time.Millisecond,
		Logger:      log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("new rpc source: %v", err)
	}
	return s
}

func TestExtractListing(t *testing.T) {
	t.Run("creation transaction", func(t *testing.T) {
		token, ok := extractListing(creationTx("s1", "mint-new", 1700))
		if !ok {
			t.Fatal("expected a listing")
		}
		if token.Address != "mint-new" {
			t.Errorf("expected mint-new, got %s", token.Address)
		}
		if token.CreatedAt != 1700*1000 {
			t.Errorf("expected ms timestamp, got %d", token.CreatedAt)
		}
	})

	t.Run("no creation log", func(t *testing.T) {
		tx := creationTx("s1", "mint-new", 1700)
		tx.Meta.LogMessages = []string{"Program log: Instruction: Swap"}
		if _, ok := extractListing(tx); ok {
			t.Error("swap must not count as a listing")
		}
	})

	t.Run("failed transaction", func(t *testing.T) {
		tx := creationTx("s1", "mint-new", 1700)
		tx.Meta.Err = "InstructionError"
		if _, ok := extractListing(tx); ok {
			t.Error("failed transaction must be ignored")
		}
	})

	t.Run("only wsol balances", func(t *testing.T) {
		tx := creationTx("s1", "mint-new", 1700)
		tx.Meta.PostTokenBalances = []solana.TokenBalance{{Mint: solana.WSOLMint}}
		if _, ok := extractListing(tx); ok {
			t.Error("no non-WSOL side means no listing")
		}
	})

	t.Run("nil transaction", func(t *testing.T) {
		if _, ok := extractListing(nil); ok {
			t.Error("nil transaction must be ignored")
		}
	})
}

func TestRPCSourcePoll(t *testing.T) {
	program := "program-1"
	c := stub.NewClient()
	bt := int64(1700)
	c.Signatures[program] = []solana.SignatureInfo{
		{Signature: "s2", BlockTime: &bt},
		{Signature: "s1", BlockTime: &bt},
	}
	c.Transactions["s1"] = creationTx("s1", "mint-a", 1700)
	c.Transactions["s2"] = creationTx("s2", "mint-b", 1701)

	s := newRPCSource(t, c, program)
	tokens, err := s.Poll(context.Background())
	if err != nil {
		t.Fatalf("poll: %v", err)
	}

	if len(tokens) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(tokens))
	}
	// Oldest first within a batch.
	if tokens[0].Address != "mint-a" || tokens[1].Address != "mint-b" {
		t.Errorf("unexpected order: %s, %s", tokens[0].Address, tokens[1].Address)
	}
}

func TestRPCSourcePollSkipsFailedSignatures(t *testing.T) {
	program := "program-1"
	c := stub.NewClient()
	c.Signatures[program] = []solana.SignatureInfo{
		{Signature: "s-ok"},
		{Signature: "s-failed", Err: "InstructionError"},
	}
	c.Transactions["s-ok"] = creationTx("s-ok", "mint-a", 1700)

	s := newRPCSource(t, c, program)
	tokens, err := s.Poll(context.Background())
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Address != "mint-a" {
		t.Errorf("expected only mint-a, got %v", tokens)
	}
}

func TestRPCSourcePollDedupesWithinBatch(t *testing.T) {
	program := "program-1"
	c := stub.NewClient()
	c.Signatures[program] = []solana.SignatureInfo{
		{Signature: "s2"},
		{Signature: "s1"},
	}
	// Two creation transactions for the same mint.
	c.Transactions["s1"] = creationTx("s1", "mint-a", 1700)
	c.Transactions["s2"] = creationTx("s2", "mint-a", 1701)

	s := newRPCSource(t, c, program)
	tokens, err := s.Poll(context.Background())
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(tokens) != 1 {
		t.Errorf("expected batch dedupe, got %d listings", len(tokens))
	}
}

func TestRPCSourceFailedVenueIsSkipped(t *testing.T) {
	c := stub.NewClient()
	c.Errs["getSignaturesForAddress"] = errors.New("rpc down")

	s := newRPCSource(t, c, "program-1", "program-2")
	tokens, err := s.Poll(context.Background())
	if err != nil {
		t.Fatalf("a failed venue must not fail the poll: %v", err)
	}
	if len(tokens) != 0 {
		t.Errorf("expected no listings, got %d", len(tokens))
	}
}

func TestRPCSourceCursorAdvances(t *testing.T) {
	program := "program-1"
	c := stub.NewClient()
	c.Signatures[program] = []solana.SignatureInfo{{Signature: "s1"}}
	c.Transactions["s1"] = creationTx("s1", "mint-a", 1700)

	s := newRPCSource(t, c, program)
	if _, err := s.Poll(context.Background()); err != nil {
		t.Fatalf("first poll: %v", err)
	}
	if s.cursor[program] != "s1" {
		t.Fatalf("cursor not advanced: %q", s.cursor[program])
	}
}
