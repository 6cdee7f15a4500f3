package solana

import "context"

// Client defines the Solana RPC operations this system consumes.
type Client interface {
	// GetAccountInfo retrieves account info by public key.
	// Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenAccountsByMint retrieves all token accounts holding the mint.
	GetTokenAccountsByMint(ctx context.Context, mint string) ([]ProgramAccount, error)

	// GetSignaturesForAddress retrieves signatures for an address with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetTransaction retrieves a confirmed transaction by signature.
	// Returns nil if not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetBalance retrieves the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// SendTransaction submits a base64-encoded signed transaction and
	// returns the network-assigned signature.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// GetSignatureStatuses retrieves confirmation status for signatures.
	GetSignatureStatuses(ctx context.Context, signatures ...string) ([]*SignatureStatus, error)
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       string // base64 encoded
	Executable bool
	RentEpoch  uint64
}

// ProgramAccount is one account returned by getProgramAccounts.
type ProgramAccount struct {
	Pubkey string
	Data   string // base64 encoded
}

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TokenBalance is a per-account token balance snapshot from transaction meta.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       float64 // ui amount (decimals applied)
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// SignatureStatus from getSignatureStatuses.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int
	ConfirmationStatus string // "processed" | "confirmed" | "finalized"
	Err                interface{}
}

// Commitment levels.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// TokenProgramID is the SPL token program.
const TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// WSOLMint is the wrapped SOL mint address, the reference input asset.
const WSOLMint = "So11111111111111111111111111111111111111112"

// tokenAccountSize is the serialized size of an SPL token account.
const tokenAccountSize = 165
