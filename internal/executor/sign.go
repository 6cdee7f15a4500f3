package executor

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/bong69rip420/rugwatcher-automator/internal/wallet"
)

// signTransaction signs a serialized Solana transaction with the wallet's
// current key and returns it re-encoded.
//
// Wire layout: compact-u16 signature count | signatures (64 bytes each) |
// message bytes. The aggregator builds the transaction with the wallet as
// fee payer, so the wallet's signature goes in slot 0. The message bytes
// are signed as-is; this works for both legacy and versioned messages.
func signTransaction(txBase64 string, w *wallet.Manager) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return "", fmt.Errorf("decode transaction: %w", err)
	}

	sigCount, prefixLen, err := decodeCompactU16(raw)
	if err != nil {
		return "", fmt.Errorf("parse signature count: %w", err)
	}
	if sigCount == 0 {
		return "", fmt.Errorf("transaction has no signature slots")
	}

	msgStart := prefixLen + sigCount*ed25519.SignatureSize
	if len(raw) < msgStart {
		return "", fmt.Errorf("transaction truncated: %d bytes, need %d", len(raw), msgStart)
	}

	signature, err := w.Sign(raw[msgStart:])
	if err != nil {
		return "", err
	}
	copy(raw[prefixLen:prefixLen+ed25519.SignatureSize], signature)

	return base64.StdEncoding.EncodeToString(raw), nil
}

// decodeCompactU16 reads a Solana shortvec-encoded length. Returns the
// value and the number of prefix bytes consumed.
func decodeCompactU16(data []byte) (int, int, error) {
	var value, shift int
	for i := 0; i < 3; i++ {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("input too short")
		}
		b := data[i]
		value |= int(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("malformed compact-u16")
}
