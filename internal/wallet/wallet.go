// Package wallet holds the signing key for the process lifetime.
package wallet

import (
	"crypto/ed25519"
	"errors"
	"sync"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Errors surfaced by the manager.
var (
	// ErrInvalidKeyFormat is returned when the encoded key cannot be
	// decoded, has the wrong length, or is not a valid curve point.
	ErrInvalidKeyFormat = errors.New("invalid key format")

	// ErrNotInitialized is returned when no signing key has been set.
	ErrNotInitialized = errors.New("wallet not initialized")
)

// keySize is the expected decoded length: 32-byte seed + 32-byte public key.
const keySize = ed25519.PrivateKeySize

// session is one validated keypair. Exclusively owned by the Manager;
// never logged, never serialized outward.
type session struct {
	priv   ed25519.PrivateKey
	pubB58 string
}

// Manager decodes and validates a signing key and holds it behind a
// single mutable slot. Replacement is atomic with respect to readers.
type Manager struct {
	mu   sync.RWMutex
	curr *session
}

// NewManager creates an uninitialized key manager.
func NewManager() *Manager {
	return &Manager{}
}

// SetKey decodes encoded from base58, validates it as a 64-byte ed25519
// keypair whose public half is a valid curve point, and installs it as
// the current signing session, discarding any previous one. Returns the
// base58 public key on success and ErrInvalidKeyFormat on any
// validation failure; a failed SetKey leaves the previous session
// untouched.
func (m *Manager) SetKey(encoded string) (string, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return "", ErrInvalidKeyFormat
	}
	if len(raw) != keySize {
		return "", ErrInvalidKeyFormat
	}

	priv := ed25519.PrivateKey(raw)
	pub := priv.Public().(ed25519.PublicKey)

	// The trailing 32 bytes must match the key derived from the seed and
	// decompress to a point on the curve.
	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !pub.Equal(derived.Public().(ed25519.PublicKey)) {
		return "", ErrInvalidKeyFormat
	}
	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		return "", ErrInvalidKeyFormat
	}

	s := &session{priv: derived, pubB58: base58.Encode(pub)}

	m.mu.Lock()
	m.curr = s
	m.mu.Unlock()

	return s.pubB58, nil
}

// PublicKey returns the base58 public key of the current session, or
// ErrNotInitialized before SetKey.
func (m *Manager) PublicKey() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.curr == nil {
		return "", ErrNotInitialized
	}
	return m.curr.pubB58, nil
}

// Sign signs message with the held secret material. The signature is
// ed25519 over the raw message bytes (Solana transaction signing).
func (m *Manager) Sign(message []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.curr == nil {
		return nil, ErrNotInitialized
	}
	return ed25519.Sign(m.curr.priv, message), nil
}

// Clear discards the current session, if any.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.curr = nil
	m.mu.Unlock()
}
