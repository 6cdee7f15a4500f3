package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/mr-tron/base58"
)

func generateKey(t *testing.T) (string, string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return base58.Encode(priv), base58.Encode(pub)
}

func TestSetKeyRoundTrip(t *testing.T) {
	encoded, wantPub := generateKey(t)

	m := NewManager()
	gotPub, err := m.SetKey(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPub != wantPub {
		t.Errorf("public key mismatch: got %s, want %s", gotPub, wantPub)
	}

	fromGetter, err := m.PublicKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fromGetter != wantPub {
		t.Errorf("PublicKey mismatch: got %s, want %s", fromGetter, wantPub)
	}
}

func TestSetKeyRejectsBadEncoding(t *testing.T) {
	m := NewManager()
	if _, err := m.SetKey("not-base58-0OIl"); !errors.Is(err, ErrInvalidKeyFormat) {
		t.Errorf("expected ErrInvalidKeyFormat, got %v", err)
	}
}

func TestSetKeyRejectsWrongLength(t *testing.T) {
	m := NewManager()
	short := base58.Encode(make([]byte, 32))
	if _, err := m.SetKey(short); !errors.Is(err, ErrInvalidKeyFormat) {
		t.Errorf("expected ErrInvalidKeyFormat for short key, got %v", err)
	}
}

func TestSetKeyRejectsMismatchedPublicHalf(t *testing.T) {
	encoded, _ := generateKey(t)
	raw, err := base58.Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	// Corrupt the embedded public key.
	raw[ed25519.SeedSize] ^= 0xff

	m := NewManager()
	if _, err := m.SetKey(base58.Encode(raw)); !errors.Is(err, ErrInvalidKeyFormat) {
		t.Errorf("expected ErrInvalidKeyFormat for corrupted key, got %v", err)
	}
}

func TestFailedSetKeyLeavesSessionUntouched(t *testing.T) {
	encoded, wantPub := generateKey(t)

	m := NewManager()
	if _, err := m.SetKey(encoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := m.SetKey(base58.Encode(make([]byte, 10))); !errors.Is(err, ErrInvalidKeyFormat) {
		t.Fatalf("expected ErrInvalidKeyFormat, got %v", err)
	}

	pub, err := m.PublicKey()
	if err != nil {
		t.Fatalf("previous session lost: %v", err)
	}
	if pub != wantPub {
		t.Errorf("previous session changed: got %s, want %s", pub, wantPub)
	}
}

func TestReplacementIsAtomic(t *testing.T) {
	first, _ := generateKey(t)
	second, wantPub := generateKey(t)

	m := NewManager()
	if _, err := m.SetKey(first); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SetKey(second); err != nil {
		t.Fatal(err)
	}

	pub, err := m.PublicKey()
	if err != nil {
		t.Fatal(err)
	}
	if pub != wantPub {
		t.Errorf("expected replacement key %s, got %s", wantPub, pub)
	}
}

func TestSignBeforeSetKey(t *testing.T) {
	m := NewManager()
	if _, err := m.Sign([]byte("message")); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := m.PublicKey(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestSignVerifies(t *testing.T) {
	encoded, _ := generateKey(t)
	raw, _ := base58.Decode(encoded)
	pub := ed25519.PrivateKey(raw).Public().(ed25519.PublicKey)

	m := NewManager()
	if _, err := m.SetKey(encoded); err != nil {
		t.Fatal(err)
	}

	message := []byte("serialized transaction message")
	sig, err := m.Sign(message)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ed25519.Verify(pub, message, sig) {
		t.Error("signature does not verify")
	}
}

func TestClear(t *testing.T) {
	encoded, _ := generateKey(t)
	m := NewManager()
	if _, err := m.SetKey(encoded); err != nil {
		t.Fatal(err)
	}
	m.Clear()
	if _, err := m.PublicKey(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized after Clear, got %v", err)
	}
}
