// Package secrets resolves sensitive configuration values such as the
// trading wallet's signing key. Values obtained here must never be logged.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrConfigurationMissing indicates a required secret is not available.
var ErrConfigurationMissing = errors.New("configuration missing")

// Source provides named secret values.
type Source interface {
	// Get returns the value for name. The bool reports whether the
	// secret was present; an error means the lookup itself failed.
	Get(ctx context.Context, name string) (string, bool, error)
}

// Env reads secrets from environment variables, optionally under a prefix.
type Env struct {
	prefix string
}

// NewEnv creates an environment-backed secret source.
func NewEnv(prefix string) *Env {
	return &Env{prefix: prefix}
}

var _ Source = (*Env)(nil)

func (e *Env) Get(_ context.Context, name string) (string, bool, error) {
	key := name
	if e.prefix != "" {
		key = e.prefix + "_" + name
	}
	key = strings.ToUpper(key)

	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false, nil
	}
	return value, true, nil
}

// Require fetches a secret and fails with ErrConfigurationMissing when absent.
func Require(ctx context.Context, src Source, name string) (string, error) {
	value, ok, err := src.Get(ctx, name)
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", name, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrConfigurationMissing, name)
	}
	return value, nil
}
