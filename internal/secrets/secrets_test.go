package secrets

import (
	"context"
	"errors"
	"testing"
)

func TestEnvGet(t *testing.T) {
	t.Setenv("RUGWATCHER_WALLET_KEY", "value-1")

	src := NewEnv("RUGWATCHER")
	value, ok, err := src.Get(context.Background(), "wallet_key")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || value != "value-1" {
		t.Errorf("expected value-1, got %q (present %t)", value, ok)
	}
}

func TestEnvGetWithoutPrefix(t *testing.T) {
	t.Setenv("PLAIN_SECRET", "value-2")

	src := NewEnv("")
	value, ok, err := src.Get(context.Background(), "plain_secret")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || value != "value-2" {
		t.Errorf("expected value-2, got %q (present %t)", value, ok)
	}
}

func TestEnvGetEmptyValueIsAbsent(t *testing.T) {
	t.Setenv("RUGWATCHER_EMPTY", "")

	src := NewEnv("RUGWATCHER")
	_, ok, err := src.Get(context.Background(), "empty")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("empty value must count as absent")
	}
}

func TestRequireMissing(t *testing.T) {
	src := NewEnv("RUGWATCHER")
	_, err := Require(context.Background(), src, "definitely_not_set_anywhere")
	if !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("expected ErrConfigurationMissing, got %v", err)
	}
}

func TestRequirePresent(t *testing.T) {
	t.Setenv("RUGWATCHER_TOKEN", "present")

	src := NewEnv("RUGWATCHER")
	value, err := Require(context.Background(), src, "token")
	if err != nil {
		t.Fatalf("require: %v", err)
	}
	if value != "present" {
		t.Errorf("expected present, got %q", value)
	}
}
