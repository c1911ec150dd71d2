// Package config provides environment-variable loaders and validators shared
// by the binaries. Loading is fail-open: an invalid value falls back to the
// default and surfaces as a warning, never as a startup error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of loading one configuration value. Value holds the
// loaded value, or the default when the variable was unset or invalid.
// FallbackApplied is true only when a set value failed validation; Warning
// then describes what was rejected.
type Result[T any] struct {
	Value           T
	Warning         string
	FallbackApplied bool
}

// LoadEnvString loads a string with optional validation. An unset or empty
// variable yields the default without a warning.
func LoadEnvString(envKey, defaultValue string, validator func(string) error) Result[string] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return Result[string]{Value: defaultValue}
	}
	if validator != nil {
		if err := validator(raw); err != nil {
			return fallback(envKey, raw, defaultValue, err)
		}
	}
	return Result[string]{Value: raw}
}

// LoadEnvInt loads an integer with optional validation.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) Result[int] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return Result[int]{Value: defaultValue}
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback(envKey, raw, defaultValue, err)
	}
	if validator != nil {
		if err := validator(v); err != nil {
			return fallback(envKey, raw, defaultValue, err)
		}
	}
	return Result[int]{Value: v}
}

// LoadEnvDuration loads a time.Duration in Go duration syntax ("90s", "15m").
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) Result[time.Duration] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return Result[time.Duration]{Value: defaultValue}
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback(envKey, raw, defaultValue, err)
	}
	if validator != nil {
		if err := validator(v); err != nil {
			return fallback(envKey, raw, defaultValue, err)
		}
	}
	return Result[time.Duration]{Value: v}
}

// LoadEnvBool loads a boolean. Accepts the forms strconv.ParseBool accepts.
func LoadEnvBool(envKey string, defaultValue bool) Result[bool] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return Result[bool]{Value: defaultValue}
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback(envKey, raw, defaultValue, err)
	}
	return Result[bool]{Value: v}
}

// LoadEnvStringMap loads a comma-separated list of key=value pairs, e.g.
// "na=https://cdn/na.jpg,eu=https://cdn/eu.jpg". A malformed pair rejects
// the whole variable.
func LoadEnvStringMap(envKey string, defaultValue map[string]string) Result[map[string]string] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return Result[map[string]string]{Value: defaultValue}
	}
	m := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" || v == "" {
			err := fmt.Errorf("malformed key=value pair %q", pair)
			return fallback(envKey, raw, defaultValue, err)
		}
		m[k] = v
	}
	return Result[map[string]string]{Value: m}
}

func fallback[T any](envKey, raw string, defaultValue T, err error) Result[T] {
	return Result[T]{
		Value:           defaultValue,
		Warning:         fmt.Sprintf("invalid %s=%q: %v, falling back to default", envKey, raw, err),
		FallbackApplied: true,
	}
}
