package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnvStringFallsBackOnValidationFailure(t *testing.T) {
	t.Setenv("TEST_SCHEDULE", "not a cron line")

	result := LoadEnvString("TEST_SCHEDULE", "30 5 * * *", ValidateCronSchedule)
	assert.Equal(t, "30 5 * * *", result.Value)
	assert.True(t, result.FallbackApplied)
	assert.Contains(t, result.Warning, "TEST_SCHEDULE")
}

func TestLoadEnvStringUsesDefaultWhenUnset(t *testing.T) {
	result := LoadEnvString("TEST_UNSET_VALUE", "fallback", nil)
	assert.Equal(t, "fallback", result.Value)
	assert.False(t, result.FallbackApplied, "an unset variable is not a fallback")
}

func TestLoadEnvInt(t *testing.T) {
	t.Setenv("TEST_PARALLELISM", "4")
	result := LoadEnvInt("TEST_PARALLELISM", 2, func(v int) error {
		return ValidateIntRange(v, 1, 10)
	})
	assert.Equal(t, 4, result.Value)
	assert.False(t, result.FallbackApplied)

	t.Setenv("TEST_PARALLELISM", "500")
	result = LoadEnvInt("TEST_PARALLELISM", 2, func(v int) error {
		return ValidateIntRange(v, 1, 10)
	})
	assert.Equal(t, 2, result.Value)
	assert.True(t, result.FallbackApplied)

	t.Setenv("TEST_PARALLELISM", "four")
	result = LoadEnvInt("TEST_PARALLELISM", 2, nil)
	assert.Equal(t, 2, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvDuration(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", "90s")
	result := LoadEnvDuration("TEST_TIMEOUT", time.Minute, ValidatePositiveDuration)
	assert.Equal(t, 90*time.Second, result.Value)

	t.Setenv("TEST_TIMEOUT", "-5s")
	result = LoadEnvDuration("TEST_TIMEOUT", time.Minute, ValidatePositiveDuration)
	assert.Equal(t, time.Minute, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvBool(t *testing.T) {
	t.Setenv("TEST_FLAG", "true")
	assert.True(t, LoadEnvBool("TEST_FLAG", false).Value)

	t.Setenv("TEST_FLAG", "banana")
	result := LoadEnvBool("TEST_FLAG", false)
	assert.False(t, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvStringMap(t *testing.T) {
	t.Setenv("TEST_IMAGES", "na=https://cdn.example.com/na.jpg, eu=https://cdn.example.com/eu.jpg")
	result := LoadEnvStringMap("TEST_IMAGES", nil)
	assert.False(t, result.FallbackApplied)
	assert.Equal(t, map[string]string{
		"na": "https://cdn.example.com/na.jpg",
		"eu": "https://cdn.example.com/eu.jpg",
	}, result.Value)
}

func TestLoadEnvStringMapRejectsMalformedPairs(t *testing.T) {
	fallbackMap := map[string]string{"na": "https://cdn.example.com/na.jpg"}
	t.Setenv("TEST_IMAGES", "na=ok,brokenpair")

	result := LoadEnvStringMap("TEST_IMAGES", fallbackMap)
	assert.True(t, result.FallbackApplied)
	assert.Equal(t, fallbackMap, result.Value)
}
