package worker

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.ClassifyEndpoint = "https://classify.example.com/v1"
	cfg.DefaultImage = "https://cdn.example.com/default.jpg"
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidateAcceptsDefaultsPlusRequiredFields(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiresEndpointAndImage(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classify endpoint is required")
	assert.Contains(t, err.Error(), "default image is required")
}

func TestValidateCollectsAllViolations(t *testing.T) {
	cfg := validConfig()
	cfg.CronSchedule = "not cron"
	cfg.Timezone = "Mars/Olympus_Mons"
	cfg.ScrapeRate = 0
	cfg.BackupImages = map[string]string{"na": "ftp://bad"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cron schedule")
	assert.Contains(t, err.Error(), "timezone")
	assert.Contains(t, err.Error(), "scrape rate")
	assert.Contains(t, err.Error(), `backup image for region "na"`)
}

func TestValidateAllowsEmptyCronSchedule(t *testing.T) {
	cfg := validConfig()
	cfg.CronSchedule = ""
	assert.NoError(t, cfg.Validate(), "empty schedule means run once and exit")
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("INGEST_CRON", "15 6 * * *")
	t.Setenv("FRESHNESS_WINDOW", "48h")
	t.Setenv("CLASSIFY_PARALLELISM", "3")
	t.Setenv("CLASSIFY_ENDPOINT", "https://classify.example.com/v1")
	t.Setenv("DEFAULT_IMAGE", "https://cdn.example.com/default.jpg")
	t.Setenv("BACKUP_IMAGES", "na=https://cdn.example.com/na.jpg")

	cfg := LoadConfigFromEnv(discardLogger())
	assert.Equal(t, "15 6 * * *", cfg.CronSchedule)
	assert.Equal(t, 48*time.Hour, cfg.FreshnessWindow)
	assert.Equal(t, 3, cfg.ClassifyParallelism)
	assert.Equal(t, map[string]string{"na": "https://cdn.example.com/na.jpg"}, cfg.BackupImages)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnvFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("INGEST_CRON", "whenever")
	t.Setenv("SCRAPE_RATE", "9000")
	t.Setenv("CLASSIFY_ENDPOINT", "https://classify.example.com/v1")
	t.Setenv("DEFAULT_IMAGE", "https://cdn.example.com/default.jpg")

	cfg := LoadConfigFromEnv(discardLogger())
	assert.Empty(t, cfg.CronSchedule, "invalid schedule falls back to run-once")
	assert.Equal(t, DefaultConfig().ScrapeRate, cfg.ScrapeRate)
}
