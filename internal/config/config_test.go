package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every REVIEWNUDGE_ env var that Load() reads.
var allConfigKeys = []string{
	"REVIEWNUDGE_GITHUB_TOKEN",
	"REVIEWNUDGE_GITHUB_ORG",
	"REVIEWNUDGE_MEMBERS_FILE",
	"REVIEWNUDGE_SINCE_DAYS",
	"REVIEWNUDGE_SEARCH_LIMIT",
	"REVIEWNUDGE_MAX_RETRIES",
	"REVIEWNUDGE_BACKOFF_BASE",
	"REVIEWNUDGE_WAIT_THRESHOLD",
	"REVIEWNUDGE_PACING",
	"REVIEWNUDGE_DISPLAY_BUDGET",
	"REVIEWNUDGE_GROUP_SIZE_CAP",
	"REVIEWNUDGE_FRESH_MAX_DAYS",
	"REVIEWNUDGE_ROTTEN_MIN_DAYS",
	"REVIEWNUDGE_HOLIDAY_REGION",
	"REVIEWNUDGE_EXTRA_HOLIDAYS",
	"REVIEWNUDGE_TIMEZONE",
	"REVIEWNUDGE_BATCH_DETAILS",
	"REVIEWNUDGE_LOG_LEVEL",
}

// isolateConfigEnv saves and unsets all REVIEWNUDGE_ env vars so tests don't
// inherit values from the host environment.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("REVIEWNUDGE_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("REVIEWNUDGE_GITHUB_ORG", "acme")
	t.Setenv("REVIEWNUDGE_MAX_RETRIES", "5")
	t.Setenv("REVIEWNUDGE_BACKOFF_BASE", "500ms")
	t.Setenv("REVIEWNUDGE_WAIT_THRESHOLD", "2m")
	t.Setenv("REVIEWNUDGE_FRESH_MAX_DAYS", "2.5")
	t.Setenv("REVIEWNUDGE_ROTTEN_MIN_DAYS", "8")
	t.Setenv("REVIEWNUDGE_HOLIDAY_REGION", "gb")
	t.Setenv("REVIEWNUDGE_EXTRA_HOLIDAYS", "2026-12-24, 2026-12-31")
	t.Setenv("REVIEWNUDGE_TIMEZONE", "Europe/London")
	t.Setenv("REVIEWNUDGE_BATCH_DETAILS", "false")
	t.Setenv("REVIEWNUDGE_LOG_LEVEL", "DEBUG")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "ghp_test123", cfg.GitHubToken)
	assert.Equal(t, "acme", cfg.GitHubOrg)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.BackoffBase)
	assert.Equal(t, 2*time.Minute, cfg.WaitThreshold)
	assert.InDelta(t, 2.5, cfg.FreshMaxDays, 1e-9)
	assert.InDelta(t, 8.0, cfg.RottenMinDays, 1e-9)
	assert.Equal(t, "GB", cfg.HolidayRegion)
	require.Len(t, cfg.ExtraHolidays, 2)
	assert.Equal(t, "2026-12-31", cfg.ExtraHolidays[1].Format("2006-01-02"))
	assert.Equal(t, "Europe/London", cfg.Location.String())
	assert.False(t, cfg.BatchDetails)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("REVIEWNUDGE_GITHUB_TOKEN", "ghp_test123")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "", cfg.GitHubOrg)
	assert.Equal(t, "members.json", cfg.MembersFile)
	assert.Equal(t, 30, cfg.SinceDays)
	assert.Equal(t, 100, cfg.SearchLimit)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.BackoffBase)
	assert.Equal(t, 5*time.Minute, cfg.WaitThreshold)
	assert.Equal(t, time.Second, cfg.Pacing)
	assert.Equal(t, 20, cfg.DisplayBudget)
	assert.Equal(t, 100, cfg.GroupSizeCap)
	assert.InDelta(t, 3.0, cfg.FreshMaxDays, 1e-9)
	assert.InDelta(t, 11.0, cfg.RottenMinDays, 1e-9)
	assert.Equal(t, "US", cfg.HolidayRegion)
	assert.Empty(t, cfg.ExtraHolidays)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.True(t, cfg.BatchDetails)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_MissingToken(t *testing.T) {
	isolateConfigEnv(t)

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "REVIEWNUDGE_GITHUB_TOKEN")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"bad duration", "REVIEWNUDGE_BACKOFF_BASE", "soon", "REVIEWNUDGE_BACKOFF_BASE has invalid duration"},
		{"bad integer", "REVIEWNUDGE_MAX_RETRIES", "three", "REVIEWNUDGE_MAX_RETRIES has invalid integer"},
		{"negative retries", "REVIEWNUDGE_MAX_RETRIES", "-1", "must not be negative"},
		{"bad bool", "REVIEWNUDGE_BATCH_DETAILS", "maybe", "invalid boolean"},
		{"bad date", "REVIEWNUDGE_EXTRA_HOLIDAYS", "2026-13-01", "invalid date"},
		{"bad zone", "REVIEWNUDGE_TIMEZONE", "Mars/Olympus", "invalid zone"},
		{"bad log level", "REVIEWNUDGE_LOG_LEVEL", "loud", "LOG_LEVEL"},
		{"rotten below fresh", "REVIEWNUDGE_ROTTEN_MIN_DAYS", "2", "must be greater than"},
		{"zero group cap", "REVIEWNUDGE_GROUP_SIZE_CAP", "0", "GROUP_SIZE_CAP must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv("REVIEWNUDGE_GITHUB_TOKEN", "ghp_test123")
			t.Setenv(tt.key, tt.value)

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	isolateConfigEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("REVIEWNUDGE_GITHUB_TOKEN=from_file\nREVIEWNUDGE_GITHUB_ORG=file-org\n"), 0o600))
	t.Setenv("REVIEWNUDGE_GITHUB_TOKEN", "from_env")

	require.NoError(t, LoadDotEnv(path))

	assert.Equal(t, "from_env", os.Getenv("REVIEWNUDGE_GITHUB_TOKEN"))
	assert.Equal(t, "file-org", os.Getenv("REVIEWNUDGE_GITHUB_ORG"))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
