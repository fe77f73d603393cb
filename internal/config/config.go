// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "REVIEWNUDGE_"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken string
	GitHubOrg   string
	MembersFile string

	SinceDays   int
	SearchLimit int

	MaxRetries    int
	BackoffBase   time.Duration
	WaitThreshold time.Duration
	Pacing        time.Duration

	DisplayBudget int
	GroupSizeCap  int

	FreshMaxDays  float64
	RottenMinDays float64

	HolidayRegion string
	ExtraHolidays []time.Time
	Location      *time.Location

	BatchDetails bool
	LogLevel     string
}

// LoadDotEnv copies variables from path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	for k, v := range values {
		if _, exists := os.LookupEnv(k); !exists {
			_ = os.Setenv(k, v)
		}
	}
	return nil
}

// Load reads configuration from environment variables and returns a validated Config.
// REVIEWNUDGE_GITHUB_TOKEN is required. Every other variable has a default:
// MEMBERS_FILE (members.json), SINCE_DAYS (30), SEARCH_LIMIT (100), MAX_RETRIES (3),
// BACKOFF_BASE (1s), WAIT_THRESHOLD (5m), PACING (1s), DISPLAY_BUDGET (20),
// GROUP_SIZE_CAP (100), FRESH_MAX_DAYS (3), ROTTEN_MIN_DAYS (11), HOLIDAY_REGION (US),
// EXTRA_HOLIDAYS (none), TIMEZONE (UTC), BATCH_DETAILS (true), LOG_LEVEL (info).
func Load() (*Config, error) {
	token := os.Getenv(envPrefix + "GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("%sGITHUB_TOKEN is required", envPrefix)
	}

	cfg := &Config{
		GitHubToken:   token,
		GitHubOrg:     strings.TrimSpace(os.Getenv(envPrefix + "GITHUB_ORG")),
		MembersFile:   envString("MEMBERS_FILE", "members.json"),
		HolidayRegion: strings.ToUpper(envString("HOLIDAY_REGION", "US")),
		LogLevel:      strings.ToLower(envString("LOG_LEVEL", "info")),
	}

	var err error
	if cfg.SinceDays, err = envInt("SINCE_DAYS", 30); err != nil {
		return nil, err
	}
	if cfg.SearchLimit, err = envInt("SEARCH_LIMIT", 100); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = envInt("MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.BackoffBase, err = envDuration("BACKOFF_BASE", time.Second); err != nil {
		return nil, err
	}
	if cfg.WaitThreshold, err = envDuration("WAIT_THRESHOLD", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Pacing, err = envDuration("PACING", time.Second); err != nil {
		return nil, err
	}
	if cfg.DisplayBudget, err = envInt("DISPLAY_BUDGET", 20); err != nil {
		return nil, err
	}
	if cfg.GroupSizeCap, err = envInt("GROUP_SIZE_CAP", 100); err != nil {
		return nil, err
	}
	if cfg.FreshMaxDays, err = envFloat("FRESH_MAX_DAYS", 3); err != nil {
		return nil, err
	}
	if cfg.RottenMinDays, err = envFloat("ROTTEN_MIN_DAYS", 11); err != nil {
		return nil, err
	}
	if cfg.BatchDetails, err = envBool("BATCH_DETAILS", true); err != nil {
		return nil, err
	}
	if cfg.ExtraHolidays, err = envDates("EXTRA_HOLIDAYS"); err != nil {
		return nil, err
	}

	tz := envString("TIMEZONE", "UTC")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("%sTIMEZONE has invalid zone %q: %w", envPrefix, tz, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values that would make a run meaningless.
func (c *Config) Validate() error {
	switch {
	case c.SinceDays <= 0:
		return fmt.Errorf("%sSINCE_DAYS must be positive, got %d", envPrefix, c.SinceDays)
	case c.SearchLimit <= 0:
		return fmt.Errorf("%sSEARCH_LIMIT must be positive, got %d", envPrefix, c.SearchLimit)
	case c.MaxRetries < 0:
		return fmt.Errorf("%sMAX_RETRIES must not be negative, got %d", envPrefix, c.MaxRetries)
	case c.BackoffBase <= 0:
		return fmt.Errorf("%sBACKOFF_BASE must be positive, got %s", envPrefix, c.BackoffBase)
	case c.WaitThreshold <= 0:
		return fmt.Errorf("%sWAIT_THRESHOLD must be positive, got %s", envPrefix, c.WaitThreshold)
	case c.Pacing < 0:
		return fmt.Errorf("%sPACING must not be negative, got %s", envPrefix, c.Pacing)
	case c.GroupSizeCap <= 0:
		return fmt.Errorf("%sGROUP_SIZE_CAP must be positive, got %d", envPrefix, c.GroupSizeCap)
	case c.FreshMaxDays < 0:
		return fmt.Errorf("%sFRESH_MAX_DAYS must not be negative, got %g", envPrefix, c.FreshMaxDays)
	case c.RottenMinDays <= c.FreshMaxDays:
		return fmt.Errorf("%sROTTEN_MIN_DAYS (%g) must be greater than %sFRESH_MAX_DAYS (%g)",
			envPrefix, c.RottenMinDays, envPrefix, c.FreshMaxDays)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%sLOG_LEVEL must be one of debug, info, warn, error, got %q", envPrefix, c.LogLevel)
	}

	return nil
}

func envString(name, def string) string {
	if v, ok := os.LookupEnv(envPrefix + name); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func envInt(name string, def int) (int, error) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s%s has invalid integer %q: %w", envPrefix, name, v, err)
	}
	return parsed, nil
}

func envFloat(name string, def float64) (float64, error) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return def, nil
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%s%s has invalid number %q: %w", envPrefix, name, v, err)
	}
	return parsed, nil
}

func envDuration(name string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return def, nil
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s%s has invalid duration %q: %w", envPrefix, name, v, err)
	}
	return parsed, nil
}

func envBool(name string, def bool) (bool, error) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return def, nil
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%s%s has invalid boolean %q: %w", envPrefix, name, v, err)
	}
	return parsed, nil
}

func envDates(name string) ([]time.Time, error) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return nil, nil
	}
	var dates []time.Time
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.Parse("2006-01-02", part)
		if err != nil {
			return nil, fmt.Errorf("%s%s has invalid date %q: %w", envPrefix, name, part, err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}
