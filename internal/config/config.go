// Package config loads client settings from .env, the environment and
// defaults, and builds the file logger.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all client configuration
type Config struct {
	// APIBase is the scrape service root URL
	APIBase string // INFERNO_API_BASE

	// Password logs in without prompting when set
	Password string // INFERNO_PASSWORD

	PollInterval   time.Duration // INFERNO_POLL_INTERVAL, default: 1s
	HealthInterval time.Duration // INFERNO_HEALTH_INTERVAL, default: 60s
	WakeRecheck    time.Duration // INFERNO_WAKE_RECHECK, default: 4s
	HTTPTimeout    time.Duration // INFERNO_HTTP_TIMEOUT, default: 30s

	// Local login lockout
	LoginMaxAttempts int           // INFERNO_LOGIN_MAX_ATTEMPTS, default: 3
	LoginLockout     time.Duration // INFERNO_LOGIN_LOCKOUT, default: 60s

	DBPath      string // INFERNO_DB, default: inferno.db
	ArchiveKeep int    // INFERNO_ARCHIVE_KEEP, default: 20 (0 keeps everything)

	LogFile  string // INFERNO_LOG_FILE, default: inferno.log next to the database
	LogLevel string // INFERNO_LOG_LEVEL, default: info

	DownloadFile string // INFERNO_DOWNLOAD_FILE, default: vysledky.txt
}

const (
	defaultAPIBase = "https://web-production-ec52.up.railway.app"
	defaultDBPath  = "inferno.db"
)

// Load reads .env if present (silently ignored if not found) and then the
// environment
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only
func FromEnv() *Config {
	cfg := &Config{
		APIBase:          strings.TrimRight(envOr("INFERNO_API_BASE", defaultAPIBase), "/"),
		Password:         os.Getenv("INFERNO_PASSWORD"),
		PollInterval:     envDurationOr("INFERNO_POLL_INTERVAL", time.Second),
		HealthInterval:   envDurationOr("INFERNO_HEALTH_INTERVAL", 60*time.Second),
		WakeRecheck:      envDurationOr("INFERNO_WAKE_RECHECK", 4*time.Second),
		HTTPTimeout:      envDurationOr("INFERNO_HTTP_TIMEOUT", 30*time.Second),
		LoginMaxAttempts: envIntOr("INFERNO_LOGIN_MAX_ATTEMPTS", 3),
		LoginLockout:     envDurationOr("INFERNO_LOGIN_LOCKOUT", 60*time.Second),
		DBPath:           envOr("INFERNO_DB", defaultDBPath),
		ArchiveKeep:      envIntOr("INFERNO_ARCHIVE_KEEP", 20),
		LogFile:          os.Getenv("INFERNO_LOG_FILE"),
		LogLevel:         envOr("INFERNO_LOG_LEVEL", "info"),
		DownloadFile:     envOr("INFERNO_DOWNLOAD_FILE", "vysledky.txt"),
	}
	cfg.ResolveLogFile()
	return cfg
}

// ResolveLogFile places the log next to the database unless set explicitly
func (c *Config) ResolveLogFile() {
	if c.LogFile == "" {
		c.LogFile = filepath.Join(filepath.Dir(c.DBPath), "inferno.log")
	}
}

// Validate reports the first unusable setting
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBase)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API base URL %q", c.APIBase)
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"poll interval", c.PollInterval},
		{"health interval", c.HealthInterval},
		{"wake recheck", c.WakeRecheck},
		{"HTTP timeout", c.HTTPTimeout},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.d)
		}
	}

	if c.LoginMaxAttempts < 1 {
		return fmt.Errorf("login attempts must be at least 1, got %d", c.LoginMaxAttempts)
	}
	if c.ArchiveKeep < 0 {
		return fmt.Errorf("archive keep must not be negative, got %d", c.ArchiveKeep)
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path is empty")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
