// Package config loads run settings from the environment and resolves output paths.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"socialstats/internal/merge"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Hour histogram policies.
const (
	HoursAll      = "all"
	HoursOutgoing = "outgoing"
)

// Snapshot formats.
const (
	FormatDuckDB = "duckdb"
	FormatSQLite = "sqlite"
)

// Config holds everything a run needs. It is built once and passed down.
type Config struct {
	ExportRoot     string `env:"EXPORT_ROOT" envDefault:"social_exports"`
	AliasFile      string `env:"ALIAS_FILE" envDefault:"merge_map.csv"`
	ReportDir      string `env:"REPORT_DIR" envDefault:"reports"`
	SnapshotFormat string `env:"SNAPSHOT_FORMAT" envDefault:"duckdb"`

	SkipAudio bool `env:"SKIP_AUDIO_PROCESS"`
	SkipCalls bool `env:"SKIP_CALL_PROCESS"`

	MinMessages   int    `env:"MIN_MESSAGES" envDefault:"0"`
	HourPolicy    string `env:"HOUR_POLICY" envDefault:"all"`
	MergeStrategy string `env:"MERGE_STRATEGY" envDefault:"keep-all"`
	WhatsAppOwner string `env:"WHATSAPP_OWNER"`
	Timezone      string `env:"STATS_TIMEZONE" envDefault:"Local"`
}

// Load reads ./.env when present, then parses the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(nil)
}

// FromEnv parses the given variables, or the process environment when vars is nil.
func FromEnv(vars map[string]string) (Config, error) {
	var cfg Config
	var opts []env.Options
	if vars != nil {
		opts = append(opts, env.Options{Environment: vars})
	}
	if err := env.Parse(&cfg, opts...); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values outside the known enumerations.
func (c Config) Validate() error {
	if c.MinMessages < 0 {
		return fmt.Errorf("MIN_MESSAGES must be >= 0, got %d", c.MinMessages)
	}
	if !oneOf(c.HourPolicy, HoursAll, HoursOutgoing) {
		return fmt.Errorf("unknown HOUR_POLICY %q (want %s or %s)", c.HourPolicy, HoursAll, HoursOutgoing)
	}
	if _, err := merge.ParseStrategy(c.MergeStrategy); err != nil {
		return fmt.Errorf("MERGE_STRATEGY: %w", err)
	}
	if !oneOf(c.SnapshotFormat, FormatDuckDB, FormatSQLite) {
		return fmt.Errorf("unknown SNAPSHOT_FORMAT %q (want %s or %s)", c.SnapshotFormat, FormatDuckDB, FormatSQLite)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the timezone used for hours and calendar days.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load STATS_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ReportSlug converts a report name into a safe file name stem.
func (c Config) ReportSlug(name string) string {
	slug := strings.TrimSpace(name)
	slug = strings.NewReplacer("/", "_", "\\", "_", " ", "_", ":", "_").Replace(slug)
	if slug == "" {
		return "report"
	}
	return slug
}

// ReportPath returns the snapshot file for a report name.
func (c Config) ReportPath(name string) string {
	return filepath.Join(c.ReportDir, c.ReportSlug(name)+"."+c.SnapshotFormat)
}

// PlatformDir returns the directory where a platform's archives are expected.
func (c Config) PlatformDir(platform string) string {
	return filepath.Join(c.ExportRoot, platform)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
