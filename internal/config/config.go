// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load to layer sources on top.
// - Typed accessors convert raw values into domain types; Validate reports
//   every invalid key at once.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/okian/liftboard/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile, when set, adds a size-rotated log file next to stdout.
	LogFile string `koanf:"log_file"`

	// LogJSON switches log lines to JSON.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeCacheMB is the memory budget for remembered submission ids.
	DedupeCacheMB int `koanf:"dedupe_cache_mb"`

	// DedupeTTLSeconds is how long a submission id is remembered.
	DedupeTTLSeconds int `koanf:"dedupe_ttl_seconds"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// BoardMetric selects what boards rank by: load, e1rm or relative.
	BoardMetric string `koanf:"board_metric"`

	// OneRepMaxFormula is epley or brzycki.
	OneRepMaxFormula string `koanf:"one_rep_max_formula"`

	// Timezone is the IANA zone treated as local time for weeks and cutoffs.
	Timezone string `koanf:"timezone"`

	// CutoffWeekday names the day the weekly rotation closes.
	CutoffWeekday string `koanf:"cutoff_weekday"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		QueueSize:           100_000,
		WorkerCount:         runtime.NumCPU() * 4,
		DedupeCacheMB:       32,
		DedupeTTLSeconds:    int((7 * 24 * time.Hour).Seconds()),
		MaxLeaderboardLimit: 100,
		BoardMetric:         "relative",
		OneRepMaxFormula:    "epley",
		Timezone:            "Local",
		CutoffWeekday:       "friday",
	}
}

// Validate reports every invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	var err error
	if strings.TrimSpace(c.Addr) == "" {
		err = multierr.Append(err, fmt.Errorf("addr must not be empty"))
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("log_level %q unknown", c.LogLevel))
	}
	if c.QueueSize < 1 {
		err = multierr.Append(err, fmt.Errorf("queue_size must be positive, got %d", c.QueueSize))
	}
	if c.WorkerCount < 1 {
		err = multierr.Append(err, fmt.Errorf("worker_count must be positive, got %d", c.WorkerCount))
	}
	if c.DedupeCacheMB < 1 {
		err = multierr.Append(err, fmt.Errorf("dedupe_cache_mb must be positive, got %d", c.DedupeCacheMB))
	}
	if c.DedupeTTLSeconds < 0 {
		err = multierr.Append(err, fmt.Errorf("dedupe_ttl_seconds must not be negative, got %d", c.DedupeTTLSeconds))
	}
	if c.MaxLeaderboardLimit < 1 {
		err = multierr.Append(err, fmt.Errorf("max_leaderboard_limit must be positive, got %d", c.MaxLeaderboardLimit))
	}
	if _, e := c.MetricKind(); e != nil {
		err = multierr.Append(err, e)
	}
	if _, e := c.Formula(); e != nil {
		err = multierr.Append(err, e)
	}
	if _, e := c.Location(); e != nil {
		err = multierr.Append(err, e)
	}
	if _, e := c.Weekday(); e != nil {
		err = multierr.Append(err, e)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Weekday resolves CutoffWeekday. Full names and three-letter forms are accepted.
func (c *Config) Weekday() (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(c.CutoffWeekday))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("cutoff_weekday %q unknown", c.CutoffWeekday)
}

// MetricKind resolves BoardMetric.
func (c *Config) MetricKind() (scoring.MetricKind, error) {
	return scoring.ParseMetricKind(c.BoardMetric)
}

// Formula resolves OneRepMaxFormula.
func (c *Config) Formula() (scoring.Formula, error) {
	return scoring.ParseFormula(c.OneRepMaxFormula)
}

// DedupeTTL returns DedupeTTLSeconds as a duration.
func (c *Config) DedupeTTL() time.Duration {
	return time.Duration(c.DedupeTTLSeconds) * time.Second
}
