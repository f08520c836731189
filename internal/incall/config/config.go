package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sebas/incallcore/internal/incall/actionmenu"
	"github.com/sebas/incallcore/internal/incall/enriched"
)

// Config holds the in-call core process configuration
type Config struct {
	// Logging
	LogLevel      string
	LogFile       string // Empty logs to stderr only
	LogMaxSizeMB  int
	LogMaxBackups int

	// Inputs
	CarrierConfigPath string // INI with [carrier], [carrier.N] and [settings]
	PrefsPath         string // SQLite preference store, empty keeps preferences in memory
	ScenarioPath      string // JSON replay scenario
	PhoneID           int    // SIM slot for calls that do not carry one

	// Timers
	AutoFullscreen        bool
	AutoFullscreenDelay   time.Duration // Zero keeps the [settings] value
	CancelResponseTimeout time.Duration
	CapabilityTimeout     time.Duration
	FetchTimeout          time.Duration
}

// ParseError reports a flag or environment value that could not be parsed.
type ParseError struct {
	Name  string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("config %s=%q: %v", e.Name, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ErrNonPositive is returned for durations and sizes that must be positive.
var ErrNonPositive = errors.New("must be positive")

// Load loads configuration from command line flags and environment variables
func Load() (*Config, error) {
	return Parse(flag.CommandLine, os.Args[1:], os.Getenv)
}

// Parse registers the flags on fs, parses args, then applies environment
// overrides read through getenv.
func Parse(fs *flag.FlagSet, args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	fs.StringVar(&cfg.LogLevel, "loglevel", "debug", "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFile, "logfile", "", "Rotating log file path")
	fs.IntVar(&cfg.LogMaxSizeMB, "log-max-size", 10, "Log file size in MB before rotation")
	fs.IntVar(&cfg.LogMaxBackups, "log-max-backups", 3, "Rotated log files to keep")
	fs.StringVar(&cfg.CarrierConfigPath, "carrier", "", "Carrier and host settings INI file")
	fs.StringVar(&cfg.PrefsPath, "prefs", "", "Preference database path")
	fs.StringVar(&cfg.ScenarioPath, "scenario", "", "Replay scenario JSON file")
	fs.IntVar(&cfg.PhoneID, "phone", 0, "Default SIM slot")
	fs.BoolVar(&cfg.AutoFullscreen, "auto-fullscreen", true, "Allow auto-fullscreen when [settings] enables it")
	fs.DurationVar(&cfg.AutoFullscreenDelay, "auto-fullscreen-delay", 0, "Override the auto-fullscreen delay")
	fs.DurationVar(&cfg.CancelResponseTimeout, "cancel-timeout", actionmenu.DefaultCancelResponseTimeout, "Wait for a cancel-upgrade response")
	fs.DurationVar(&cfg.CapabilityTimeout, "capability-timeout", enriched.DefaultCapabilityTimeout, "Enriched-calling capability check timeout")
	fs.DurationVar(&cfg.FetchTimeout, "fetch-timeout", enriched.DefaultFetchTimeout, "Location image fetch timeout")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Override with environment variables if set
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := getenv("CARRIER_CONFIG"); v != "" {
		cfg.CarrierConfigPath = v
	}
	if v := getenv("PREFS_DB"); v != "" {
		cfg.PrefsPath = v
	}
	if v := getenv("SCENARIO"); v != "" {
		cfg.ScenarioPath = v
	}
	if v := getenv("PHONE_ID"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &ParseError{Name: "PHONE_ID", Value: v, Err: err}
		}
		cfg.PhoneID = n
	}
	if v := getenv("AUTO_FULLSCREEN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, &ParseError{Name: "AUTO_FULLSCREEN", Value: v, Err: err}
		}
		cfg.AutoFullscreen = b
	}
	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"AUTO_FULLSCREEN_DELAY", &cfg.AutoFullscreenDelay},
		{"CANCEL_TIMEOUT", &cfg.CancelResponseTimeout},
		{"CAPABILITY_TIMEOUT", &cfg.CapabilityTimeout},
		{"FETCH_TIMEOUT", &cfg.FetchTimeout},
	}
	for _, d := range durations {
		v := getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, &ParseError{Name: d.env, Value: v, Err: err}
		}
		*d.dst = parsed
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	checks := []struct {
		name string
		ok   bool
		val  string
	}{
		{"cancel-timeout", c.CancelResponseTimeout > 0, c.CancelResponseTimeout.String()},
		{"capability-timeout", c.CapabilityTimeout > 0, c.CapabilityTimeout.String()},
		{"fetch-timeout", c.FetchTimeout > 0, c.FetchTimeout.String()},
		{"auto-fullscreen-delay", c.AutoFullscreenDelay >= 0, c.AutoFullscreenDelay.String()},
		{"log-max-size", c.LogMaxSizeMB > 0, strconv.Itoa(c.LogMaxSizeMB)},
	}
	for _, chk := range checks {
		if !chk.ok {
			return &ParseError{Name: chk.name, Value: chk.val, Err: ErrNonPositive}
		}
	}
	return nil
}
