// Package config loads the static run configuration: an optional YAML or
// TOML file, then environment overrides. Validation failures wrap
// ErrConfiguration and are fatal at startup.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/talgya/wildsim/internal/fleet"
)

// ErrConfiguration marks a malformed roster or missing required setting.
var ErrConfiguration = errors.New("configuration error")

// Retry is the delivery retry budget.
type Retry struct {
	MaxAttempts int           `yaml:"max_attempts" toml:"max_attempts"`
	Delay       time.Duration `yaml:"delay" toml:"delay"`
}

// Config is everything read once at startup.
type Config struct {
	APIURL         string              `yaml:"api_url" toml:"api_url"`
	IngestPath     string              `yaml:"ingest_path" toml:"ingest_path"`
	TickInterval   time.Duration       `yaml:"tick_interval" toml:"tick_interval"`
	MaxIterations  int64               `yaml:"max_iterations" toml:"max_iterations"` // 0 = unbounded
	Seed           int64               `yaml:"seed" toml:"seed"`                     // 0 = crypto-random
	StartupDelay   time.Duration       `yaml:"startup_delay" toml:"startup_delay"`
	RequestTimeout time.Duration       `yaml:"request_timeout" toml:"request_timeout"`
	Retry          Retry               `yaml:"retry" toml:"retry"`
	DBPath         string              `yaml:"db_path" toml:"db_path"`         // Empty disables run history
	JournalDir     string              `yaml:"journal_dir" toml:"journal_dir"` // Empty disables the journal
	WeatherAPIKey  string              `yaml:"weather_api_key" toml:"weather_api_key"`
	Agents         []fleet.AgentConfig `yaml:"agents" toml:"agents"`
}

// Default returns the stock configuration with the six-device roster.
func Default() Config {
	return Config{
		APIURL:         "http://localhost:5000/api",
		IngestPath:     "/iot/data",
		TickInterval:   3 * time.Second,
		StartupDelay:   3 * time.Second,
		RequestTimeout: 5 * time.Second,
		Retry: Retry{
			MaxAttempts: 3,
			Delay:       time.Second,
		},
		Agents: fleet.DefaultRoster(),
	}
}

// Load reads path (if non-empty) over the defaults, then applies
// environment overrides. The result is not yet validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	cfg.normalize()
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrConfiguration, path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err = toml.Decode(string(data), cfg)
	default:
		return fmt.Errorf("%w: unsupported config format %q", ErrConfiguration, filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrConfiguration, path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.APIURL = envOrDefault("API_URL", cfg.APIURL)
	cfg.IngestPath = envOrDefault("WILDSIM_INGEST_PATH", cfg.IngestPath)
	cfg.TickInterval = envDurationOrDefault("WILDSIM_INTERVAL", cfg.TickInterval)
	cfg.MaxIterations = envIntOrDefault("WILDSIM_MAX_ITERATIONS", cfg.MaxIterations)
	cfg.Seed = envIntOrDefault("WILDSIM_SEED", cfg.Seed)
	cfg.DBPath = envOrDefault("WILDSIM_DB", cfg.DBPath)
	cfg.JournalDir = envOrDefault("WILDSIM_JOURNAL_DIR", cfg.JournalDir)
	cfg.WeatherAPIKey = envOrDefault("OPENWEATHER_API_KEY", cfg.WeatherAPIKey)
}

// normalize fills the behavior profile where the roster left it blank.
func (c *Config) normalize() {
	for i := range c.Agents {
		if c.Agents[i].Behavior == "" {
			c.Agents[i].Behavior = fleet.BehaviorNone
		}
	}
}

// IngestURL joins the base URL and ingestion path.
func (c Config) IngestURL() string {
	return strings.TrimRight(c.APIURL, "/") + "/" + strings.TrimLeft(c.IngestPath, "/")
}

// Validate reports every problem found, each wrapping ErrConfiguration.
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...)))
	}

	u, err := url.Parse(c.IngestURL())
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fail("invalid api url %q", c.IngestURL())
	}
	if c.TickInterval <= 0 {
		fail("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.MaxIterations < 0 {
		fail("max iterations must not be negative, got %d", c.MaxIterations)
	}
	if c.StartupDelay < 0 {
		fail("startup delay must not be negative, got %s", c.StartupDelay)
	}
	if c.RequestTimeout <= 0 {
		fail("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.Retry.MaxAttempts < 1 {
		fail("retry max attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Delay < 0 {
		fail("retry delay must not be negative, got %s", c.Retry.Delay)
	}

	if len(c.Agents) == 0 {
		fail("agent roster is empty")
	}
	seen := make(map[fleet.AgentID]bool, len(c.Agents))
	for i, a := range c.Agents {
		if a.ID == "" {
			fail("agent %d: missing id", i)
		} else if seen[a.ID] {
			fail("agent %d: duplicate id %q", i, a.ID)
		}
		seen[a.ID] = true

		if a.DeviceType > fleet.DeviceWeatherStation {
			fail("agent %q: unknown device type %d", a.ID, a.DeviceType)
		}
		if !a.Behavior.Valid() {
			fail("agent %q: unknown behavior profile %q", a.ID, a.Behavior)
		}
		if a.Anchor.Lat < -90 || a.Anchor.Lat > 90 {
			fail("agent %q: latitude %v out of range", a.ID, a.Anchor.Lat)
		}
		if a.Anchor.Lng < -180 || a.Anchor.Lng > 180 {
			fail("agent %q: longitude %v out of range", a.ID, a.Anchor.Lng)
		}
		if a.RoamingRadius < 0 {
			fail("agent %q: negative roaming radius %v", a.ID, a.RoamingRadius)
		}
	}
	return errors.Join(errs...)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func envDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// Bare numbers are milliseconds.
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return defaultVal
}
