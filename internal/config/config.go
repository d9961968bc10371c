package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/foodking/internal/model"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FOODKING_"

// Log formats.
const (
	LogText = "text"
	LogJSON = "json"
)

// Config holds client settings.
type Config struct {
	// APIURL is the REST API root, including the /api prefix.
	APIURL string `yaml:"api_url"`

	// StatePath is the SQLite file holding the cart and the staff token.
	StatePath string `yaml:"state_path"`

	// RedisAddr, when set, stores local state in Redis instead of SQLite.
	RedisAddr string `yaml:"redis_addr"`

	HTTPTimeout       time.Duration  `yaml:"http_timeout"`
	OrdersInterval    time.Duration  `yaml:"orders_interval"`
	DashboardInterval time.Duration  `yaml:"dashboard_interval"`
	GeoTimeout        time.Duration  `yaml:"geo_timeout"`
	DefaultLocation   model.Location `yaml:"default_location"`
	LogFormat         string         `yaml:"log_format"`

	// Password is the staff password for non-interactive login. It is only
	// read from the environment.
	Password string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		APIURL:            "http://localhost:5000/api",
		StatePath:         defaultStatePath(),
		HTTPTimeout:       15 * time.Second,
		OrdersInterval:    30 * time.Second,
		DashboardInterval: 60 * time.Second,
		GeoTimeout:        3 * time.Second,
		DefaultLocation:   model.DefaultLocation,
		LogFormat:         LogText,
	}
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "foodking.db"
	}
	return filepath.Join(dir, "foodking", "state.db")
}

type options struct {
	envFile   string
	lookupEnv func(string) (string, bool)
}

// Option configures Load.
type Option func(*options)

// WithEnvFile sets the .env file to read. Empty disables it.
func WithEnvFile(path string) Option {
	return func(o *options) { o.envFile = path }
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(o *options) { o.lookupEnv = fn }
}

// Load builds the configuration. An empty path skips the YAML file; a
// missing .env file is not an error.
func Load(path string, opts ...Option) (Config, error) {
	o := options{envFile: ".env", lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	dotenv := map[string]string{}
	if o.envFile != "" {
		vars, err := godotenv.Read(o.envFile)
		switch {
		case err == nil:
			dotenv = vars
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("failed to read %s: %w", o.envFile, err)
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := o.lookupEnv(EnvPrefix + key); ok {
			return v, true
		}
		v, ok := dotenv[EnvPrefix+key]
		return v, ok
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"API_URL":    &cfg.APIURL,
		"STATE_PATH": &cfg.StatePath,
		"REDIS_ADDR": &cfg.RedisAddr,
		"LOG_FORMAT": &cfg.LogFormat,
		"PASSWORD":   &cfg.Password,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"HTTP_TIMEOUT":       &cfg.HTTPTimeout,
		"ORDERS_INTERVAL":    &cfg.OrdersInterval,
		"DASHBOARD_INTERVAL": &cfg.DashboardInterval,
		"GEO_TIMEOUT":        &cfg.GeoTimeout,
	}
	for key, dst := range durations {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = d
	}

	coords := map[string]*float64{
		"DEFAULT_LAT": &cfg.DefaultLocation.Lat,
		"DEFAULT_LNG": &cfg.DefaultLocation.Lng,
	}
	for key, dst := range coords {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = f
	}
	return nil
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url %q must be an http(s) URL", c.APIURL)
	}
	if c.StatePath == "" && c.RedisAddr == "" {
		return errors.New("one of state_path or redis_addr is required")
	}
	for name, d := range map[string]time.Duration{
		"http_timeout":       c.HTTPTimeout,
		"orders_interval":    c.OrdersInterval,
		"dashboard_interval": c.DashboardInterval,
		"geo_timeout":        c.GeoTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	if l := c.DefaultLocation; l.Lat < -90 || l.Lat > 90 || l.Lng < -180 || l.Lng > 180 {
		return fmt.Errorf("default_location %v is out of range", l)
	}
	if c.LogFormat != LogText && c.LogFormat != LogJSON {
		return fmt.Errorf("log_format must be %q or %q, got %q", LogText, LogJSON, c.LogFormat)
	}
	return nil
}
