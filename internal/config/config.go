// Package config loads the factserve YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the factserve daemon configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Ops      OpsConfig      `yaml:"ops"`
	Backend  BackendConfig  `yaml:"backend"`
	Cache    CacheConfig    `yaml:"cache"`
	Services ServicesConfig `yaml:"services"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds settings shared by every service listener.
type HTTPConfig struct {
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// OpsConfig holds the operational endpoint settings (/health, /metrics).
// Port 0 disables the ops listener.
type OpsConfig struct {
	Port int `yaml:"port"`
}

// BackendConfig holds outbound fetch settings shared by all backends.
type BackendConfig struct {
	TimeoutSec     int     `yaml:"timeout_sec"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"` // 0 = unlimited
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// CacheConfig holds the optional record cache settings. No addrs disables
// the cache entirely.
type CacheConfig struct {
	Addrs               []string `yaml:"addrs"`
	Username            string   `yaml:"username"`
	Password            string   `yaml:"password"`
	TTLSec              int      `yaml:"ttl_sec"`
	ReadinessTimeoutSec int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether the record cache is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// ServicesConfig holds per-service settings. A nil entry disables that
// service.
type ServicesConfig struct {
	Quote   *QuoteConfig   `yaml:"quote"`
	Weather *WeatherConfig `yaml:"weather"`
	Movie   *MovieConfig   `yaml:"movie"`
	Add     *AddConfig     `yaml:"add"`
}

// QuoteConfig holds the stock quote service settings.
type QuoteConfig struct {
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

// WeatherConfig holds the weather service settings.
type WeatherConfig struct {
	Port    int    `yaml:"port"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Units   string `yaml:"units"`
}

// MovieConfig holds the movie service settings.
type MovieConfig struct {
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

// AddConfig holds the addition service settings.
type AddConfig struct {
	Port int `yaml:"port"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Backend.TimeoutSec <= 0 {
		c.Backend.TimeoutSec = 10
	}
	if c.Backend.RateLimitBurst <= 0 {
		c.Backend.RateLimitBurst = 1
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 60
	}
	if c.Cache.ReadinessTimeoutSec <= 0 {
		c.Cache.ReadinessTimeoutSec = 10
	}
	if c.Services.Weather != nil && c.Services.Weather.Units == "" {
		c.Services.Weather.Units = "metric"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	ports := make(map[int]string)

	checkPort := func(name string, port int) error {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("services.%s.port must be between 1 and 65535, got %d", name, port)
		}
		if other, taken := ports[port]; taken {
			return fmt.Errorf("services.%s.port %d already used by %s", name, port, other)
		}
		ports[port] = name
		return nil
	}

	if c.Services.Quote != nil {
		if err := checkPort("quote", c.Services.Quote.Port); err != nil {
			return err
		}
	}
	if c.Services.Weather != nil {
		if err := checkPort("weather", c.Services.Weather.Port); err != nil {
			return err
		}
		if c.Services.Weather.APIKey == "" {
			return fmt.Errorf("services.weather.api_key is required")
		}
	}
	if c.Services.Movie != nil {
		if err := checkPort("movie", c.Services.Movie.Port); err != nil {
			return err
		}
	}
	if c.Services.Add != nil {
		if err := checkPort("add", c.Services.Add.Port); err != nil {
			return err
		}
	}

	if len(ports) == 0 {
		return fmt.Errorf("at least one service must be configured")
	}

	if c.Ops.Port != 0 {
		if err := checkPort("ops", c.Ops.Port); err != nil {
			return err
		}
	}

	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
