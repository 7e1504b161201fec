package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// CurrentVersion is the expected version of the config file.
const CurrentVersion = 1

// Config represents the entire client configuration.
type Config struct {
	// Version of the config file.
	Version        int            `koanf:"version"`
	API            API            `koanf:"api"`
	CircuitBreaker CircuitBreaker `koanf:"circuit_breaker"`
	Revalidate     Revalidate     `koanf:"revalidate"`
	Redis          Redis          `koanf:"redis"`
	Logging        Logging        `koanf:"logging"`
}

// API contains backend connection configuration.
type API struct {
	// Backend origin, e.g. https://backend.example.com.
	BaseURL string `koanf:"base_url"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
	// Name of the session cookie issued by the backend.
	CookieName string `koanf:"cookie_name"`
}

// CircuitBreaker contains circuit breaker configuration for read requests.
type CircuitBreaker struct {
	MaxRequests uint32 `koanf:"max_requests"`
	// Interval in milliseconds.
	Interval int `koanf:"interval"`
	// Timeout in milliseconds.
	Timeout int `koanf:"timeout"`
}

// Revalidate bounds the background refetch retries of the entity cache.
type Revalidate struct {
	// Initial delay in milliseconds.
	InitialDelay int `koanf:"initial_delay"`
	// Maximum delay in milliseconds.
	MaxDelay int `koanf:"max_delay"`
	// Maximum total elapsed time in milliseconds.
	MaxElapsed int `koanf:"max_elapsed"`
	// Maximum retry attempts per refetch.
	MaxRetries uint64 `koanf:"max_retries"`
}

// Redis contains the optional session store configuration. When disabled,
// the session lives only for the process lifetime.
type Redis struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// Logging contains logger configuration.
type Logging struct {
	// Logging level (debug, info, warn, error).
	Level string `koanf:"level"`
	// Use the development encoder with human-readable output.
	Development bool `koanf:"development"`
}

// LoadConfig loads the configuration from the first chirp.toml found in the
// search paths. Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// List search paths
	configPaths := []string{
		".chirp",
		homeDir + "/.chirp/config",
		"/etc/chirp/config",
		"config",
		".",
	}

	var usedConfigPath string

	for _, path := range configPaths {
		configPath := path + "/chirp.toml"
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", fmt.Errorf("%w: chirp.toml", ErrConfigFileNotFound)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion(config.Version, CurrentVersion); err != nil {
		return nil, "", err
	}

	applyDefaults(&config)

	return &config, usedConfigPath, nil
}

// applyDefaults fills unset fields with working values.
func applyDefaults(config *Config) {
	if config.API.RequestTimeout == 0 {
		config.API.RequestTimeout = 10000
	}

	if config.API.CookieName == "" {
		config.API.CookieName = "jwt"
	}

	if config.CircuitBreaker.MaxRequests == 0 {
		config.CircuitBreaker.MaxRequests = 5
	}

	if config.CircuitBreaker.Interval == 0 {
		config.CircuitBreaker.Interval = 60000
	}

	if config.CircuitBreaker.Timeout == 0 {
		config.CircuitBreaker.Timeout = 30000
	}

	if config.Revalidate.InitialDelay == 0 {
		config.Revalidate.InitialDelay = 200
	}

	if config.Revalidate.MaxDelay == 0 {
		config.Revalidate.MaxDelay = 2000
	}

	if config.Revalidate.MaxElapsed == 0 {
		config.Revalidate.MaxElapsed = 10000
	}

	if config.Revalidate.MaxRetries == 0 {
		config.Revalidate.MaxRetries = 3
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: chirp.toml", ErrConfigVersionMissing)
	}

	if current != expected {
		return fmt.Errorf("%w: chirp.toml (got: %d, expected: %d)",
			ErrConfigVersionMismatch, current, expected)
	}

	return nil
}
