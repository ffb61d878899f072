package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the client configuration used by the jsdo CLI. Values come from
// defaults, then the optional YAML profile, then the environment.
type Config struct {
	ServiceURI     string        `yaml:"service_uri"`      // JSDO_SERVICE_URI
	Model          string        `yaml:"model"`            // JSDO_AUTH_MODEL (default: anonymous)
	StoreDSN       string        `yaml:"store_dsn"`        // JSDO_STORE_DSN (default: jsdo.db)
	StoreKey       string        `yaml:"-"`                // JSDO_STORE_KEY, env only: encrypts stored tokens
	LogLevel       string        `yaml:"log_level"`        // LOG_LEVEL (default: warn)
	LogFormat      string        `yaml:"log_format"`       // LOG_FORMAT (default: text)
	HTTPTimeout    time.Duration `yaml:"http_timeout"`     // JSDO_HTTP_TIMEOUT (default: 30s)
	AutoRefresh    bool          `yaml:"auto_refresh"`     // JSDO_AUTO_REFRESH (default: true)
	ErrorCodeQuery string        `yaml:"error_code_query"` // JSDO_ERROR_CODE_QUERY
}

// DefaultProfileEnv names the variable holding the profile path when none
// is passed explicitly.
const DefaultProfileEnv = "JSDO_PROFILE"

// LoadConfig reads the profile at path (or $JSDO_PROFILE) when set and
// applies environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		Model:       "anonymous",
		StoreDSN:    "jsdo.db",
		LogLevel:    "warn",
		LogFormat:   "text",
		HTTPTimeout: 30 * time.Second,
		AutoRefresh: true,
	}

	if path == "" {
		path = os.Getenv(DefaultProfileEnv)
	}
	if path != "" {
		if err := readProfile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.ServiceURI = getEnvOrDefault("JSDO_SERVICE_URI", cfg.ServiceURI)
	cfg.Model = getEnvOrDefault("JSDO_AUTH_MODEL", cfg.Model)
	cfg.StoreDSN = getEnvOrDefault("JSDO_STORE_DSN", cfg.StoreDSN)
	cfg.StoreKey = os.Getenv("JSDO_STORE_KEY")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.HTTPTimeout = getEnvDurationOrDefault("JSDO_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.AutoRefresh = getEnvBoolOrDefault("JSDO_AUTO_REFRESH", cfg.AutoRefresh)
	cfg.ErrorCodeQuery = getEnvOrDefault("JSDO_ERROR_CODE_QUERY", cfg.ErrorCodeQuery)

	return cfg, nil
}

func readProfile(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read profile: %w", err)
	}
	if err := yaml.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return nil
}

// Validate reports the first missing or malformed value.
func (c Config) Validate() error {
	if c.ServiceURI == "" {
		return errors.New("config: service uri is required (JSDO_SERVICE_URI or --service)")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("config: http timeout must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}

// parsePairs parses "a:b,c:d" into a map. Entries without a colon are
// skipped.
func parsePairs(value string) map[string]string {
	out := make(map[string]string)
	for entry := range strings.SplitSeq(value, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
