package config

import (
	"time"
)

// ServerConfig configures the backend simulator.
type ServerConfig struct {
	Env       string `yaml:"env"`        // ENV (default: dev)
	LogLevel  string `yaml:"log_level"`  // LOG_LEVEL (default: info)
	LogFormat string `yaml:"log_format"` // LOG_FORMAT (default: json)
	Port      int    `yaml:"port"`       // PORT (default: 8080)

	ServicePath string `yaml:"service_path"` // SIM_SERVICE_PATH (default: /App)
	Issuer      string `yaml:"issuer"`       // SIM_ISSUER (default: jsdo-backendsim)

	// SigningSecret signs SSO access tokens. A random secret is generated
	// when empty, so tokens do not survive a restart.
	SigningSecret string `yaml:"-"` // SIM_SIGNING_SECRET

	AccessTokenTTL      time.Duration `yaml:"access_token_ttl"`      // SIM_ACCESS_TOKEN_TTL (default: 5m)
	RefreshTokenTTL     time.Duration `yaml:"refresh_token_ttl"`     // SIM_REFRESH_TOKEN_TTL (default: 24h)
	RotateRefreshTokens bool          `yaml:"rotate_refresh_tokens"` // SIM_ROTATE_REFRESH_TOKENS (default: true)

	// Users maps username to password. SIM_USERS="alice:secret,bob:hunter2".
	Users map[string]string `yaml:"users"`
	// BearerTokens maps static bearer token to username.
	// SIM_BEARER_TOKENS="tok-1:alice".
	BearerTokens map[string]string `yaml:"bearer_tokens"`

	LoginRequestsPerMinute int           `yaml:"login_requests_per_minute"` // SIM_LOGIN_RPM (default: 5, 0 disables)
	ShutdownGracePeriod    time.Duration `yaml:"shutdown_grace_period"`     // SHUTDOWN_GRACE_PERIOD (default: 10s)
}

// LoadServerConfig reads the simulator profile at path (or $SIM_PROFILE)
// when set and applies environment overrides.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := ServerConfig{
		Env:                    "dev",
		LogLevel:               "info",
		LogFormat:              "json",
		Port:                   8080,
		ServicePath:            "/App",
		Issuer:                 "jsdo-backendsim",
		AccessTokenTTL:         5 * time.Minute,
		RefreshTokenTTL:        24 * time.Hour,
		RotateRefreshTokens:    true,
		LoginRequestsPerMinute: 5,
		ShutdownGracePeriod:    10 * time.Second,
	}

	if path == "" {
		path = getEnvOrDefault("SIM_PROFILE", "")
	}
	if path != "" {
		if err := readProfile(path, &cfg); err != nil {
			return ServerConfig{}, err
		}
	}

	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.Port = getEnvIntOrDefault("PORT", cfg.Port)
	cfg.ServicePath = getEnvOrDefault("SIM_SERVICE_PATH", cfg.ServicePath)
	cfg.Issuer = getEnvOrDefault("SIM_ISSUER", cfg.Issuer)
	cfg.SigningSecret = getEnvOrDefault("SIM_SIGNING_SECRET", cfg.SigningSecret)
	cfg.AccessTokenTTL = getEnvDurationOrDefault("SIM_ACCESS_TOKEN_TTL", cfg.AccessTokenTTL)
	cfg.RefreshTokenTTL = getEnvDurationOrDefault("SIM_REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL)
	cfg.RotateRefreshTokens = getEnvBoolOrDefault("SIM_ROTATE_REFRESH_TOKENS", cfg.RotateRefreshTokens)
	cfg.LoginRequestsPerMinute = getEnvIntOrDefault("SIM_LOGIN_RPM", cfg.LoginRequestsPerMinute)
	cfg.ShutdownGracePeriod = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod)

	if users := getEnvOrDefault("SIM_USERS", ""); users != "" {
		cfg.Users = parsePairs(users)
	}
	if tokens := getEnvOrDefault("SIM_BEARER_TOKENS", ""); tokens != "" {
		cfg.BearerTokens = parsePairs(tokens)
	}
	if len(cfg.Users) == 0 {
		cfg.Users = map[string]string{"demo": "demo"}
	}

	return cfg, nil
}
