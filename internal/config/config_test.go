package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv(DefaultProfileEnv, "")
	t.Setenv("JSDO_SERVICE_URI", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "anonymous", cfg.Model)
	require.Equal(t, "jsdo.db", cfg.StoreDSN)
	require.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	require.True(t, cfg.AutoRefresh)
	require.Error(t, cfg.Validate())
}

func TestLoadConfig_ProfileThenEnv(t *testing.T) {
	path := writeProfile(t, `
service_uri: http://profile/App
model: sso
http_timeout: 5s
auto_refresh: false
error_code_query: .fault.code
`)
	t.Setenv("JSDO_SERVICE_URI", "")
	t.Setenv("JSDO_AUTH_MODEL", "form")
	t.Setenv("JSDO_STORE_KEY", "k")
	t.Setenv("JSDO_HTTP_TIMEOUT", "not a duration")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "http://profile/App", cfg.ServiceURI)
	require.Equal(t, "form", cfg.Model)
	require.Equal(t, "k", cfg.StoreKey)
	require.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	require.False(t, cfg.AutoRefresh)
	require.Equal(t, ".fault.code", cfg.ErrorCodeQuery)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_BadProfile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadConfig(writeProfile(t, "model: [unterminated"))
	require.Error(t, err)
}

func TestLoadServerConfig(t *testing.T) {
	t.Setenv("SIM_PROFILE", "")
	t.Setenv("SIM_USERS", "alice:secret, bob:hunter2,broken")
	t.Setenv("SIM_BEARER_TOKENS", "tok-1:alice")
	t.Setenv("SIM_ACCESS_TOKEN_TTL", "90")
	t.Setenv("PORT", "9090")

	cfg, err := LoadServerConfig("")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"alice": "secret", "bob": "hunter2"}, cfg.Users)
	require.Equal(t, map[string]string{"tok-1": "alice"}, cfg.BearerTokens)
	require.Equal(t, 90*time.Second, cfg.AccessTokenTTL)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, "/App", cfg.ServicePath)
	require.True(t, cfg.RotateRefreshTokens)
}

func TestLoadServerConfig_DefaultUser(t *testing.T) {
	t.Setenv("SIM_PROFILE", "")
	t.Setenv("SIM_USERS", "")

	cfg, err := LoadServerConfig("")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"demo": "demo"}, cfg.Users)
}
