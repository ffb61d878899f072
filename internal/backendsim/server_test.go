package backendsim_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Songmu/flextime"
	"github.com/progress/jsdo/internal/backendsim"
	"github.com/progress/jsdo/internal/config"
	"github.com/progress/jsdo/pkg/auth"
	"github.com/progress/jsdo/pkg/credstore"
	"github.com/progress/jsdo/pkg/httpx"
	"github.com/progress/jsdo/pkg/session"
	"github.com/progress/jsdo/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func testConfig() config.ServerConfig {
	return config.ServerConfig{
		ServicePath:         "/App",
		Issuer:              "jsdo-backendsim",
		SigningSecret:       strings.Repeat("s", 32),
		AccessTokenTTL:      100 * time.Second,
		RefreshTokenTTL:     time.Hour,
		RotateRefreshTokens: true,
		Users:               map[string]string{"alice": "secret"},
		BearerTokens:        map[string]string{"tok-1": "alice"},
	}
}

// startSim runs the simulator behind httptest and returns its service URI.
func startSim(t *testing.T, mutate func(*config.ServerConfig)) string {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	sim, err := backendsim.New(cfg, slogx.Discard())
	require.NoError(t, err)

	srv := httptest.NewServer(sim)
	t.Cleanup(srv.Close)
	return sim.ServiceURI(srv.URL)
}

func newProvider(t *testing.T, uri, model string, opts ...auth.Option) *auth.Provider {
	t.Helper()

	opts = append([]auth.Option{auth.WithStore(credstore.NewMemory()), auth.WithLogger(slogx.Discard())}, opts...)
	p, err := auth.NewProvider(context.Background(), uri, model, opts...)
	require.NoError(t, err)
	return p
}

// getResource reads /rest/Customer through p and returns status and body.
func getResource(t *testing.T, p *auth.Provider) (int, httpx.ErrorResponse) {
	t.Helper()

	resp, err := p.Client().Get(p.URI() + "/rest/Customer")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body httpx.ErrorResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = json.Unmarshal(raw, &body)
	return resp.StatusCode, body
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Users = nil
	_, err := backendsim.New(cfg, slogx.Discard())
	require.Error(t, err)

	cfg = testConfig()
	cfg.SigningSecret = "short"
	_, err = backendsim.New(cfg, slogx.Discard())
	require.Error(t, err)

	cfg = testConfig()
	cfg.SigningSecret = ""
	_, err = backendsim.New(cfg, slogx.Discard())
	require.NoError(t, err)
}

func TestModels_LoginAuthorizeLogout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		model string
		creds auth.Credentials
		// the anonymous model carries no credential for protected resources
		wantStatus int
	}{
		{"anonymous", auth.Credentials{}, http.StatusUnauthorized},
		{"basic", auth.Credentials{Username: "alice", Password: "secret"}, http.StatusOK},
		{"bearer", auth.Credentials{Token: "tok-1"}, http.StatusOK},
		{"form", auth.Credentials{Username: "alice", Password: "secret"}, http.StatusOK},
		{"sso", auth.Credentials{Username: "alice", Password: "secret"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			t.Parallel()

			uri := startSim(t, nil)
			p := newProvider(t, uri, tt.model)

			require.NoError(t, p.Login(ctx, tt.creds))
			require.True(t, p.HasClientCredentials(ctx))
			require.Equal(t, tt.model == "sso", p.HasRefreshToken(ctx))

			status, _ := getResource(t, p)
			require.Equal(t, tt.wantStatus, status)

			require.NoError(t, p.Logout(ctx))
			require.False(t, p.HasClientCredentials(ctx))

			_, err := p.Client().Get(uri + "/rest/Customer")
			require.ErrorIs(t, err, auth.ErrNotAuthorized)
		})
	}
}

func TestModels_RejectedCredentials(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		model string
		creds auth.Credentials
	}{
		{"basic", auth.Credentials{Username: "alice", Password: "wrong"}},
		{"bearer", auth.Credentials{Token: "tok-2"}},
		{"form", auth.Credentials{Username: "mallory", Password: "secret"}},
		{"sso", auth.Credentials{Username: "alice", Password: "wrong"}},
	}

	uri := startSim(t, nil)
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			p := newProvider(t, uri, tt.model)

			err := p.Login(ctx, tt.creds)
			require.ErrorIs(t, err, auth.ErrAuthenticationFailure)
			require.NotErrorIs(t, err, auth.ErrExpiredToken)
			require.False(t, p.HasClientCredentials(ctx))
		})
	}
}

func TestSSO_RefreshRotation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("rotating", func(t *testing.T) {
		p := newProvider(t, startSim(t, nil), "sso")
		require.NoError(t, p.Login(ctx, auth.Credentials{Username: "alice", Password: "secret"}))

		for range 3 {
			require.NoError(t, p.Refresh(ctx))
			require.True(t, p.HasRefreshToken(ctx))
		}
		status, _ := getResource(t, p)
		require.Equal(t, http.StatusOK, status)
	})

	t.Run("not rotating drops the refresh token", func(t *testing.T) {
		uri := startSim(t, func(c *config.ServerConfig) { c.RotateRefreshTokens = false })
		p := newProvider(t, uri, "sso")
		require.NoError(t, p.Login(ctx, auth.Credentials{Username: "alice", Password: "secret"}))

		require.NoError(t, p.Refresh(ctx))
		require.False(t, p.HasRefreshToken(ctx))
		require.ErrorIs(t, p.Refresh(ctx), auth.ErrNoRefreshToken)

		status, _ := getResource(t, p)
		require.Equal(t, http.StatusOK, status)
	})
}

func TestSSO_LogoutEndsServerSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	uri := startSim(t, nil)
	store := credstore.NewMemory()

	p1 := newProvider(t, uri, "sso", auth.WithStore(store))
	require.NoError(t, p1.Login(ctx, auth.Credentials{Username: "alice", Password: "secret"}))
	ts, err := p1.TokenSource(ctx)
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)

	require.NoError(t, p1.Logout(ctx))

	// The old access token no longer names a live session.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri+"/rest/Customer", nil)
	require.NoError(t, err)
	tok.SetAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// So does its refresh token.
	resp, err = http.Post(uri+auth.PathRefresh+"?op=refresh", "application/json",
		strings.NewReader(`{"token_type":"bearer","refresh_token":"`+tok.RefreshToken+`"}`))
	require.NoError(t, err)
	var body httpx.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, backendsim.CodeInvalidGrant, body.Error)
}

// Pins the clock, so not parallel.
func TestSSO_ExpiredAccessToken(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	restore := flextime.Fix(start)
	defer restore()

	uri := startSim(t, nil)
	p := newProvider(t, uri, "sso", auth.WithAutomaticTokenRefresh(false))
	require.NoError(t, p.Login(ctx, auth.Credentials{Username: "alice", Password: "secret"}))

	flextime.Fix(start.Add(200 * time.Second))

	status, body := getResource(t, p)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, auth.ExpiredTokenCode, body.Error)

	require.NoError(t, p.SetAutomaticTokenRefresh(ctx, true))
	status, _ = getResource(t, p)
	require.Equal(t, http.StatusOK, status)

	exp, ok := p.AccessTokenExpiration(ctx)
	require.True(t, ok)
	require.Equal(t, start.Add(200*time.Second+75*time.Second).UnixMilli(), exp.UnixMilli())
}

// Pins the clock, so not parallel.
func TestSSO_ExpiredRefreshToken(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	restore := flextime.Fix(start)
	defer restore()

	uri := startSim(t, nil)
	p := newProvider(t, uri, "sso")
	require.NoError(t, p.Login(ctx, auth.Credentials{Username: "alice", Password: "secret"}))

	flextime.Fix(start.Add(2 * time.Hour))

	err := p.Refresh(ctx)
	require.ErrorIs(t, err, auth.ErrExpiredToken)
	require.ErrorIs(t, err, auth.ErrAuthenticationFailure)
	require.False(t, p.LoggedIn())
	require.False(t, p.HasClientCredentials(ctx))
}

func TestLogin_RateLimited(t *testing.T) {
	t.Parallel()

	uri := startSim(t, func(c *config.ServerConfig) { c.LoginRequestsPerMinute = 2 })
	form := url.Values{"j_username": {"alice"}, "j_password": {"wrong"}}

	statuses := make([]int, 0, 3)
	for range 3 {
		resp, err := http.PostForm(uri+auth.PathLogin, form)
		require.NoError(t, err)
		_ = resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}
	require.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, statuses)

	// Another username has its own budget.
	resp, err := http.PostForm(uri+auth.PathLogin, url.Values{"j_username": {"bob"}, "j_password": {"x"}})
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefresh_BadRequests(t *testing.T) {
	t.Parallel()
	uri := startSim(t, nil)

	tests := []struct {
		name   string
		query  string
		body   string
		status int
		code   string
	}{
		{"missing op", "", `{"refresh_token":"x"}`, http.StatusBadRequest, "invalid_request"},
		{"no token", "?op=refresh", `{}`, http.StatusBadRequest, "invalid_request"},
		{"unknown token", "?op=refresh", `{"refresh_token":"x"}`, http.StatusUnauthorized, backendsim.CodeInvalidGrant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(uri+auth.PathRefresh+tt.query, "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			var body httpx.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			require.Equal(t, tt.status, resp.StatusCode)
			require.Equal(t, tt.code, body.Error)
		})
	}
}

func TestSession_Catalogs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	uri := startSim(t, nil)
	s, err := session.New(uri, session.WithModel("form"), session.WithLogger(slogx.Discard()))
	require.NoError(t, err)

	err = s.AddCatalog(ctx, []string{"static/catalogs/" + backendsim.DefaultCatalogName})
	require.ErrorIs(t, err, auth.ErrNotAuthorized)

	require.NoError(t, s.Login(ctx, "alice", "secret"))
	require.NoError(t, s.AddCatalog(ctx, []string{"static/catalogs/" + backendsim.DefaultCatalogName}))

	cat, ok := s.Catalog("static/catalogs/" + backendsim.DefaultCatalogName)
	require.True(t, ok)
	require.Equal(t, []string{"Customer", "Order"}, cat.Resources)

	err = s.AddCatalog(ctx, []string{"static/catalogs/Missing.json"})
	require.ErrorIs(t, err, auth.ErrGeneralFailure)

	require.NoError(t, s.Logout(ctx))
	require.False(t, s.Connected())
}

func TestSwaggerDocs(t *testing.T) {
	t.Parallel()

	uri := startSim(t, nil)
	base := strings.TrimSuffix(uri, "/App")

	resp, err := http.Get(base + "/swagger/doc.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(raw), "JSDO Backend Simulator API")
	require.Contains(t, string(raw), "/static/auth/j_spring_security_check")
}
