package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Songmu/flextime"
	"github.com/progress/jsdo/pkg/credstore"
	"golang.org/x/sync/singleflight"
)

// EarlyRefreshRatio is the fraction of the access token lifetime after which
// automatic refresh kicks in. Refreshing at 75% keeps in-flight requests
// clear of the hard expiry.
const EarlyRefreshRatio = 0.75

// SSOScheme is the Authorization scheme used for SSO access tokens.
const SSOScheme = "oecp"

// ssoLoginQuery asks the form login endpoint for JSON tokens.
const ssoLoginQuery = "?OECP=yes"

// tokenResponse is the body of a successful SSO login or refresh.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ssoProtocol layers a token exchange on top of form login. Tokens are read
// from the store on every use so providers sharing a store see each other's
// writes.
type ssoProtocol struct {
	core *core
	form *formProtocol

	autoRefresh atomic.Bool
	flight      singleflight.Group
}

func newSSOProtocol(c *core, form *formProtocol) *ssoProtocol {
	s := &ssoProtocol{core: c, form: form}
	s.autoRefresh.Store(true)
	return s
}

func (s *ssoProtocol) restore(ctx context.Context) error {
	if err := s.core.rehydrate(ctx); err != nil {
		return err
	}

	enabled, found, err := s.core.ns.GetBool(ctx, credstore.FieldAutomaticTokenRefresh)
	if err != nil {
		return generalFailure("rehydrate", err)
	}
	if found {
		s.autoRefresh.Store(enabled)
	}
	return nil
}

func (s *ssoProtocol) validate(op string, creds Credentials) error {
	return s.form.validate(op, creds)
}

func (s *ssoProtocol) login(ctx context.Context, creds Credentials) error {
	status, body, err := s.form.post(ctx, s.core.endpoints.login+ssoLoginQuery, creds)
	return s.processLoginResult(ctx, status, body, err)
}

func (s *ssoProtocol) processLoginResult(ctx context.Context, status int, body []byte, err error) error {
	const op = "login"

	if result := classify(status, err); result != resultSuccess {
		s.reset(ctx)
		return s.core.resultError(op, result, status, body, err)
	}

	tokens, perr := parseTokenResponse(body)
	if perr != nil {
		s.reset(ctx)
		return &Error{Kind: KindGeneralFailure, Op: op, StatusCode: status, Body: string(body), Err: perr}
	}

	if err := s.storeTokens(ctx, tokens); err != nil {
		s.reset(ctx)
		return storeFailure(op, err)
	}
	if err := s.core.setLoggedIn(ctx); err != nil {
		s.reset(ctx)
		return storeFailure(op, err)
	}
	return nil
}

func parseTokenResponse(body []byte) (*tokenResponse, error) {
	var tokens tokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokens.AccessToken == "" {
		return nil, errors.New("token response has no access_token")
	}
	return &tokens, nil
}

// storeTokens persists a token response. A response without a refresh token
// drops any stored refresh token together with its expiration marker.
func (s *ssoProtocol) storeTokens(ctx context.Context, t *tokenResponse) error {
	ns := s.core.ns

	if err := ns.SetJSON(ctx, credstore.FieldAccessToken, t.AccessToken); err != nil {
		return err
	}
	if err := ns.SetJSON(ctx, credstore.FieldTokenType, t.TokenType); err != nil {
		return err
	}
	if err := ns.SetJSON(ctx, credstore.FieldExpiresIn, t.ExpiresIn); err != nil {
		return err
	}

	if t.RefreshToken == "" {
		return ns.Clear(ctx, credstore.FieldRefreshToken, credstore.FieldAccessTokenExpiration)
	}

	if err := ns.SetJSON(ctx, credstore.FieldRefreshToken, t.RefreshToken); err != nil {
		return err
	}
	return ns.SetJSON(ctx, credstore.FieldAccessTokenExpiration, expirationMillis(flextime.Now(), t.ExpiresIn))
}

// expirationMillis returns the epoch ms at which the token should be
// refreshed.
func expirationMillis(now time.Time, expiresIn int64) int64 {
	return now.UnixMilli() + int64(float64(expiresIn*1000)*EarlyRefreshRatio)
}

func (s *ssoProtocol) accessToken(ctx context.Context) string {
	tok, err := s.core.ns.GetString(ctx, credstore.FieldAccessToken)
	if err != nil {
		s.core.logger.WarnContext(ctx, "failed to read access token", "err", err)
		return ""
	}
	return tok
}

func (s *ssoProtocol) refreshToken(ctx context.Context) string {
	tok, err := s.core.ns.GetString(ctx, credstore.FieldRefreshToken)
	if err != nil {
		s.core.logger.WarnContext(ctx, "failed to read refresh token", "err", err)
		return ""
	}
	return tok
}

// expiration returns the stored early-refresh deadline.
func (s *ssoProtocol) expiration(ctx context.Context) (time.Time, bool) {
	ms, found, err := s.core.ns.GetInt64(ctx, credstore.FieldAccessTokenExpiration)
	if err != nil || !found {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (s *ssoProtocol) hasClientCredentials(ctx context.Context) bool {
	return s.accessToken(ctx) != ""
}

func (s *ssoProtocol) hasRefreshToken(ctx context.Context) bool {
	return s.refreshToken(ctx) != ""
}

// shouldRefresh reports whether authorize must refresh before stamping.
func (s *ssoProtocol) shouldRefresh(ctx context.Context) bool {
	if !s.autoRefresh.Load() || !s.hasRefreshToken(ctx) {
		return false
	}
	exp, ok := s.expiration(ctx)
	return ok && flextime.Now().After(exp)
}

func (s *ssoProtocol) authorize(ctx context.Context, req *http.Request) error {
	const op = "authorize request"

	if s.shouldRefresh(ctx) {
		if err := s.refresh(ctx); err != nil {
			if errors.Is(err, ErrAuthenticationFailure) {
				return &Error{
					Kind:    KindNotAuthorized,
					Op:      op,
					Message: "automatic token refresh was rejected, request not sent",
					Err:     err,
				}
			}
			s.core.logger.WarnContext(ctx, "automatic token refresh failed, using current access token", "err", err)
		}
	}

	token := s.accessToken(ctx)
	if token == "" {
		return notAuthorized(op)
	}
	req.Header.Set("Authorization", SSOScheme+" "+token)
	s.form.jar.addCookies(req)
	return nil
}

func (s *ssoProtocol) logout(ctx context.Context) error { return s.form.logout(ctx) }

func (s *ssoProtocol) reset(ctx context.Context) { s.form.reset(ctx) }

func (s *ssoProtocol) automaticTokenRefresh() bool { return s.autoRefresh.Load() }

func (s *ssoProtocol) setAutomaticTokenRefresh(ctx context.Context, enabled bool) error {
	s.autoRefresh.Store(enabled)
	return storeFailure("set automatic token refresh",
		s.core.ns.SetJSON(ctx, credstore.FieldAutomaticTokenRefresh, enabled))
}
