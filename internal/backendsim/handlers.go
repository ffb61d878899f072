package backendsim

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Songmu/flextime"
	"github.com/progress/jsdo/pkg/auth"
	"github.com/progress/jsdo/pkg/httpx"
	"github.com/progress/jsdo/pkg/jwtx"
	"github.com/progress/jsdo/pkg/slogx"
)

// TokenResponse is the JSON body of an SSO login or refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshRequest is the JSON body of POST /static/auth/token?op=refresh.
type RefreshRequest struct {
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
}

// StatusResponse is returned by the home page and form login.
type StatusResponse struct {
	Status    string `json:"status"`
	Principal string `json:"principal,omitempty"`
}

// HandleHome godoc
//
//	@Summary		Service home page
//	@Description	Answers 200 for anonymous callers and for valid credentials of any model. Invalid credentials get 401.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Failure		401	{object}	httpx.ErrorResponse	"error: invalid_credentials, invalid_token or token_expired"
//	@Router			/static/home.html [get].
func (s *Server) HandleHome(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.PrincipalFromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, StatusResponse{Status: "ok", Principal: principal})
}

// HandleLogin godoc
//
//	@Summary		Form login
//	@Description	Spring Security style form login. Sets the JSESSIONID cookie. With OECP=yes the response carries SSO tokens.
//	@Tags			Auth
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			j_username	formData	string	true	"Username"
//	@Param			j_password	formData	string	true	"Password"
//	@Param			OECP		query		string	false	"yes to receive SSO tokens"
//	@Success		200			{object}	TokenResponse		"with OECP=yes, otherwise StatusResponse"
//	@Failure		401			{object}	httpx.ErrorResponse	"error: invalid_credentials"
//	@Failure		429			{object}	httpx.ErrorResponse	"error: rate_limit_exceeded"
//	@Router			/static/auth/j_spring_security_check [post].
func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	username := strings.TrimSpace(r.PostForm.Get("j_username"))
	if err := s.users.verify(username, r.PostForm.Get("j_password")); err != nil {
		log.Info("login rejected", "username", username)
		httpx.WriteError(w, http.StatusUnauthorized, CodeInvalidCredentials, "invalid username or password")
		return
	}

	sess := s.sessions.create(username)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if !strings.EqualFold(r.URL.Query().Get("OECP"), "yes") {
		log.Info("form login", "username", username)
		httpx.WriteJSON(w, http.StatusOK, StatusResponse{Status: "ok", Principal: username})
		return
	}

	resp, err := s.issueTokens(sess, true)
	if err != nil {
		log.Error("failed to issue tokens", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "failed to issue tokens")
		return
	}
	log.Info("sso login", "username", username)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleLogout godoc
//
//	@Summary		Logout
//	@Description	Ends the session named by the JSESSIONID cookie or the oecp access token. 401 when there is no live session.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Failure		401	{object}	httpx.ErrorResponse
//	@Router			/static/auth/j_spring_security_logout [get].
func (s *Server) HandleLogout(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(r)
	if id == "" || s.sessions.end(id) != nil {
		httpx.WriteError(w, http.StatusUnauthorized, CodeInvalidToken, "no active session")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	httpx.WriteJSON(w, http.StatusOK, StatusResponse{Status: "logged out"})
}

// sessionID finds the session a logout applies to. Expired access tokens
// still name their session.
func (s *Server) sessionID(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, auth.SSOScheme) {
		return ""
	}
	claims, err := s.verifier.Verify(token)
	if err != nil && !errors.Is(err, jwtx.ErrExpired) {
		return ""
	}
	return claims.SID
}

// HandleRefresh godoc
//
//	@Summary		Refresh an SSO access token
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			op		query		string			true	"must be refresh"
//	@Param			request	body		RefreshRequest	true	"refresh token"
//	@Success		200		{object}	TokenResponse		"refresh_token is omitted when rotation is off"
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		401		{object}	httpx.ErrorResponse	"error: invalid_grant or token_expired"
//	@Router			/static/auth/token [post].
func (s *Server) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	if r.URL.Query().Get("op") != "refresh" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "op must be refresh")
		return
	}

	var req RefreshRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	sess, err := s.sessions.redeem(req.RefreshToken, s.cfg.RotateRefreshTokens)
	switch {
	case errors.Is(err, errRefreshExpired):
		httpx.WriteError(w, http.StatusUnauthorized, CodeTokenExpired, "refresh token has expired")
		return
	case err != nil:
		httpx.WriteError(w, http.StatusUnauthorized, CodeInvalidGrant, "refresh token is not valid")
		return
	}

	resp, err := s.issueTokens(sess, s.cfg.RotateRefreshTokens)
	if err != nil {
		log.Error("failed to issue tokens", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "failed to issue tokens")
		return
	}
	log.Debug("token refreshed", "username", sess.Username, "rotated", resp.RefreshToken != "")
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// issueTokens signs an access token for sess and, when withRefresh is set,
// a new refresh token.
func (s *Server) issueTokens(sess *serverSession, withRefresh bool) (*TokenResponse, error) {
	claims := jwtx.NewAccessClaims(sess.Username, sess.ID, sess.Username, s.cfg.Issuer, s.cfg.AccessTokenTTL, flextime.Now())
	access, err := s.signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	resp := &TokenResponse{
		AccessToken: access,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.cfg.AccessTokenTTL.Seconds()),
	}
	if withRefresh {
		if resp.RefreshToken, err = s.sessions.issueRefresh(sess); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// HandleCatalog godoc
//
//	@Summary		Data object catalog
//	@Tags			Catalogs
//	@Produce		json
//	@Param			name	path		string	true	"catalog file name"
//	@Success		200		{object}	map[string]any
//	@Failure		401		{object}	httpx.ErrorResponse
//	@Failure		404		{object}	httpx.ErrorResponse
//	@Router			/static/catalogs/{name} [get].
func (s *Server) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.catalogs[r.PathValue("name")]
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "no such catalog")
		return
	}
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(cat)
}

// ResourceResponse is the body of a data request.
type ResourceResponse struct {
	Resource  string `json:"resource"`
	Principal string `json:"principal"`
	Records   []any  `json:"records"`
}

// HandleResource godoc
//
//	@Summary		Read a data object resource
//	@Tags			Data
//	@Produce		json
//	@Param			resource	path		string	true	"resource name"
//	@Success		200			{object}	ResourceResponse
//	@Failure		401			{object}	httpx.ErrorResponse	"error: token_expired when the access token has expired"
//	@Router			/rest/{resource} [get].
func (s *Server) HandleResource(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.PrincipalFromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, ResourceResponse{
		Resource:  r.PathValue("resource"),
		Principal: principal,
		Records:   []any{},
	})
}
