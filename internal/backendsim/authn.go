package backendsim

import (
	"errors"
	"net/http"
	"strings"

	"github.com/progress/jsdo/pkg/auth"
	"github.com/progress/jsdo/pkg/httpx"
	"github.com/progress/jsdo/pkg/jwtx"
)

// SessionCookie is the form login session cookie.
const SessionCookie = "JSESSIONID"

// Error codes written in 401 bodies.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidToken       = "invalid_token"
	CodeTokenExpired       = auth.ExpiredTokenCode
	CodeInvalidGrant       = "invalid_grant"
	CodeNoCredentials      = "unauthorized"
)

var errNoCredentials = &httpx.AuthError{Code: CodeNoCredentials, Description: "authentication required"}

// authenticator accepts every mechanism the SDK can send: Basic, Bearer,
// oecp access tokens and the form session cookie.
type authenticator struct {
	users    *userDirectory
	sessions *sessionRegistry
	verifier jwtx.Verifier
	bearer   map[string]string
}

func (a *authenticator) Authenticate(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, credential, _ := strings.Cut(header, " ")
		switch strings.ToLower(scheme) {
		case "basic":
			return a.basic(r)
		case "bearer":
			if user, ok := a.bearer[credential]; ok {
				return user, nil
			}
			return "", &httpx.AuthError{Code: CodeInvalidToken, Description: "unknown bearer token"}
		case auth.SSOScheme:
			return a.accessToken(credential)
		default:
			return "", &httpx.AuthError{Code: CodeInvalidToken, Description: "unsupported authorization scheme"}
		}
	}

	if c, err := r.Cookie(SessionCookie); err == nil {
		s, err := a.sessions.get(c.Value)
		if err != nil {
			return "", &httpx.AuthError{Code: CodeInvalidToken, Description: "session has ended"}
		}
		return s.Username, nil
	}

	return "", errNoCredentials
}

func (a *authenticator) basic(r *http.Request) (string, error) {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return "", &httpx.AuthError{Code: CodeInvalidCredentials, Description: "malformed basic credentials"}
	}
	if err := a.users.verify(user, pass); err != nil {
		return "", &httpx.AuthError{Code: CodeInvalidCredentials, Description: "invalid username or password"}
	}
	return user, nil
}

func (a *authenticator) accessToken(token string) (string, error) {
	claims, err := a.verifier.Verify(token)
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return "", &httpx.AuthError{Code: CodeTokenExpired, Description: "access token has expired"}
	case err != nil:
		return "", &httpx.AuthError{Code: CodeInvalidToken, Description: "access token is not valid"}
	}

	if _, err := a.sessions.get(claims.SID); err != nil {
		return "", &httpx.AuthError{Code: CodeInvalidToken, Description: "session has ended"}
	}
	return claims.Username, nil
}

// optional lets requests without any credentials through as "anonymous".
// Credentials that are present must still be valid.
func optional(a httpx.Authenticator) httpx.Authenticator {
	return httpx.AuthenticatorFunc(func(r *http.Request) (string, error) {
		principal, err := a.Authenticate(r)
		if errors.Is(err, errNoCredentials) {
			return "anonymous", nil
		}
		return principal, err
	})
}
