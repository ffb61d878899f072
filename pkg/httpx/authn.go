package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/progress/jsdo/pkg/slogx"
)

type ctxKey string

const ctxKeyPrincipal ctxKey = "principal"

// AuthError is returned by an Authenticator to reject a request with a
// specific error code, e.g. "token_expired".
type AuthError struct {
	Code        string
	Description string
}

func (e *AuthError) Error() string { return e.Code + ": " + e.Description }

// Authenticator resolves the principal behind a request.
type Authenticator interface {
	Authenticate(r *http.Request) (principal string, err error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(r *http.Request) (string, error)

func (f AuthenticatorFunc) Authenticate(r *http.Request) (string, error) { return f(r) }

// AuthnMiddleware rejects requests the Authenticator does not accept with a
// 401 JSON body and stores the principal in the request context otherwise.
func AuthnMiddleware(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := a.Authenticate(r)
			if err != nil {
				var authErr *AuthError
				if !errors.As(err, &authErr) {
					authErr = &AuthError{Code: "unauthorized", Description: "authentication required"}
				}
				slogx.FromContext(r.Context()).Debug("authentication rejected", "code", authErr.Code, "err", err)
				WriteError(w, http.StatusUnauthorized, authErr.Code, authErr.Description)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyPrincipal, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext returns the principal set by AuthnMiddleware.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(string)
	return p, ok
}

// PrincipalKeyExtractor keys rate limits by authenticated principal.
func PrincipalKeyExtractor(r *http.Request) string {
	p, _ := PrincipalFromContext(r.Context())
	return p
}
