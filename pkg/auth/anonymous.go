package auth

import (
	"context"
	"net/http"
)

// anonymousProtocol has no credential. Login is a ping of the home page.
type anonymousProtocol struct {
	core *core
}

func (a *anonymousProtocol) restore(ctx context.Context) error { return a.core.rehydrate(ctx) }

func (a *anonymousProtocol) validate(string, Credentials) error { return nil }

func (a *anonymousProtocol) login(ctx context.Context, _ Credentials) error {
	req, err := a.core.newRequest(ctx, http.MethodGet, a.core.endpoints.home, nil)
	if err != nil {
		return generalFailure("login", err)
	}
	status, body, err := a.core.do(req)
	return a.processLoginResult(ctx, status, body, err)
}

func (a *anonymousProtocol) processLoginResult(ctx context.Context, status int, body []byte, err error) error {
	return processSimpleResult(ctx, a, a.core, status, body, err)
}

func (a *anonymousProtocol) hasClientCredentials(context.Context) bool { return a.core.isLoggedIn() }

func (a *anonymousProtocol) hasRefreshToken(context.Context) bool { return false }

func (a *anonymousProtocol) authorize(ctx context.Context, _ *http.Request) error {
	if !a.hasClientCredentials(ctx) {
		return notAuthorized("authorize request")
	}
	return nil
}

func (a *anonymousProtocol) logout(context.Context) error { return nil }

func (a *anonymousProtocol) reset(ctx context.Context) { a.core.purge(ctx) }
