package auth

import (
	"context"
	"net/http"
	"sync"
)

// basicProtocol sends HTTP Basic credentials on every request. Username and
// password live in memory only and are never written to the store.
type basicProtocol struct {
	core *core

	mu       sync.RWMutex
	username string
	password string
}

func (b *basicProtocol) restore(ctx context.Context) error { return b.core.rehydrate(ctx) }

func (b *basicProtocol) validate(op string, creds Credentials) error {
	if creds.Username == "" {
		return invalidArgument(op, "username")
	}
	if creds.Password == "" {
		return invalidArgument(op, "password")
	}
	return nil
}

func (b *basicProtocol) login(ctx context.Context, creds Credentials) error {
	b.mu.Lock()
	b.username, b.password = creds.Username, creds.Password
	b.mu.Unlock()

	req, err := b.core.newRequest(ctx, http.MethodGet, b.core.endpoints.home, nil)
	if err != nil {
		b.reset(ctx)
		return generalFailure("login", err)
	}
	req.SetBasicAuth(creds.Username, creds.Password)

	status, body, err := b.core.do(req)
	return b.processLoginResult(ctx, status, body, err)
}

func (b *basicProtocol) processLoginResult(ctx context.Context, status int, body []byte, err error) error {
	return processSimpleResult(ctx, b, b.core, status, body, err)
}

func (b *basicProtocol) hasClientCredentials(context.Context) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.username != "" && b.password != ""
}

func (b *basicProtocol) hasRefreshToken(context.Context) bool { return false }

func (b *basicProtocol) authorize(_ context.Context, req *http.Request) error {
	b.mu.RLock()
	username, password := b.username, b.password
	b.mu.RUnlock()

	if username == "" || password == "" {
		return notAuthorized("authorize request")
	}
	req.SetBasicAuth(username, password)
	return nil
}

func (b *basicProtocol) logout(context.Context) error { return nil }

func (b *basicProtocol) reset(ctx context.Context) {
	b.mu.Lock()
	b.username, b.password = "", ""
	b.mu.Unlock()

	b.core.purge(ctx)
}
