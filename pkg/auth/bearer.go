package auth

import (
	"context"
	"net/http"
	"sync"
)

// bearerProtocol sends a caller-supplied token. The token lives in memory
// only.
type bearerProtocol struct {
	core *core

	mu    sync.RWMutex
	token string
}

func (b *bearerProtocol) restore(ctx context.Context) error { return b.core.rehydrate(ctx) }

func (b *bearerProtocol) validate(op string, creds Credentials) error {
	if creds.Token == "" {
		return invalidArgument(op, "token")
	}
	return nil
}

func (b *bearerProtocol) login(ctx context.Context, creds Credentials) error {
	b.mu.Lock()
	b.token = creds.Token
	b.mu.Unlock()

	req, err := b.core.newRequest(ctx, http.MethodGet, b.core.endpoints.home, nil)
	if err != nil {
		b.reset(ctx)
		return generalFailure("login", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token)

	status, body, err := b.core.do(req)
	return b.processLoginResult(ctx, status, body, err)
}

func (b *bearerProtocol) processLoginResult(ctx context.Context, status int, body []byte, err error) error {
	return processSimpleResult(ctx, b, b.core, status, body, err)
}

func (b *bearerProtocol) hasClientCredentials(context.Context) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token != ""
}

func (b *bearerProtocol) hasRefreshToken(context.Context) bool { return false }

func (b *bearerProtocol) authorize(_ context.Context, req *http.Request) error {
	b.mu.RLock()
	token := b.token
	b.mu.RUnlock()

	if token == "" {
		return notAuthorized("authorize request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (b *bearerProtocol) logout(context.Context) error { return nil }

func (b *bearerProtocol) reset(ctx context.Context) {
	b.mu.Lock()
	b.token = ""
	b.mu.Unlock()

	b.core.purge(ctx)
}
