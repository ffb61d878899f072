package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Provider owns the credential state for one backend endpoint and one
// authentication model. It is safe for concurrent use.
type Provider struct {
	uri   string
	model Model

	core  *core
	proto protocol
	jar   *sessionJar

	mu        sync.Mutex
	loggingIn bool
}

// NewProvider returns the provider for model at uri. One trailing slash is
// trimmed from uri. The logged-in state persisted in the store by an earlier
// provider for the same URI is restored.
func NewProvider(ctx context.Context, uri, model string, opts ...Option) (*Provider, error) {
	const op = "new provider"

	if uri == "" {
		return nil, invalidArgument(op, "uri")
	}
	uri = strings.TrimSuffix(uri, "/")
	if u, err := url.Parse(uri); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &Error{Kind: KindInvalidArgument, Op: op, Message: `uri "` + uri + `" must be an absolute URL`, Err: err}
	}

	m, err := ParseModel(model)
	if err != nil {
		return nil, err
	}

	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	p := &Provider{uri: uri, model: m}

	if m == ModelForm || m == ModelSSO {
		p.jar = newSessionJar()
		client := *o.client
		client.Jar = p.jar
		o.client = &client
	}

	p.core = newCore(uri, m, o)
	p.proto = newProtocol(p.core, p.jar)

	if err := p.proto.restore(ctx); err != nil {
		return nil, err
	}
	if o.autoRefresh != nil {
		if r, ok := p.proto.(refresher); ok {
			if err := r.setAutomaticTokenRefresh(ctx, *o.autoRefresh); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

// URI returns the canonical service URI.
func (p *Provider) URI() string { return p.uri }

// Model returns the authentication model.
func (p *Provider) Model() Model { return p.model }

// LoggedIn reports the logged-in flag.
func (p *Provider) LoggedIn() bool { return p.core.isLoggedIn() }

// Login authenticates with the backend. Argument and state preconditions are
// checked before any request is sent: empty credentials fail with
// InvalidArgument, and a logged-in provider (or one with a Login already in
// flight) fails with AlreadyLoggedIn. A basic or bearer provider restored
// from the store without its in-memory secret may log in again. On any
// failure the credential is rolled back.
func (p *Provider) Login(ctx context.Context, creds Credentials) error {
	const op = "login"

	if err := p.proto.validate(op, creds); err != nil {
		return err
	}

	p.mu.Lock()
	if p.loggingIn || (p.core.isLoggedIn() && !p.restoredWithoutSecret(ctx)) {
		p.mu.Unlock()
		return &Error{Kind: KindAlreadyLoggedIn, Op: op, Message: "logout before logging in again"}
	}
	p.loggingIn = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.loggingIn = false
		p.mu.Unlock()
	}()

	if err := p.proto.login(ctx, creds); err != nil {
		p.core.logger.InfoContext(ctx, "login failed", "kind", KindOf(err).String())
		return err
	}
	p.core.logger.InfoContext(ctx, "logged in")
	return nil
}

// restoredWithoutSecret reports a basic or bearer provider whose logged-in
// flag came from the store while its secret, kept in memory only, did not.
func (p *Provider) restoredWithoutSecret(ctx context.Context) bool {
	return (p.model == ModelBasic || p.model == ModelBearer) && !p.proto.hasClientCredentials(ctx)
}

// Logout ends the session. Local state is cleared even when the server-side
// logout fails; that failure is still returned.
func (p *Provider) Logout(ctx context.Context) error {
	err := p.proto.logout(ctx)
	p.proto.reset(ctx)

	if err != nil {
		p.core.logger.WarnContext(ctx, "server logout failed, local state cleared", "err", err)
		return err
	}
	p.core.logger.InfoContext(ctx, "logged out")
	return nil
}

// Refresh exchanges the refresh token for a new access token. Only the SSO
// model supports it.
func (p *Provider) Refresh(ctx context.Context) error {
	r, ok := p.proto.(refresher)
	if !ok {
		return &Error{Kind: KindWrongMethodForModel, Op: "refresh", Message: "refresh is only supported by the sso model, not " + string(p.model)}
	}
	return r.refresh(ctx)
}

// HasClientCredentials reports whether requests can currently be
// authorized.
func (p *Provider) HasClientCredentials(ctx context.Context) bool {
	return p.proto.hasClientCredentials(ctx)
}

// HasRefreshToken reports whether a refresh token is stored. Always false
// outside the SSO model.
func (p *Provider) HasRefreshToken(ctx context.Context) bool {
	return p.proto.hasRefreshToken(ctx)
}

// AutomaticTokenRefresh reports whether AuthorizeRequest refreshes an
// expiring SSO token first.
func (p *Provider) AutomaticTokenRefresh() bool {
	if r, ok := p.proto.(refresher); ok {
		return r.automaticTokenRefresh()
	}
	return false
}

// SetAutomaticTokenRefresh enables or disables automatic refresh and
// persists the choice.
func (p *Provider) SetAutomaticTokenRefresh(ctx context.Context, enabled bool) error {
	r, ok := p.proto.(refresher)
	if !ok {
		return &Error{Kind: KindWrongMethodForModel, Op: "set automatic token refresh", Message: "only supported by the sso model"}
	}
	return r.setAutomaticTokenRefresh(ctx, enabled)
}

// AccessTokenExpiration returns the instant after which automatic refresh
// will run. It is false when no refresh token is stored.
func (p *Provider) AccessTokenExpiration(ctx context.Context) (time.Time, bool) {
	if s, ok := p.proto.(*ssoProtocol); ok {
		return s.expiration(ctx)
	}
	return time.Time{}, false
}

// AuthorizeRequest stamps req with the current credential, refreshing an
// expiring SSO token first when automatic refresh is on. If no credential is
// available it fails with NotAuthorized and req must not be sent.
func (p *Provider) AuthorizeRequest(ctx context.Context, req *http.Request) error {
	setStandardHeaders(req)
	return p.proto.authorize(ctx, req)
}
