package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/progress/jsdo/pkg/auth"
	"github.com/progress/jsdo/pkg/credstore"
	"github.com/progress/jsdo/pkg/slogx"
)

// maxBodySize bounds how much of a catalog or ping response is read.
const maxBodySize = 8 << 20

// Session binds an authentication provider to a service URI. Data requests
// and catalog fetches go through the bound provider and are refused while
// it has no client credentials.
type Session struct {
	serviceURI string
	model      auth.Model
	client     *http.Client
	logger     *slog.Logger
	store      credstore.Store
	loader     CatalogLoader

	mu        sync.RWMutex
	provider  *auth.Provider
	connected bool
	// internal is the provider built by Login, owned by the session.
	internal *auth.Provider
	catalogs map[string]*Catalog
}

// New returns an unconnected session for serviceURI. One trailing slash is
// trimmed.
func New(serviceURI string, opts ...Option) (*Session, error) {
	const op = "new session"

	if serviceURI == "" {
		return nil, auth.NewError(auth.KindInvalidArgument, op, "service uri must be a non-empty string")
	}
	serviceURI = strings.TrimSuffix(serviceURI, "/")
	if u, err := url.Parse(serviceURI); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, auth.NewError(auth.KindInvalidArgument, op, "service uri %q must be an absolute URL", serviceURI)
	}

	o := buildOptions(opts)
	model, err := auth.ParseModel(o.model)
	if err != nil {
		return nil, err
	}

	return &Session{
		serviceURI: serviceURI,
		model:      model,
		client:     o.client,
		logger:     o.logger.With("service", serviceURI),
		store:      o.store,
		loader:     o.loader,
		catalogs:   make(map[string]*Catalog),
	}, nil
}

// ServiceURI returns the canonical service URI.
func (s *Session) ServiceURI() string { return s.serviceURI }

// Connected reports whether a provider is bound.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Provider returns the bound provider, or nil.
func (s *Session) Provider() *auth.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

// Connect pings the service through p and binds p on success. A provider
// without client credentials fails with NotAuthorized before any request.
// On failure the session is left unbound.
func (s *Session) Connect(ctx context.Context, p *auth.Provider) error {
	const op = "connect"

	if p == nil {
		return auth.NewError(auth.KindInvalidArgument, op, "provider must not be nil")
	}
	if !p.HasClientCredentials(ctx) {
		return auth.NewError(auth.KindNotAuthorized, op, "provider has no client credentials, log in first")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.serviceURI+auth.PathHome, nil)
	if err != nil {
		return &auth.Error{Kind: auth.KindGeneralFailure, Op: op, Err: err}
	}

	if _, err := s.fetch(op, p, req); err != nil {
		s.logger.InfoContext(ctx, "connect failed", "kind", auth.KindOf(err).String())
		return err
	}

	s.mu.Lock()
	s.provider = p
	s.connected = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "connected", "model", p.Model().String())
	return nil
}

// Disconnect unbinds the provider. It never touches provider state and
// is safe to call repeatedly.
func (s *Session) Disconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.provider = nil
	s.connected = false
	return nil
}

// Login is the built-in credential path: it logs in a session-owned
// provider of the session's model and connects it. The sso and bearer
// models fail with WrongMethodForModel; log in a provider and use Connect.
func (s *Session) Login(ctx context.Context, username, password string) error {
	const op = "login"

	if s.model == auth.ModelSSO || s.model == auth.ModelBearer {
		return auth.NewError(auth.KindWrongMethodForModel, op,
			"username and password login is not available for the %s model, log in an auth.Provider and call Connect", s.model)
	}

	p, err := s.internalProvider(ctx)
	if err != nil {
		return err
	}

	if err := p.Login(ctx, auth.Credentials{Username: username, Password: password}); err != nil {
		return err
	}

	if err := s.Connect(ctx, p); err != nil {
		if lerr := p.Logout(ctx); lerr != nil {
			s.logger.WarnContext(ctx, "logout after failed connect", "err", lerr)
		}
		return err
	}
	return nil
}

// internalProvider returns the session-owned provider, creating it on first
// use.
func (s *Session) internalProvider(ctx context.Context) (*auth.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.internal != nil {
		return s.internal, nil
	}

	p, err := auth.NewProvider(ctx, s.serviceURI, string(s.model),
		auth.WithStore(s.store),
		auth.WithHTTPClient(s.client),
		auth.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	s.internal = p
	return p, nil
}

// Logout logs out the provider created by Login, if any, then disconnects.
// Providers bound through Connect are left to their owner.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	p := s.internal
	s.internal = nil
	s.mu.Unlock()

	var err error
	if p != nil {
		err = p.Logout(ctx)
	}
	return errors.Join(err, s.Disconnect(ctx))
}

// AddCatalog fetches and loads each catalog. Relative URIs resolve against
// the service URI. The fetch is authorized by the WithProvider provider, a
// short-lived provider logged in with WithCredentials, or the connected
// provider, in that order. Failures for individual catalogs are joined.
func (s *Session) AddCatalog(ctx context.Context, uris []string, opts ...CatalogOption) error {
	const op = "add catalog"

	if len(uris) == 0 {
		return auth.NewError(auth.KindInvalidArgument, op, "at least one catalog uri is required")
	}
	for _, u := range uris {
		if u == "" {
			return auth.NewError(auth.KindInvalidArgument, op, "catalog uri must be a non-empty string")
		}
	}

	var o catalogOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.hasCreds {
		switch {
		case s.model == auth.ModelSSO:
			return auth.NewError(auth.KindInvalidOperation, op,
				"username and password cannot be used with the sso model, pass an authenticated provider with WithProvider")
		case !s.model.UsesCredentials():
			return auth.NewError(auth.KindInvalidOperation, op,
				"username and password are not used by the %s model", s.model)
		}
	}

	p := o.provider
	if p == nil && o.hasCreds {
		tmp, err := s.credentialProvider(ctx, o.username, o.password)
		if err != nil {
			return err
		}
		defer func() {
			if err := tmp.Logout(ctx); err != nil {
				s.logger.WarnContext(ctx, "catalog provider logout failed", "err", err)
			}
		}()
		p = tmp
	}
	if p == nil {
		p = s.Provider()
	}
	if p == nil || !p.HasClientCredentials(ctx) {
		return auth.NewError(auth.KindNotAuthorized, op, "no provider with client credentials, connect or pass WithProvider")
	}

	var errs []error
	for _, raw := range uris {
		if err := s.loadCatalog(ctx, p, raw); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// credentialProvider logs in a provider backed by a private in-memory store
// so its state never leaks into the session store.
func (s *Session) credentialProvider(ctx context.Context, username, password string) (*auth.Provider, error) {
	p, err := auth.NewProvider(ctx, s.serviceURI, string(s.model),
		auth.WithStore(credstore.NewMemory()),
		auth.WithHTTPClient(s.client),
		auth.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	if err := p.Login(ctx, auth.Credentials{Username: username, Password: password}); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Session) loadCatalog(ctx context.Context, p *auth.Provider, raw string) error {
	const op = "add catalog"

	uri, err := s.resolve(raw)
	if err != nil {
		return auth.NewError(auth.KindInvalidArgument, op, "catalog uri %q: %v", raw, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return &auth.Error{Kind: auth.KindGeneralFailure, Op: op, Err: err}
	}

	body, err := s.fetch(op, p, req)
	if err != nil {
		return err
	}

	cat, err := s.loader.LoadCatalog(ctx, uri, body)
	if err != nil {
		return &auth.Error{Kind: auth.KindGeneralFailure, Op: op, Message: "failed to load catalog", Err: err}
	}

	s.mu.Lock()
	s.catalogs[uri] = cat
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "catalog loaded", "catalog", uri, "resources", len(cat.Resources))
	return nil
}

// resolve makes raw absolute against the service URI.
func (s *Session) resolve(raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	base, err := url.Parse(s.serviceURI + "/")
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// Catalogs returns the URIs of loaded catalogs, sorted.
func (s *Session) Catalogs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]string, 0, len(s.catalogs))
	for u := range s.catalogs {
		uris = append(uris, u)
	}
	sort.Strings(uris)
	return uris
}

// Catalog returns a loaded catalog by its resolved URI.
func (s *Session) Catalog(uri string) (*Catalog, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if resolved, err := s.resolve(uri); err == nil {
		uri = resolved
	}
	c, ok := s.catalogs[uri]
	return c, ok
}

// Do sends a data request through the connected provider. It fails with
// NotAuthorized, without sending, when the session is not connected or the
// provider has lost its credentials. The caller closes the response body.
func (s *Session) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	const op = "do"

	s.mu.RLock()
	p, connected := s.provider, s.connected
	s.mu.RUnlock()

	if !connected || p == nil {
		return nil, auth.NewError(auth.KindNotAuthorized, op, "session is not connected")
	}
	if !p.HasClientCredentials(ctx) {
		return nil, auth.NewError(auth.KindNotAuthorized, op, "provider has no client credentials, request not sent")
	}

	return s.authorizedClient(p).Do(req.WithContext(ctx))
}

// authorizedClient wraps the session client's transport with p and debug
// request logging. Cookies go to the provider's jar when it has one, so a
// rotated session cookie reaches later requests.
func (s *Session) authorizedClient(p *auth.Provider) *http.Client {
	base := &slogx.Transport{Base: s.client.Transport, Logger: s.logger}
	jar := p.Jar()
	if jar == nil {
		jar = s.client.Jar
	}
	return &http.Client{
		Transport:     p.Transport(base),
		Jar:           jar,
		Timeout:       s.client.Timeout,
		CheckRedirect: s.client.CheckRedirect,
	}
}

// fetch sends an authorized request and returns the body of a 200
// response. Other statuses are classified the way login results are.
func (s *Session) fetch(op string, p *auth.Provider, req *http.Request) ([]byte, error) {
	resp, err := s.authorizedClient(p).Do(req)
	if err != nil {
		var authErr *auth.Error
		if errors.As(err, &authErr) {
			return nil, authErr
		}
		return nil, &auth.Error{Kind: auth.KindGeneralFailure, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &auth.Error{Kind: auth.KindGeneralFailure, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized:
		return nil, &auth.Error{Kind: auth.KindAuthenticationFailure, Op: op, Message: req.URL.Path, StatusCode: resp.StatusCode, Body: string(body)}
	default:
		return nil, &auth.Error{Kind: auth.KindGeneralFailure, Op: op, Message: req.URL.Path, StatusCode: resp.StatusCode, Body: string(body)}
	}
}
