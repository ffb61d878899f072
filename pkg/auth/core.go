package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/progress/jsdo/pkg/credstore"
	"github.com/progress/jsdo/pkg/idx"
	"github.com/progress/jsdo/pkg/slogx"
)

// Path suffixes appended to the service URI.
const (
	PathHome    = "/static/home.html"
	PathLogin   = "/static/auth/j_spring_security_check"
	PathLogout  = "/static/auth/j_spring_security_logout"
	PathRefresh = "/static/auth/token"
)

// maxBodySize bounds how much of a response body is read for tokens or
// error reporting.
const maxBodySize = 1 << 20

// loginResult is the outcome of processing a login response.
type loginResult int

const (
	resultSuccess loginResult = iota
	resultAuthenticationFailure
	resultGeneralFailure
)

// endpoints are the per-protocol URIs built at construction.
type endpoints struct {
	home    string
	login   string
	logout  string
	refresh string
}

// core is the shared base strategy every protocol delegates to by name. It
// owns the URI, the store namespace, the HTTP client and the logged-in flag.
type core struct {
	uri       string
	model     Model
	endpoints endpoints
	ns        *credstore.Namespace
	client    *http.Client
	logger    *slog.Logger
	codes     *errorCodeQuery

	mu       sync.RWMutex
	loggedIn bool
}

func newCore(uri string, model Model, o *options) *core {
	return &core{
		uri:   uri,
		model: model,
		endpoints: endpoints{
			home:    uri + PathHome,
			login:   uri + PathLogin,
			logout:  uri + PathLogout,
			refresh: uri + PathRefresh + "?op=refresh",
		},
		ns:     credstore.NewNamespace(o.store, uri),
		client: o.client,
		logger: o.logger.With("uri", uri, "model", string(model)),
		codes:  o.codes,
	}
}

// rehydrate restores loggedIn from the store and records the URI.
func (c *core) rehydrate(ctx context.Context) error {
	loggedIn, _, err := c.ns.GetBool(ctx, credstore.FieldLoggedIn)
	if err != nil {
		return generalFailure("rehydrate", err)
	}

	c.mu.Lock()
	c.loggedIn = loggedIn
	c.mu.Unlock()

	if err := c.ns.SetJSON(ctx, credstore.FieldURI, c.uri); err != nil {
		return generalFailure("rehydrate", err)
	}
	return nil
}

func (c *core) isLoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loggedIn
}

// setLoggedIn marks the provider logged in and persists the flag.
func (c *core) setLoggedIn(ctx context.Context) error {
	c.mu.Lock()
	c.loggedIn = true
	c.mu.Unlock()

	if err := c.ns.SetJSON(ctx, credstore.FieldURI, c.uri); err != nil {
		return err
	}
	return c.ns.SetJSON(ctx, credstore.FieldLoggedIn, true)
}

// whileLoggedIn runs fn with the logged-in flag held. A concurrent purge
// either completes first, and fn is skipped, or waits for fn and then clears
// what it wrote.
func (c *core) whileLoggedIn(fn func() error) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loggedIn {
		return false, nil
	}
	return true, fn()
}

// purge clears the logged-in flag and every persisted field. Store errors
// are logged; local state is cleared regardless.
func (c *core) purge(ctx context.Context) {
	c.mu.Lock()
	c.loggedIn = false
	c.mu.Unlock()

	if err := c.ns.Clear(ctx); err != nil {
		c.logger.WarnContext(ctx, "failed to clear credential store", "err", err)
	}
}

// newRequest builds a request with the headers every SDK call carries.
func (c *core) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setStandardHeaders(req)
	return req, nil
}

// do sends req and returns the status and body. The body is always drained
// and closed.
func (c *core) do(req *http.Request) (int, []byte, error) {
	ctx := slogx.WithRequestID(req.Context(), req.Header.Get(slogx.RequestIDHeader))
	log := slogx.FromContext(ctx)

	resp, err := c.client.Do(req)
	if err != nil {
		log.DebugContext(ctx, "request failed", "url", req.URL.Redacted(), "err", err)
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// classify maps a transport outcome to a login result.
func classify(status int, err error) loginResult {
	switch {
	case err != nil:
		return resultGeneralFailure
	case status == http.StatusOK:
		return resultSuccess
	case status == http.StatusUnauthorized:
		return resultAuthenticationFailure
	default:
		return resultGeneralFailure
	}
}

// resultError converts a non-success result into an *Error carrying the
// status and body. A 401 with the expired-token code becomes ExpiredToken.
func (c *core) resultError(op string, result loginResult, status int, body []byte, err error) error {
	if result == resultSuccess {
		return nil
	}

	e := &Error{Op: op, StatusCode: status, Body: string(body), Err: err}
	switch result {
	case resultAuthenticationFailure:
		e.Kind = KindAuthenticationFailure
		if c.codes.isExpired(body) {
			e.Kind = KindExpiredToken
		}
	default:
		e.Kind = KindGeneralFailure
	}
	return e
}

// logoutRequest issues the server-side logout. A 401 means the session had
// already expired and counts as success.
func (c *core) logoutRequest(ctx context.Context) error {
	const op = "logout"

	req, err := c.newRequest(ctx, http.MethodGet, c.endpoints.logout, nil)
	if err != nil {
		return generalFailure(op, err)
	}

	status, body, err := c.do(req)
	switch {
	case err != nil:
		return generalFailure(op, err)
	case status == http.StatusOK || status == http.StatusUnauthorized:
		return nil
	default:
		return &Error{Kind: KindGeneralFailure, Op: op, StatusCode: status, Body: string(body)}
	}
}

// setStandardHeaders asks for machine-readable errors and defeats caches.
// Existing values are kept.
func setStandardHeaders(req *http.Request) {
	setDefault(req.Header, "Accept", "application/json")
	setDefault(req.Header, "Cache-Control", "no-cache")
	setDefault(req.Header, "Pragma", "no-cache")
	setDefault(req.Header, slogx.RequestIDHeader, idx.New().String())
}

func setDefault(h http.Header, key, value string) {
	if h.Get(key) == "" {
		h.Set(key, value)
	}
}

// storeFailure wraps a store error raised while processing a result.
func storeFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	return generalFailure(op, errors.Join(errors.New("credential store"), err))
}
