package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/progress/jsdo/pkg/auth"
	"github.com/progress/jsdo/pkg/credstore"
	"github.com/progress/jsdo/pkg/slogx"
	"github.com/stretchr/testify/require"
)

// recorded is one request seen by the stub backend.
type recorded struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

// stubBackend is an httptest server with per-path handlers that records
// every request it receives.
type stubBackend struct {
	srv *httptest.Server

	mu       sync.Mutex
	calls    []recorded
	handlers map[string]http.HandlerFunc
}

func newStubBackend(t *testing.T) *stubBackend {
	t.Helper()

	s := &stubBackend{handlers: make(map[string]http.HandlerFunc)}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		s.mu.Lock()
		s.calls = append(s.calls, recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   string(body),
		})
		h, ok := s.handlers[r.URL.Path]
		s.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		h(w, r)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

// uri is the service URI providers are pointed at.
func (s *stubBackend) uri() string { return s.srv.URL + "/App" }

func (s *stubBackend) handle(path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers["/App"+path] = h
}

func (s *stubBackend) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.calls {
		if c.Path == "/App"+path {
			n++
		}
	}
	return n
}

func (s *stubBackend) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubBackend) last(path string) recorded {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.calls) - 1; i >= 0; i-- {
		if s.calls[i].Path == "/App"+path {
			return s.calls[i]
		}
	}
	return recorded{}
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}
}

func jsonBody(code int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(v)
	}
}

func tokens(access, refresh string, expiresIn int) map[string]any {
	m := map[string]any{
		"access_token": access,
		"token_type":   "bearer",
		"expires_in":   expiresIn,
	}
	if refresh != "" {
		m["refresh_token"] = refresh
	}
	return m
}

func newProvider(t *testing.T, uri, model string, store credstore.Store, opts ...auth.Option) *auth.Provider {
	t.Helper()

	opts = append([]auth.Option{auth.WithStore(store), auth.WithLogger(slogx.Discard())}, opts...)
	p, err := auth.NewProvider(context.Background(), uri, model, opts...)
	require.NoError(t, err)
	return p
}

// secretFields are the store fields that hold credential material.
var secretFields = []string{
	credstore.FieldAccessToken,
	credstore.FieldRefreshToken,
	credstore.FieldLoggedIn,
	credstore.FieldAccessTokenExpiration,
}

func requireNoSecrets(t *testing.T, store *credstore.Memory, uri string) {
	t.Helper()

	ns := credstore.NewNamespace(store, uri)
	for _, f := range secretFields {
		_, err := store.Get(context.Background(), ns.Key(f))
		require.ErrorIs(t, err, credstore.ErrNotFound, "field %s should not be stored", f)
	}
}

func newGetRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	require.NoError(t, err)
	return req
}
