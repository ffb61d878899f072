package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Songmu/flextime"
	"github.com/progress/jsdo/pkg/auth"
	"github.com/progress/jsdo/pkg/credstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var ssoCreds = auth.Credentials{Username: "u", Password: "p"}

// refreshSequence answers successive refresh calls with the given token
// responses, repeating the last one.
func refreshSequence(responses ...map[string]any) http.HandlerFunc {
	var n atomic.Int32
	return func(w http.ResponseWriter, r *http.Request) {
		i := int(n.Add(1)) - 1
		if i >= len(responses) {
			i = len(responses) - 1
		}
		jsonBody(http.StatusOK, responses[i])(w, r)
	}
}

func loggedInSSO(t *testing.T, stub *stubBackend, store *credstore.Memory, opts ...auth.Option) *auth.Provider {
	t.Helper()

	stub.handle(auth.PathLogin, jsonBody(http.StatusOK, tokens("A", "R", 100)))
	stub.handle(auth.PathLogout, status(http.StatusOK))

	p := newProvider(t, stub.uri(), "sso", store, opts...)
	require.NoError(t, p.Login(context.Background(), ssoCreds))
	return p
}

func authorizationOf(t *testing.T, p *auth.Provider) (string, error) {
	t.Helper()

	req := newGetRequest(t, "http://example.invalid/rest/Customers")
	err := p.AuthorizeRequest(context.Background(), req)
	return req.Header.Get("Authorization"), err
}

// SSO login followed by two refreshes. Uses a fixed clock so it is not
// parallel.
func TestSSO_LoginAndRefresh(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	restore := flextime.Fix(now)
	defer restore()

	stub := newStubBackend(t)
	stub.handle(auth.PathRefresh, refreshSequence(tokens("B", "R2", 100), tokens("C", "R3", 100)))
	store := credstore.NewMemory()
	p := loggedInSSO(t, stub, store)

	login := stub.last(auth.PathLogin)
	require.Equal(t, http.MethodPost, login.Method)
	require.Equal(t, "OECP=yes", login.Query)

	require.True(t, p.HasClientCredentials(ctx))
	require.True(t, p.HasRefreshToken(ctx))

	exp, ok := p.AccessTokenExpiration(ctx)
	require.True(t, ok)
	require.Equal(t, now.UnixMilli()+75000, exp.UnixMilli())

	header, err := authorizationOf(t, p)
	require.NoError(t, err)
	require.Equal(t, "oecp A", header)

	require.NoError(t, p.Refresh(ctx))
	call := stub.last(auth.PathRefresh)
	require.Equal(t, http.MethodPost, call.Method)
	require.Equal(t, "op=refresh", call.Query)
	require.Equal(t, "application/json", call.Header.Get("Content-Type"))

	var sent map[string]string
	require.NoError(t, json.Unmarshal([]byte(call.Body), &sent))
	require.Equal(t, map[string]string{"token_type": "bearer", "refresh_token": "R"}, sent)

	header, err = authorizationOf(t, p)
	require.NoError(t, err)
	require.Equal(t, "oecp B", header)

	require.NoError(t, p.Refresh(ctx))
	require.NoError(t, json.Unmarshal([]byte(stub.last(auth.PathRefresh).Body), &sent))
	require.Equal(t, "R2", sent["refresh_token"])

	header, err = authorizationOf(t, p)
	require.NoError(t, err)
	require.Equal(t, "oecp C", header)
	require.Equal(t, 2, stub.count(auth.PathRefresh))
}

func TestSSO_RefreshPreconditions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("not logged in", func(t *testing.T) {
		stub := newStubBackend(t)
		p := newProvider(t, stub.uri(), "sso", credstore.NewMemory())

		require.ErrorIs(t, p.Refresh(ctx), auth.ErrNotLoggedIn)
		require.Zero(t, stub.total())
	})

	t.Run("no refresh token", func(t *testing.T) {
		stub := newStubBackend(t)
		stub.handle(auth.PathLogin, jsonBody(http.StatusOK, tokens("A", "", 100)))
		p := newProvider(t, stub.uri(), "sso", credstore.NewMemory())
		require.NoError(t, p.Login(ctx, ssoCreds))

		require.False(t, p.HasRefreshToken(ctx))
		_, ok := p.AccessTokenExpiration(ctx)
		require.False(t, ok)

		require.ErrorIs(t, p.Refresh(ctx), auth.ErrNoRefreshToken)
		require.Zero(t, stub.count(auth.PathRefresh))
	})
}

func TestSSO_RefreshWithoutRotation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	stub := newStubBackend(t)
	stub.handle(auth.PathRefresh, jsonBody(http.StatusOK, tokens("B", "", 100)))
	p := loggedInSSO(t, stub, credstore.NewMemory())

	require.NoError(t, p.Refresh(ctx))
	require.True(t, p.HasClientCredentials(ctx))
	require.False(t, p.HasRefreshToken(ctx))
	_, ok := p.AccessTokenExpiration(ctx)
	require.False(t, ok)

	require.ErrorIs(t, p.Refresh(ctx), auth.ErrNoRefreshToken)
	require.Equal(t, 1, stub.count(auth.PathRefresh))
}

func TestSSO_RefreshFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name      string
		handler   http.HandlerFunc
		opts      []auth.Option
		wantIs    []error
		wantState bool
	}{
		{
			name:    "rejected",
			handler: jsonBody(http.StatusUnauthorized, map[string]string{"error": "invalid_grant"}),
			wantIs:  []error{auth.ErrAuthenticationFailure},
		},
		{
			name:    "expired",
			handler: jsonBody(http.StatusUnauthorized, map[string]string{"error": auth.ExpiredTokenCode}),
			wantIs:  []error{auth.ErrExpiredToken, auth.ErrAuthenticationFailure},
		},
		{
			name:    "expired under custom selector",
			handler: jsonBody(http.StatusUnauthorized, map[string]any{"fault": map[string]string{"code": auth.ExpiredTokenCode}}),
			opts:    []auth.Option{auth.WithErrorCodeQuery(".fault.code")},
			wantIs:  []error{auth.ErrExpiredToken},
		},
		{
			name: "unparsable success",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			wantIs: []error{auth.ErrGeneralFailure},
		},
		{
			name:      "server error keeps state",
			handler:   status(http.StatusInternalServerError),
			wantIs:    []error{auth.ErrGeneralFailure},
			wantState: true,
		},
		{
			name:      "bad gateway keeps state",
			handler:   status(http.StatusBadGateway),
			wantIs:    []error{auth.ErrGeneralFailure},
			wantState: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stub := newStubBackend(t)
			stub.handle(auth.PathRefresh, tt.handler)
			store := credstore.NewMemory()
			p := loggedInSSO(t, stub, store, tt.opts...)

			err := p.Refresh(ctx)
			for _, target := range tt.wantIs {
				require.ErrorIs(t, err, target)
			}

			var authErr *auth.Error
			require.ErrorAs(t, err, &authErr)
			require.NotZero(t, authErr.StatusCode)

			require.Equal(t, tt.wantState, p.HasClientCredentials(ctx))
			require.Equal(t, tt.wantState, p.HasRefreshToken(ctx))
			require.Equal(t, tt.wantState, p.LoggedIn())
			if !tt.wantState {
				requireNoSecrets(t, store, p.URI())
			}
		})
	}
}

func TestSSO_RefreshSharesOneRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	release := make(chan struct{})
	stub := newStubBackend(t)
	stub.handle(auth.PathRefresh, func(w http.ResponseWriter, r *http.Request) {
		<-release
		jsonBody(http.StatusOK, tokens("B", "R2", 100))(w, r)
	})
	p := loggedInSSO(t, stub, credstore.NewMemory())

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- p.Refresh(ctx)
		}()
	}

	require.Eventually(t, func() bool { return stub.count(auth.PathRefresh) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, stub.count(auth.PathRefresh))

	header, err := authorizationOf(t, p)
	require.NoError(t, err)
	require.Equal(t, "oecp B", header)
}

func TestSSO_RefreshSettlesAfterCallerCancels(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	stub := newStubBackend(t)
	stub.handle(auth.PathRefresh, func(w http.ResponseWriter, r *http.Request) {
		<-release
		jsonBody(http.StatusOK, tokens("B", "R2", 100))(w, r)
	})
	p := loggedInSSO(t, stub, credstore.NewMemory())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Refresh(ctx) }()

	require.Eventually(t, func() bool { return stub.count(auth.PathRefresh) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, auth.ErrGeneralFailure)

	close(release)
	require.Eventually(t, func() bool {
		header, err := authorizationOf(t, p)
		return err == nil && header == "oecp B"
	}, time.Second, 5*time.Millisecond)
}

// Automatic refresh depends on the fixed clock; these tests are not
// parallel.
func TestSSO_AutomaticRefresh(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		handler     http.HandlerFunc
		disable     bool
		advance     time.Duration
		wantHeader  string
		wantErr     error
		wantRefresh int
	}{
		{
			name:        "not yet due",
			handler:     jsonBody(http.StatusOK, tokens("B", "R2", 100)),
			advance:     70 * time.Second,
			wantHeader:  "oecp A",
			wantRefresh: 0,
		},
		{
			name:        "due",
			handler:     jsonBody(http.StatusOK, tokens("B", "R2", 100)),
			advance:     76 * time.Second,
			wantHeader:  "oecp B",
			wantRefresh: 1,
		},
		{
			name:        "rejected",
			handler:     jsonBody(http.StatusUnauthorized, map[string]string{"error": auth.ExpiredTokenCode}),
			advance:     76 * time.Second,
			wantErr:     auth.ErrNotAuthorized,
			wantRefresh: 1,
		},
		{
			name:        "server error falls back to current token",
			handler:     status(http.StatusServiceUnavailable),
			advance:     76 * time.Second,
			wantHeader:  "oecp A",
			wantRefresh: 1,
		},
		{
			name:        "disabled",
			handler:     jsonBody(http.StatusOK, tokens("B", "R2", 100)),
			disable:     true,
			advance:     200 * time.Second,
			wantHeader:  "oecp A",
			wantRefresh: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			restore := flextime.Fix(start)
			defer restore()

			stub := newStubBackend(t)
			stub.handle(auth.PathRefresh, tt.handler)
			p := loggedInSSO(t, stub, credstore.NewMemory())
			if tt.disable {
				require.NoError(t, p.SetAutomaticTokenRefresh(ctx, false))
			}

			flextime.Fix(start.Add(tt.advance))

			header, err := authorizationOf(t, p)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Empty(t, header)
				require.False(t, p.HasClientCredentials(ctx))
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.wantHeader, header)
			}
			require.Equal(t, tt.wantRefresh, stub.count(auth.PathRefresh))
		})
	}
}

func TestSSO_AutomaticRefreshIsPersisted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	stub := newStubBackend(t)
	store := credstore.NewMemory()

	p1 := newProvider(t, stub.uri(), "sso", store)
	require.True(t, p1.AutomaticTokenRefresh())
	require.NoError(t, p1.SetAutomaticTokenRefresh(ctx, false))

	p2 := newProvider(t, stub.uri(), "sso", store)
	require.False(t, p2.AutomaticTokenRefresh())

	p3 := newProvider(t, stub.uri(), "sso", store, auth.WithAutomaticTokenRefresh(true))
	require.True(t, p3.AutomaticTokenRefresh())

	p4 := newProvider(t, stub.uri(), "sso", store)
	require.True(t, p4.AutomaticTokenRefresh())
}

func TestSSO_TokenSource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	stub := newStubBackend(t)
	var seen atomic.Value
	stub.handle("/rest/Customers", func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	})
	p := newProvider(t, stub.uri(), "sso", credstore.NewMemory())

	ts, err := p.TokenSource(ctx)
	require.NoError(t, err)
	_, err = ts.Token()
	require.ErrorIs(t, err, auth.ErrNotAuthorized)

	stub.handle(auth.PathLogin, jsonBody(http.StatusOK, tokens("A", "R", 100)))
	require.NoError(t, p.Login(ctx, ssoCreds))

	tok, err := ts.Token()
	require.NoError(t, err)
	require.Equal(t, "A", tok.AccessToken)
	require.Equal(t, "R", tok.RefreshToken)
	require.Equal(t, "bearer", tok.Extra("server_token_type"))
	require.False(t, tok.Expiry.IsZero())

	resp, err := oauth2.NewClient(ctx, ts).Get(stub.uri() + "/rest/Customers")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "oecp A", seen.Load())
}

// pausingStore blocks the first access token write after it is armed until
// release is closed.
type pausingStore struct {
	*credstore.Memory

	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (s *pausingStore) Set(ctx context.Context, key string, value []byte) error {
	if strings.HasSuffix(key, "."+credstore.FieldAccessToken) && s.armed.CompareAndSwap(true, false) {
		close(s.entered)
		<-s.release
	}
	return s.Memory.Set(ctx, key, value)
}

// A logout that lands while a refresh is writing its tokens still leaves
// the provider without credentials.
func TestSSO_LogoutDuringRefreshWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	stub := newStubBackend(t)
	stub.handle(auth.PathLogin, jsonBody(http.StatusOK, tokens("A", "R", 100)))
	stub.handle(auth.PathLogout, status(http.StatusOK))
	stub.handle(auth.PathRefresh, jsonBody(http.StatusOK, tokens("B", "R2", 100)))

	store := &pausingStore{
		Memory:  credstore.NewMemory(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	p := newProvider(t, stub.uri(), "sso", store)
	require.NoError(t, p.Login(ctx, ssoCreds))
	store.armed.Store(true)

	refreshErr := make(chan error, 1)
	go func() { refreshErr <- p.Refresh(ctx) }()
	<-store.entered

	logoutErr := make(chan error, 1)
	go func() { logoutErr <- p.Logout(ctx) }()

	select {
	case <-logoutErr:
		t.Fatal("logout finished while the refresh was still writing")
	case <-time.After(100 * time.Millisecond):
	}
	close(store.release)

	require.NoError(t, <-refreshErr)
	require.NoError(t, <-logoutErr)

	require.False(t, p.LoggedIn())
	require.False(t, p.HasClientCredentials(ctx))
	require.False(t, p.HasRefreshToken(ctx))
}
