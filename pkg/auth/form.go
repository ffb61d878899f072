package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// formProtocol logs in with a Spring-style form POST and relies on the
// session cookie the server sets.
type formProtocol struct {
	core *core
	jar  *sessionJar
}

func (f *formProtocol) restore(ctx context.Context) error { return f.core.rehydrate(ctx) }

func (f *formProtocol) validate(op string, creds Credentials) error {
	if creds.Username == "" {
		return invalidArgument(op, "username")
	}
	if creds.Password == "" {
		return invalidArgument(op, "password")
	}
	return nil
}

func (f *formProtocol) login(ctx context.Context, creds Credentials) error {
	status, body, err := f.post(ctx, f.core.endpoints.login, creds)
	return f.processLoginResult(ctx, status, body, err)
}

// post sends the login form to endpoint.
func (f *formProtocol) post(ctx context.Context, endpoint string, creds Credentials) (int, []byte, error) {
	form := url.Values{
		"j_username": {creds.Username},
		"j_password": {creds.Password},
		"submit":     {"Submit"},
	}

	req, err := f.core.newRequest(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return f.core.do(req)
}

func (f *formProtocol) processLoginResult(ctx context.Context, status int, body []byte, err error) error {
	return processSimpleResult(ctx, f, f.core, status, body, err)
}

func (f *formProtocol) hasClientCredentials(context.Context) bool { return f.core.isLoggedIn() }

func (f *formProtocol) hasRefreshToken(context.Context) bool { return false }

func (f *formProtocol) authorize(ctx context.Context, req *http.Request) error {
	if !f.hasClientCredentials(ctx) {
		return notAuthorized("authorize request")
	}
	f.jar.addCookies(req)
	return nil
}

func (f *formProtocol) logout(ctx context.Context) error {
	if !f.core.isLoggedIn() {
		return nil
	}
	return f.core.logoutRequest(ctx)
}

func (f *formProtocol) reset(ctx context.Context) {
	f.jar.clear()
	f.core.purge(ctx)
}
