package auth

import (
	"context"
	"net/http"
)

// Credentials carries the secret material for Login. Which fields are
// required depends on the model: none for anonymous, Username and Password
// for basic, form and sso, Token for bearer.
type Credentials struct {
	Username string
	Password string
	Token    string
}

// protocol is implemented once per authentication model. Shared behaviour
// lives in core, which every implementation holds and calls by name.
type protocol interface {
	// restore rehydrates state persisted by an earlier provider for the
	// same URI.
	restore(ctx context.Context) error

	// validate checks Login arguments before any state is touched.
	validate(op string, creds Credentials) error

	// login sends the login request and processes its result.
	login(ctx context.Context, creds Credentials) error

	// processLoginResult interprets the transport outcome. On anything but
	// success the credential is rolled back.
	processLoginResult(ctx context.Context, status int, body []byte, err error) error

	hasClientCredentials(ctx context.Context) bool
	hasRefreshToken(ctx context.Context) bool

	// authorize stamps req with the credential or fails with NotAuthorized.
	authorize(ctx context.Context, req *http.Request) error

	// logout performs the server-side part of logout, if any.
	logout(ctx context.Context) error

	// reset clears every piece of local state unconditionally.
	reset(ctx context.Context)
}

// refresher is implemented by protocols with a token refresh sub-protocol.
type refresher interface {
	refresh(ctx context.Context) error
	automaticTokenRefresh() bool
	setAutomaticTokenRefresh(ctx context.Context, enabled bool) error
}

func newProtocol(c *core, jar *sessionJar) protocol {
	switch c.model {
	case ModelBasic:
		return &basicProtocol{core: c}
	case ModelBearer:
		return &bearerProtocol{core: c}
	case ModelForm:
		return &formProtocol{core: c, jar: jar}
	case ModelSSO:
		return newSSOProtocol(c, &formProtocol{core: c, jar: jar})
	default:
		return &anonymousProtocol{core: c}
	}
}

// processSimpleResult is the result handling shared by protocols whose only
// persisted state is the logged-in flag.
func processSimpleResult(ctx context.Context, p protocol, c *core, status int, body []byte, err error) error {
	const op = "login"

	if result := classify(status, err); result != resultSuccess {
		p.reset(ctx)
		return c.resultError(op, result, status, body, err)
	}

	if err := c.setLoggedIn(ctx); err != nil {
		p.reset(ctx)
		return storeFailure(op, err)
	}
	return nil
}
