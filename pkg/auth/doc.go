/*
Package auth implements the client-side authentication core for JSDO
backends: one Provider per service URI that hides five authentication
models behind a single API.

# Models

	anonymous  login pings /static/home.html, no credential
	basic      Authorization: Basic, username and password held in memory
	bearer     Authorization: Bearer, caller-supplied token held in memory
	form       form POST to j_spring_security_check, session cookie
	sso        form POST with ?OECP=yes returning access and refresh tokens,
	           sent as Authorization: oecp <token>

Create a provider and log in:

	p, err := auth.NewProvider(ctx, "https://host/App", "sso",
		auth.WithStore(store),
	)
	if err != nil {
		return err
	}
	if err := p.Login(ctx, auth.Credentials{Username: "u", Password: "pw"}); err != nil {
		return err
	}

Authorize any request, or let the provider's client do it:

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, p.URI()+"/rest/Customers", nil)
	if err := p.AuthorizeRequest(ctx, req); err != nil {
		// auth.ErrNotAuthorized: nothing was sent
	}

	resp, err := p.Client().Get(p.URI() + "/rest/Customers")

# State

Persisted state lives in a credstore.Store under "<uri>.<field>" keys. Basic
and bearer secrets are never persisted. A new provider for a URI restores
the logged-in flag, so a process restart with a persistent store keeps an
SSO session alive. A restored basic or bearer provider reports LoggedIn
without client credentials and accepts Login again. A restored form
provider reports both, but its session cookie lived in the previous
process's jar, so its requests go out without one until it logs out and in
again.

# Refresh

SSO access tokens are refreshed through Refresh, or automatically by
AuthorizeRequest once the stored expiration marker (EarlyRefreshRatio of
the token lifetime) has passed. Concurrent refreshes share one round trip.
A 401 from the refresh endpoint logs the provider out.

# Errors

Every error is an *Error with a Kind. Use errors.Is with the sentinels:

	if errors.Is(err, auth.ErrExpiredToken) { ... }
	if errors.Is(err, auth.ErrAuthenticationFailure) { ... } // also matches expired tokens

Precondition failures (InvalidArgument, AlreadyLoggedIn, NotLoggedIn,
NoRefreshToken, WrongMethodForModel, NotAuthorized) are returned before any
request is sent.
*/
package auth
