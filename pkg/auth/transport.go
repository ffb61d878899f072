package auth

import (
	"net/http"
)

// Transport is an http.RoundTripper that authorizes every request through
// a Provider before handing it to Base. A request that cannot be authorized
// is never sent; RoundTrip returns the NotAuthorized error instead.
type Transport struct {
	Provider *Provider
	Base     http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	// RoundTrip must not modify the caller's request.
	authorized := req.Clone(req.Context())
	if err := t.Provider.AuthorizeRequest(req.Context(), authorized); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	return base.RoundTrip(authorized)
}

// Transport wraps base (or http.DefaultTransport) with request
// authorization.
func (p *Provider) Transport(base http.RoundTripper) http.RoundTripper {
	return &Transport{Provider: p, Base: base}
}

// Client returns an *http.Client whose requests are authorized by p. It
// shares the provider's cookie jar and timeout.
func (p *Provider) Client() *http.Client {
	inner := p.core.client
	c := &http.Client{
		Transport:     p.Transport(inner.Transport),
		Timeout:       inner.Timeout,
		CheckRedirect: inner.CheckRedirect,
	}
	if p.jar != nil {
		c.Jar = p.jar
	}
	return c
}

// Jar returns the cookie jar holding the form or SSO session cookie, or nil
// for models that do not keep one.
func (p *Provider) Jar() http.CookieJar {
	if p.jar == nil {
		return nil
	}
	return p.jar
}
