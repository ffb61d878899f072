package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/progress/jsdo/pkg/credstore"
	"golang.org/x/oauth2"
)

type tokenSource struct {
	ctx context.Context
	p   *Provider
	sso *ssoProtocol
}

// TokenSource exposes the SSO access token as an oauth2.TokenSource, so
// oauth2.NewClient can be used against the backend. Token refreshes first
// when automatic refresh is due. The token type is the "oecp" scheme.
func (p *Provider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	s, ok := p.proto.(*ssoProtocol)
	if !ok {
		return nil, &Error{Kind: KindWrongMethodForModel, Op: "token source", Message: "only supported by the sso model"}
	}
	return &tokenSource{ctx: ctx, p: p, sso: s}, nil
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	const op = "token"

	if ts.sso.shouldRefresh(ts.ctx) {
		if err := ts.sso.refresh(ts.ctx); err != nil && errors.Is(err, ErrAuthenticationFailure) {
			return nil, &Error{Kind: KindNotAuthorized, Op: op, Err: err}
		}
	}

	access := ts.sso.accessToken(ts.ctx)
	if access == "" {
		return nil, notAuthorized(op)
	}

	tok := &oauth2.Token{
		AccessToken:  access,
		TokenType:    SSOScheme,
		RefreshToken: ts.sso.refreshToken(ts.ctx),
	}
	if exp, ok := ts.sso.expiration(ts.ctx); ok {
		tok.Expiry = exp
	}

	if tt, err := ts.sso.core.ns.GetString(ts.ctx, credstore.FieldTokenType); err == nil && tt != "" {
		tok = tok.WithExtra(map[string]any{"server_token_type": strings.ToLower(tt)})
	}
	return tok, nil
}
