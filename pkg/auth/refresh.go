package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/progress/jsdo/pkg/credstore"
)

type refreshRequest struct {
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
}

// refresh exchanges the stored refresh token for a new access token.
// Concurrent callers share one round trip. The round trip runs to completion
// even if ctx is cancelled so the store always settles.
func (s *ssoProtocol) refresh(ctx context.Context) error {
	const op = "refresh"

	if !s.core.isLoggedIn() {
		return &Error{Kind: KindNotLoggedIn, Op: op, Message: "refresh requires a logged-in provider"}
	}
	refreshToken := s.refreshToken(ctx)
	if refreshToken == "" {
		return &Error{Kind: KindNoRefreshToken, Op: op, Message: "no refresh token is stored"}
	}

	ch := s.flight.DoChan(op, func() (any, error) {
		return nil, s.doRefresh(context.WithoutCancel(ctx), refreshToken)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return generalFailure(op, ctx.Err())
	}
}

func (s *ssoProtocol) doRefresh(ctx context.Context, refreshToken string) error {
	const op = "refresh"

	tokenType, err := s.core.ns.GetString(ctx, credstore.FieldTokenType)
	if err != nil {
		return storeFailure(op, err)
	}

	payload, err := json.Marshal(refreshRequest{TokenType: tokenType, RefreshToken: refreshToken})
	if err != nil {
		return generalFailure(op, err)
	}

	req, err := s.core.newRequest(ctx, http.MethodPost, s.core.endpoints.refresh, bytes.NewReader(payload))
	if err != nil {
		return generalFailure(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.form.jar.addCookies(req)

	status, body, err := s.core.do(req)
	switch {
	case err != nil:
		return generalFailure(op, err)

	case status == http.StatusOK:
		tokens, perr := parseTokenResponse(body)
		if perr != nil {
			s.reset(ctx)
			return &Error{Kind: KindGeneralFailure, Op: op, StatusCode: status, Body: string(body), Err: perr}
		}
		// A logout that raced this refresh wins.
		stored, err := s.core.whileLoggedIn(func() error { return s.storeTokens(ctx, tokens) })
		if err != nil {
			return storeFailure(op, err)
		}
		if !stored {
			return &Error{Kind: KindNotLoggedIn, Op: op, Message: "provider logged out during refresh"}
		}
		s.core.logger.DebugContext(ctx, "access token refreshed", "rotated", tokens.RefreshToken != "")
		return nil

	case status == http.StatusUnauthorized:
		// The server-side session is gone, so the whole credential is.
		s.reset(ctx)
		return s.core.resultError(op, resultAuthenticationFailure, status, body, nil)

	default:
		return &Error{Kind: KindGeneralFailure, Op: op, StatusCode: status, Body: string(body)}
	}
}
