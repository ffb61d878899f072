package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind int

const (
	KindUnknown Kind = iota

	// KindInvalidArgument: bad constructor or method argument (empty string,
	// unsupported model).
	KindInvalidArgument
	// KindAlreadyLoggedIn: Login called while logged in or while another
	// Login is in flight.
	KindAlreadyLoggedIn
	// KindNotLoggedIn: Refresh called while not logged in.
	KindNotLoggedIn
	// KindNoRefreshToken: Refresh called without a stored refresh token.
	KindNoRefreshToken
	// KindAuthenticationFailure: the server rejected the credentials (401).
	KindAuthenticationFailure
	// KindExpiredToken: a 401 whose body carries the expired-token code. It
	// also matches ErrAuthenticationFailure.
	KindExpiredToken
	// KindGeneralFailure: any other transport or server failure.
	KindGeneralFailure
	// KindNotAuthorized: no client credentials are available; nothing was
	// sent.
	KindNotAuthorized
	// KindWrongMethodForModel: the method does not apply to the
	// authentication model.
	KindWrongMethodForModel
	// KindInvalidOperation: the operation is not allowed in the current
	// configuration.
	KindInvalidOperation
)

var kindNames = map[Kind]string{
	KindUnknown:               "unknown",
	KindInvalidArgument:       "invalid argument",
	KindAlreadyLoggedIn:       "already logged in",
	KindNotLoggedIn:           "not logged in",
	KindNoRefreshToken:        "no refresh token",
	KindAuthenticationFailure: "authentication failure",
	KindExpiredToken:          "expired token",
	KindGeneralFailure:        "general failure",
	KindNotAuthorized:         "not authorized",
	KindWrongMethodForModel:   "wrong method for model",
	KindInvalidOperation:      "invalid operation",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the error type returned by providers and sessions. Network
// failures carry the HTTP status and the raw response body so callers can
// surface them verbatim.
type Error struct {
	Kind       Kind
	Op         string
	Message    string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("jsdo")
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches by Kind so sentinels work with errors.Is. An expired token is
// also an authentication failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return e.Kind == KindExpiredToken && t.Kind == KindAuthenticationFailure
}

// Sentinels for errors.Is.
var (
	ErrInvalidArgument       = &Error{Kind: KindInvalidArgument}
	ErrAlreadyLoggedIn       = &Error{Kind: KindAlreadyLoggedIn}
	ErrNotLoggedIn           = &Error{Kind: KindNotLoggedIn}
	ErrNoRefreshToken        = &Error{Kind: KindNoRefreshToken}
	ErrAuthenticationFailure = &Error{Kind: KindAuthenticationFailure}
	ErrExpiredToken          = &Error{Kind: KindExpiredToken}
	ErrGeneralFailure        = &Error{Kind: KindGeneralFailure}
	ErrNotAuthorized         = &Error{Kind: KindNotAuthorized}
	ErrWrongMethodForModel   = &Error{Kind: KindWrongMethodForModel}
	ErrInvalidOperation      = &Error{Kind: KindInvalidOperation}
)

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// NewError builds an *Error. Packages layered on the provider (session) use
// it so every failure shares one taxonomy.
func NewError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func invalidArgument(op, name string) *Error {
	return &Error{
		Kind:    KindInvalidArgument,
		Op:      op,
		Message: fmt.Sprintf("%s must be a non-empty string", name),
	}
}

func notAuthorized(op string) *Error {
	return &Error{
		Kind:    KindNotAuthorized,
		Op:      op,
		Message: "no client credentials available, request not sent",
	}
}

func generalFailure(op string, err error) *Error {
	return &Error{Kind: KindGeneralFailure, Op: op, Err: err}
}
