package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/progress/jsdo/pkg/credstore"
)

// DefaultTimeout applies to the HTTP client built when none is supplied.
const DefaultTimeout = 30 * time.Second

type options struct {
	store          credstore.Store
	client         *http.Client
	logger         *slog.Logger
	errorCodeQuery string
	codes          *errorCodeQuery
	autoRefresh    *bool
}

// Option configures a Provider.
type Option func(*options)

// WithStore sets the credential store. Providers pointed at the same URI may
// share a store. Defaults to a fresh in-memory store.
func WithStore(s credstore.Store) Option {
	return func(o *options) { o.store = s }
}

// WithHTTPClient sets the HTTP client. Form and SSO providers install their
// own cookie jar on a copy.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithErrorCodeQuery sets the jq selector used to read the error code from
// 401 bodies. Defaults to DefaultErrorCodeQuery.
func WithErrorCodeQuery(expr string) Option {
	return func(o *options) { o.errorCodeQuery = expr }
}

// WithAutomaticTokenRefresh overrides the persisted automatic refresh
// setting (SSO only). The default is true.
func WithAutomaticTokenRefresh(enabled bool) Option {
	return func(o *options) { o.autoRefresh = &enabled }
}

func buildOptions(opts []Option) (*options, error) {
	o := &options{errorCodeQuery: DefaultErrorCodeQuery}
	for _, opt := range opts {
		opt(o)
	}

	if o.store == nil {
		o.store = credstore.NewMemory()
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: DefaultTimeout}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	codes, err := compileErrorCodeQuery(o.errorCodeQuery)
	if err != nil {
		return nil, &Error{Kind: KindInvalidArgument, Op: "new provider", Err: err}
	}
	o.codes = codes
	return o, nil
}
