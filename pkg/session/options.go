package session

import (
	"log/slog"
	"net/http"

	"github.com/progress/jsdo/pkg/auth"
	"github.com/progress/jsdo/pkg/credstore"
)

type options struct {
	client *http.Client
	logger *slog.Logger
	store  credstore.Store
	loader CatalogLoader
	model  string
}

// Option configures a Session.
type Option func(*options)

// WithHTTPClient sets the client used for the connect ping, catalog fetches
// and data requests. Providers built by Login get a copy.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStore sets the credential store handed to providers built by Login.
func WithStore(s credstore.Store) Option {
	return func(o *options) { o.store = s }
}

// WithCatalogLoader replaces the default JSON catalog loader.
func WithCatalogLoader(l CatalogLoader) Option {
	return func(o *options) { o.loader = l }
}

// WithModel sets the authentication model used by Login and by
// AddCatalog credentials. Defaults to anonymous.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

func buildOptions(opts []Option) *options {
	o := &options{model: string(auth.ModelAnonymous)}
	for _, opt := range opts {
		opt(o)
	}

	if o.client == nil {
		o.client = &http.Client{Timeout: auth.DefaultTimeout}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.store == nil {
		o.store = credstore.NewMemory()
	}
	if o.loader == nil {
		o.loader = NewJSONCatalogLoader()
	}
	return o
}

type catalogOptions struct {
	provider *auth.Provider
	username string
	password string
	hasCreds bool
}

// CatalogOption configures a single AddCatalog call.
type CatalogOption func(*catalogOptions)

// WithProvider authorizes catalog fetches with p instead of the session's
// connected provider. The session does not need to be connected.
func WithProvider(p *auth.Provider) CatalogOption {
	return func(o *catalogOptions) { o.provider = p }
}

// WithCredentials logs in a short-lived provider for the catalog fetches.
// Not allowed for the sso model, which needs an authenticated provider.
func WithCredentials(username, password string) CatalogOption {
	return func(o *catalogOptions) {
		o.username, o.password = username, password
		o.hasCreds = true
	}
}
