package backendsim

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/progress/jsdo/internal/config"
	"github.com/progress/jsdo/pkg/auth"
	"github.com/progress/jsdo/pkg/cryptox"
	"github.com/progress/jsdo/pkg/httpx"
	"github.com/progress/jsdo/pkg/jwtx"
	"github.com/progress/jsdo/pkg/slogx"

	_ "github.com/progress/jsdo/internal/backendsim/docs" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Server is an in-memory JSDO backend speaking every authentication model
// the SDK supports.
type Server struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	cfg      config.ServerConfig
	logger   *slog.Logger
	users    *userDirectory
	sessions *sessionRegistry
	signer   jwtx.Signer
	verifier jwtx.Verifier
	authn    *authenticator
	catalogs map[string][]byte
}

// New builds the server and registers its routes.
func New(cfg config.ServerConfig, logger *slog.Logger) (*Server, error) {
	if len(cfg.Users) == 0 {
		return nil, errors.New("backendsim: at least one user is required")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, errors.New("backendsim: token TTLs must be positive")
	}

	secret := []byte(cfg.SigningSecret)
	if len(secret) == 0 {
		secret = []byte(cryptox.MustGenerateToken(cryptox.TokenSize256))
		logger.Warn("no signing secret configured, generated an ephemeral one")
	}
	signer, err := jwtx.NewSignerHS256("sim-1", secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create token signer: %w", err)
	}

	users, err := newUserDirectory(cfg.Users)
	if err != nil {
		return nil, err
	}

	s := &Server{
		Mux:      http.NewServeMux(),
		cfg:      cfg,
		logger:   logger,
		users:    users,
		sessions: newSessionRegistry(cfg.RefreshTokenTTL),
		signer:   signer,
		verifier: signer.Verifier(cfg.Issuer),
		catalogs: defaultCatalogs(cfg.ServicePath),
	}
	s.authn = &authenticator{
		users:    s.users,
		sessions: s.sessions,
		verifier: s.verifier,
		bearer:   cfg.BearerTokens,
	}
	s.middlewares = []httpx.Middleware{slogx.HTTPMiddleware(logger)}

	s.applyRoutes()
	return s, nil
}

// ServiceURI returns the service URI for a server listening at baseURL.
func (s *Server) ServiceURI(baseURL string) string { return baseURL + s.cfg.ServicePath }

func (s *Server) applyRoutes() {
	p := s.cfg.ServicePath
	loginLimit := httpx.RateLimitConfig{
		RequestsPerWindow: s.cfg.LoginRequestsPerMinute,
		Window:            httpx.StrictLimit.Window,
		Burst:             s.cfg.LoginRequestsPerMinute,
	}

	s.Mux.Handle("GET "+p+auth.PathHome,
		httpx.Chain(http.HandlerFunc(s.HandleHome),
			httpx.RateLimitByIP(httpx.LenientLimit),
			httpx.AuthnMiddleware(optional(s.authn)),
		),
	)

	// Login attempts are limited per IP and username to slow brute force.
	s.Mux.Handle("POST "+p+auth.PathLogin,
		httpx.Chain(http.HandlerFunc(s.HandleLogin),
			httpx.RateLimitByIPAndFormField(loginLimit, "j_username"),
		),
	)

	s.Mux.Handle("GET "+p+auth.PathLogout, http.HandlerFunc(s.HandleLogout))

	s.Mux.Handle("POST "+p+auth.PathRefresh,
		httpx.Chain(http.HandlerFunc(s.HandleRefresh),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	s.Mux.Handle("GET "+p+"/static/catalogs/{name}",
		httpx.Chain(http.HandlerFunc(s.HandleCatalog),
			httpx.AuthnMiddleware(s.authn),
		),
	)

	s.Mux.Handle("GET "+p+"/rest/{resource}",
		httpx.Chain(http.HandlerFunc(s.HandleResource),
			httpx.AuthnMiddleware(s.authn),
			httpx.RateLimitMiddleware(httpx.LenientLimit, httpx.PrincipalKeyExtractor),
		),
	)

	s.Mux.Handle("GET /livez", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	}))
	s.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Server and applies the global
// middleware chain.
//
//	@title			JSDO Backend Simulator API
//	@version		0.1.0
//	@description	Reference backend for the jsdo authentication SDK. Serves the anonymous, basic, bearer, form and sso models.
//	@description
//	@description	SSO access tokens are sent as "Authorization: oecp {token}".
//
//	@host			localhost:8080
//	@BasePath		/App
//
//	@schemes		http https
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(s.Mux, s.middlewares...).ServeHTTP(w, req)
}
