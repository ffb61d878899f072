package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/progress/jsdo/internal/config"
	"github.com/progress/jsdo/pkg/auth"
	"github.com/progress/jsdo/pkg/credstore"
	"github.com/progress/jsdo/pkg/credstore/drivers/sqlite"
	"github.com/progress/jsdo/pkg/session"
	"github.com/progress/jsdo/pkg/slogx"
	"github.com/spf13/cobra"
)

// cliEnv is what every command works with: resolved configuration, the
// credential store and a provider for the configured service.
type cliEnv struct {
	cfg      config.Config
	model    auth.Model
	logger   *slog.Logger
	client   *http.Client
	store    credstore.Store
	db       *sqlite.Store // nil when the model keeps nothing on disk
	provider *auth.Provider
	creds    auth.Credentials

	closeStore func() error
}

func newCLIEnv(cmd *cobra.Command, flags *globalFlags) (*cliEnv, error) {
	cfg, err := config.LoadConfig(flags.profile)
	if err != nil {
		return nil, err
	}
	if flags.service != "" {
		cfg.ServiceURI = flags.service
	}
	if flags.model != "" {
		cfg.Model = flags.model
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	model, err := auth.ParseModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	env := &cliEnv{
		cfg:   cfg,
		model: model,
		logger: slogx.New(slogx.Config{
			Service: "jsdo",
			Version: version,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  cmd.ErrOrStderr(),
		}),
		client:     &http.Client{Timeout: cfg.HTTPTimeout},
		creds:      auth.Credentials{Username: flags.username, Password: flags.password, Token: flags.token},
		closeStore: func() error { return nil },
	}

	if err := env.openStore(); err != nil {
		return nil, err
	}

	opts := []auth.Option{
		auth.WithStore(env.store),
		auth.WithHTTPClient(env.client),
		auth.WithLogger(env.logger),
		auth.WithAutomaticTokenRefresh(cfg.AutoRefresh),
	}
	if cfg.ErrorCodeQuery != "" {
		opts = append(opts, auth.WithErrorCodeQuery(cfg.ErrorCodeQuery))
	}

	env.provider, err = auth.NewProvider(cmd.Context(), cfg.ServiceURI, model.String(), opts...)
	if err != nil {
		_ = env.close()
		return nil, err
	}
	return env, nil
}

// openStore opens the sqlite credential store. Basic and bearer secrets and
// the form session cookie live in memory only, so those models get a memory
// store and log in on every invocation.
func (e *cliEnv) openStore() error {
	if e.model == auth.ModelBasic || e.model == auth.ModelBearer || e.model == auth.ModelForm {
		e.store = credstore.NewMemory()
		return nil
	}

	db, err := sqlite.NewStore(e.cfg.StoreDSN)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to migrate credential store: %w", err)
	}
	e.closeStore = db.Close
	e.db = db
	e.store = db

	if e.cfg.StoreKey != "" {
		enc, err := credstore.NewEncrypted(db, []byte(e.cfg.StoreKey))
		if err != nil {
			_ = db.Close()
			return err
		}
		e.store = enc
	}
	return nil
}

func (e *cliEnv) close() error { return e.closeStore() }

// storedKeys lists the persisted keys for the configured service.
func (e *cliEnv) storedKeys(ctx context.Context) ([]string, error) {
	if e.db == nil {
		return nil, nil
	}
	return e.db.Keys(ctx, credstore.NewNamespace(e.store, e.provider.URI()).Prefix())
}

// purge removes every persisted key under the service prefix, including
// fields this version of the provider does not know.
func (e *cliEnv) purge(ctx context.Context) (int64, error) {
	if e.db == nil {
		return 0, nil
	}
	return e.db.Purge(ctx, credstore.NewNamespace(e.store, e.provider.URI()).Prefix())
}

// ensureCredentials logs in with the flag credentials unless the provider
// already holds client credentials.
func (e *cliEnv) ensureCredentials(ctx context.Context) error {
	if e.provider.HasClientCredentials(ctx) {
		return nil
	}
	if e.model != auth.ModelAnonymous && e.creds == (auth.Credentials{}) {
		return auth.NewError(auth.KindNotAuthorized, "connect", "not logged in; run jsdo login or pass credentials")
	}
	return e.provider.Login(ctx, e.creds)
}

// connectedSession returns a session bound to the provider.
func (e *cliEnv) connectedSession(ctx context.Context) (*session.Session, error) {
	if err := e.ensureCredentials(ctx); err != nil {
		return nil, err
	}

	s, err := session.New(e.cfg.ServiceURI,
		session.WithModel(e.model.String()),
		session.WithHTTPClient(e.client),
		session.WithLogger(e.logger),
		session.WithStore(e.store),
	)
	if err != nil {
		return nil, err
	}
	if err := s.Connect(ctx, e.provider); err != nil {
		return nil, err
	}
	return s, nil
}
