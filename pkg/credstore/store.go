// Package credstore persists serialized authentication state keyed by
// service URI. Keys are namespaced as "<uri>.<field>" and values are JSON.
package credstore

import (
	"context"
	"errors"
)

//go:generate go tool mockgen -source=store.go -destination=credstoretest/mock_store.go -package=credstoretest

var ErrNotFound = errors.New("credstore: not found")

// Store is a flat key/value store for authentication state. Drivers (memory,
// sqlite, encrypted wrapper) implement this. Entries are independent: there is
// no transactional guarantee across keys and the last write wins.
type Store interface {
	// Get returns the raw value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key returns ErrNotFound.
	Remove(ctx context.Context, key string) error
}

// Field names persisted for a provider. The keys written to a Store are
// "<uri>.<field>".
const (
	FieldURI                   = "uri"
	FieldLoggedIn              = "loggedIn"
	FieldAccessToken           = "access_token"
	FieldRefreshToken          = "refresh_token"
	FieldTokenType             = "token_type"
	FieldExpiresIn             = "expires_in"
	FieldAccessTokenExpiration = "accessTokenExpiration"
	FieldAutomaticTokenRefresh = "automaticTokenRefresh"
)

// AllFields lists every field a provider may persist.
var AllFields = []string{
	FieldURI,
	FieldLoggedIn,
	FieldAccessToken,
	FieldRefreshToken,
	FieldTokenType,
	FieldExpiresIn,
	FieldAccessTokenExpiration,
	FieldAutomaticTokenRefresh,
}
