package credstore

import (
	"context"
	"fmt"

	"github.com/progress/jsdo/pkg/cryptox"
)

const encryptionInfo = "jsdo credstore v1"

// Encrypted wraps a Store and seals every value before it reaches the
// underlying driver. Keys are left in clear so namespaces can still be
// listed and purged by prefix.
type Encrypted struct {
	inner  Store
	sealer *cryptox.Sealer
}

// NewEncrypted returns a Store that encrypts values written to inner with a
// key derived from secret.
func NewEncrypted(inner Store, secret []byte) (*Encrypted, error) {
	sealer, err := cryptox.NewSealer(secret, nil, encryptionInfo)
	if err != nil {
		return nil, fmt.Errorf("credstore: %w", err)
	}
	return &Encrypted{inner: inner, sealer: sealer}, nil
}

func (e *Encrypted) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := e.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	value, err := e.sealer.Open(sealed, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("credstore: open %s: %w", key, err)
	}
	return value, nil
}

func (e *Encrypted) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := e.sealer.Seal(value, []byte(key))
	if err != nil {
		return fmt.Errorf("credstore: seal %s: %w", key, err)
	}
	return e.inner.Set(ctx, key, sealed)
}

func (e *Encrypted) Remove(ctx context.Context, key string) error {
	return e.inner.Remove(ctx, key)
}
