package credstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Namespace scopes a Store to one service URI.
type Namespace struct {
	store  Store
	prefix string
}

// NewNamespace returns a Namespace whose keys are "<uri>.<field>".
func NewNamespace(store Store, uri string) *Namespace {
	return &Namespace{store: store, prefix: uri + "."}
}

// Key returns the full store key for field.
func (n *Namespace) Key(field string) string { return n.prefix + field }

// Prefix returns the key prefix shared by every field in the namespace.
func (n *Namespace) Prefix() string { return n.prefix }

// GetJSON decodes field into dst. It reports false when the field is missing
// or holds JSON null.
func (n *Namespace) GetJSON(ctx context.Context, field string, dst any) (bool, error) {
	raw, err := n.store.Get(ctx, n.Key(field))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("credstore: get %s: %w", field, err)
	}

	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return false, nil
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("credstore: decode %s: %w", field, err)
	}
	return true, nil
}

// SetJSON encodes v and writes it under field.
func (n *Namespace) SetJSON(ctx context.Context, field string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("credstore: encode %s: %w", field, err)
	}
	if err := n.store.Set(ctx, n.Key(field), raw); err != nil {
		return fmt.Errorf("credstore: set %s: %w", field, err)
	}
	return nil
}

// Remove deletes field. A missing field is not an error.
func (n *Namespace) Remove(ctx context.Context, field string) error {
	err := n.store.Remove(ctx, n.Key(field))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("credstore: remove %s: %w", field, err)
	}
	return nil
}

// Clear removes every listed field, or AllFields when none are given. It
// keeps going after a failure and returns the joined errors.
func (n *Namespace) Clear(ctx context.Context, fields ...string) error {
	if len(fields) == 0 {
		fields = AllFields
	}

	var errs []error
	for _, f := range fields {
		if err := n.Remove(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetString is a convenience wrapper around GetJSON for string fields.
func (n *Namespace) GetString(ctx context.Context, field string) (string, error) {
	var s string
	if _, err := n.GetJSON(ctx, field, &s); err != nil {
		return "", err
	}
	return s, nil
}

// GetBool is a convenience wrapper around GetJSON for bool fields.
func (n *Namespace) GetBool(ctx context.Context, field string) (value, found bool, err error) {
	found, err = n.GetJSON(ctx, field, &value)
	return value, found, err
}

// GetInt64 is a convenience wrapper around GetJSON for integer fields.
func (n *Namespace) GetInt64(ctx context.Context, field string) (value int64, found bool, err error) {
	found, err = n.GetJSON(ctx, field, &value)
	return value, found, err
}
