package mcqgen

import (
	"context"
	"strings"
)

// KeyAPIKey is the store key holding the user's API key.
const KeyAPIKey = "openai_api_key"

// MaskedKeyPlaceholder is what a key input shows when a key is already
// saved. It is never accepted as a key.
var MaskedKeyPlaceholder = strings.Repeat("•", 16)

// KeyStatus reports whether a key is configured without exposing it.
type KeyStatus struct {
	HasKey bool `json:"hasKey"`
}

// Credentials keeps the API key in the store, unencrypted.
type Credentials struct {
	store KVStore
}

// NewCredentials creates credentials backed by store
func NewCredentials(store KVStore) *Credentials {
	return &Credentials{store: store}
}

// Key returns the stored key and whether one is set
func (c *Credentials) Key(ctx context.Context) (string, bool, error) {
	key, ok, err := c.store.Get(ctx, KeyAPIKey)
	if err != nil || !ok || key == "" {
		return "", false, err
	}
	return key, true, nil
}

// Status reports whether a key is set
func (c *Credentials) Status(ctx context.Context) (KeyStatus, error) {
	_, ok, err := c.Key(ctx)
	return KeyStatus{HasKey: ok}, err
}

// SetKey stores key after trimming. Blank keys and the masked placeholder are
// rejected with ErrInvalidKey.
func (c *Credentials) SetKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" || key == MaskedKeyPlaceholder {
		return ErrInvalidKey
	}
	return c.store.Set(ctx, KeyAPIKey, key)
}

// ClearKey removes the stored key
func (c *Credentials) ClearKey(ctx context.Context) error {
	return c.store.Remove(ctx, KeyAPIKey)
}
