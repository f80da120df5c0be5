// Package session gives every anonymous shopper a stable pseudo-identity
// so the backend can associate a guest cart with the device across page
// loads. The token is not a security boundary; it only scopes a cart.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/solmercado/storefront-core/pkg/kv"
)

// StorageKey is the fixed key the session token lives under.
const StorageKey = "session:id"

const tokenPrefix = "s"

// Provider manages the durable guest session token.
type Provider struct {
	storage kv.Store
	now     func() time.Time
}

// NewProvider builds a session identity provider on the given storage.
func NewProvider(storage kv.Store) (*Provider, error) {
	if storage == nil {
		return nil, errors.New("session storage is required")
	}
	return &Provider{storage: storage, now: time.Now}, nil
}

// GetOrCreate returns the stored token, generating and persisting a new
// one when absent.
func (p *Provider) GetOrCreate(ctx context.Context) (string, error) {
	stored, err := p.storage.Get(ctx, StorageKey)
	if err == nil && strings.TrimSpace(stored) != "" {
		return stored, nil
	}
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return "", err
	}

	token := p.newToken()
	if err := p.storage.Set(ctx, StorageKey, token); err != nil {
		return "", err
	}
	return token, nil
}

// Renew discards the current token and issues a fresh one. Called on
// logout so the next guest on a shared device does not inherit the
// previous shopper's pre-login cart.
func (p *Provider) Renew(ctx context.Context) (string, error) {
	token := p.newToken()
	if err := p.storage.Set(ctx, StorageKey, token); err != nil {
		return "", err
	}
	return token, nil
}

// Clear removes the token entirely.
func (p *Provider) Clear(ctx context.Context) error {
	return p.storage.Del(ctx, StorageKey)
}

func (p *Provider) newToken() string {
	entropy := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s_%d_%s", tokenPrefix, p.now().UnixMilli(), entropy)
}
