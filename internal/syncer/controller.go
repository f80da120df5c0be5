// Package syncer coordinates the device-resident cart with the backend:
// it watches authentication transitions, triggers the one-time merge of
// the anonymous cart after login, rehydrates the local store from the
// backend, and tears everything down on logout.
package syncer

import (
	"context"
	"errors"
	"sync"

	"github.com/solmercado/storefront-core/internal/authstate"
	"github.com/solmercado/storefront-core/internal/cart"
	"github.com/solmercado/storefront-core/internal/gateway"
	"github.com/solmercado/storefront-core/pkg/logger"
)

// Gateway is the backend surface the controller depends on.
type Gateway interface {
	FetchCart(ctx context.Context, authToken string) ([]cart.Line, error)
	MergeCart(ctx context.Context, authToken, sessionID string) ([]cart.Line, error)
	PushMutation(ctx context.Context, mut gateway.Mutation, ident gateway.Identity) error
}

type sessionProvider interface {
	GetOrCreate(ctx context.Context) (string, error)
	Renew(ctx context.Context) (string, error)
}

// ControllerParams groups dependencies for the controller.
type ControllerParams struct {
	Store    *cart.Store
	Sessions sessionProvider
	Auth     *authstate.Observer
	Gateway  Gateway
	Logger   *logger.Logger
}

// Controller is the cart synchronization state machine. Its phases are
// derived from the observed auth snapshot plus the merge guard; they are
// never stored directly.
type Controller struct {
	store    *cart.Store
	sessions sessionProvider
	auth     *authstate.Observer
	gateway  Gateway
	log      *logger.Logger

	// mu serializes whole evaluations so a merge in flight can never be
	// overtaken by a fetch that would discard unmerged local items.
	mu      sync.Mutex
	merged  bool
	prev    authstate.Snapshot
	seeded  bool
	lastErr error
}

// NewController builds a controller with the required dependencies.
func NewController(params ControllerParams) (*Controller, error) {
	if params.Store == nil {
		return nil, errors.New("cart store is required")
	}
	if params.Sessions == nil {
		return nil, errors.New("session provider is required")
	}
	if params.Auth == nil {
		return nil, errors.New("auth observer is required")
	}
	if params.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Controller{
		store:    params.Store,
		sessions: params.Sessions,
		auth:     params.Auth,
		gateway:  params.Gateway,
		log:      params.Logger,
	}, nil
}

// Run subscribes to auth snapshots and evaluates each one until the
// context is canceled. Sync failures are logged and recorded but never
// stop the loop.
func (c *Controller) Run(ctx context.Context) {
	snapshots, cancel := c.auth.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-snapshots:
			if err := c.HandleSnapshot(ctx, snap); err != nil {
				c.log.Error(ctx, "cart sync evaluation failed", err)
			}
		}
	}
}

// HandleSnapshot evaluates one observed auth state. It is safe to call
// repeatedly with the same snapshot; duplicate evaluations never issue
// duplicate merge requests.
func (c *Controller) HandleSnapshot(ctx context.Context, snap authstate.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.prev
	seeded := c.seeded
	c.prev = snap
	c.seeded = true

	if !snap.IsAuthenticated {
		if seeded && prev.IsAuthenticated {
			return c.logoutLocked(ctx)
		}
		return nil
	}

	// Authenticated but the token has not propagated yet: defer, never
	// fail. Acting here is the premature-merge hazard.
	if !snap.HasToken() {
		return nil
	}

	if !c.merged {
		// Check-and-set in the same critical section as the triggering
		// transition; a re-entrant evaluation sees the guard already up.
		c.merged = true
		return c.mergeLocked(ctx, snap)
	}

	if seeded && prev == snap {
		// Same snapshot re-delivered; nothing changed worth a refetch.
		return nil
	}
	return c.fetchLocked(ctx, snap)
}

// Refresh re-fetches the backend cart when authenticated with a token.
// Anonymous or token-pending states are a no-op.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.auth.Current()
	if !snap.IsAuthenticated || !snap.HasToken() {
		return nil
	}
	return c.fetchLocked(ctx, snap)
}

// Push proxies a local mutation to the backend with whichever identity
// the shopper currently has. Best-effort: local state is already durable
// regardless of the outcome.
func (c *Controller) Push(ctx context.Context, mut gateway.Mutation) error {
	snap := c.auth.Current()
	ident := gateway.Identity{}
	if snap.IsAuthenticated && snap.HasToken() {
		ident.AuthToken = snap.AccessToken
	} else {
		sessionID, err := c.sessions.GetOrCreate(ctx)
		if err != nil {
			return err
		}
		ident.SessionID = sessionID
	}
	return c.gateway.PushMutation(ctx, mut, ident)
}

// Phase reports the derived state for the current auth snapshot.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return derivePhase(c.auth.Current(), c.merged)
}

// LastError returns the most recent sync failure, nil after a success.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) mergeLocked(ctx context.Context, snap authstate.Snapshot) error {
	ctx = c.log.WithUserID(ctx, snap.UserID)

	if c.store.TotalItems() == 0 {
		// Nothing local to fold in; skip the merge call and go straight
		// to the authoritative fetch.
		c.log.Debug(ctx, "local cart empty, skipping merge")
		return c.fetchLocked(ctx, snap)
	}

	sessionID, err := c.sessions.GetOrCreate(ctx)
	if err != nil {
		c.lastErr = err
		return err
	}

	lines, err := c.gateway.MergeCart(ctx, snap.AccessToken, sessionID)
	if err != nil {
		// Local state stays intact; the next login may re-attempt.
		c.lastErr = err
		return err
	}

	c.store.Replace(ctx, lines)
	c.lastErr = nil
	c.log.Info(ctx, "anonymous cart merged into account cart")
	return nil
}

func (c *Controller) fetchLocked(ctx context.Context, snap authstate.Snapshot) error {
	ctx = c.log.WithUserID(ctx, snap.UserID)

	lines, err := c.gateway.FetchCart(ctx, snap.AccessToken)
	if err != nil {
		c.lastErr = err
		return err
	}

	c.store.Replace(ctx, lines)
	c.lastErr = nil
	return nil
}

func (c *Controller) logoutLocked(ctx context.Context) error {
	c.merged = false
	c.lastErr = nil
	c.store.Clear(ctx)
	if _, err := c.sessions.Renew(ctx); err != nil {
		c.lastErr = err
		return err
	}
	c.log.Info(ctx, "cart cleared and session renewed on logout")
	return nil
}
