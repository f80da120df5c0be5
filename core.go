// Package storefrontcore wires the device-resident cart stack: durable
// storage, the cart store, guest session identity, auth-state
// observation, the backend gateway, and the synchronization controller.
// The embedding storefront process constructs one Core per device
// profile and drives it for the lifetime of the session.
package storefrontcore

import (
	"context"
	"fmt"

	"github.com/solmercado/storefront-core/internal/authstate"
	"github.com/solmercado/storefront-core/internal/cart"
	"github.com/solmercado/storefront-core/internal/gateway"
	"github.com/solmercado/storefront-core/internal/session"
	"github.com/solmercado/storefront-core/internal/syncer"
	"github.com/solmercado/storefront-core/pkg/config"
	"github.com/solmercado/storefront-core/pkg/kv"
	"github.com/solmercado/storefront-core/pkg/logger"
)

// Re-exported domain types so embedders do not reach into internal
// packages.
type (
	Line            = cart.Line
	ProductSnapshot = cart.ProductSnapshot
	AuthSnapshot    = authstate.Snapshot
	Mutation        = gateway.Mutation
	Phase           = syncer.Phase
)

const (
	OpAdd    = gateway.OpAdd
	OpUpdate = gateway.OpUpdate
	OpRemove = gateway.OpRemove
)

// Core bundles the wired components.
type Core struct {
	Log      *logger.Logger
	Store    *cart.Store
	Sessions *session.Provider
	Auth     *authstate.Observer
	Gateway  *gateway.Client
	Syncer   *syncer.Controller

	storage kv.Store
}

// New builds a Core from configuration, selecting the storage backend
// and rehydrating the persisted cart.
func New(ctx context.Context, cfg *config.Config) (*Core, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	log := logger.New(logger.Options{
		ServiceName: "storefront-core",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	storage, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := cart.NewStore(cart.StoreParams{Storage: storage, Logger: log})
	if err != nil {
		return nil, err
	}
	if err := store.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading persisted cart: %w", err)
	}

	sessions, err := session.NewProvider(storage)
	if err != nil {
		return nil, err
	}

	auth := authstate.NewObserver(authstate.ObserverParams{JWT: cfg.JWT, Logger: log})

	gw, err := gateway.NewClient(cfg.Gateway)
	if err != nil {
		return nil, err
	}

	controller, err := syncer.NewController(syncer.ControllerParams{
		Store:    store,
		Sessions: sessions,
		Auth:     auth,
		Gateway:  gw,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}

	return &Core{
		Log:      log,
		Store:    store,
		Sessions: sessions,
		Auth:     auth,
		Gateway:  gw,
		Syncer:   controller,
		storage:  storage,
	}, nil
}

// Run drives the synchronization loop until the context is canceled.
func (c *Core) Run(ctx context.Context) {
	c.Syncer.Run(ctx)
}

// Close releases the storage backend when it holds external resources.
func (c *Core) Close() error {
	if closer, ok := c.storage.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	switch cfg.Storage.NormalizedBackend() {
	case config.StorageBackendMemory:
		return kv.NewMemory(), nil
	case config.StorageBackendSQLite:
		return kv.NewSQLite(cfg.Storage.SQLitePath)
	case config.StorageBackendRedis:
		return kv.NewRedis(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
