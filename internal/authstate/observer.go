// Package authstate exposes a read-only reactive view of the external
// authentication subsystem: whether the shopper is authenticated, who
// they are, and the access token once it has propagated. The token can
// lag the authenticated flag, and consumers must cope with that.
package authstate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/solmercado/storefront-core/pkg/auth"
	"github.com/solmercado/storefront-core/pkg/config"
	"github.com/solmercado/storefront-core/pkg/logger"
)

// Snapshot is one observed auth state.
type Snapshot struct {
	IsAuthenticated bool
	UserID          string
	AccessToken     string
}

// HasToken reports whether a usable access token is present.
func (s Snapshot) HasToken() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

// Observer holds the current snapshot and fans updates out to
// subscribers. Subscriptions are conflated: a slow consumer sees the
// latest snapshot, never a stale backlog.
type Observer struct {
	mu      sync.Mutex
	current Snapshot
	subs    map[int]chan Snapshot
	nextSub int

	jwtCfg config.JWTConfig
	log    *logger.Logger
	now    func() time.Time
}

// ObserverParams groups dependencies for the observer.
type ObserverParams struct {
	JWT    config.JWTConfig
	Logger *logger.Logger
	Now    func() time.Time
}

// NewObserver builds an observer starting in the anonymous state.
func NewObserver(params ObserverParams) *Observer {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Observer{
		subs:   make(map[int]chan Snapshot),
		jwtCfg: params.JWT,
		log:    params.Logger,
		now:    now,
	}
}

// Current returns the latest snapshot.
func (o *Observer) Current() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Set records a new snapshot from the auth subsystem and notifies
// subscribers. Tokens that are already expired client-side are treated
// as absent so no backend call is attempted with them; a token also
// fills in a missing user ID from its claims.
func (o *Observer) Set(ctx context.Context, snap Snapshot) {
	snap = o.normalize(ctx, snap)

	o.mu.Lock()
	o.current = snap
	channels := make([]chan Snapshot, 0, len(o.subs))
	for _, ch := range o.subs {
		channels = append(channels, ch)
	}
	o.mu.Unlock()

	for _, ch := range channels {
		// Latest-wins: drain the single-slot buffer before sending.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Subscribe returns a channel of snapshots and a cancel function. The
// channel immediately carries the current snapshot.
func (o *Observer) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	ch <- o.current
	o.mu.Unlock()

	cancel := func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
	return ch, cancel
}

func (o *Observer) normalize(ctx context.Context, snap Snapshot) Snapshot {
	if !snap.HasToken() {
		snap.AccessToken = ""
		return snap
	}

	claims, err := auth.DecodeClaims(snap.AccessToken)
	if err != nil {
		if o.log != nil {
			o.log.Warn(ctx, "dropping undecodable access token from auth snapshot")
		}
		snap.AccessToken = ""
		return snap
	}
	if claims.IsExpired(o.jwtCfg, o.now()) {
		if o.log != nil {
			o.log.Warn(ctx, "dropping expired access token from auth snapshot")
		}
		snap.AccessToken = ""
		return snap
	}
	if snap.UserID == "" {
		snap.UserID = claims.SubjectID()
	}
	return snap
}
