package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/google/uuid"
)

// forAttempts bounds how often For retries after losing a manager to a
// concurrent sign-out or eviction.
const forAttempts = 3

type RegistryParams struct {
	Store    RemoteStore
	Notifier Notifier
	Metrics  *metrics.StorefrontMetrics
	Logger   *logger.Logger
	// MaxAge reloads a held manager whose last load is at least this old.
	// Zero never reloads.
	MaxAge time.Duration
	// IdleTTL is how long a manager may go unrequested before Sweep drops
	// it. Zero keeps managers until sign-out.
	IdleTTL time.Duration
	Now     func() time.Time
}

type registryEntry struct {
	mgr      *Manager
	lastUsed time.Time
}

// Registry keeps one Manager per signed-in user.
type Registry struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*registryEntry
	params  ManagerParams
	maxAge  time.Duration
	idleTTL time.Duration
	now     func() time.Time
	metrics *metrics.StorefrontMetrics
	logg    *logger.Logger
}

func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("remote store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		entries: make(map[uuid.UUID]*registryEntry),
		params: ManagerParams{
			Store:    params.Store,
			Notifier: params.Notifier,
			Metrics:  params.Metrics,
			Logger:   params.Logger,
			Now:      now,
		},
		maxAge:  params.MaxAge,
		idleTTL: params.IdleTTL,
		now:     now,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// For returns the user's manager, creating and loading it on first use. A
// manager whose earlier load failed, or whose last load is older than MaxAge,
// is loaded again.
func (r *Registry) For(ctx context.Context, userID uuid.UUID) (*Manager, error) {
	for attempt := 0; attempt < forAttempts; attempt++ {
		mgr, err := r.managerFor(userID)
		if err != nil {
			return nil, err
		}
		err = mgr.sync(ctx, userID, r.maxAge)
		if errors.Is(err, errRetired) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return mgr, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeDependency, "storefront state is being reset, please retry")
}

// SignedIn fires the present transition for userID.
func (r *Registry) SignedIn(ctx context.Context, userID uuid.UUID) error {
	_, err := r.For(ctx, userID)
	return err
}

// SignedOut fires the absent transition for userID and forgets its manager.
func (r *Registry) SignedOut(_ context.Context, userID uuid.UUID) {
	r.mu.Lock()
	entry, ok := r.entries[userID]
	delete(r.entries, userID)
	r.metrics.SetActiveManagers(len(r.entries))
	r.mu.Unlock()

	if ok {
		entry.mgr.retire(true)
	}
}

// Sweep drops managers that have not been requested within IdleTTL and
// returns how many it dropped.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var idle []*Manager
	for userID, entry := range r.entries {
		if entry.lastUsed.Before(cutoff) {
			idle = append(idle, entry.mgr)
			delete(r.entries, userID)
		}
	}
	r.metrics.SetActiveManagers(len(r.entries))
	r.mu.Unlock()

	for _, mgr := range idle {
		mgr.retire(false)
	}
	return len(idle)
}

// Run sweeps idle managers every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if r.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logg.Debug(r.logg.WithField(ctx, "evicted", n), "evicted idle storefront managers")
			}
		}
	}
}

// Len reports how many managers are held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) managerFor(userID uuid.UUID) (*Manager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[userID]; ok {
		entry.lastUsed = r.now()
		return entry.mgr, nil
	}
	mgr, err := NewManager(r.params)
	if err != nil {
		return nil, err
	}
	r.entries[userID] = &registryEntry{mgr: mgr, lastUsed: r.now()}
	r.metrics.SetActiveManagers(len(r.entries))
	return mgr, nil
}
