package storefront

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, store RemoteStore) *Registry {
	t.Helper()
	reg, err := NewRegistry(RegistryParams{
		Store:   store,
		Metrics: metrics.NewStorefrontMetrics(prometheus.NewRegistry()),
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
	})
	require.NoError(t, err)
	return reg
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClockedRegistry(t *testing.T, store RemoteStore, maxAge, idleTTL time.Duration) (*Registry, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	reg, err := NewRegistry(RegistryParams{
		Store:   store,
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
		MaxAge:  maxAge,
		IdleTTL: idleTTL,
		Now:     clock.Now,
	})
	require.NoError(t, err)
	return reg, clock
}

func TestRegistryForLoadsOncePerUser(t *testing.T) {
	store := newFakeStore()
	reg := newTestRegistry(t, store)
	ctx := context.Background()
	userID := uuid.New()
	store.cart[userID] = []CartItem{{Product: testProduct("A", "10"), Quantity: 2}}

	first, err := reg.For(ctx, userID)
	require.NoError(t, err)
	calls := store.callCount()
	second, err := reg.For(ctx, userID)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, calls, store.callCount())
	assert.Equal(t, 2, second.TotalItems())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryRetriesFailedLoad(t *testing.T) {
	store := newFakeStore()
	reg := newTestRegistry(t, store)
	ctx := context.Background()
	userID := uuid.New()
	store.fail["load_wishlist"] = errors.New("timeout")

	_, err := reg.For(ctx, userID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	delete(store.fail, "load_wishlist")
	mgr, err := reg.For(ctx, userID)
	require.NoError(t, err)
	got, ok := mgr.UserID()
	require.True(t, ok)
	assert.Equal(t, userID, got)
}

func TestRegistrySignOutClearsAndDrops(t *testing.T) {
	store := newFakeStore()
	reg := newTestRegistry(t, store)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, reg.SignedIn(ctx, userID))
	mgr, err := reg.For(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, mgr.AddToCart(ctx, testProduct("A", "10"), nil, nil))

	reg.SignedOut(ctx, userID)

	assert.Empty(t, mgr.Cart())
	assert.Empty(t, mgr.Wishlist())
	assert.Zero(t, reg.Len())
	reg.SignedOut(ctx, userID)

	fresh, err := reg.For(ctx, userID)
	require.NoError(t, err)
	assert.NotSame(t, mgr, fresh)
	assert.Equal(t, 1, fresh.TotalItems())
}

func TestRegistryKeepsUsersApart(t *testing.T) {
	store := newFakeStore()
	reg := newTestRegistry(t, store)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	aliceMgr, err := reg.For(ctx, alice)
	require.NoError(t, err)
	bobMgr, err := reg.For(ctx, bob)
	require.NoError(t, err)
	require.NoError(t, aliceMgr.AddToCart(ctx, testProduct("A", "10"), nil, nil))

	assert.Equal(t, 1, aliceMgr.TotalItems())
	assert.Equal(t, 0, bobMgr.TotalItems())
}

func TestRegistryReloadsAfterMaxAge(t *testing.T) {
	store := newFakeStore()
	reg, clock := newClockedRegistry(t, store, 30*time.Second, 0)
	ctx := context.Background()
	userID := uuid.New()

	mgr, err := reg.For(ctx, userID)
	require.NoError(t, err)
	store.mu.Lock()
	store.cart[userID] = []CartItem{{Product: testProduct("Jeans", "40"), Quantity: 1}}
	store.mu.Unlock()

	clock.Advance(10 * time.Second)
	_, err = reg.For(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, mgr.TotalItems())

	clock.Advance(25 * time.Second)
	again, err := reg.For(ctx, userID)
	require.NoError(t, err)
	assert.Same(t, mgr, again)
	assert.Equal(t, 1, again.TotalItems())
}

func TestRegistrySweepDropsIdleManagers(t *testing.T) {
	store := newFakeStore()
	reg, clock := newClockedRegistry(t, store, 0, time.Minute)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		_, err := reg.For(ctx, uuid.New())
		require.NoError(t, err)
	}
	active := uuid.New()
	clock.Advance(45 * time.Second)
	_, err := reg.For(ctx, active)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	assert.Equal(t, 100, reg.Sweep())
	assert.Equal(t, 1, reg.Len())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, reg.Sweep())
	assert.Zero(t, reg.Len())
}

func TestRegistrySweepWithoutIdleTTLKeepsManagers(t *testing.T) {
	reg, clock := newClockedRegistry(t, newFakeStore(), 0, 0)
	_, err := reg.For(context.Background(), uuid.New())
	require.NoError(t, err)
	clock.Advance(24 * time.Hour)
	assert.Zero(t, reg.Sweep())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryEvictedManagerIsReplaced(t *testing.T) {
	store := newFakeStore()
	reg, clock := newClockedRegistry(t, store, 0, time.Minute)
	ctx := context.Background()
	userID := uuid.New()

	old, err := reg.For(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, old.AddToCart(ctx, testProduct("A", "10"), nil, nil))

	clock.Advance(2 * time.Minute)
	require.Equal(t, 1, reg.Sweep())

	// A write already holding the evicted manager still reaches the store.
	require.NoError(t, old.AddToCart(ctx, testProduct("B", "5"), nil, nil))

	fresh, err := reg.For(ctx, userID)
	require.NoError(t, err)
	assert.NotSame(t, old, fresh)
	assert.Equal(t, 2, fresh.TotalItems())
}

func TestRegistryForRacingSignOutNeverRevivesDroppedManager(t *testing.T) {
	store := newFakeStore()
	reg := newTestRegistry(t, store)
	ctx := context.Background()
	userID := uuid.New()

	dropped, err := reg.managerFor(userID)
	require.NoError(t, err)
	reg.SignedOut(ctx, userID)

	require.ErrorIs(t, dropped.sync(ctx, userID, 0), errRetired)
	require.ErrorIs(t, dropped.OnIdentityChange(ctx, &userID), errRetired)
	_, ok := dropped.UserID()
	assert.False(t, ok)

	mgr, err := reg.For(ctx, userID)
	require.NoError(t, err)
	assert.NotSame(t, dropped, mgr)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryRunStopsWithContext(t *testing.T) {
	reg, _ := newClockedRegistry(t, newFakeStore(), 0, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
