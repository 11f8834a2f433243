package checkout

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox unavailable")
}

type harness struct {
	conn     *gorm.DB
	store    *storefront.DBStore
	registry *storefront.Registry
	logg     *logger.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	catalog, err := product.NewService(product.ServiceParams{Repo: product.NewRepository(conn)})
	require.NoError(t, err)
	store, err := storefront.NewDBStore(storefront.DBStoreParams{
		Cart:     cart.NewRepository(conn),
		Wishlist: wishlist.NewRepository(conn),
		Catalog:  catalog,
		Logger:   logg,
	})
	require.NoError(t, err)
	registry, err := storefront.NewRegistry(storefront.RegistryParams{Store: store, Logger: logg})
	require.NoError(t, err)
	return &harness{conn: conn, store: store, registry: registry, logg: logg}
}

// peer returns a second registry over the same database, as another API
// instance would hold.
func (h *harness) peer(t *testing.T) *storefront.Registry {
	t.Helper()
	registry, err := storefront.NewRegistry(storefront.RegistryParams{Store: h.store, Logger: h.logg})
	require.NoError(t, err)
	return registry
}

func (h *harness) service(t *testing.T, emitter outboxPublisher) Service {
	t.Helper()
	if emitter == nil {
		emitter = outbox.NewService(outbox.NewRepository(h.conn), h.logg)
	}
	svc, err := NewService(ServiceParams{
		DB:       db.FromGorm(h.conn),
		Orders:   orders.NewRepository(h.conn),
		Outbox:   emitter,
		Managers: h.registry,
		Logger:   h.logg,
	})
	require.NoError(t, err)
	return svc
}

func validDetails() ShippingDetails {
	return ShippingDetails{
		FullName: "Ada Lovelace",
		Email:    " Ada@Example.com ",
		Phone:    "5550100",
		Address:  "12 Analytical Row",
		City:     "London",
		State:    "LDN",
		Pincode:  "110001",
	}
}

func (h *harness) fillCart(t *testing.T, userID uuid.UUID) *storefront.Manager {
	t.Helper()
	ctx := context.Background()
	shirt := dbtest.SeedProduct(t, h.conn, dbtest.ProductSeed{Name: "Shirt", Price: "100", Images: map[string]int{"shirt.jpg": 0}, Sizes: []string{"S", "M"}})
	socks := dbtest.SeedProduct(t, h.conn, dbtest.ProductSeed{Name: "Socks", Price: "50"})

	mgr, err := h.registry.For(ctx, userID)
	require.NoError(t, err)
	size := "M"
	require.NoError(t, mgr.AddToCart(ctx, product.FromRecord(shirt), &size, nil))
	require.NoError(t, mgr.AddToCart(ctx, product.FromRecord(socks), nil, nil))
	require.NoError(t, mgr.AddToCart(ctx, product.FromRecord(socks), nil, nil))
	return mgr
}

func countRows(t *testing.T, conn *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(model).Count(&n).Error)
	return n
}

func TestSubmitPlacesOrderAndClearsCart(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, nil)
	userID := dbtest.SeedUser(t, h.conn)
	mgr := h.fillCart(t, userID)
	expectedTotal := mgr.TotalPrice()
	require.Equal(t, "200", expectedTotal.String())

	order, err := svc.Submit(context.Background(), userID, validDetails())
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.True(t, expectedTotal.Equal(order.TotalAmount))
	assert.Equal(t, 3, order.TotalItems)
	assert.Equal(t, "ada@example.com", order.Shipping.Email)
	require.Len(t, order.Items, 2)
	for _, item := range order.Items {
		assert.Equal(t, item.ProductPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).String(), item.Subtotal.String())
	}

	assert.Equal(t, int64(1), countRows(t, h.conn, &models.Order{}))
	assert.Equal(t, int64(2), countRows(t, h.conn, &models.OrderItem{}))
	assert.Equal(t, int64(0), countRows(t, h.conn, &models.CartItem{}))

	var event models.OutboxEvent
	require.NoError(t, h.conn.First(&event).Error)
	assert.Equal(t, enums.EventOrderPlaced, event.EventType)
	assert.Equal(t, order.ID, event.AggregateID)

	assert.Empty(t, mgr.Cart())
	assert.True(t, mgr.TotalPrice().IsZero())

	var stored models.Order
	require.NoError(t, h.conn.Preload("Items").First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, userID, stored.UserID)
	for _, item := range stored.Items {
		if item.ProductName == "Shirt" {
			require.NotNil(t, item.ProductImage)
			assert.Equal(t, "shirt.jpg", *item.ProductImage)
			require.NotNil(t, item.SelectedSize)
			assert.Equal(t, "M", *item.SelectedSize)
		}
	}
}

func TestSubmitRejectsEmptyCart(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, nil)
	userID := dbtest.SeedUser(t, h.conn)

	_, err := svc.Submit(context.Background(), userID, validDetails())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, int64(0), countRows(t, h.conn, &models.Order{}))
}

func TestSubmitRejectsInvalidShipping(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, nil)
	userID := dbtest.SeedUser(t, h.conn)
	mgr := h.fillCart(t, userID)

	details := validDetails()
	details.Pincode = "12ab"
	details.Email = "not-an-email"
	_, err := svc.Submit(context.Background(), userID, details)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	fields, ok := typed.Details().(map[string]string)
	require.True(t, ok, "details %T", typed.Details())
	assert.Contains(t, fields, "pincode")
	assert.Contains(t, fields, "email")

	assert.Len(t, mgr.Cart(), 2)
	assert.Equal(t, int64(0), countRows(t, h.conn, &models.Order{}))
}

func TestSubmitRollsBackWhenOutboxFails(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, failingEmitter{})
	userID := dbtest.SeedUser(t, h.conn)
	mgr := h.fillCart(t, userID)

	_, err := svc.Submit(context.Background(), userID, validDetails())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	assert.Equal(t, int64(0), countRows(t, h.conn, &models.Order{}))
	assert.Equal(t, int64(0), countRows(t, h.conn, &models.OrderItem{}))
	assert.Equal(t, int64(0), countRows(t, h.conn, &models.OutboxEvent{}))
	assert.Len(t, mgr.Cart(), 2)
	assert.Equal(t, int64(2), countRows(t, h.conn, &models.CartItem{}))
}

func TestSubmitOrdersCartWrittenByAnotherInstance(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, nil)
	ctx := context.Background()
	userID := dbtest.SeedUser(t, h.conn)
	local := h.fillCart(t, userID)
	jeans := dbtest.SeedProduct(t, h.conn, dbtest.ProductSeed{Name: "Jeans", Price: "70"})

	remote, err := h.peer(t).For(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, remote.AddToCart(ctx, product.FromRecord(jeans), nil, nil))
	require.NoError(t, remote.RemoveFromCart(ctx, local.Cart()[0].Product.ID))

	order, err := svc.Submit(ctx, userID, validDetails())
	require.NoError(t, err)

	names := map[string]int{}
	for _, item := range order.Items {
		names[item.ProductName] = item.Quantity
	}
	assert.Equal(t, map[string]int{"Socks": 2, "Jeans": 1}, names)
	assert.True(t, decimal.NewFromInt(170).Equal(order.TotalAmount), "got %s", order.TotalAmount)
	assert.Equal(t, int64(0), countRows(t, h.conn, &models.CartItem{}))
}

func TestSubmitRejectsSizeNoLongerOffered(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, nil)
	userID := dbtest.SeedUser(t, h.conn)
	mgr := h.fillCart(t, userID)
	shirtID := mgr.Cart()[0].Product.ID
	require.NoError(t, h.conn.Where("product_id = ? AND size = ?", shirtID, "M").Delete(&models.ProductSize{}).Error)

	_, err := svc.Submit(context.Background(), userID, validDetails())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, int64(0), countRows(t, h.conn, &models.Order{}))
	assert.Equal(t, int64(2), countRows(t, h.conn, &models.CartItem{}))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
