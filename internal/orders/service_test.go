package orders

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, Repository, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo, conn
}

func seedOrder(t *testing.T, repo Repository, userID uuid.UUID, createdAt time.Time, quantities ...int) *models.Order {
	t.Helper()
	items := make([]models.OrderItem, 0, len(quantities))
	total := decimal.Zero
	for i, qty := range quantities {
		price := decimal.NewFromInt(int64(10 * (i + 1)))
		subtotal := price.Mul(decimal.NewFromInt(int64(qty)))
		total = total.Add(subtotal)
		items = append(items, models.OrderItem{
			ProductID:    uuid.New(),
			ProductName:  "Item",
			ProductPrice: price,
			Quantity:     qty,
			Subtotal:     subtotal,
			CreatedAt:    createdAt.Add(time.Duration(i) * time.Millisecond),
		})
	}
	order, err := repo.CreateOrder(context.Background(), &models.Order{
		UserID:      userID,
		FullName:    "Ada Lovelace",
		Email:       "ada@example.com",
		Phone:       "5550100",
		Address:     "12 Analytical Row",
		City:        "London",
		State:       "LDN",
		Pincode:     "110001",
		TotalAmount: total,
		Status:      enums.OrderStatusPending,
		Items:       items,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	})
	require.NoError(t, err)
	return order
}

func TestListReturnsNewestFirstWithItems(t *testing.T) {
	svc, repo, _ := newTestService(t)
	userID := uuid.New()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	older := seedOrder(t, repo, userID, base, 2, 1)
	newer := seedOrder(t, repo, userID, base.Add(time.Hour), 3)
	seedOrder(t, repo, uuid.New(), base.Add(2*time.Hour), 1)

	result, err := svc.List(context.Background(), userID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, result.Orders, 2)
	assert.Empty(t, result.NextCursor)

	assert.Equal(t, newer.ID, result.Orders[0].ID)
	assert.Equal(t, older.ID, result.Orders[1].ID)

	first := result.Orders[1]
	require.Len(t, first.Items, 2)
	assert.Equal(t, 3, first.TotalItems)
	assert.True(t, first.TotalAmount.Equal(decimal.NewFromInt(40)), first.TotalAmount.String())
	assert.Equal(t, enums.OrderStatusPending, first.Status)
	assert.Equal(t, "110001", first.Shipping.Pincode)
}

func TestListPaginatesWithCursor(t *testing.T) {
	svc, repo, _ := newTestService(t)
	userID := uuid.New()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedOrder(t, repo, userID, base.Add(time.Duration(i)*time.Minute), 1)
	}

	page1, err := svc.List(context.Background(), userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1.Orders, 2)
	require.NotEmpty(t, page1.NextCursor)

	page2, err := svc.List(context.Background(), userID, pagination.Params{Limit: 2, Cursor: page1.NextCursor})
	require.NoError(t, err)
	require.Len(t, page2.Orders, 1)
	assert.Empty(t, page2.NextCursor)
	assert.True(t, page2.Orders[0].CreatedAt.Before(page1.Orders[1].CreatedAt))
}

func TestListRejectsBadCursor(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.List(context.Background(), uuid.New(), pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetScopesToOwner(t *testing.T) {
	svc, repo, _ := newTestService(t)
	owner := uuid.New()
	order := seedOrder(t, repo, owner, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), 1)

	got, err := svc.Get(context.Background(), owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	require.Len(t, got.Items, 1)

	_, err = svc.Get(context.Background(), uuid.New(), order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Get(context.Background(), owner, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGetReportsDependencyFailure(t *testing.T) {
	svc, _, conn := newTestService(t)
	require.NoError(t, conn.Exec("DROP TABLE orders").Error)

	_, err := svc.Get(context.Background(), uuid.New(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
