package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	pkgcheckout "github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/validate"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type managerSource interface {
	For(ctx context.Context, userID uuid.UUID) (*storefront.Manager, error)
}

// Service places orders from a user's cart.
type Service interface {
	Submit(ctx context.Context, userID uuid.UUID, details ShippingDetails) (*orders.Order, error)
}

type ServiceParams struct {
	DB       txRunner
	Orders   orders.Repository
	Outbox   outboxPublisher
	Managers managerSource
	Metrics  *metrics.StorefrontMetrics
	Logger   *logger.Logger
}

type service struct {
	db       txRunner
	orders   orders.Repository
	outbox   outboxPublisher
	managers managerSource
	metrics  *metrics.StorefrontMetrics
	logg     *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Managers == nil {
		return nil, fmt.Errorf("storefront registry required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:       params.DB,
		orders:   params.Orders,
		outbox:   params.Outbox,
		managers: params.Managers,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Submit reloads the cart from the store, then writes the order header, one
// item per cart line and an order_placed event in one transaction, then clears
// the cart. A failed clear is logged and does not undo the order.
func (s *service) Submit(ctx context.Context, userID uuid.UUID, details ShippingDetails) (*orders.Order, error) {
	details = normalizeDetails(details)
	if err := validate.Struct(details); err != nil {
		return nil, err
	}

	mgr, err := s.managers.For(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := mgr.Refresh(ctx); err != nil {
		return nil, err
	}

	items := mgr.Cart()
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if err := pkgcheckout.ValidateLines(lineInputs(items)); err != nil {
		return nil, err
	}

	order := buildOrder(userID, details, items, mgr.TotalPrice())

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.orders.WithTx(tx).CreateOrder(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := s.outbox.Emit(ctx, tx, orderPlacedEvent(created)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order placed")
		}
		return nil
	})
	if err != nil && pkgerrors.As(err) == nil {
		err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place order")
	}
	s.metrics.ObserveCheckout(err)
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, userID.String()), order.ID.String())
	s.logg.Info(logCtx, "order placed")

	if err := mgr.ClearCart(ctx); err != nil {
		s.logg.Error(logCtx, "failed to clear cart after order", err)
	}

	return orders.FromModel(order), nil
}

func buildOrder(userID uuid.UUID, details ShippingDetails, items []storefront.CartItem, total decimal.Decimal) *models.Order {
	order := &models.Order{
		ID:          uuid.New(),
		UserID:      userID,
		FullName:    details.FullName,
		Email:       details.Email,
		Phone:       details.Phone,
		Address:     details.Address,
		City:        details.City,
		State:       details.State,
		Pincode:     details.Pincode,
		TotalAmount: total,
		Status:      enums.OrderStatusPending,
		Items:       make([]models.OrderItem, 0, len(items)),
	}
	for _, item := range items {
		order.Items = append(order.Items, models.OrderItem{
			OrderID:       order.ID,
			ProductID:     item.Product.ID,
			ProductName:   item.Product.Name,
			ProductImage:  item.Product.PrimaryImage(),
			ProductPrice:  item.Product.Price,
			Quantity:      item.Quantity,
			SelectedSize:  item.SelectedSize,
			SelectedColor: item.SelectedColor,
			Subtotal:      item.Subtotal(),
		})
	}
	return order
}

func orderPlacedEvent(order *models.Order) outbox.DomainEvent {
	productIDs := make(pq.StringArray, 0, len(order.Items))
	itemCount := 0
	for _, item := range order.Items {
		productIDs = append(productIDs, item.ProductID.String())
		itemCount += item.Quantity
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: order.UserID},
		Data: payloads.OrderPlacedEvent{
			OrderID:     order.ID,
			UserID:      order.UserID,
			Email:       order.Email,
			TotalAmount: order.TotalAmount,
			ItemCount:   itemCount,
			ProductIDs:  productIDs,
			PlacedAt:    order.CreatedAt,
		},
	}
}

func lineInputs(items []storefront.CartItem) []pkgcheckout.LineInput {
	out := make([]pkgcheckout.LineInput, 0, len(items))
	for _, item := range items {
		out = append(out, pkgcheckout.LineInput{
			ProductID:     item.Product.ID,
			ProductName:   item.Product.Name,
			Price:         item.Product.Price,
			Quantity:      item.Quantity,
			SelectedSize:  item.SelectedSize,
			SelectedColor: item.SelectedColor,
			Sizes:         item.Product.Sizes,
			Colors:        item.Product.Colors,
		})
	}
	return out
}

func normalizeDetails(d ShippingDetails) ShippingDetails {
	return ShippingDetails{
		FullName: strings.TrimSpace(d.FullName),
		Email:    strings.ToLower(strings.TrimSpace(d.Email)),
		Phone:    strings.TrimSpace(d.Phone),
		Address:  strings.TrimSpace(d.Address),
		City:     strings.TrimSpace(d.City),
		State:    strings.TrimSpace(d.State),
		Pincode:  strings.TrimSpace(d.Pincode),
	}
}
