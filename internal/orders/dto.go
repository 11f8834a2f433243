package orders

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShippingDetails is the address block captured at checkout.
type ShippingDetails struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
}

// OrderItem is the snapshot of one cart line at order time.
type OrderItem struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	ProductImage  *string         `json:"product_image,omitempty"`
	ProductPrice  decimal.Decimal `json:"product_price"`
	Quantity      int             `json:"quantity"`
	SelectedSize  *string         `json:"selected_size,omitempty"`
	SelectedColor *string         `json:"selected_color,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

// Order is the shopper-facing view of an order with its items.
type Order struct {
	ID          uuid.UUID         `json:"id"`
	Status      enums.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	TotalItems  int               `json:"total_items"`
	Shipping    ShippingDetails   `json:"shipping"`
	Items       []OrderItem       `json:"items"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ListResult wraps a page of orders plus the next page cursor.
type ListResult struct {
	Orders     []Order `json:"orders"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

func FromModel(m *models.Order) *Order {
	if m == nil {
		return nil
	}
	items := make([]OrderItem, 0, len(m.Items))
	totalItems := 0
	for _, item := range m.Items {
		totalItems += item.Quantity
		items = append(items, OrderItem{
			ID:            item.ID,
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			ProductImage:  item.ProductImage,
			ProductPrice:  item.ProductPrice,
			Quantity:      item.Quantity,
			SelectedSize:  item.SelectedSize,
			SelectedColor: item.SelectedColor,
			Subtotal:      item.Subtotal,
		})
	}
	return &Order{
		ID:          m.ID,
		Status:      m.Status,
		TotalAmount: m.TotalAmount,
		TotalItems:  totalItems,
		Shipping: ShippingDetails{
			FullName: m.FullName,
			Email:    m.Email,
			Phone:    m.Phone,
			Address:  m.Address,
			City:     m.City,
			State:    m.State,
			Pincode:  m.Pincode,
		},
		Items:     items,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
