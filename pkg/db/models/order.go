package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is a placed order header with the shipping details captured at checkout.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	FullName    string            `gorm:"column:full_name;not null"`
	Email       string            `gorm:"column:email;not null"`
	Phone       string            `gorm:"column:phone;not null"`
	Address     string            `gorm:"column:address;not null"`
	City        string            `gorm:"column:city;not null"`
	State       string            `gorm:"column:state;not null"`
	Pincode     string            `gorm:"column:pincode;not null"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount;type:numeric(10,2);not null"`
	Status      enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Items       []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots a cart line at order time.
type OrderItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName   string          `gorm:"column:product_name;not null"`
	ProductImage  *string         `gorm:"column:product_image"`
	ProductPrice  decimal.Decimal `gorm:"column:product_price;type:numeric(10,2);not null"`
	Quantity      int             `gorm:"column:quantity;not null"`
	SelectedSize  *string         `gorm:"column:selected_size"`
	SelectedColor *string         `gorm:"column:selected_color"`
	Subtotal      decimal.Decimal `gorm:"column:subtotal;type:numeric(10,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
