package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a sellable catalog row. price <= mrp is enforced by a CHECK constraint.
type Product struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string          `gorm:"column:name;not null"`
	Description   *string         `gorm:"column:description"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	MRP           decimal.Decimal `gorm:"column:mrp;type:numeric(10,2);not null"`
	Discount      int             `gorm:"column:discount;not null;default:0"`
	Rating        float64         `gorm:"column:rating;type:numeric(2,1);not null;default:0"`
	RatingCount   *int            `gorm:"column:rating_count"`
	Seller        string          `gorm:"column:seller;not null"`
	CategoryID    uuid.UUID       `gorm:"column:category_id;type:uuid;not null"`
	SubcategoryID *uuid.UUID      `gorm:"column:subcategory_id;type:uuid"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true"`
	Category      *Category       `gorm:"foreignKey:CategoryID"`
	Subcategory   *Subcategory    `gorm:"foreignKey:SubcategoryID"`
	Images        []ProductImage  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Sizes         []ProductSize   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Colors        []ProductColor  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

type ProductImage struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	ImageURL     string    `gorm:"column:image_url;not null"`
	DisplayOrder int       `gorm:"column:display_order;not null;default:0"`
}

func (i *ProductImage) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

type ProductSize struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Size          string    `gorm:"column:size;not null"`
	StockQuantity int       `gorm:"column:stock_quantity;not null;default:0"`
}

func (s *ProductSize) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

type ProductColor struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Color         string    `gorm:"column:color;not null"`
	HexCode       *string   `gorm:"column:hex_code"`
	StockQuantity int       `gorm:"column:stock_quantity;not null;default:0"`
}

func (c *ProductColor) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
