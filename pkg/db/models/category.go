package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is a top level catalog section (men, women, kids, home).
type Category struct {
	ID            uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string        `gorm:"column:name;not null"`
	Slug          string        `gorm:"column:slug;not null;uniqueIndex"`
	Image         *string       `gorm:"column:image"`
	Subcategories []Subcategory `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time     `gorm:"column:created_at;autoCreateTime"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Subcategory narrows a category (for example men/t-shirts).
type Subcategory struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID uuid.UUID `gorm:"column:category_id;type:uuid;not null"`
	Name       string    `gorm:"column:name;not null"`
	Slug       string    `gorm:"column:slug;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (s *Subcategory) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
