// Package dbtest opens throwaway sqlite databases carrying the storefront schema.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

// Open returns an isolated in-memory sqlite database with every table created.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migrate.ApplySQLite(context.Background(), conn); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// ProductSeed describes a product to insert. Zero values get sensible defaults.
type ProductSeed struct {
	Name        string
	Price       string
	MRP         string
	Seller      string
	Category    string
	Subcategory string
	Images      map[string]int
	Sizes       []string
	Colors      []string
	Inactive    bool
}

// SeedProduct inserts a product with its category, subcategory and collections.
func SeedProduct(t testing.TB, db *gorm.DB, seed ProductSeed) models.Product {
	t.Helper()
	if seed.Name == "" {
		seed.Name = "Product " + uuid.NewString()[:8]
	}
	if seed.Price == "" {
		seed.Price = "100"
	}
	if seed.MRP == "" {
		seed.MRP = seed.Price
	}
	if seed.Seller == "" {
		seed.Seller = "Acme"
	}
	if seed.Category == "" {
		seed.Category = "men"
	}

	category := EnsureCategory(t, db, seed.Category)
	row := models.Product{
		Name:       seed.Name,
		Price:      decimal.RequireFromString(seed.Price),
		MRP:        decimal.RequireFromString(seed.MRP),
		Seller:     seed.Seller,
		CategoryID: category.ID,
		IsActive:   true,
	}
	if seed.Subcategory != "" {
		sub := EnsureSubcategory(t, db, category, seed.Subcategory)
		row.SubcategoryID = &sub.ID
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	if seed.Inactive {
		if err := db.Model(&models.Product{}).Where("id = ?", row.ID).Update("is_active", false).Error; err != nil {
			t.Fatalf("deactivate product: %v", err)
		}
		row.IsActive = false
	}
	for url, order := range seed.Images {
		img := models.ProductImage{ProductID: row.ID, ImageURL: url, DisplayOrder: order}
		if err := db.Create(&img).Error; err != nil {
			t.Fatalf("create image: %v", err)
		}
	}
	for _, size := range seed.Sizes {
		if err := db.Create(&models.ProductSize{ProductID: row.ID, Size: size, StockQuantity: 10}).Error; err != nil {
			t.Fatalf("create size: %v", err)
		}
	}
	for _, color := range seed.Colors {
		if err := db.Create(&models.ProductColor{ProductID: row.ID, Color: color, StockQuantity: 10}).Error; err != nil {
			t.Fatalf("create color: %v", err)
		}
	}
	return row
}

// EnsureCategory returns the category with slug, creating it when missing.
func EnsureCategory(t testing.TB, db *gorm.DB, slug string) models.Category {
	t.Helper()
	var category models.Category
	err := db.Where("slug = ?", slug).First(&category).Error
	if err == nil {
		return category
	}
	category = models.Category{Name: slug, Slug: slug}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return category
}

// EnsureSubcategory returns the subcategory with slug under category, creating it when missing.
func EnsureSubcategory(t testing.TB, db *gorm.DB, category models.Category, slug string) models.Subcategory {
	t.Helper()
	var sub models.Subcategory
	err := db.Where("category_id = ? AND slug = ?", category.ID, slug).First(&sub).Error
	if err == nil {
		return sub
	}
	sub = models.Subcategory{CategoryID: category.ID, Name: slug, Slug: slug}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("create subcategory: %v", err)
	}
	return sub
}

// SeedUser inserts a user row and returns its id.
func SeedUser(t testing.TB, db *gorm.DB) uuid.UUID {
	t.Helper()
	user := models.User{Email: uuid.NewString() + "@example.com", PasswordHash: "hash", IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user.ID
}
