package product

import (
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the flat catalog record consumed by the cart, wishlist and views.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Images      []string        `json:"images"`
	Price       decimal.Decimal `json:"price"`
	MRP         decimal.Decimal `json:"mrp"`
	Discount    int             `json:"discount"`
	Rating      float64         `json:"rating"`
	RatingTotal int             `json:"rating_total"`
	Seller      string          `json:"seller"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Description string          `json:"description"`
	Sizes       []string        `json:"sizes,omitempty"`
	Colors      []string        `json:"colors,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// FromRecord flattens a product row and its preloaded collections. Images are
// ordered by display order, ties broken by URL. Empty size and color lists
// map to nil.
func FromRecord(row models.Product) Product {
	images := make([]models.ProductImage, len(row.Images))
	copy(images, row.Images)
	sort.SliceStable(images, func(i, j int) bool {
		if images[i].DisplayOrder != images[j].DisplayOrder {
			return images[i].DisplayOrder < images[j].DisplayOrder
		}
		return images[i].ImageURL < images[j].ImageURL
	})
	urls := make([]string, 0, len(images))
	for _, img := range images {
		urls = append(urls, img.ImageURL)
	}

	out := Product{
		ID:          row.ID,
		Name:        row.Name,
		Images:      urls,
		Price:       row.Price,
		MRP:         row.MRP,
		Discount:    row.Discount,
		Rating:      row.Rating,
		Seller:      row.Seller,
		Description: derefString(row.Description),
		CreatedAt:   row.CreatedAt,
	}
	if row.RatingCount != nil {
		out.RatingTotal = *row.RatingCount
	}
	if row.Category != nil {
		out.Category = row.Category.Slug
	}
	if row.Subcategory != nil {
		out.Subcategory = row.Subcategory.Slug
	}
	for _, s := range row.Sizes {
		out.Sizes = append(out.Sizes, s.Size)
	}
	for _, c := range row.Colors {
		out.Colors = append(out.Colors, c.Color)
	}
	return out
}

// FromRecords maps rows preserving their order.
func FromRecords(rows []models.Product) []Product {
	out := make([]Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromRecord(row))
	}
	return out
}

// PrimaryImage returns the first image URL, if any.
func (p Product) PrimaryImage() *string {
	if len(p.Images) == 0 {
		return nil
	}
	img := p.Images[0]
	return &img
}

// CategoryDTO is a browseable category with its subcategories.
type CategoryDTO struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	Slug          string           `json:"slug"`
	Image         *string          `json:"image,omitempty"`
	Subcategories []SubcategoryDTO `json:"subcategories"`
}

type SubcategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

func categoryFromRecord(row models.Category) CategoryDTO {
	subs := make([]SubcategoryDTO, 0, len(row.Subcategories))
	for _, s := range row.Subcategories {
		subs = append(subs, SubcategoryDTO{ID: s.ID, Name: s.Name, Slug: s.Slug})
	}
	return CategoryDTO{
		ID:            row.ID,
		Name:          row.Name,
		Slug:          row.Slug,
		Image:         row.Image,
		Subcategories: subs,
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
