package product

import (
	"sort"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Filter narrows a product listing. Empty slices and nil bounds match everything.
type Filter struct {
	Categories    []string
	Subcategories []string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	Brands        []string
	Query         string
	Sort          enums.ProductSort
}

// Apply returns the products matching f, ordered by f.Sort. The input slice is not modified.
func Apply(products []Product, f Filter) []Product {
	categories := lowerSet(f.Categories)
	subcategories := lowerSet(f.Subcategories)
	brands := lowerSet(f.Brands)
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if len(categories) > 0 && !categories[strings.ToLower(p.Category)] {
			continue
		}
		if len(subcategories) > 0 && !subcategories[strings.ToLower(p.Subcategory)] {
			continue
		}
		if len(brands) > 0 && !brands[strings.ToLower(p.Seller)] {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		if query != "" && !matchesQuery(p, query) {
			continue
		}
		out = append(out, p)
	}

	sortProducts(out, f.Sort)
	return out
}

func matchesQuery(p Product, query string) bool {
	for _, field := range []string{p.Name, p.Seller, p.Category, p.Subcategory} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func sortProducts(products []Product, by enums.ProductSort) {
	switch by {
	case enums.ProductSortPriceAsc:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price.LessThan(products[j].Price)
		})
	case enums.ProductSortPriceDesc:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price.GreaterThan(products[j].Price)
		})
	case enums.ProductSortRating:
		sort.SliceStable(products, func(i, j int) bool {
			if products[i].Rating != products[j].Rating {
				return products[i].Rating > products[j].Rating
			}
			return products[i].RatingTotal > products[j].RatingTotal
		})
	}
}

// Brands returns the distinct sellers of products, sorted.
func Brands(products []Product) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, p := range products {
		if p.Seller == "" {
			continue
		}
		if _, ok := seen[p.Seller]; ok {
			continue
		}
		seen[p.Seller] = struct{}{}
		out = append(out, p.Seller)
	}
	sort.Strings(out)
	return out
}

func lowerSet(values []string) map[string]bool {
	set := map[string]bool{}
	for _, v := range values {
		if trimmed := strings.ToLower(strings.TrimSpace(v)); trimmed != "" {
			set[trimmed] = true
		}
	}
	return set
}
