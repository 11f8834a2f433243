package checkout

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 999

// MaxAmount is the largest value a numeric(10,2) money column holds.
var MaxAmount = decimal.RequireFromString("99999999.99")

// LineInput describes one cart line about to be written as an order item.
type LineInput struct {
	ProductID     uuid.UUID
	ProductName   string
	Price         decimal.Decimal
	Quantity      int
	SelectedSize  *string
	SelectedColor *string
	Sizes         []string
	Colors        []string
}

// LineViolationDetail is returned to callers for every line that cannot be ordered.
type LineViolationDetail struct {
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name,omitempty"`
	Reason       string    `json:"reason"`
	RequestedQty int       `json:"requested_qty"`
}

const (
	reasonQuantity      = "quantity_below_one"
	reasonQuantityLimit = "quantity_above_limit"
	reasonPrice         = "negative_price"
	reasonAmount        = "amount_out_of_range"
	reasonSize          = "size_not_offered"
	reasonColor         = "color_not_offered"
)

// OptionOffered reports whether selected is one of offered, ignoring case. No
// selection is always allowed; products without variants accept none.
func OptionOffered(selected *string, offered []string) bool {
	if selected == nil {
		return true
	}
	for _, option := range offered {
		if strings.EqualFold(option, *selected) {
			return true
		}
	}
	return false
}

// ValidateLines returns a state conflict listing every line that cannot be
// written as an order item, and rejects carts whose total overflows MaxAmount.
func ValidateLines(items []LineInput) error {
	var violations []LineViolationDetail
	total := decimal.Zero
	for _, item := range items {
		reason := lineViolation(item)
		if reason == "" {
			total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			continue
		}
		violations = append(violations, LineViolationDetail{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Reason:       reason,
			RequestedQty: item.Quantity,
		})
	}
	if len(violations) > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cart has %d line(s) that cannot be ordered", len(violations))).WithDetails(map[string]any{
			"violations": violations,
		})
	}
	if total.GreaterThan(MaxAmount) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order total is too large").WithDetails(map[string]any{
			"max_amount": MaxAmount.StringFixed(2),
		})
	}
	return nil
}

func lineViolation(item LineInput) string {
	switch {
	case item.Quantity < 1:
		return reasonQuantity
	case item.Quantity > MaxLineQuantity:
		return reasonQuantityLimit
	case item.Price.IsNegative():
		return reasonPrice
	case item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).GreaterThan(MaxAmount):
		return reasonAmount
	case !OptionOffered(item.SelectedSize, item.Sizes):
		return reasonSize
	case !OptionOffered(item.SelectedColor, item.Colors):
		return reasonColor
	}
	return ""
}
