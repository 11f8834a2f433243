package checkout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestValidateLines_NoViolations(t *testing.T) {
	items := []LineInput{
		{ProductID: uuid.New(), ProductName: "Shirt", Price: decimal.NewFromInt(100), Quantity: 1},
		{ProductID: uuid.New(), ProductName: "Free Sticker", Price: decimal.Zero, Quantity: 3},
	}
	if err := ValidateLines(items); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateLines_Violations(t *testing.T) {
	items := []LineInput{
		{ProductID: uuid.New(), ProductName: "Ok", Price: decimal.NewFromInt(5), Quantity: 2},
		{ProductID: uuid.New(), ProductName: "Zero Qty", Price: decimal.NewFromInt(5), Quantity: 0},
		{ProductID: uuid.New(), ProductName: "Refund Glitch", Price: decimal.NewFromInt(-1), Quantity: 1},
	}
	err := ValidateLines(items)
	if err == nil {
		t.Fatal("expected error for invalid lines")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected pkgerrors.Error, got %T", err)
	}
	if typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected code %s, got %s", pkgerrors.CodeStateConflict, typed.Code())
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	violations, ok := details["violations"].([]LineViolationDetail)
	if !ok {
		t.Fatalf("expected violations slice, got %T", details["violations"])
	}
	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(violations))
	}
	if violations[0].ProductID != items[1].ProductID || violations[0].Reason != reasonQuantity {
		t.Fatalf("unexpected first violation %+v", violations[0])
	}
	if violations[1].ProductID != items[2].ProductID || violations[1].Reason != reasonPrice {
		t.Fatalf("unexpected second violation %+v", violations[1])
	}
}

func TestValidateLines_VariantsAndLimits(t *testing.T) {
	size := "XL"
	color := "red"
	items := []LineInput{
		{ProductID: uuid.New(), ProductName: "Dropped Size", Price: decimal.NewFromInt(10), Quantity: 1, SelectedSize: &size, Sizes: []string{"S", "M"}},
		{ProductID: uuid.New(), ProductName: "Dropped Color", Price: decimal.NewFromInt(10), Quantity: 1, SelectedColor: &color, Colors: []string{"Blue"}},
		{ProductID: uuid.New(), ProductName: "Bulk", Price: decimal.NewFromInt(1), Quantity: MaxLineQuantity + 1},
		{ProductID: uuid.New(), ProductName: "Yacht", Price: decimal.RequireFromString("99999999.99"), Quantity: 2},
		{ProductID: uuid.New(), ProductName: "Fine", Price: decimal.NewFromInt(10), Quantity: 1, SelectedColor: &color, Colors: []string{"Red"}},
	}
	err := ValidateLines(items)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	violations := typed.Details().(map[string]any)["violations"].([]LineViolationDetail)
	want := []string{reasonSize, reasonColor, reasonQuantityLimit, reasonAmount}
	if len(violations) != len(want) {
		t.Fatalf("expected %d violations, got %+v", len(want), violations)
	}
	for i, reason := range want {
		if violations[i].Reason != reason {
			t.Fatalf("violation %d: expected %s got %s", i, reason, violations[i].Reason)
		}
	}
}

func TestValidateLines_TotalOverflow(t *testing.T) {
	price := decimal.RequireFromString("60000000")
	items := []LineInput{
		{ProductID: uuid.New(), Price: price, Quantity: 1},
		{ProductID: uuid.New(), Price: price, Quantity: 1},
	}
	if err := ValidateLines(items); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict for total overflow, got %v", err)
	}
}

func TestOptionOffered(t *testing.T) {
	m := "m"
	if !OptionOffered(nil, nil) {
		t.Fatal("no selection must be allowed")
	}
	if !OptionOffered(&m, []string{"S", "M"}) {
		t.Fatal("expected case-insensitive match")
	}
	if OptionOffered(&m, nil) {
		t.Fatal("product without variants must reject a selection")
	}
}
