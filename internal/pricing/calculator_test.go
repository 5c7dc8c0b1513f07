package pricing

import (
	"testing"

	"github.com/harborline/marketplace-backend/pkg/config"
	"github.com/harborline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/harborline/marketplace-backend/pkg/errors"
)

func testPolicy() config.CheckoutConfig {
	return config.CheckoutConfig{
		TaxRate:           "0.10",
		MinOrderCents:     500,
		Currency:          "USD",
		StandardCents:     500,
		ExpressCents:      1500,
		OvernightCents:    2500,
		FreeShippingCents: 0,
	}
}

func TestQuoteStandardShipping(t *testing.T) {
	calc, err := NewCalculator(testPolicy())
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}

	quote, err := calc.Quote([]Line{
		{UnitPriceCents: 1999, Qty: 2},
		{UnitPriceCents: 550, Qty: 1},
	}, enums.ShippingMethodStandard)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	if quote.SubtotalCents != 4548 {
		t.Fatalf("subtotal = %d, want 4548", quote.SubtotalCents)
	}
	// 10% of 4548 = 454.8, rounds to 455.
	if quote.TaxCents != 455 {
		t.Fatalf("tax = %d, want 455", quote.TaxCents)
	}
	if quote.ShippingCents != 500 {
		t.Fatalf("shipping = %d, want 500", quote.ShippingCents)
	}
	if quote.TotalCents != 5503 {
		t.Fatalf("total = %d, want 5503", quote.TotalCents)
	}
}

func TestQuoteTariffPerMethod(t *testing.T) {
	calc, err := NewCalculator(testPolicy())
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}

	cases := []struct {
		method enums.ShippingMethod
		want   int64
	}{
		{enums.ShippingMethodStandard, 500},
		{enums.ShippingMethodExpress, 1500},
		{enums.ShippingMethodOvernight, 2500},
		{enums.ShippingMethodFreeShipping, 0},
	}
	for _, tc := range cases {
		quote, err := calc.Quote([]Line{{UnitPriceCents: 1000, Qty: 1}}, tc.method)
		if err != nil {
			t.Fatalf("%s: %v", tc.method, err)
		}
		if quote.ShippingCents != tc.want {
			t.Fatalf("%s: shipping = %d, want %d", tc.method, quote.ShippingCents, tc.want)
		}
	}
}

func TestQuoteUnknownMethod(t *testing.T) {
	calc, err := NewCalculator(testPolicy())
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}

	_, err = calc.Quote([]Line{{UnitPriceCents: 100, Qty: 1}}, enums.ShippingMethod("drone"))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQuoteRejectsBadLines(t *testing.T) {
	calc, err := NewCalculator(testPolicy())
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}

	if _, err := calc.Quote([]Line{{UnitPriceCents: 100, Qty: 0}}, enums.ShippingMethodStandard); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero qty, got %v", err)
	}
	if _, err := calc.Quote([]Line{{UnitPriceCents: -1, Qty: 1}}, enums.ShippingMethodStandard); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative price, got %v", err)
	}
}

func TestNewCalculatorRejectsBadRate(t *testing.T) {
	cfg := testPolicy()
	cfg.TaxRate = "ten percent"
	if _, err := NewCalculator(cfg); err == nil {
		t.Fatal("expected error for unparseable rate")
	}

	cfg.TaxRate = "-0.05"
	if _, err := NewCalculator(cfg); err == nil {
		t.Fatal("expected error for negative rate")
	}
}
