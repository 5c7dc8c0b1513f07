package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/harborline/marketplace-backend/pkg/config"
	"github.com/harborline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/harborline/marketplace-backend/pkg/errors"
)

// Line is one priced cart line entering a quote.
type Line struct {
	UnitPriceCents int64
	Qty            int
}

// Quote is the per-seller breakdown a checkout persists onto the order row.
type Quote struct {
	SubtotalCents int64
	TaxCents      int64
	ShippingCents int64
	TotalCents    int64
}

// Calculator prices one seller group at a time from the injected policy. It is
// pure; the aggregate minimum-order rule lives with the orchestrator because it
// spans groups.
type Calculator struct {
	taxRate decimal.Decimal
	tariffs map[enums.ShippingMethod]int64
}

// NewCalculator validates and captures the checkout policy.
func NewCalculator(cfg config.CheckoutConfig) (*Calculator, error) {
	rate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invalid tax rate")
	}
	if rate.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tax rate must not be negative")
	}
	return &Calculator{
		taxRate: rate,
		tariffs: map[enums.ShippingMethod]int64{
			enums.ShippingMethodStandard:     cfg.StandardCents,
			enums.ShippingMethodExpress:      cfg.ExpressCents,
			enums.ShippingMethodOvernight:    cfg.OvernightCents,
			enums.ShippingMethodFreeShipping: cfg.FreeShippingCents,
		},
	}, nil
}

// Quote computes subtotal, tax, shipping, and total for one seller group.
func (c *Calculator) Quote(lines []Line, method enums.ShippingMethod) (Quote, error) {
	tariff, ok := c.tariffs[method]
	if !ok {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown shipping method").
			WithDetails(map[string]any{"shipping_method": string(method)})
	}

	var subtotal int64
	for _, line := range lines {
		if line.Qty <= 0 {
			return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if line.UnitPriceCents < 0 {
			return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "line price must not be negative")
		}
		subtotal += line.UnitPriceCents * int64(line.Qty)
	}

	tax := c.taxRate.Mul(decimal.NewFromInt(subtotal)).Round(0).IntPart()

	return Quote{
		SubtotalCents: subtotal,
		TaxCents:      tax,
		ShippingCents: tariff,
		TotalCents:    subtotal + tax + tariff,
	}, nil
}

// Tariff returns the configured shipping cost for a method.
func (c *Calculator) Tariff(method enums.ShippingMethod) (int64, bool) {
	tariff, ok := c.tariffs[method]
	return tariff, ok
}
