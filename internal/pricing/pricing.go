// Package pricing computes checkout money: line resolution against the catalog,
// subtotal, shipping and the final total.
package pricing

import (
	"errors"
	"fmt"

	"apparel-checkout/internal/model"

	"github.com/shopspring/decimal"
)

const (
	MethodStandard = "standard"
	MethodExpress  = "express"
	MethodNextDay  = "next_day"
)

// FreeShippingThreshold: carts at or above this subtotal ship free with any method.
var FreeShippingThreshold = decimal.NewFromInt(999)

var shippingRates = map[string]decimal.Decimal{
	MethodStandard: decimal.NewFromInt(99),
	MethodExpress:  decimal.NewFromInt(199),
	MethodNextDay:  decimal.NewFromInt(299),
}

var (
	ErrUnknownShippingMethod = errors.New("unknown shipping method")
	ErrProductUnavailable    = errors.New("product unavailable")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrPriceChanged          = errors.New("price changed")
)

// CartItem is one requested line as sent by the client.
type CartItem struct {
	ProductID   string
	VariantName string
	Quantity    int
	// ShownPrice is the unit price the client displayed, if it sent one.
	ShownPrice  *decimal.Decimal
}

// Line is a cart item resolved against the catalog, with the price captured now.
type Line struct {
	Product   *model.Product
	Variant   *model.ProductVariant // nil when the product has no matching variant
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Totals struct {
	Subtotal      decimal.Decimal
	ShippingTotal decimal.Decimal
	DiscountTotal decimal.Decimal
	Total         decimal.Decimal
}

// IsShippingMethod reports whether method has a rate.
func IsShippingMethod(method string) bool {
	_, ok := shippingRates[method]
	return ok
}

// Resolve prices every item from the catalog. Any missing or non-active product rejects the
// whole cart; nothing is priced partially. A shown price that differs from the catalog is
// rejected so the buyer never pays an amount they were not shown.
func Resolve(catalog []*model.Product, items []CartItem) ([]Line, error) {
	byID := make(map[string]*model.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	lines := make([]Line, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, item.ProductID)
		}

		product, ok := byID[item.ProductID]
		if !ok || !product.IsActive() {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, item.ProductID)
		}

		variant := product.MatchVariant(item.VariantName)
		price := product.PriceFor(variant)
		if item.ShownPrice != nil && !item.ShownPrice.Equal(price) {
			return nil, fmt.Errorf("%w: %s is now %s", ErrPriceChanged, item.ProductID, price.StringFixed(2))
		}

		lines = append(lines, Line{
			Product:   product,
			Variant:   variant,
			Quantity:  item.Quantity,
			UnitPrice: price,
		})
	}

	return lines, nil
}

func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// ShippingCost looks the method up and zeroes it once the subtotal reaches the threshold.
func ShippingCost(method string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	rate, ok := shippingRates[method]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownShippingMethod, method)
	}
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		return decimal.Zero, nil
	}
	return rate, nil
}

// Quote returns subtotal and shipping with no discount applied.
func Quote(lines []Line, method string) (Totals, error) {
	subtotal := Subtotal(lines)
	shipping, err := ShippingCost(method, subtotal)
	if err != nil {
		return Totals{}, err
	}

	return Totals{
		Subtotal:      subtotal,
		ShippingTotal: shipping,
		DiscountTotal: decimal.Zero,
		Total:         subtotal.Add(shipping),
	}, nil
}

// WithDiscount applies a deduction. The discount is clamped to subtotal+shipping
// so the total never goes negative.
func (t Totals) WithDiscount(amount decimal.Decimal) Totals {
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	gross := t.Subtotal.Add(t.ShippingTotal)
	if amount.GreaterThan(gross) {
		amount = gross
	}

	t.DiscountTotal = amount
	t.Total = gross.Sub(amount)
	return t
}
