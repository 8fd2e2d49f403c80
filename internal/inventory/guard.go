package inventory

import (
	"errors"
	"fmt"

	"apparel-checkout/internal/pricing"
)

var ErrInsufficientStock = errors.New("insufficient stock")

// StockError names the product that failed the check.
type StockError struct {
	ProductID   string
	ProductName string
	VariantID   string
	Available   int
	Requested   int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.ProductName)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// Check verifies every line that resolved to a variant has enough stock.
// Lines without a variant are not stock-tracked. Quantities for the same variant across
// several lines are summed before comparing. The first failing line aborts the check.
func Check(lines []pricing.Line) error {
	requested := make(map[string]int)
	for _, l := range lines {
		if l.Variant == nil {
			continue
		}
		requested[l.Variant.ID] += l.Quantity
	}

	for _, l := range lines {
		if l.Variant == nil {
			continue
		}
		want := requested[l.Variant.ID]
		if l.Variant.StockQuantity < want {
			return &StockError{
				ProductID:   l.Product.ID,
				ProductName: l.Product.Name,
				VariantID:   l.Variant.ID,
				Available:   l.Variant.StockQuantity,
				Requested:   want,
			}
		}
	}

	return nil
}
