// Package discount resolves a customer-entered code to a deduction.
//
// Every problem with a code (unknown, expired, exhausted, below minimum, lookup failure)
// yields "no discount" rather than an error: a bad promo code never blocks a sale.
// Usage counters are only read here; incrementing them belongs to order completion.
package discount

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"apparel-checkout/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	FindByCode(ctx context.Context, code string) (*model.Discount, error)
}

type UsageCounter interface {
	CountByCustomer(ctx context.Context, customerID string) (int64, error)
	CountDiscountUses(ctx context.Context, customerID string, discountID uint) (int64, error)
}

type Request struct {
	Code       string
	CustomerID string
	Subtotal   decimal.Decimal
	Shipping   decimal.Decimal // pre-discount shipping cost
}

type Applied struct {
	DiscountID uint
	Code       string
	Type       model.DiscountType
	Amount     decimal.Decimal
}

type Validator struct {
	discounts Repository
	usage     UsageCounter
	now       func() time.Time
}

func NewValidator(discounts Repository, usage UsageCounter) *Validator {
	return &Validator{
		discounts: discounts,
		usage:     usage,
		now:       time.Now,
	}
}

// WithClock overrides the time source.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate returns nil when no discount applies.
func (v *Validator) Validate(ctx context.Context, req Request) *Applied {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil
	}

	d, err := v.discounts.FindByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.WarnContext(ctx, "discount lookup failed, continuing without discount", "code", code, "error", err)
		}
		return nil
	}

	if !d.UsableAt(v.now()) {
		return nil
	}

	if d.MinimumPurchase.Valid && req.Subtotal.LessThan(d.MinimumPurchase.Decimal) {
		return nil
	}

	if !v.eligible(ctx, d, req.CustomerID) {
		return nil
	}

	amount := Amount(d, req.Subtotal, req.Shipping)
	if !amount.IsPositive() {
		return nil
	}

	return &Applied{
		DiscountID: d.ID,
		Code:       d.Code,
		Type:       d.Type,
		Amount:     amount,
	}
}

func (v *Validator) eligible(ctx context.Context, d *model.Discount, customerID string) bool {
	if v.usage == nil || customerID == "" {
		return true
	}

	if d.UsageLimitPerUser != nil {
		used, err := v.usage.CountDiscountUses(ctx, customerID, d.ID)
		if err != nil {
			slog.WarnContext(ctx, "discount usage count failed", "code", d.Code, "error", err)
			return false
		}
		if used >= int64(*d.UsageLimitPerUser) {
			return false
		}
	}

	if d.CustomerEligibility == model.EligibilityNewCustomers {
		orders, err := v.usage.CountByCustomer(ctx, customerID)
		if err != nil {
			slog.WarnContext(ctx, "customer order count failed", "code", d.Code, "error", err)
			return false
		}
		if orders > 0 {
			return false
		}
	}

	return true
}

// Amount computes the raw deduction for d. Fixed amounts are not clamped here.
func Amount(d *model.Discount, subtotal, shipping decimal.Decimal) decimal.Decimal {
	switch d.Type {
	case model.DiscountTypePercentage:
		amount := subtotal.Mul(d.Value).Div(decimal.NewFromInt(100)).Round(2)
		if d.MaximumDiscount.Valid && amount.GreaterThan(d.MaximumDiscount.Decimal) {
			amount = d.MaximumDiscount.Decimal
		}
		return amount
	case model.DiscountTypeFixedAmount:
		return d.Value
	case model.DiscountTypeFreeShipping:
		return shipping
	default:
		// buy_x_get_y has no monetary effect at checkout
		return decimal.Zero
	}
}
