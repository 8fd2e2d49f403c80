package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DiscountType string

const (
	DiscountTypePercentage   DiscountType = "percentage"
	DiscountTypeFixedAmount  DiscountType = "fixed_amount"
	DiscountTypeFreeShipping DiscountType = "free_shipping"
	DiscountTypeBuyXGetY     DiscountType = "buy_x_get_y"
)

const (
	EligibilityAll          = "all"
	EligibilityNewCustomers = "new_customers"
)

type Discount struct {
	ID                  uint                `gorm:"primaryKey" json:"id"`
	Code                string              `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Type                DiscountType        `gorm:"size:32;not null" json:"type"`
	Value               decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"value"`
	MinimumPurchase     decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"minimumPurchase"`
	MaximumDiscount     decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"maximumDiscount"`
	UsageCount          int                 `gorm:"not null;default:0" json:"usageCount"`
	UsageLimit          *int                `json:"usageLimit"`
	UsageLimitPerUser   *int                `json:"usageLimitPerUser"`
	StartsAt            time.Time           `gorm:"not null" json:"startsAt"`
	ExpiresAt           *time.Time          `json:"expiresAt"`
	IsActive            bool                `gorm:"not null" json:"isActive"`
	Combinable          bool                `gorm:"not null;default:false" json:"combinable"`
	CustomerEligibility string              `gorm:"size:32;not null;default:all" json:"customerEligibility"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeSave keeps codes upper-cased so lookups can be case-insensitive.
func (d *Discount) BeforeSave(tx *gorm.DB) error {
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	return nil
}

// UsableAt reports whether the discount is active, inside its window and under its global cap.
func (d *Discount) UsableAt(now time.Time) bool {
	if !d.IsActive {
		return false
	}
	if d.StartsAt.After(now) {
		return false
	}
	if d.ExpiresAt != nil && d.ExpiresAt.Before(now) {
		return false
	}
	if d.UsageLimit != nil && d.UsageCount >= *d.UsageLimit {
		return false
	}
	return true
}
