package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusArchived ProductStatus = "archived"
)

// Product and ProductVariant are owned by the catalog admin; checkout only reads them.
type Product struct {
	ID       string          `gorm:"primaryKey;size:64;not null" json:"id"`
	Name     string          `gorm:"size:255;not null" json:"name"`
	SKU      string          `gorm:"size:64;index" json:"sku"`
	Price    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Status   ProductStatus   `gorm:"size:16;index;not null" json:"status"`
	ImageURL string          `gorm:"size:1024" json:"imageUrl"`

	Variants []ProductVariant `json:"variants,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

type ProductVariant struct {
	ID            string              `gorm:"primaryKey;size:64;not null" json:"id"`
	ProductID     string              `gorm:"size:64;index;not null" json:"productId"`
	Size          string              `gorm:"size:32" json:"size"`
	Color         string              `gorm:"size:32" json:"color"`
	SKU           string              `gorm:"size:64;index" json:"sku"`
	Price         decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"price"` // overrides product price when set
	StockQuantity int                 `gorm:"not null;default:0" json:"stockQuantity"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Label is the human name of the variant, e.g. "M / Black".
func (v *ProductVariant) Label() string {
	switch {
	case v.Size != "" && v.Color != "":
		return v.Size + " / " + v.Color
	case v.Size != "":
		return v.Size
	default:
		return v.Color
	}
}

type Address struct {
	ID            string `gorm:"primaryKey;size:64;not null" json:"id"`
	CustomerID    string `gorm:"size:64;index;not null" json:"customerId"`
	RecipientName string `gorm:"size:128;not null" json:"recipientName"`
	Phone         string `gorm:"size:32" json:"phone"`
	Street1       string `gorm:"size:255;not null" json:"street1"`
	Street2       string `gorm:"size:255" json:"street2"`
	Neighborhood  string `gorm:"size:128" json:"neighborhood"`
	City          string `gorm:"size:128;not null" json:"city"`
	State         string `gorm:"size:128;not null" json:"state"`
	PostalCode    string `gorm:"size:16;not null" json:"postalCode"`
	Country       string `gorm:"size:64;not null" json:"country"`
	IsDefault     bool   `gorm:"not null;default:false" json:"isDefault"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Snapshot copies the postal fields into the order-owned shape.
func (a *Address) Snapshot() ShippingAddress {
	return ShippingAddress{
		RecipientName: a.RecipientName,
		Phone:         a.Phone,
		Street1:       a.Street1,
		Street2:       a.Street2,
		Neighborhood:  a.Neighborhood,
		City:          a.City,
		State:         a.State,
		PostalCode:    a.PostalCode,
		Country:       a.Country,
	}
}

// MatchVariant finds the variant whose size, color or full label equals selector.
// Returns nil for an empty selector or no match.
func (p *Product) MatchVariant(selector string) *ProductVariant {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		if strings.EqualFold(v.Size, selector) ||
			strings.EqualFold(v.Color, selector) ||
			strings.EqualFold(v.Label(), selector) {
			return v
		}
	}
	return nil
}

// PriceFor returns the variant override when present, else the product price.
func (p *Product) PriceFor(v *ProductVariant) decimal.Decimal {
	if v != nil && v.Price.Valid {
		return v.Price.Decimal
	}
	return p.Price
}
