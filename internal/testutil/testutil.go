// Package testutil holds fixtures shared by package tests. Not imported by production code.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"apparel-checkout/internal/client"
	"apparel-checkout/internal/config"
	"apparel-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns a migrated, private in-memory SQLite database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := client.InitDatabase(config.Database{Driver: "sqlite", URL: dsn})
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func Money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SeedProduct inserts an active product with the given variants.
func SeedProduct(t *testing.T, db *gorm.DB, id, name, price string, variants ...model.ProductVariant) *model.Product {
	t.Helper()

	p := &model.Product{
		ID:       id,
		Name:     name,
		SKU:      "SKU-" + id,
		Price:    Money(price),
		Status:   model.ProductStatusActive,
		ImageURL: "https://cdn.example.com/" + id + ".jpg",
	}
	require.NoError(t, db.Create(p).Error)

	for i := range variants {
		variants[i].ProductID = id
		if variants[i].ID == "" {
			variants[i].ID = fmt.Sprintf("%s-v%d", id, i+1)
		}
		require.NoError(t, db.Create(&variants[i]).Error)
	}
	p.Variants = variants

	return p
}

func SeedAddress(t *testing.T, db *gorm.DB, id, customerID string) *model.Address {
	t.Helper()

	a := &model.Address{
		ID:            id,
		CustomerID:    customerID,
		RecipientName: "Ana Ruiz",
		Phone:         "5512345678",
		Street1:       "Av. Reforma 100",
		Neighborhood:  "Juárez",
		City:          "Ciudad de México",
		State:         "CDMX",
		PostalCode:    "06600",
		Country:       "MX",
		IsDefault:     true,
	}
	require.NoError(t, db.Create(a).Error)

	return a
}

func SeedDiscount(t *testing.T, db *gorm.DB, d *model.Discount) *model.Discount {
	t.Helper()

	if d.StartsAt.IsZero() {
		d.StartsAt = time.Now().Add(-24 * time.Hour)
	}
	if d.CustomerEligibility == "" {
		d.CustomerEligibility = model.EligibilityAll
	}
	active := d.IsActive
	require.NoError(t, db.Create(d).Error)
	require.NoError(t, db.Model(d).Update("is_active", active).Error)

	return d
}

func CountRows(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

// SeedOrder inserts a pending order with one item and its creation history row.
func SeedOrder(t *testing.T, db *gorm.DB, number, customerID string) *model.Order {
	t.Helper()

	o := &model.Order{
		OrderNumber:    number,
		CustomerID:     customerID,
		Email:          customerID + "@example.com",
		Subtotal:       Money("800"),
		ShippingTotal:  Money("99"),
		DiscountTotal:  decimal.Zero,
		Total:          Money("899"),
		Currency:       "MXN",
		ShippingMethod: "standard",
		Status:         model.OrderStatusPending,
		PaymentStatus:  model.PaymentStatusPending,
		Source:         "web",
		Items: []model.OrderItem{{
			ProductID:   "tee",
			ProductName: "Tee",
			SKU:         "TEE-M",
			Quantity:    2,
			UnitPrice:   Money("400"),
			LineTotal:   Money("800"),
		}},
		History: []model.OrderStatusHistory{{
			Status: model.OrderStatusPending,
			Notes:  "Order created",
		}},
	}
	require.NoError(t, db.Create(o).Error)

	return o
}
