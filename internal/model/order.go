package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// ShippingAddress is a copy of the customer's Address taken at checkout time.
type ShippingAddress struct {
	RecipientName string `gorm:"size:128" json:"recipientName"`
	Phone         string `gorm:"size:32" json:"phone"`
	Street1       string `gorm:"size:255" json:"street1"`
	Street2       string `gorm:"size:255" json:"street2,omitempty"`
	Neighborhood  string `gorm:"size:128" json:"neighborhood"`
	City          string `gorm:"size:128" json:"city"`
	State         string `gorm:"size:128" json:"state"`
	PostalCode    string `gorm:"size:16" json:"postalCode"`
	Country       string `gorm:"size:64" json:"country"`
}

type Order struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderNumber string `gorm:"size:32;uniqueIndex;not null" json:"orderNumber"`
	CustomerID  string `gorm:"size:64;not null;index;uniqueIndex:idx_orders_customer_idempotency,priority:1" json:"customerId"`
	// client supplied, nil when the caller sent no Idempotency-Key
	IdempotencyKey *string `gorm:"size:128;uniqueIndex:idx_orders_customer_idempotency,priority:2" json:"-"`
	Email          string  `gorm:"size:255" json:"email"`
	Phone          string  `gorm:"size:32" json:"phone"`

	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	ShippingTotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shippingTotal"`
	DiscountTotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discountTotal"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Currency      string          `gorm:"size:8;not null" json:"currency"`

	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shippingAddress"`
	ShippingMethod  string          `gorm:"size:32;not null" json:"shippingMethod"`
	DiscountCode    *string         `gorm:"size:64" json:"discountCode,omitempty"`
	DiscountID      *uint           `gorm:"index" json:"discountId,omitempty"`

	Status             OrderStatus   `gorm:"size:16;index;not null" json:"status"`
	PaymentStatus      PaymentStatus `gorm:"size:16;index;not null" json:"paymentStatus"`
	PaymentProvider    string        `gorm:"size:16" json:"paymentProvider,omitempty"`
	PaymentSessionID   string        `gorm:"size:255;index" json:"paymentSessionId,omitempty"`
	PaymentRedirectURL string        `gorm:"size:1024" json:"-"`
	Source             string        `gorm:"size:32;not null;default:web" json:"source"`
	Notes              string        `gorm:"type:text" json:"notes,omitempty"`

	Items   []OrderItem          `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
	History []OrderStatusHistory `gorm:"constraint:OnDelete:CASCADE" json:"history,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
}

// OrderItem denormalizes product data so later catalog edits don't rewrite history.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"index;not null" json:"orderId"`
	ProductID   string          `gorm:"size:64;index;not null" json:"productId"`
	VariantID   *string         `gorm:"size:64" json:"variantId,omitempty"`
	ProductName string          `gorm:"size:255;not null" json:"productName"`
	VariantName string          `gorm:"size:128" json:"variantName,omitempty"`
	SKU         string          `gorm:"size:64" json:"sku"`
	ImageURL    string          `gorm:"size:1024" json:"imageUrl,omitempty"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"lineTotal"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// OrderStatusHistory rows are append only.
type OrderStatusHistory struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	OrderID        uint         `gorm:"index;not null" json:"orderId"`
	Status         OrderStatus  `gorm:"size:16;not null" json:"status"`
	PreviousStatus *OrderStatus `gorm:"size:16" json:"previousStatus,omitempty"`
	Notes          string       `gorm:"type:text" json:"notes,omitempty"`
	ActorID        *string      `gorm:"size:64" json:"actorId,omitempty"` // nil for system transitions
	CreatedAt      time.Time    `json:"createdAt"`
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }
