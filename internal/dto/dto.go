package dto

import (
	"time"

	"apparel-checkout/internal/model"

	"github.com/shopspring/decimal"
)

type CheckoutItem struct {
	ProductID   string `json:"productId" validate:"required"`
	VariantName string `json:"variantName"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
	// UnitPrice is the price the client showed. When sent it must equal the catalog price.
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty"`
}

type CheckoutRequest struct {
	AddressID      string          `json:"addressId" validate:"required"`
	ShippingMethod string          `json:"shippingMethod" validate:"required,oneof=standard express next_day"`
	Items          []*CheckoutItem `json:"items" validate:"required,min=1,dive,required"`
	DiscountCode   string          `json:"discountCode,omitempty" validate:"omitempty,max=64"`
}

type CheckoutResponse struct {
	SessionOrPreferenceID string `json:"sessionOrPreferenceId"`
	RedirectURL           string `json:"redirectUrl"`
	OrderNumber           string `json:"orderNumber"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusChangeRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed processing shipped delivered cancelled refunded"`
	Notes  string `json:"notes" validate:"max=500"`
}

type OrderItemResponse struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	VariantName string          `json:"variantName,omitempty"`
	SKU         string          `json:"sku"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

type StatusHistoryResponse struct {
	Status         model.OrderStatus  `json:"status"`
	PreviousStatus *model.OrderStatus `json:"previousStatus,omitempty"`
	Notes          string             `json:"notes,omitempty"`
	ActorID        *string            `json:"actorId,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
}

type OrderResponse struct {
	OrderNumber     string                  `json:"orderNumber"`
	Status          model.OrderStatus       `json:"status"`
	PaymentStatus   model.PaymentStatus     `json:"paymentStatus"`
	PaymentProvider string                  `json:"paymentProvider,omitempty"`
	Email           string                  `json:"email"`
	Subtotal        decimal.Decimal         `json:"subtotal"`
	ShippingTotal   decimal.Decimal         `json:"shippingTotal"`
	DiscountTotal   decimal.Decimal         `json:"discountTotal"`
	Total           decimal.Decimal         `json:"total"`
	Currency        string                  `json:"currency"`
	ShippingMethod  string                  `json:"shippingMethod"`
	DiscountCode    *string                 `json:"discountCode,omitempty"`
	ShippingAddress model.ShippingAddress   `json:"shippingAddress"`
	Items           []OrderItemResponse     `json:"items"`
	History         []StatusHistoryResponse `json:"history"`
	CreatedAt       time.Time               `json:"createdAt"`
	ConfirmedAt     *time.Time              `json:"confirmedAt,omitempty"`
	ShippedAt       *time.Time              `json:"shippedAt,omitempty"`
	DeliveredAt     *time.Time              `json:"deliveredAt,omitempty"`
	CancelledAt     *time.Time              `json:"cancelledAt,omitempty"`
}

func NewOrderResponse(o *model.Order) *OrderResponse {
	resp := &OrderResponse{
		OrderNumber:     o.OrderNumber,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		PaymentProvider: o.PaymentProvider,
		Email:           o.Email,
		Subtotal:        o.Subtotal,
		ShippingTotal:   o.ShippingTotal,
		DiscountTotal:   o.DiscountTotal,
		Total:           o.Total,
		Currency:        o.Currency,
		ShippingMethod:  o.ShippingMethod,
		DiscountCode:    o.DiscountCode,
		ShippingAddress: o.ShippingAddress,
		Items:           make([]OrderItemResponse, 0, len(o.Items)),
		History:         make([]StatusHistoryResponse, 0, len(o.History)),
		CreatedAt:       o.CreatedAt,
		ConfirmedAt:     o.ConfirmedAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		CancelledAt:     o.CancelledAt,
	}

	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			VariantName: it.VariantName,
			SKU:         it.SKU,
			ImageURL:    it.ImageURL,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}
	for _, h := range o.History {
		resp.History = append(resp.History, StatusHistoryResponse{
			Status:         h.Status,
			PreviousStatus: h.PreviousStatus,
			Notes:          h.Notes,
			ActorID:        h.ActorID,
			CreatedAt:      h.CreatedAt,
		})
	}

	return resp
}
