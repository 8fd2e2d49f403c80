// Package payment adapts hosted-checkout providers to a single session-creation contract.
package payment

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"apparel-checkout/internal/model"

	"github.com/shopspring/decimal"
)

const (
	ProviderStripe = "stripe"
	ProviderPaypal = "paypal"
)

var ErrUnknownProvider = errors.New("unknown payment provider")

const shippingItemName = "Envío"

// CallbackURLs are where the provider sends the buyer after the hosted page.
// Pending is reached through the PayPal return when a capture is held; Stripe has no pending redirect.
type CallbackURLs struct {
	Success string
	Cancel  string
	Pending string
}

// BuildCallbackURLs points the buyer back to the storefront checkout pages for orderNumber.
func BuildCallbackURLs(baseURL, orderNumber string) CallbackURLs {
	base := strings.TrimRight(baseURL, "/")
	q := "?order=" + url.QueryEscape(orderNumber)

	return CallbackURLs{
		Success: base + "/checkout/success" + q,
		Cancel:  base + "/checkout/cancel" + q,
		Pending: base + "/checkout/pending" + q,
	}
}

type SessionRequest struct {
	Order        *model.Order // Items must be loaded
	DiscountCode string
	URLs         CallbackURLs
}

type Session struct {
	ID          string
	RedirectURL string
}

// LineItem is one row shown on the hosted page.
type LineItem struct {
	ID        string
	Name      string
	SKU       string
	ImageURL  string
	Quantity  int
	UnitPrice decimal.Decimal
}

// LineItems mirrors the order items 1:1 and appends a shipping row when shipping is charged.
func LineItems(order *model.Order) []LineItem {
	items := make([]LineItem, 0, len(order.Items)+1)
	for _, it := range order.Items {
		name := it.ProductName
		if it.VariantName != "" {
			name = fmt.Sprintf("%s (%s)", it.ProductName, it.VariantName)
		}
		items = append(items, LineItem{
			ID:        it.ProductID,
			Name:      name,
			SKU:       it.SKU,
			ImageURL:  it.ImageURL,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	if order.ShippingTotal.IsPositive() {
		items = append(items, LineItem{
			ID:        "shipping",
			Name:      shippingItemName,
			SKU:       "SHIPPING-" + strings.ToUpper(order.ShippingMethod),
			Quantity:  1,
			UnitPrice: order.ShippingTotal,
		})
	}

	return items
}

// Metadata lets provider notifications be correlated back to the order.
func Metadata(order *model.Order) map[string]string {
	return map[string]string{
		"order_id":     fmt.Sprintf("%d", order.ID),
		"order_number": order.OrderNumber,
	}
}

// Registry resolves a provider by its name.
type Registry map[string]Provider

func NewRegistry(providers ...Provider) Registry {
	r := make(Registry, len(providers))
	for _, p := range providers {
		r[p.Name()] = p
	}
	return r
}

func (r Registry) Get(name string) (Provider, error) {
	p, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}
