package payment

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"apparel-checkout/internal/client"

	"github.com/shopspring/decimal"
)

type paypalProvider struct {
	client    client.PaypalClient
	returnURL string
}

// NewPaypalProvider sends approved buyers to returnURL, which captures before redirecting to the storefront.
func NewPaypalProvider(c client.PaypalClient, returnURL string) Provider {
	return &paypalProvider{
		client:    c,
		returnURL: returnURL,
	}
}

func (p *paypalProvider) Name() string { return ProviderPaypal }

func (p *paypalProvider) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	res, err := p.client.CreateOrder(ctx, BuildPaypalOrder(req, p.returnURL))
	if err != nil {
		return nil, err
	}

	return &Session{ID: res.OrderID, RedirectURL: res.ApproveURL}, nil
}

// BuildPaypalOrder maps an order to a CAPTURE-intent PayPal order whose breakdown reconciles
// to the order total.
func BuildPaypalOrder(req SessionRequest, returnURL string) *client.PaypalOrderRequest {
	order := req.Order
	money := func(d decimal.Decimal) client.PaypalMoney {
		return client.PaypalMoney{CurrencyCode: strings.ToUpper(order.Currency), Value: d.StringFixed(2)}
	}

	itemTotal := decimal.Zero
	var items []client.PaypalItem
	for _, it := range LineItems(order) {
		itemTotal = itemTotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		items = append(items, client.PaypalItem{
			Name:       truncate(it.Name, 127),
			SKU:        it.SKU,
			Quantity:   strconv.Itoa(it.Quantity),
			UnitAmount: money(it.UnitPrice),
		})
	}

	breakdown := client.PaypalBreakdown{ItemTotal: money(itemTotal)}
	if order.DiscountTotal.IsPositive() {
		d := money(order.DiscountTotal)
		breakdown.Discount = &d
	}

	return &client.PaypalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []client.PaypalPurchaseUnit{{
			ReferenceID: order.OrderNumber,
			CustomID:    fmt.Sprintf("%d", order.ID),
			InvoiceID:   order.OrderNumber,
			Amount: client.PaypalPurchaseAmount{
				PaypalMoney: money(order.Total),
				Breakdown:   breakdown,
			},
			Items: items,
		}},
		ApplicationContext: client.PaypalApplicationContext{
			ReturnURL:  returnURL + "?order=" + url.QueryEscape(order.OrderNumber),
			CancelURL:  req.URLs.Cancel,
			UserAction: "PAY_NOW",
		},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
