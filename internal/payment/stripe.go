package payment

import (
	"context"
	"fmt"
	"strings"

	"apparel-checkout/internal/client"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v83"
)

type stripeProvider struct {
	client client.StripeClient
}

func NewStripeProvider(c client.StripeClient) Provider {
	return &stripeProvider{client: c}
}

func (p *stripeProvider) Name() string { return ProviderStripe }

func (p *stripeProvider) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := BuildStripeSessionParams(req)

	if req.Order.DiscountTotal.IsPositive() {
		cp, err := p.client.CreateCoupon(ctx, BuildStripeCouponParams(req))
		if err != nil {
			return nil, err
		}
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(cp.ID)},
		}
	}

	s, err := p.client.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, err
	}
	if s.ID == "" || s.URL == "" {
		return nil, fmt.Errorf("stripe session missing id or url")
	}

	return &Session{ID: s.ID, RedirectURL: s.URL}, nil
}

// BuildStripeSessionParams maps an order to a payment-mode Checkout Session. Amounts are in minor units.
func BuildStripeSessionParams(req SessionRequest) *stripe.CheckoutSessionParams {
	order := req.Order
	currency := strings.ToLower(order.Currency)

	var lineItems []*stripe.CheckoutSessionLineItemParams
	for _, it := range LineItems(order) {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(it.Name),
		}
		if it.ImageURL != "" {
			product.Images = stripe.StringSlice([]string{it.ImageURL})
		}

		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(minorUnits(it.UnitPrice)),
			},
			Quantity: stripe.Int64(int64(it.Quantity)),
		})
	}

	metadata := Metadata(order)
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.URLs.Success),
		CancelURL:         stripe.String(req.URLs.Cancel),
		ClientReferenceID: stripe.String(order.OrderNumber),
		LineItems:         lineItems,
		Metadata:          metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	if order.Email != "" {
		params.CustomerEmail = stripe.String(order.Email)
	}

	return params
}

// BuildStripeCouponParams creates a single-use amount-off coupon equal to the order discount.
func BuildStripeCouponParams(req SessionRequest) *stripe.CouponParams {
	name := req.DiscountCode
	if name == "" {
		name = "Descuento"
	}

	return &stripe.CouponParams{
		AmountOff:      stripe.Int64(minorUnits(req.Order.DiscountTotal)),
		Currency:       stripe.String(strings.ToLower(req.Order.Currency)),
		Duration:       stripe.String(string(stripe.CouponDurationOnce)),
		MaxRedemptions: stripe.Int64(1),
		Name:           stripe.String(name),
	}
}

func minorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}
