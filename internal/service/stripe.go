package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"apparel-checkout/internal/client"
	"apparel-checkout/internal/orderstatus"
	"apparel-checkout/internal/payment"
	"apparel-checkout/internal/repository"

	"github.com/stripe/stripe-go/v83"
	"gorm.io/gorm"
)

const (
	stripeEventSessionCompleted    = "checkout.session.completed"
	stripeEventAsyncPaymentSuccess = "checkout.session.async_payment_succeeded"
	stripeEventAsyncPaymentFailed  = "checkout.session.async_payment_failed"
	stripeEventSessionExpired      = "checkout.session.expired"
)

var ErrInvalidWebhook = errors.New("invalid webhook")

type StripeService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type stripeServiceImpl struct {
	stripeClient client.StripeClient
	events       *paymentEvents
}

func NewStripeService(
	stripeClient client.StripeClient,
	orderRepo repository.OrderRepository,
	webhookEventRepo repository.WebhookEventRepository,
	machine *orderstatus.Machine,
) StripeService {
	return &stripeServiceImpl{
		stripeClient: stripeClient,
		events: &paymentEvents{
			orderRepo:        orderRepo,
			webhookEventRepo: webhookEventRepo,
			machine:          machine,
		},
	}
}

func (s *stripeServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.stripeClient.ConstructEvent(payload, signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	var outcome paymentOutcome
	switch string(event.Type) {
	case stripeEventSessionCompleted:
		outcome = outcomePaid
	case stripeEventAsyncPaymentSuccess:
		outcome = outcomePaid
	case stripeEventAsyncPaymentFailed:
		outcome = outcomeFailed
	case stripeEventSessionExpired:
		outcome = outcomeExpired
	default:
		slog.DebugContext(ctx, "stripe webhook ignored", "event_type", event.Type)
		return nil
	}

	if event.Data == nil {
		return fmt.Errorf("%w: event %s has no data", ErrInvalidWebhook, event.ID)
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("%w: decode checkout session: %v", ErrInvalidWebhook, err)
	}

	// delayed methods complete the session unpaid and settle through async_payment_succeeded
	if string(event.Type) == stripeEventSessionCompleted && session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		slog.InfoContext(ctx, "stripe session completed without payment yet", "session_id", session.ID)
		return nil
	}

	return s.events.process(ctx, payment.ProviderStripe, event.ID, string(event.Type), func() error {
		order, err := s.events.resolveOrder(ctx, payment.ProviderStripe, session.Metadata["order_id"], session.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			slog.WarnContext(ctx, "stripe webhook for unknown order", "event_id", event.ID, "session_id", session.ID)
			return nil
		}
		if err != nil {
			return err
		}
		return s.events.applyOutcome(ctx, payment.ProviderStripe, order, outcome)
	})
}
