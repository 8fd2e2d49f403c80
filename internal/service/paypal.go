package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"apparel-checkout/internal/client"
	"apparel-checkout/internal/model"
	"apparel-checkout/internal/orderstatus"
	"apparel-checkout/internal/payment"
	"apparel-checkout/internal/repository"

	"gorm.io/gorm"
)

const (
	paypalEventCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"
	paypalEventCaptureDenied    = "PAYMENT.CAPTURE.DENIED"
	paypalEventCaptureRefunded  = "PAYMENT.CAPTURE.REFUNDED"
)

var ErrOrderNotFound = errors.New("order not found")

type PaypalService interface {
	// CaptureReturn captures an approved PayPal order and returns where to send the buyer.
	CaptureReturn(ctx context.Context, orderNumber, paypalOrderID string) (string, error)
	HandleWebhook(ctx context.Context, headers http.Header, body []byte) error
}

type paypalServiceImpl struct {
	paypalClient client.PaypalClient
	orderRepo    repository.OrderRepository
	events       *paymentEvents
	baseURL      string
}

func NewPaypalService(
	paypalClient client.PaypalClient,
	baseURL string,
	orderRepo repository.OrderRepository,
	webhookEventRepo repository.WebhookEventRepository,
	machine *orderstatus.Machine,
) PaypalService {
	return &paypalServiceImpl{
		paypalClient: paypalClient,
		orderRepo:    orderRepo,
		baseURL:      baseURL,
		events: &paymentEvents{
			orderRepo:        orderRepo,
			webhookEventRepo: webhookEventRepo,
			machine:          machine,
		},
	}
}

func (s *paypalServiceImpl) CaptureReturn(ctx context.Context, orderNumber, paypalOrderID string) (string, error) {
	order, err := s.orderRepo.FindByOrderNumber(ctx, normalizeOrderNumber(orderNumber))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrOrderNotFound
		}
		return "", fmt.Errorf("find order: %w", err)
	}

	urls := payment.BuildCallbackURLs(s.baseURL, order.OrderNumber)
	if order.PaymentProvider != payment.ProviderPaypal || order.PaymentSessionID == "" ||
		(paypalOrderID != "" && paypalOrderID != order.PaymentSessionID) {
		return "", ErrOrderNotFound
	}

	if order.PaymentStatus == model.PaymentStatusPaid {
		return urls.Success, nil
	}

	status, err := s.paypalClient.CaptureOrder(ctx, order.PaymentSessionID)
	if errors.Is(err, client.ErrOrderAlreadyCaptured) {
		// a reload of the return page after the buyer already paid
		return urls.Success, nil
	}
	if err != nil {
		slog.WarnContext(ctx, "paypal capture failed", "order_number", order.OrderNumber, "error", err)
		return urls.Cancel, nil
	}
	if status == client.CaptureStatusPending {
		return urls.Pending, nil
	}

	// the order itself is confirmed by PAYMENT.CAPTURE.COMPLETED
	return urls.Success, nil
}

func (s *paypalServiceImpl) HandleWebhook(ctx context.Context, headers http.Header, body []byte) error {
	err := s.paypalClient.VerifyWebhookSignature(ctx, headers, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	var event model.PaypalWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: decode webhook payload: %v", ErrInvalidWebhook, err)
	}

	var outcome paymentOutcome
	switch event.EventType {
	case paypalEventCaptureCompleted:
		outcome = outcomePaid
	case paypalEventCaptureDenied:
		outcome = outcomeFailed
	case paypalEventCaptureRefunded:
		outcome = outcomeRefunded
	default:
		slog.DebugContext(ctx, "paypal webhook ignored", "event_type", event.EventType)
		return nil
	}

	return s.events.process(ctx, payment.ProviderPaypal, event.ID, event.EventType, func() error {
		res := event.Resource
		order, err := s.events.resolveOrder(ctx, payment.ProviderPaypal, res.CustomID, res.SupplementaryData.RelatedIDs.OrderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			slog.WarnContext(ctx, "paypal webhook for unknown order", "event_id", event.ID, "custom_id", res.CustomID)
			return nil
		}
		if err != nil {
			return err
		}
		return s.events.applyOutcome(ctx, payment.ProviderPaypal, order, outcome)
	})
}
