package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"apparel-checkout/internal/model"
	"apparel-checkout/internal/orderstatus"
	"apparel-checkout/internal/repository"

	"gorm.io/gorm"
)

// paymentOutcome is what a provider notification means for the order.
type paymentOutcome int

const (
	outcomeIgnored paymentOutcome = iota
	outcomePaid
	outcomeFailed
	outcomeExpired
	outcomeRefunded
)

// paymentEvents applies provider notifications to orders. Shared by the Stripe and PayPal services.
type paymentEvents struct {
	orderRepo        repository.OrderRepository
	webhookEventRepo repository.WebhookEventRepository
	machine          *orderstatus.Machine
}

// resolveOrder prefers the internal id carried in provider metadata and falls back to the session id.
func (p *paymentEvents) resolveOrder(ctx context.Context, provider, internalID, sessionID string) (*model.Order, error) {
	if internalID != "" {
		id, err := strconv.ParseUint(internalID, 10, 64)
		if err == nil {
			order, err := p.orderRepo.FindByID(ctx, uint(id))
			if err == nil {
				return order, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("find order by id: %w", err)
			}
		}
	}

	if sessionID == "" {
		return nil, gorm.ErrRecordNotFound
	}
	return p.orderRepo.FindByPaymentSession(ctx, provider, sessionID)
}

// process runs apply once per event id. Replays of a processed event are acknowledged and skipped.
func (p *paymentEvents) process(ctx context.Context, provider, eventID, eventType string, apply func() error) error {
	if eventID != "" {
		seen, err := p.webhookEventRepo.Exists(ctx, eventID)
		if err != nil {
			return fmt.Errorf("check webhook event: %w", err)
		}
		if seen {
			slog.InfoContext(ctx, "webhook event already processed", "provider", provider, "event_id", eventID)
			return nil
		}
	}

	if err := apply(); err != nil {
		return err
	}

	if eventID == "" {
		return nil
	}
	if err := p.webhookEventRepo.MarkProcessed(ctx, provider, eventID, eventType); err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	return nil
}

func (p *paymentEvents) applyOutcome(ctx context.Context, provider string, order *model.Order, outcome paymentOutcome) error {
	var (
		t  orderstatus.Transition
		ps model.PaymentStatus
	)

	switch outcome {
	case outcomePaid:
		ps = model.PaymentStatusPaid
		t = orderstatus.Transition{To: model.OrderStatusConfirmed, Notes: "Payment received via " + provider}
	case outcomeExpired:
		ps = model.PaymentStatusFailed
		t = orderstatus.Transition{To: model.OrderStatusCancelled, Notes: "Payment session expired"}
	case outcomeRefunded:
		ps = model.PaymentStatusRefunded
		t = orderstatus.Transition{To: model.OrderStatusRefunded, Notes: "Payment refunded via " + provider}
	case outcomeFailed:
		if err := p.orderRepo.UpdatePaymentStatus(ctx, order.ID, model.PaymentStatusFailed); err != nil {
			return fmt.Errorf("mark payment failed: %w", err)
		}
		slog.InfoContext(ctx, "payment failed", "provider", provider, "order_number", order.OrderNumber)
		return nil
	default:
		return nil
	}

	t.OrderID = order.ID
	t.PaymentStatus = &ps

	_, err := p.machine.Apply(ctx, t)
	if errors.Is(err, orderstatus.ErrInvalidTransition) || errors.Is(err, orderstatus.ErrConcurrentUpdate) {
		// late or duplicate notification; the order already moved on
		slog.WarnContext(ctx, "payment notification ignored",
			"provider", provider, "order_number", order.OrderNumber, "status", order.Status, "target", t.To, "error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply order transition: %w", err)
	}

	slog.InfoContext(ctx, "order status updated from payment notification",
		"provider", provider, "order_number", order.OrderNumber, "status", t.To)
	return nil
}
