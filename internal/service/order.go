package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"apparel-checkout/internal/model"
	"apparel-checkout/internal/orderstatus"
	"apparel-checkout/internal/repository"

	"gorm.io/gorm"
)

type OrderService interface {
	// GetForCustomer hides orders owned by someone else behind ErrOrderNotFound.
	GetForCustomer(ctx context.Context, customerID, orderNumber string) (*model.Order, error)
	Get(ctx context.Context, orderNumber string) (*model.Order, error)
	ChangeStatus(ctx context.Context, actorID, orderNumber string, to model.OrderStatus, notes string) (*model.Order, error)
}

type orderServiceImpl struct {
	orderRepo repository.OrderRepository
	machine   *orderstatus.Machine
}

func NewOrderService(orderRepo repository.OrderRepository, machine *orderstatus.Machine) OrderService {
	return &orderServiceImpl{
		orderRepo: orderRepo,
		machine:   machine,
	}
}

func (s *orderServiceImpl) Get(ctx context.Context, orderNumber string) (*model.Order, error) {
	order, err := s.orderRepo.FindByOrderNumber(ctx, normalizeOrderNumber(orderNumber))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order by number: %w", err)
	}
	return order, nil
}

func (s *orderServiceImpl) GetForCustomer(ctx context.Context, customerID, orderNumber string) (*model.Order, error) {
	order, err := s.Get(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderServiceImpl) ChangeStatus(ctx context.Context, actorID, orderNumber string, to model.OrderStatus, notes string) (*model.Order, error) {
	if !orderstatus.IsKnown(to) {
		return nil, fmt.Errorf("%w: unknown status %q", orderstatus.ErrInvalidTransition, to)
	}

	order, err := s.Get(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	t := orderstatus.Transition{
		OrderID: order.ID,
		To:      to,
		Notes:   notes,
		ActorID: &actorID,
	}
	if to == model.OrderStatusRefunded {
		ps := model.PaymentStatusRefunded
		t.PaymentStatus = &ps
	}

	if _, err := s.machine.Apply(ctx, t); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "order status changed", "order_number", order.OrderNumber, "from", order.Status, "to", to, "actor_id", actorID)

	return s.Get(ctx, order.OrderNumber)
}
