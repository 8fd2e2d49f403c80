// Package orderstatus owns the order lifecycle:
//
//	pending -> confirmed -> processing -> shipped -> delivered
//
// with cancelled and refunded as side branches. delivered, cancelled and refunded are terminal.
// A transition updates the order and appends its history row in one database transaction.
package orderstatus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"apparel-checkout/internal/model"
	"apparel-checkout/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConcurrentUpdate means the order changed status between read and write.
	ErrConcurrentUpdate = errors.New("order status changed concurrently")
)

var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:    {model.OrderStatusConfirmed, model.OrderStatusCancelled},
	model.OrderStatusConfirmed:  {model.OrderStatusProcessing, model.OrderStatusCancelled, model.OrderStatusRefunded},
	model.OrderStatusProcessing: {model.OrderStatusShipped, model.OrderStatusCancelled, model.OrderStatusRefunded},
	model.OrderStatusShipped:    {model.OrderStatusDelivered, model.OrderStatusRefunded},
}

func CanTransition(from, to model.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(status model.OrderStatus) bool {
	switch status {
	case model.OrderStatusDelivered, model.OrderStatusCancelled, model.OrderStatusRefunded:
		return true
	}
	return false
}

func IsKnown(status model.OrderStatus) bool {
	if _, ok := transitions[status]; ok {
		return true
	}
	return IsTerminal(status)
}

// timestampColumn is the lifecycle column stamped when entering status, if any.
func timestampColumn(status model.OrderStatus) string {
	switch status {
	case model.OrderStatusConfirmed:
		return "confirmed_at"
	case model.OrderStatusShipped:
		return "shipped_at"
	case model.OrderStatusDelivered:
		return "delivered_at"
	case model.OrderStatusCancelled:
		return "cancelled_at"
	}
	return ""
}

type Transition struct {
	OrderID uint
	To      model.OrderStatus
	Notes   string
	// ActorID is nil for system-driven transitions such as webhooks.
	ActorID *string
	// PaymentStatus, when set, is written in the same transaction.
	PaymentStatus *model.PaymentStatus
}

type Machine struct {
	db     *gorm.DB
	orders repository.OrderRepository
	now    func() time.Time
}

func NewMachine(db *gorm.DB, orders repository.OrderRepository) *Machine {
	return &Machine{
		db:     db,
		orders: orders,
		now:    time.Now,
	}
}

func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// Apply moves the order to t.To and returns the updated order.
func (m *Machine) Apply(ctx context.Context, t Transition) (*model.Order, error) {
	order, err := m.orders.FindByID(ctx, t.OrderID)
	if err != nil {
		return nil, fmt.Errorf("find order %d: %w", t.OrderID, err)
	}

	from := order.Status
	if !CanTransition(from, t.To) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, t.To)
	}

	now := m.now()
	updates := map[string]interface{}{
		"status": t.To,
	}
	if col := timestampColumn(t.To); col != "" {
		updates[col] = now
	}
	if t.PaymentStatus != nil {
		updates["payment_status"] = *t.PaymentStatus
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		applied, err := m.orders.UpdateStatus(ctx, tx, order.ID, from, updates)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if !applied {
			return ErrConcurrentUpdate
		}

		return m.orders.AppendHistory(ctx, tx, &model.OrderStatusHistory{
			OrderID:        order.ID,
			Status:         t.To,
			PreviousStatus: &from,
			Notes:          t.Notes,
			ActorID:        t.ActorID,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return nil, err
	}

	return m.orders.FindByID(ctx, order.ID)
}
