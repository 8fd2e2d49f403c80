package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"apparel-checkout/internal/discount"
	"apparel-checkout/internal/dto"
	"apparel-checkout/internal/idempotency"
	"apparel-checkout/internal/inventory"
	"apparel-checkout/internal/model"
	"apparel-checkout/internal/ordernumber"
	"apparel-checkout/internal/payment"
	"apparel-checkout/internal/pricing"
	"apparel-checkout/internal/repository"

	"gorm.io/gorm"
)

const maxOrderNumberAttempts = 3

var (
	ErrEmptyCart       = errors.New("cart has no items")
	ErrAddressNotFound = errors.New("address not found")
	ErrPaymentProvider = errors.New("payment provider failure")
)

type CheckoutInput struct {
	CustomerID     string
	Email          string
	Provider       string
	IdempotencyKey string
	Request        *dto.CheckoutRequest
}

type CheckoutService interface {
	Checkout(ctx context.Context, in CheckoutInput) (*dto.CheckoutResponse, error)
}

type checkoutServiceImpl struct {
	db          *gorm.DB
	productRepo repository.ProductRepository
	addressRepo repository.AddressRepository
	orderRepo   repository.OrderRepository
	discounts   *discount.Validator
	providers   payment.Registry
	locker      idempotency.Locker // nil disables the in-flight lock
	newNumber   ordernumber.Generator
	baseURL     string
	currency    string
}

func NewCheckoutService(
	db *gorm.DB,
	productRepo repository.ProductRepository,
	addressRepo repository.AddressRepository,
	orderRepo repository.OrderRepository,
	discounts *discount.Validator,
	providers payment.Registry,
	locker idempotency.Locker,
	newNumber ordernumber.Generator,
	baseURL string,
	currency string,
) CheckoutService {
	if newNumber == nil {
		newNumber = ordernumber.New
	}
	return &checkoutServiceImpl{
		db:          db,
		productRepo: productRepo,
		addressRepo: addressRepo,
		orderRepo:   orderRepo,
		discounts:   discounts,
		providers:   providers,
		locker:      locker,
		newNumber:   newNumber,
		baseURL:     baseURL,
		currency:    currency,
	}
}

// replayError carries an order that already exists for the request's idempotency key.
type replayError struct {
	order *model.Order
}

func (e *replayError) Error() string { return "idempotent replay of order " + e.order.OrderNumber }

func (s *checkoutServiceImpl) Checkout(ctx context.Context, in CheckoutInput) (*dto.CheckoutResponse, error) {
	req := in.Request
	if req == nil || len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if !pricing.IsShippingMethod(req.ShippingMethod) {
		return nil, fmt.Errorf("%w: %q", pricing.ErrUnknownShippingMethod, req.ShippingMethod)
	}

	provider, err := s.providers.Get(in.Provider)
	if err != nil {
		return nil, err
	}

	if in.IdempotencyKey != "" {
		if resp, err := s.replay(ctx, in.CustomerID, in.IdempotencyKey); resp != nil || err != nil {
			return resp, err
		}
		if s.locker != nil {
			release, err := s.locker.Acquire(ctx, in.CustomerID, in.IdempotencyKey)
			if err != nil {
				return nil, err
			}
			defer release()
		}
	}

	address, err := s.addressRepo.FindOwned(ctx, req.AddressID, in.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("find address: %w", err)
	}

	cart := make([]pricing.CartItem, len(req.Items))
	productIDs := make([]string, 0, len(req.Items))
	for i, item := range req.Items {
		cart[i] = pricing.CartItem{
			ProductID:   item.ProductID,
			VariantName: item.VariantName,
			Quantity:    item.Quantity,
			ShownPrice:  item.UnitPrice,
		}
		productIDs = append(productIDs, item.ProductID)
	}

	products, err := s.productRepo.FindMany(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("get many products by item ids: %w", err)
	}

	lines, err := pricing.Resolve(products, cart)
	if err != nil {
		return nil, err
	}

	if err := inventory.Check(lines); err != nil {
		return nil, err
	}

	totals, err := pricing.Quote(lines, req.ShippingMethod)
	if err != nil {
		return nil, err
	}

	applied := s.discounts.Validate(ctx, discount.Request{
		Code:       req.DiscountCode,
		CustomerID: in.CustomerID,
		Subtotal:   totals.Subtotal,
		Shipping:   totals.ShippingTotal,
	})
	if applied != nil {
		totals = totals.WithDiscount(applied.Amount)
	}

	order := s.buildOrder(in, address, totals, applied)
	items := buildOrderItems(lines)

	if err := s.assemble(ctx, order, items); err != nil {
		var replay *replayError
		if errors.As(err, &replay) {
			return replayResponse(replay.order)
		}
		return nil, err
	}

	s.appendHistory(ctx, order.ID, "Order created")

	order.Items = make([]model.OrderItem, len(items))
	for i, it := range items {
		order.Items[i] = *it
	}

	discountCode := ""
	if applied != nil {
		discountCode = applied.Code
	}

	session, err := provider.CreateSession(ctx, payment.SessionRequest{
		Order:        order,
		DiscountCode: discountCode,
		URLs:         payment.BuildCallbackURLs(s.baseURL, order.OrderNumber),
	})
	if err != nil {
		s.compensate(ctx, order, err)
		return nil, fmt.Errorf("%w: %s: %v", ErrPaymentProvider, provider.Name(), err)
	}

	if err := s.orderRepo.AttachPaymentSession(ctx, order.ID, provider.Name(), session.ID, session.RedirectURL); err != nil {
		// the buyer never sees this session; dropping the order frees the idempotency key
		s.compensate(ctx, order, err)
		return nil, fmt.Errorf("attach payment session %s: %w", session.ID, err)
	}
	s.appendHistory(ctx, order.ID, "Awaiting payment")

	slog.InfoContext(ctx, "checkout completed",
		"order_number", order.OrderNumber,
		"provider", provider.Name(),
		"total", order.Total.StringFixed(2),
	)

	return &dto.CheckoutResponse{
		SessionOrPreferenceID: session.ID,
		RedirectURL:           session.RedirectURL,
		OrderNumber:           order.OrderNumber,
	}, nil
}

// replay answers a retried checkout from the order its key already produced.
// It returns (nil, nil) when the key has not been used.
func (s *checkoutServiceImpl) replay(ctx context.Context, customerID, key string) (*dto.CheckoutResponse, error) {
	existing, err := s.orderRepo.FindByIdempotencyKey(ctx, customerID, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find order by idempotency key: %w", err)
	}
	return replayResponse(existing)
}

func replayResponse(order *model.Order) (*dto.CheckoutResponse, error) {
	if order.PaymentSessionID == "" {
		// first request is still waiting on the provider
		return nil, idempotency.ErrInFlight
	}
	return &dto.CheckoutResponse{
		SessionOrPreferenceID: order.PaymentSessionID,
		RedirectURL:           order.PaymentRedirectURL,
		OrderNumber:           order.OrderNumber,
	}, nil
}

func (s *checkoutServiceImpl) buildOrder(in CheckoutInput, address *model.Address, totals pricing.Totals, applied *discount.Applied) *model.Order {
	order := &model.Order{
		CustomerID:      in.CustomerID,
		Email:           in.Email,
		Phone:           address.Phone,
		Subtotal:        totals.Subtotal,
		ShippingTotal:   totals.ShippingTotal,
		DiscountTotal:   totals.DiscountTotal,
		Total:           totals.Total,
		Currency:        s.currency,
		ShippingAddress: address.Snapshot(),
		ShippingMethod:  in.Request.ShippingMethod,
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		Source:          "web",
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		order.IdempotencyKey = &key
	}
	if applied != nil {
		code := applied.Code
		id := applied.DiscountID
		order.DiscountCode = &code
		order.DiscountID = &id
	}
	return order
}

func buildOrderItems(lines []pricing.Line) []*model.OrderItem {
	items := make([]*model.OrderItem, len(lines))
	for i, l := range lines {
		item := &model.OrderItem{
			ProductID:   l.Product.ID,
			ProductName: l.Product.Name,
			SKU:         l.Product.SKU,
			ImageURL:    l.Product.ImageURL,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.Total(),
		}
		if l.Variant != nil {
			variantID := l.Variant.ID
			item.VariantID = &variantID
			item.VariantName = l.Variant.Label()
			if l.Variant.SKU != "" {
				item.SKU = l.Variant.SKU
			}
		}
		items[i] = item
	}
	return items
}

// assemble inserts the order and its items atomically, drawing a fresh order number on collision.
func (s *checkoutServiceImpl) assemble(ctx context.Context, order *model.Order, items []*model.OrderItem) error {
	for attempt := 1; ; attempt++ {
		order.ID = 0
		order.OrderNumber = s.newNumber()

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.orderRepo.Create(ctx, tx, order); err != nil {
				return fmt.Errorf("store order in db: %w", err)
			}

			for _, it := range items {
				it.ID = 0
				it.OrderID = order.ID
			}
			if err := s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
				return fmt.Errorf("store order items in db: %w", err)
			}
			return nil
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}

		// a concurrent request with the same key won the insert
		if order.IdempotencyKey != nil {
			existing, ferr := s.orderRepo.FindByIdempotencyKey(ctx, order.CustomerID, *order.IdempotencyKey)
			if ferr == nil {
				return &replayError{order: existing}
			}
		}

		if attempt == maxOrderNumberAttempts {
			return fmt.Errorf("allocate order number after %d attempts: %w", attempt, err)
		}
		slog.WarnContext(ctx, "order number collision, retrying", "order_number", order.OrderNumber, "attempt", attempt)
	}
}

// appendHistory records a pending-status audit row. Failure degrades the audit trail only.
func (s *checkoutServiceImpl) appendHistory(ctx context.Context, orderID uint, notes string) {
	err := s.orderRepo.AppendHistory(ctx, nil, &model.OrderStatusHistory{
		OrderID: orderID,
		Status:  model.OrderStatusPending,
		Notes:   notes,
	})
	if err != nil {
		slog.ErrorContext(ctx, "append order history failed", "order_id", orderID, "notes", notes, "error", err)
	}
}

// compensate removes an order whose payment session could not be created or recorded.
func (s *checkoutServiceImpl) compensate(ctx context.Context, order *model.Order, cause error) {
	slog.WarnContext(ctx, "payment session failed, removing order",
		"order_number", order.OrderNumber, "error", cause)

	if err := s.orderRepo.Delete(context.WithoutCancel(ctx), order.ID); err != nil {
		slog.ErrorContext(ctx, "CRITICAL: compensating order delete failed, orphaned pending order",
			"order_id", order.ID,
			"order_number", order.OrderNumber,
			"error", err,
		)
	}
}

// IsValidationError reports whether err is a client mistake rather than a system failure.
func IsValidationError(err error) bool {
	var stockErr *inventory.StockError
	switch {
	case errors.As(err, &stockErr),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrAddressNotFound),
		errors.Is(err, pricing.ErrProductUnavailable),
		errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrPriceChanged),
		errors.Is(err, pricing.ErrUnknownShippingMethod),
		errors.Is(err, inventory.ErrInsufficientStock):
		return true
	}
	return false
}

func normalizeOrderNumber(n string) string {
	return strings.ToUpper(strings.TrimSpace(n))
}
