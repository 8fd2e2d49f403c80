package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"apparel-checkout/internal/discount"
	"apparel-checkout/internal/dto"
	"apparel-checkout/internal/idempotency"
	"apparel-checkout/internal/inventory"
	"apparel-checkout/internal/model"
	"apparel-checkout/internal/payment"
	"apparel-checkout/internal/pricing"
	"apparel-checkout/internal/repository"
	"apparel-checkout/internal/service"
	"apparel-checkout/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const customerID = "cust-1"

type fakeProvider struct {
	mu       sync.Mutex
	name     string
	err      error
	calls    int
	requests []payment.SessionRequest
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	id := fmt.Sprintf("sess_%d", f.calls)
	return &payment.Session{ID: id, RedirectURL: "https://pay.example.com/" + id}, nil
}

type checkoutFixture struct {
	db       *gorm.DB
	svc      service.CheckoutService
	orders   repository.OrderRepository
	provider *fakeProvider
}

func newCheckoutFixture(t *testing.T, numbers ...string) *checkoutFixture {
	t.Helper()
	return newCheckoutFixtureWithOrders(t, nil, numbers...)
}

// newCheckoutFixtureWithOrders lets a test wrap the order repository the service writes through.
func newCheckoutFixtureWithOrders(t *testing.T, wrap func(repository.OrderRepository) repository.OrderRepository, numbers ...string) *checkoutFixture {
	t.Helper()

	db := testutil.NewDB(t)
	orders := repository.NewOrderRepository(db)
	serviceOrders := orders
	if wrap != nil {
		serviceOrders = wrap(orders)
	}
	provider := &fakeProvider{name: payment.ProviderStripe}

	var gen func() string
	if len(numbers) > 0 {
		i := 0
		gen = func() string {
			n := numbers[i%len(numbers)]
			i++
			return n
		}
	}

	svc := service.NewCheckoutService(
		db,
		repository.NewProductRepository(db),
		repository.NewAddressRepository(db),
		serviceOrders,
		discount.NewValidator(repository.NewDiscountRepository(db), orders),
		payment.NewRegistry(provider),
		nil,
		gen,
		"https://shop.example.com",
		"MXN",
	)

	testutil.SeedAddress(t, db, "addr-1", customerID)
	testutil.SeedAddress(t, db, "addr-other", "cust-2")
	testutil.SeedProduct(t, db, "tee", "Basic Tee", "250",
		model.ProductVariant{Size: "M", Color: "Black", SKU: "TEE-M-BLK", StockQuantity: 5},
		model.ProductVariant{Size: "L", Color: "White", SKU: "TEE-L-WHT", StockQuantity: 1},
	)
	testutil.SeedProduct(t, db, "tote", "Canvas Tote", "1000")

	return &checkoutFixture{db: db, svc: svc, orders: orders, provider: provider}
}

func (f *checkoutFixture) checkout(t *testing.T, req *dto.CheckoutRequest, key string) (*dto.CheckoutResponse, error) {
	t.Helper()
	return f.svc.Checkout(context.Background(), service.CheckoutInput{
		CustomerID:     customerID,
		Email:          "ana@example.com",
		Provider:       payment.ProviderStripe,
		IdempotencyKey: key,
		Request:        req,
	})
}

func teeRequest(qty int, code string) *dto.CheckoutRequest {
	return &dto.CheckoutRequest{
		AddressID:      "addr-1",
		ShippingMethod: pricing.MethodStandard,
		Items:          []*dto.CheckoutItem{{ProductID: "tee", VariantName: "M", Quantity: qty}},
		DiscountCode:   code,
	}
}

func TestCheckout_HappyPath(t *testing.T) {
	t.Parallel()
	f := newCheckoutFixture(t)

	resp, err := f.checkout(t, teeRequest(2, ""), "")
	require.NoError(t, err)
	assert.Equal(t, "sess_1", resp.SessionOrPreferenceID)
	assert.Equal(t, "https://pay.example.com/sess_1", resp.RedirectURL)
	assert.Regexp(t, `^ML-[0-9A-Z]+-[0-9A-Z]{4}$`, resp.OrderNumber)

	order, err := f.orders.FindByOrderNumber(context.Background(), resp.OrderNumber)
	require.NoError(t, err)
	assert.True(t, order.Subtotal.Equal(testutil.Money("500")))
	assert.True(t, order.ShippingTotal.Equal(testutil.Money("99")))
	assert.True(t, order.DiscountTotal.IsZero())
	assert.True(t, order.Total.Equal(testutil.Money("599")))
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, model.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, payment.ProviderStripe, order.PaymentProvider)
	assert.Equal(t, "sess_1", order.PaymentSessionID)
	assert.Contains(t, order.Notes, "sess_1")
	assert.Equal(t, "Av. Reforma 100", order.ShippingAddress.Street1)
	assert.Equal(t, "ana@example.com", order.Email)

	require.Len(t, order.Items, 1)
	assert.Equal(t, "TEE-M-BLK", order.Items[0].SKU)
	assert.Equal(t, "M / Black", order.Items[0].VariantName)
	assert.True(t, order.Items[0].LineTotal.Equal(testutil.Money("500")))

	require.Len(t, order.History, 2)
	assert.Equal(t, "Order created", order.History[0].Notes)
	assert.Equal(t, "Awaiting payment", order.History[1].Notes)

	require.Len(t, f.provider.requests, 1)
	sent := f.provider.requests[0]
	assert.Equal(t, "https://shop.example.com/checkout/success?order="+resp.OrderNumber, sent.URLs.Success)
	assert.Equal(t, order.ID, sent.Order.ID)
	assert.Len(t, sent.Order.Items, 1)
}

func TestCheckout_Pricing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		discount *model.Discount
		req      *dto.CheckoutRequest
		shipping string
		disc     string
		total    string
		code     string
	}{
		{
			name: "free shipping at threshold",
			req: &dto.CheckoutRequest{
				AddressID:      "addr-1",
				ShippingMethod: pricing.MethodExpress,
				Items:          []*dto.CheckoutItem{{ProductID: "tote", Quantity: 1}},
			},
			shipping: "0", disc: "0", total: "1000",
		},
		{
			name:     "percentage discount",
			discount: &model.Discount{Code: "WELCOME10", Type: model.DiscountTypePercentage, Value: decimal.NewFromInt(10), IsActive: true},
			req:      teeRequest(2, "welcome10"),
			shipping: "99", disc: "50", total: "549", code: "WELCOME10",
		},
		{
			name:     "free shipping discount",
			discount: &model.Discount{Code: "SHIPFREE", Type: model.DiscountTypeFreeShipping, IsActive: true},
			req:      teeRequest(2, "SHIPFREE"),
			shipping: "99", disc: "99", total: "500", code: "SHIPFREE",
		},
		{
			name:     "fixed discount larger than order",
			discount: &model.Discount{Code: "BIGGIFT", Type: model.DiscountTypeFixedAmount, Value: decimal.NewFromInt(5000), IsActive: true},
			req:      teeRequest(1, "BIGGIFT"),
			shipping: "99", disc: "349", total: "0", code: "BIGGIFT",
		},
		{
			name:     "unknown code is ignored",
			req:      teeRequest(2, "NOPE"),
			shipping: "99", disc: "0", total: "599",
		},
		{
			name:     "inactive code is ignored",
			discount: &model.Discount{Code: "OLD", Type: model.DiscountTypePercentage, Value: decimal.NewFromInt(50), IsActive: false},
			req:      teeRequest(2, "OLD"),
			shipping: "99", disc: "0", total: "599",
		},
		{
			name:     "client unit price matching catalog",
			req: &dto.CheckoutRequest{
				AddressID:      "addr-1",
				ShippingMethod: pricing.MethodNextDay,
				Items:          []*dto.CheckoutItem{{ProductID: "tee", VariantName: "black", Quantity: 1, UnitPrice: ptr(testutil.Money("250"))}},
			},
			shipping: "299", disc: "0", total: "549",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newCheckoutFixture(t)
			if tt.discount != nil {
				testutil.SeedDiscount(t, f.db, tt.discount)
			}

			resp, err := f.checkout(t, tt.req, "")
			require.NoError(t, err)

			order, err := f.orders.FindByOrderNumber(context.Background(), resp.OrderNumber)
			require.NoError(t, err)
			assert.True(t, order.ShippingTotal.Equal(testutil.Money(tt.shipping)), "shipping %s", order.ShippingTotal)
			assert.True(t, order.DiscountTotal.Equal(testutil.Money(tt.disc)), "discount %s", order.DiscountTotal)
			assert.True(t, order.Total.Equal(testutil.Money(tt.total)), "total %s", order.Total)
			assert.True(t, order.Total.Equal(order.Subtotal.Add(order.ShippingTotal).Sub(order.DiscountTotal)))

			if tt.code == "" {
				assert.Nil(t, order.DiscountCode)
				assert.Nil(t, order.DiscountID)
			} else {
				require.NotNil(t, order.DiscountCode)
				assert.Equal(t, tt.code, *order.DiscountCode)
				assert.NotNil(t, order.DiscountID)
			}
		})
	}
}

func TestCheckout_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		req    *dto.CheckoutRequest
		setup  func(t *testing.T, db *gorm.DB)
		target error
	}{
		{
			name:   "insufficient stock",
			req:    &dto.CheckoutRequest{AddressID: "addr-1", ShippingMethod: pricing.MethodStandard, Items: []*dto.CheckoutItem{{ProductID: "tee", VariantName: "L", Quantity: 2}}},
			target: inventory.ErrInsufficientStock,
		},
		{
			name: "stock summed across lines",
			req: &dto.CheckoutRequest{AddressID: "addr-1", ShippingMethod: pricing.MethodStandard, Items: []*dto.CheckoutItem{
				{ProductID: "tee", VariantName: "M", Quantity: 3},
				{ProductID: "tee", VariantName: "black", Quantity: 3},
			}},
			target: inventory.ErrInsufficientStock,
		},
		{
			name:   "address of another customer",
			req:    &dto.CheckoutRequest{AddressID: "addr-other", ShippingMethod: pricing.MethodStandard, Items: []*dto.CheckoutItem{{ProductID: "tee", VariantName: "M", Quantity: 1}}},
			target: service.ErrAddressNotFound,
		},
		{
			name:   "missing product",
			req:    &dto.CheckoutRequest{AddressID: "addr-1", ShippingMethod: pricing.MethodStandard, Items: []*dto.CheckoutItem{{ProductID: "ghost", Quantity: 1}}},
			target: pricing.ErrProductUnavailable,
		},
		{
			name: "draft product",
			req:  &dto.CheckoutRequest{AddressID: "addr-1", ShippingMethod: pricing.MethodStandard, Items: []*dto.CheckoutItem{{ProductID: "tote", Quantity: 1}}},
			setup: func(t *testing.T, db *gorm.DB) {
				require.NoError(t, db.Model(&model.Product{}).Where("id = ?", "tote").Update("status", model.ProductStatusDraft).Error)
			},
			target: pricing.ErrProductUnavailable,
		},
		{
			name:   "stale client price",
			req:    &dto.CheckoutRequest{AddressID: "addr-1", ShippingMethod: pricing.MethodStandard, Items: []*dto.CheckoutItem{{ProductID: "tee", VariantName: "M", Quantity: 1, UnitPrice: ptr(testutil.Money("1"))}}},
			target: pricing.ErrPriceChanged,
		},
		{
			name:   "unknown shipping method",
			req:    &dto.CheckoutRequest{AddressID: "addr-1", ShippingMethod: "drone", Items: []*dto.CheckoutItem{{ProductID: "tee", Quantity: 1}}},
			target: pricing.ErrUnknownShippingMethod,
		},
		{
			name:   "empty cart",
			req:    &dto.CheckoutRequest{AddressID: "addr-1", ShippingMethod: pricing.MethodStandard},
			target: service.ErrEmptyCart,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newCheckoutFixture(t)
			if tt.setup != nil {
				tt.setup(t, f.db)
			}

			_, err := f.checkout(t, tt.req, "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, service.IsValidationError(err))

			assert.Zero(t, testutil.CountRows(t, f.db, &model.Order{}))
			assert.Zero(t, testutil.CountRows(t, f.db, &model.OrderItem{}))
			assert.Zero(t, f.provider.calls)
		})
	}
}

func TestCheckout_StockErrorNamesProduct(t *testing.T) {
	t.Parallel()
	f := newCheckoutFixture(t)

	_, err := f.checkout(t, &dto.CheckoutRequest{
		AddressID:      "addr-1",
		ShippingMethod: pricing.MethodStandard,
		Items:          []*dto.CheckoutItem{{ProductID: "tee", VariantName: "L", Quantity: 2}},
	}, "")

	var stockErr *inventory.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "insufficient stock for Basic Tee", err.Error())
	assert.Equal(t, 1, stockErr.Available)
}

func TestCheckout_ProviderFailureRemovesOrder(t *testing.T) {
	t.Parallel()
	f := newCheckoutFixture(t)
	f.provider.err = errors.New("gateway timeout")

	_, err := f.checkout(t, teeRequest(1, ""), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrPaymentProvider)
	assert.False(t, service.IsValidationError(err))

	assert.Equal(t, 1, f.provider.calls)
	assert.Zero(t, testutil.CountRows(t, f.db, &model.Order{}))
	assert.Zero(t, testutil.CountRows(t, f.db, &model.OrderItem{}))
	assert.Zero(t, testutil.CountRows(t, f.db, &model.OrderStatusHistory{}))
}

func TestCheckout_IdempotentReplay(t *testing.T) {
	t.Parallel()
	f := newCheckoutFixture(t)

	first, err := f.checkout(t, teeRequest(1, ""), "retry-key")
	require.NoError(t, err)

	second, err := f.checkout(t, teeRequest(1, ""), "retry-key")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.provider.calls)
	assert.EqualValues(t, 1, testutil.CountRows(t, f.db, &model.Order{}))

	t.Run("failed attempt frees the key", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.provider.err = errors.New("down")
		_, err := f.checkout(t, teeRequest(1, ""), "k2")
		require.Error(t, err)

		f.provider.err = nil
		resp, err := f.checkout(t, teeRequest(1, ""), "k2")
		require.NoError(t, err)
		assert.NotEmpty(t, resp.OrderNumber)
	})

	t.Run("unrecorded session frees the key", func(t *testing.T) {
		var flaky *failingAttach
		f := newCheckoutFixtureWithOrders(t, func(r repository.OrderRepository) repository.OrderRepository {
			flaky = &failingAttach{OrderRepository: r, err: errors.New("connection reset")}
			return flaky
		})

		_, err := f.checkout(t, teeRequest(1, ""), "k3")
		require.ErrorContains(t, err, "connection reset")
		assert.False(t, service.IsValidationError(err))
		assert.EqualValues(t, 0, testutil.CountRows(t, f.db, &model.Order{}))

		flaky.err = nil
		resp, err := f.checkout(t, teeRequest(1, ""), "k3")
		require.NoError(t, err)
		assert.Equal(t, "sess_2", resp.SessionOrPreferenceID)
		assert.Equal(t, 2, f.provider.calls)
	})

	t.Run("key without a session is in flight", func(t *testing.T) {
		f := newCheckoutFixture(t)
		key := "stuck"
		o := testutil.SeedOrder(t, f.db, "ML-STUCK-0001", customerID)
		require.NoError(t, f.db.Model(o).Update("idempotency_key", key).Error)

		_, err := f.checkout(t, teeRequest(1, ""), key)
		assert.ErrorIs(t, err, idempotency.ErrInFlight)
		assert.Zero(t, f.provider.calls)
	})
}

type failingAttach struct {
	repository.OrderRepository
	err error
}

func (r *failingAttach) AttachPaymentSession(ctx context.Context, orderID uint, provider, sessionID, redirectURL string) error {
	if r.err != nil {
		return r.err
	}
	return r.OrderRepository.AttachPaymentSession(ctx, orderID, provider, sessionID, redirectURL)
}

func TestCheckout_OrderNumberCollisionRetries(t *testing.T) {
	t.Parallel()

	t.Run("second number is used", func(t *testing.T) {
		f := newCheckoutFixture(t, "ML-TAKEN-0000", "ML-FRESH-0001")
		testutil.SeedOrder(t, f.db, "ML-TAKEN-0000", "cust-9")

		resp, err := f.checkout(t, teeRequest(1, ""), "")
		require.NoError(t, err)
		assert.Equal(t, "ML-FRESH-0001", resp.OrderNumber)
	})

	t.Run("gives up after bounded attempts", func(t *testing.T) {
		f := newCheckoutFixture(t, "ML-TAKEN-0000")
		testutil.SeedOrder(t, f.db, "ML-TAKEN-0000", "cust-9")

		_, err := f.checkout(t, teeRequest(1, ""), "")
		assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
		assert.EqualValues(t, 1, testutil.CountRows(t, f.db, &model.Order{}))
		assert.Zero(t, f.provider.calls)
	})
}

func TestCheckout_UnknownProvider(t *testing.T) {
	t.Parallel()
	f := newCheckoutFixture(t)

	_, err := f.svc.Checkout(context.Background(), service.CheckoutInput{
		CustomerID: customerID,
		Provider:   "mercadopago",
		Request:    teeRequest(1, ""),
	})
	assert.ErrorIs(t, err, payment.ErrUnknownProvider)
}

func ptr[T any](v T) *T { return &v }
