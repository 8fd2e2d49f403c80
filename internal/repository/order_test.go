package repository_test

import (
	"context"
	"testing"

	"apparel-checkout/internal/model"
	"apparel-checkout/internal/repository"
	"apparel-checkout/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newOrder(number, customerID string) *model.Order {
	return &model.Order{
		OrderNumber:    number,
		CustomerID:     customerID,
		Email:          "buyer@example.com",
		Subtotal:       testutil.Money("500"),
		ShippingTotal:  testutil.Money("99"),
		DiscountTotal:  decimal.Zero,
		Total:          testutil.Money("599"),
		Currency:       "MXN",
		ShippingMethod: "standard",
		Status:         model.OrderStatusPending,
		PaymentStatus:  model.PaymentStatusPending,
		Source:         "web",
	}
}

func TestOrderRepository_CreateWithItems(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	order := newOrder("ML-A-0001", "cust-1")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.Create(ctx, tx, order); err != nil {
			return err
		}
		return repo.CreateOrderItems(ctx, tx, []*model.OrderItem{
			{OrderID: order.ID, ProductID: "tee", ProductName: "Tee", Quantity: 1, UnitPrice: testutil.Money("500"), LineTotal: testutil.Money("500")},
		})
	})
	require.NoError(t, err)
	require.NotZero(t, order.ID)

	got, err := repo.FindByOrderNumber(ctx, "ML-A-0001")
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
	assert.True(t, got.Total.Equal(testutil.Money("599")))
}

func TestOrderRepository_DuplicateOrderNumber(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, nil, newOrder("ML-DUP", "cust-1")))
	err := repo.Create(ctx, nil, newOrder("ML-DUP", "cust-2"))
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestOrderRepository_IdempotencyKey(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	key := "key-1"
	first := newOrder("ML-K-1", "cust-1")
	first.IdempotencyKey = &key
	require.NoError(t, repo.Create(ctx, nil, first))

	t.Run("lookup", func(t *testing.T) {
		got, err := repo.FindByIdempotencyKey(ctx, "cust-1", key)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)

		_, err = repo.FindByIdempotencyKey(ctx, "cust-2", key)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("same key same customer conflicts", func(t *testing.T) {
		dup := newOrder("ML-K-2", "cust-1")
		dup.IdempotencyKey = &key
		assert.ErrorIs(t, repo.Create(ctx, nil, dup), gorm.ErrDuplicatedKey)
	})

	t.Run("orders without a key never conflict", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, nil, newOrder("ML-K-3", "cust-1")))
		require.NoError(t, repo.Create(ctx, nil, newOrder("ML-K-4", "cust-1")))
	})
}

func TestOrderRepository_Delete(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	order := testutil.SeedOrder(t, db, "ML-DEL", "cust-1")

	require.NoError(t, repo.Delete(ctx, order.ID))
	assert.Zero(t, testutil.CountRows(t, db, &model.Order{}))
	assert.Zero(t, testutil.CountRows(t, db, &model.OrderItem{}))
	assert.Zero(t, testutil.CountRows(t, db, &model.OrderStatusHistory{}))

	assert.ErrorIs(t, repo.Delete(ctx, order.ID), gorm.ErrRecordNotFound)
}

func TestOrderRepository_AttachPaymentSession(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	order := testutil.SeedOrder(t, db, "ML-PAY", "cust-1")
	require.NoError(t, repo.AttachPaymentSession(ctx, order.ID, "stripe", "cs_test_1", "https://checkout.stripe.com/c/cs_test_1"))

	got, err := repo.FindByPaymentSession(ctx, "stripe", "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, "stripe session: cs_test_1", got.Notes)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_test_1", got.PaymentRedirectURL)

	assert.ErrorIs(t, repo.AttachPaymentSession(ctx, 9999, "stripe", "x", "y"), gorm.ErrRecordNotFound)
}

func TestOrderRepository_UpdateStatusGuard(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	order := testutil.SeedOrder(t, db, "ML-UPD", "cust-1")

	ok, err := repo.UpdateStatus(ctx, nil, order.ID, model.OrderStatusConfirmed, map[string]interface{}{"status": model.OrderStatusProcessing})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.UpdateStatus(ctx, nil, order.ID, model.OrderStatusPending, map[string]interface{}{"status": model.OrderStatusConfirmed})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, got.Status)
}

func TestOrderRepository_Counts(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	discountID := uint(7)
	a := newOrder("ML-C-1", "cust-1")
	a.DiscountID = &discountID
	b := newOrder("ML-C-2", "cust-1")
	b.DiscountID = &discountID
	b.Status = model.OrderStatusCancelled
	require.NoError(t, repo.Create(ctx, nil, a))
	require.NoError(t, repo.Create(ctx, nil, b))

	n, err := repo.CountByCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.CountDiscountUses(ctx, "cust-1", discountID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.CountByCustomer(ctx, "cust-9")
	require.NoError(t, err)
	assert.Zero(t, n)
}
