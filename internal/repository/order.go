package repository

import (
	"context"
	"time"

	"apparel-checkout/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error
	Delete(ctx context.Context, orderID uint) error
	FindByID(ctx context.Context, orderID uint) (*model.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error)
	FindByIdempotencyKey(ctx context.Context, customerID, key string) (*model.Order, error)
	FindByPaymentSession(ctx context.Context, provider, sessionID string) (*model.Order, error)
	AttachPaymentSession(ctx context.Context, orderID uint, provider, sessionID, redirectURL string) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, orderID uint, from model.OrderStatus, updates map[string]interface{}) (bool, error)
	UpdatePaymentStatus(ctx context.Context, orderID uint, status model.PaymentStatus) error
	AppendHistory(ctx context.Context, tx *gorm.DB, entry *model.OrderStatusHistory) error
	CountByCustomer(ctx context.Context, customerID string) (int64, error)
	CountDiscountUses(ctx context.Context, customerID string, discountID uint) (int64, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return r.conn(tx).WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *orderRepoImpl) CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).Create(&items).Error
}

// Delete removes the order with its items and history. Only used to compensate a failed checkout.
func (r *orderRepoImpl) Delete(ctx context.Context, orderID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&model.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&model.OrderStatusHistory{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Order{}, orderID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *orderRepoImpl) FindByID(ctx context.Context, orderID uint) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByIdempotencyKey(ctx context.Context, customerID, key string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND idempotency_key = ?", customerID, key).
		First(&order).Error
	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByPaymentSession(ctx context.Context, provider, sessionID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("payment_provider = ? AND payment_session_id = ?", provider, sessionID).
		First(&order).Error
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// AttachPaymentSession stores the provider reference. The id is mirrored into notes for read-back.
func (r *orderRepoImpl) AttachPaymentSession(ctx context.Context, orderID uint, provider, sessionID, redirectURL string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"payment_provider":     provider,
			"payment_session_id":   sessionID,
			"payment_redirect_url": redirectURL,
			"notes":                provider + " session: " + sessionID,
			"updated_at":           time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// UpdateStatus applies updates only while the order is still in `from`.
// It reports false when another writer moved the order first.
func (r *orderRepoImpl) UpdateStatus(ctx context.Context, tx *gorm.DB, orderID uint, from model.OrderStatus, updates map[string]interface{}) (bool, error) {
	updates["updated_at"] = time.Now()
	result := r.conn(tx).WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *orderRepoImpl) UpdatePaymentStatus(ctx context.Context, orderID uint, status model.PaymentStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"payment_status": status,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *orderRepoImpl) AppendHistory(ctx context.Context, tx *gorm.DB, entry *model.OrderStatusHistory) error {
	return r.conn(tx).WithContext(ctx).Create(entry).Error
}

func (r *orderRepoImpl) CountByCustomer(ctx context.Context, customerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("customer_id = ?", customerID).
		Where("status <> ?", model.OrderStatusCancelled).
		Count(&count).Error

	return count, err
}

func (r *orderRepoImpl) CountDiscountUses(ctx context.Context, customerID string, discountID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("customer_id = ? AND discount_id = ?", customerID, discountID).
		Where("status <> ?", model.OrderStatusCancelled).
		Count(&count).Error

	return count, err
}
