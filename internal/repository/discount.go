package repository

import (
	"context"
	"strings"

	"apparel-checkout/internal/model"

	"gorm.io/gorm"
)

type DiscountRepository interface {
	FindByCode(ctx context.Context, code string) (*model.Discount, error)
}

type discountRepoImpl struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) DiscountRepository {
	return &discountRepoImpl{db: db}
}

func (r *discountRepoImpl) FindByCode(ctx context.Context, code string) (*model.Discount, error) {
	var discount model.Discount
	err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&discount).Error
	if err != nil {
		return nil, err
	}

	return &discount, nil
}
