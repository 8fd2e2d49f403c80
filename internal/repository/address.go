package repository

import (
	"context"

	"apparel-checkout/internal/model"

	"gorm.io/gorm"
)

type AddressRepository interface {
	// FindOwned returns gorm.ErrRecordNotFound when the address is missing or belongs to someone else.
	FindOwned(ctx context.Context, addressID, customerID string) (*model.Address, error)
}

type addressRepoImpl struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepoImpl{db: db}
}

func (r *addressRepoImpl) FindOwned(ctx context.Context, addressID, customerID string) (*model.Address, error) {
	var address model.Address
	err := r.db.WithContext(ctx).
		Where("id = ? AND customer_id = ?", addressID, customerID).
		First(&address).Error
	if err != nil {
		return nil, err
	}

	return &address, nil
}
