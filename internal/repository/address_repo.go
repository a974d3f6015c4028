package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"card_market_v1/internal/model"
)

// AddressRepository 地址簿仓库
type AddressRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]model.Address, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
	Get(ctx context.Context, userID, addressID int64) (*model.Address, error)
	Create(ctx context.Context, addr *model.Address) error
	Delete(ctx context.Context, userID, addressID int64) error
	SetDefault(ctx context.Context, userID, addressID int64) error
	WithTx(tx *gorm.DB) AddressRepository
}

type addressRepository struct {
	db *gorm.DB
}

// NewAddressRepository 创建地址簿仓库
func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepository{db: db}
}

func (r *addressRepository) ListByUser(ctx context.Context, userID int64) ([]model.Address, error) {
	var list []model.Address
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *addressRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Address{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *addressRepository) Get(ctx context.Context, userID, addressID int64) (*model.Address, error) {
	var addr model.Address
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", addressID, userID).First(&addr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func (r *addressRepository) Create(ctx context.Context, addr *model.Address) error {
	return r.db.WithContext(ctx).Create(addr).Error
}

func (r *addressRepository) Delete(ctx context.Context, userID, addressID int64) error {
	return r.db.WithContext(ctx).Where("id = ? AND user_id = ?", addressID, userID).Delete(&model.Address{}).Error
}

// SetDefault 先清空再设置，调用方需在事务内执行
func (r *addressRepository) SetDefault(ctx context.Context, userID, addressID int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error; err != nil {
		return err
	}
	return db.Model(&model.Address{}).
		Where("id = ? AND user_id = ?", addressID, userID).
		Update("is_default", true).Error
}

func (r *addressRepository) WithTx(tx *gorm.DB) AddressRepository {
	return &addressRepository{db: tx}
}
