package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"card_market_v1/internal/model"
)

// ==================== UserRepository 用户仓库 ====================

// UserRepository 用户仓库接口（Account Store）
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	FindByShopName(ctx context.Context, shopName string) (*model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	ListBySellerStatus(ctx context.Context, status string) ([]model.User, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	UpdateSellerState(ctx context.Context, id int64, allowedFrom []string, fields map[string]interface{}) (bool, error)
	LiftExpiredBans(ctx context.Context, now time.Time) (int64, error)
	WithTx(tx *gorm.DB) UserRepository
}

// ==================== 实现 ====================

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create 创建用户
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID 根据 ID 获取用户（含地址簿）
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("Addresses", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername 根据用户名获取用户
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByShopName 根据店铺名获取用户
func (r *userRepository) FindByShopName(ctx context.Context, shopName string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("shop_name = ?", shopName).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}

// ListBySellerStatus 审核队列，按最近更新时间升序
func (r *userRepository) ListBySellerStatus(ctx context.Context, status string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("seller_status = ?", status).
		Order("updated_at ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

// UpdateSellerState 仅当当前卖家状态在 allowedFrom 中时更新，返回是否命中
func (r *userRepository) UpdateSellerState(ctx context.Context, id int64, allowedFrom []string, fields map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND seller_status IN ?", id, allowedFrom).
		Updates(fields)
	return result.RowsAffected > 0, result.Error
}

// LiftExpiredBans 解除已到期的临时封禁
func (r *userRepository) LiftExpiredBans(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("is_banned = ? AND ban_until IS NOT NULL AND ban_until <= ?", true, now).
		Updates(map[string]interface{}{
			"is_banned":  false,
			"ban_reason": nil,
			"ban_until":  nil,
		})
	return result.RowsAffected, result.Error
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}
