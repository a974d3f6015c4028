package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"card_market_v1/internal/model"
)

// ErrInsufficientStock 条件扣减未命中（库存不足或商品不存在）
var ErrInsufficientStock = errors.New("库存不足")

// ==================== 接口定义 ====================

// ProductRepository 商品仓储接口（Catalog Store）
type ProductRepository interface {
	// 基础 CRUD
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error

	// 列表查询
	ListBySeller(ctx context.Context, sellerID int64) ([]model.Product, error)
	ListPendingModeration(ctx context.Context) ([]model.Product, error)
	FindPublic(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)

	// 库存
	DecrementStock(ctx context.Context, id int64, quantity int) error
	IncrementStock(ctx context.Context, id int64, quantity int) error

	// 批量操作
	HideActiveBySeller(ctx context.Context, sellerID int64) (int64, error)

	// 事务
	WithTx(tx *gorm.DB) ProductRepository
}

// ==================== 过滤条件 ====================

// ProductFilter 公开商品查询条件
type ProductFilter struct {
	Category string
	SaleType string
	Keyword  string
	Page     int
	PageSize int
}

// PublicListing 对外可见谓词：上架且审核通过
func PublicListing(db *gorm.DB) *gorm.DB {
	return db.Where("status = ? AND moderation_status = ?",
		model.ListingStatusActive, model.ModerationApproved)
}

// ==================== 仓储实现 ====================

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// GetByID 不存在时返回 nil, nil
func (r *productRepo) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	var products []model.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

func (r *productRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Updates(fields).Error
}

// Delete 软删除，已有订单行仍保留名称与价格快照
func (r *productRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Product{}, id).Error
}

func (r *productRepo) ListBySeller(ctx context.Context, sellerID int64) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&products).Error
	return products, err
}

// ListPendingModeration 待审核队列，先提交的排前面
func (r *productRepo) ListPendingModeration(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("moderation_status = ?", model.ModerationPending).
		Order("created_at ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) FindPublic(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Product{}).Scopes(PublicListing)

	if filter.Category != "" {
		db = db.Where("category = ?", filter.Category)
	}
	if filter.SaleType != "" {
		db = db.Where("sale_type = ?", filter.SaleType)
	}
	if filter.Keyword != "" {
		keyword := "%" + filter.Keyword + "%"
		db = db.Where("name LIKE ? OR description LIKE ?", keyword, keyword)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	err := db.Order("created_at DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&products).Error

	return products, total, err
}

// DecrementStock 单条条件更新完成校验与扣减，不存在先读后写的窗口
// 只有在售且审核通过的商品才能扣减
func (r *productRepo) DecrementStock(ctx context.Context, id int64, quantity int) error {
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Where("status = ? AND moderation_status = ?", model.ListingStatusActive, model.ModerationApproved).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// IncrementStock 回补库存，已软删除的商品同样回补
func (r *productRepo) IncrementStock(ctx context.Context, id int64, quantity int) error {
	return r.db.WithContext(ctx).Unscoped().Model(&model.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity)).Error
}

// HideActiveBySeller 下架卖家全部在售商品，返回影响行数
func (r *productRepo) HideActiveBySeller(ctx context.Context, sellerID int64) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("seller_id = ? AND status = ?", sellerID, model.ListingStatusActive).
		Update("status", model.ListingStatusHiddenBySeller)
	return result.RowsAffected, result.Error
}

func (r *productRepo) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepo{db: tx}
}
