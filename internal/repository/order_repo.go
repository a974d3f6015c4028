package repository

import (
	"context"
	"errors"
	"time"

	"card_market_v1/internal/model"

	"gorm.io/gorm"
)

// ==================== 过滤条件 ====================

// OrderFilter 订单过滤条件
type OrderFilter struct {
	BuyerID  int64
	SellerID int64
	Status   string
	Page     int
	PageSize int
}

// ==================== OrderRepository 订单仓库 ====================

// OrderRepository 订单仓库接口
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByIDs(ctx context.Context, ids []int64) ([]model.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	CompareAndSetStatus(ctx context.Context, id int64, from, to string, extra map[string]interface{}) (bool, error)

	// 统计
	GetSellerStats(ctx context.Context, sellerID int64, since time.Time) (*SellerStats, error)

	WithTx(tx *gorm.DB) OrderRepository
}

// SellerStats 卖家统计
type SellerStats struct {
	CompletedOrders int64
	Revenue         int64
	ProductsSold    int64
}

// ==================== 实现 ====================

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create 订单与订单项一起写入
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByIDs(ctx context.Context, ids []int64) ([]model.Order, error) {
	var orders []model.Order
	if len(ids) == 0 {
		return orders, nil
	}
	err := r.db.WithContext(ctx).Preload("Items").Where("id IN ?", ids).Order("id ASC").Find(&orders).Error
	return orders, err
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Order{})

	// 应用过滤条件
	if filter.BuyerID > 0 {
		db = db.Where("buyer_id = ?", filter.BuyerID)
	}
	if filter.SellerID > 0 {
		db = db.Where("seller_id = ?", filter.SellerID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	// 计算总数
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	err := db.
		Preload("Items").
		Order("created_at DESC").
		Order("id DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&orders).Error

	return orders, total, err
}

// CompareAndSetStatus 仅当当前状态为 from 时更新为 to，返回是否命中
func (r *orderRepository) CompareAndSetStatus(ctx context.Context, id int64, from, to string, extra map[string]interface{}) (bool, error) {
	fields := map[string]interface{}{"status": to}
	for k, v := range extra {
		fields[k] = v
	}
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	return result.RowsAffected > 0, result.Error
}

// GetSellerStats 统计 since 之后创建且已完成的订单
func (r *orderRepository) GetSellerStats(ctx context.Context, sellerID int64, since time.Time) (*SellerStats, error) {
	var stats SellerStats
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("COUNT(*) AS completed_orders, COALESCE(SUM(total_amount), 0) AS revenue").
		Where("seller_id = ? AND status = ? AND created_at >= ?", sellerID, model.OrderStatusCompleted, since).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Model(&model.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.seller_id = ? AND orders.status = ? AND orders.created_at >= ? AND orders.deleted_at IS NULL",
			sellerID, model.OrderStatusCompleted, since).
		Count(&stats.ProductsSold).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *orderRepository) WithTx(tx *gorm.DB) OrderRepository {
	return &orderRepository{db: tx}
}
