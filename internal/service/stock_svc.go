package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"card_market_v1/internal/repository"
	"card_market_v1/internal/telemetry"
)

// StockService 库存预占与回补
// Reserve 依赖仓储层的条件扣减，调用方传入事务内仓储即可加入同一事务
type StockService struct {
	products repository.ProductRepository
	metrics  *telemetry.Metrics
	logger   *zap.Logger
}

// NewStockService 创建库存服务
func NewStockService(products repository.ProductRepository, metrics *telemetry.Metrics, logger *zap.Logger) *StockService {
	return &StockService{
		products: products,
		metrics:  metrics,
		logger:   logger.Named("stock"),
	}
}

// Using 绑定到指定仓储（通常是事务内仓储）
func (s *StockService) Using(products repository.ProductRepository) *StockService {
	return &StockService{products: products, metrics: s.metrics, logger: s.logger}
}

// Reserve 校验并扣减库存，库存不足或商品已不可售时返回 repository.ErrInsufficientStock
func (s *StockService) Reserve(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return NewValidationError("购买数量必须大于 0")
	}
	err := s.products.DecrementStock(ctx, productID, quantity)
	if errors.Is(err, repository.ErrInsufficientStock) {
		s.metrics.RecordStockShortfall(ctx, productID)
		s.logger.Info("库存预占失败", zap.Int64("product_id", productID), zap.Int("quantity", quantity))
		return err
	}
	if err != nil {
		return fmt.Errorf("reserve product %d: %w", productID, err)
	}
	return nil
}

// Release 回补库存，不做前置校验
func (s *StockService) Release(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	if err := s.products.IncrementStock(ctx, productID, quantity); err != nil {
		return fmt.Errorf("release product %d: %w", productID, err)
	}
	return nil
}
