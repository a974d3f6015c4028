package service

import (
	"context"

	"go.uber.org/zap"

	"card_market_v1/internal/model"
	"card_market_v1/internal/repository"
)

// ModerationService 商品审核状态与卖家上下架状态
type ModerationService struct {
	products repository.ProductRepository
	logger   *zap.Logger
}

// NewModerationService 创建审核服务
func NewModerationService(products repository.ProductRepository, logger *zap.Logger) *ModerationService {
	return &ModerationService{
		products: products,
		logger:   logger.Named("moderation"),
	}
}

// Using 返回绑定到指定仓储（通常是事务仓储）的副本
func (s *ModerationService) Using(products repository.ProductRepository) *ModerationService {
	return &ModerationService{products: products, logger: s.logger}
}

// SubmitForModeration 无论之前是什么审核状态，一律重置为 pending
func (s *ModerationService) SubmitForModeration(ctx context.Context, productID int64) error {
	return s.products.UpdateFields(ctx, productID, map[string]interface{}{
		"moderation_status": model.ModerationPending,
	})
}

// Moderate 管理员审核，允许对已审核商品重新裁决
func (s *ModerationService) Moderate(ctx context.Context, caller *Caller, productID int64, decision string) (*model.Product, error) {
	if err := RequireRole(caller, RoleAdmin); err != nil {
		return nil, err
	}
	if decision != model.ModerationApproved && decision != model.ModerationRejected {
		return nil, NewValidationError("无效的审核结果: %q", decision)
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, internalError("get product", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if err := s.products.UpdateFields(ctx, productID, map[string]interface{}{
		"moderation_status": decision,
	}); err != nil {
		return nil, internalError("moderate product", err)
	}

	s.logger.Info("商品审核",
		zap.Int64("product_id", productID),
		zap.String("from", product.ModerationStatus),
		zap.String("to", decision),
		zap.Int64("admin_id", caller.UserID))

	product.ModerationStatus = decision
	return product, nil
}

// SetVisibility 卖家上下架
// 重新上架需要再次审核；管理员下架与已售出的商品不可由卖家切换
func (s *ModerationService) SetVisibility(ctx context.Context, caller *Caller, productID int64, status string) (*model.Product, error) {
	if err := RequireRole(caller, RoleUser); err != nil {
		return nil, err
	}
	if status != model.ListingStatusActive && status != model.ListingStatusHiddenBySeller {
		return nil, NewValidationError("无效的商品状态: %q", status)
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, internalError("get product", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if product.SellerID != caller.UserID {
		return nil, ErrNotProductOwner
	}
	if status == model.ListingStatusActive {
		if err := RequireRole(caller, RoleSeller); err != nil {
			return nil, err
		}
	}

	switch product.Status {
	case model.ListingStatusRemovedByAdmin:
		return nil, NewConflictError("商品已被管理员下架")
	case model.ListingStatusSold:
		return nil, NewConflictError("商品已售出")
	case status:
		return product, nil
	}

	fields := map[string]interface{}{"status": status}
	if status == model.ListingStatusActive {
		fields["moderation_status"] = model.ModerationPending
	}
	if err := s.products.UpdateFields(ctx, productID, fields); err != nil {
		return nil, internalError("update product status", err)
	}

	product.Status = status
	if status == model.ListingStatusActive {
		product.ModerationStatus = model.ModerationPending
	}
	return product, nil
}

// ListPending 待审核商品，先提交的在前
func (s *ModerationService) ListPending(ctx context.Context, caller *Caller) ([]model.Product, error) {
	if err := RequireRole(caller, RoleAdmin); err != nil {
		return nil, err
	}
	products, err := s.products.ListPendingModeration(ctx)
	if err != nil {
		return nil, internalError("list pending products", err)
	}
	return products, nil
}
