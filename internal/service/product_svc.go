package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"card_market_v1/internal/api/dto"
	"card_market_v1/internal/model"
	"card_market_v1/internal/repository"
)

// ProductService 商品发布、编辑、删除与查询
type ProductService struct {
	uow        *repository.MarketUnitOfWork
	moderation *ModerationService
	logger     *zap.Logger
	now        func() time.Time
}

// NewProductService 创建商品服务
func NewProductService(uow *repository.MarketUnitOfWork, moderation *ModerationService, logger *zap.Logger) *ProductService {
	return &ProductService{
		uow:        uow,
		moderation: moderation,
		logger:     logger.Named("product"),
		now:        time.Now,
	}
}

// ==================== 发布 ====================

// Create 认证卖家发布商品，新商品进入待审核
func (s *ProductService) Create(ctx context.Context, caller *Caller, req *dto.CreateProductRequest) (*model.Product, error) {
	if err := RequireRole(caller, RoleSeller); err != nil {
		return nil, err
	}
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	stock := 1
	if req.Stock != nil {
		stock = *req.Stock
	}

	product := &model.Product{
		SellerID:         caller.UserID,
		Name:             strings.TrimSpace(req.Name),
		Description:      strings.TrimSpace(req.Description),
		Images:           datatypes.JSONSlice[string](req.Images),
		Category:         req.Category,
		Condition:        req.Condition,
		SaleType:         req.SaleType,
		Tags:             datatypes.JSONSlice[string](normalizeTags(req.Tags)),
		Price:            req.Price,
		Stock:            stock,
		ModerationStatus: model.ModerationPending,
		Status:           model.ListingStatusActive,
	}
	if req.SaleType == model.SaleTypeAuction {
		bid := req.Price
		product.AuctionEndDate = req.AuctionEndDate
		product.CurrentBid = &bid
	}

	if err := s.uow.Products.Create(ctx, product); err != nil {
		return nil, internalError("create product", err)
	}

	s.logger.Info("商品已发布，等待审核",
		zap.Int64("product_id", product.ID),
		zap.Int64("seller_id", caller.UserID),
		zap.String("sale_type", product.SaleType))
	return product, nil
}

func (s *ProductService) validateCreate(req *dto.CreateProductRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return NewValidationError("商品名称不能为空")
	}
	if strings.TrimSpace(req.Description) == "" {
		return NewValidationError("商品描述不能为空")
	}
	if !model.IsValidCategory(req.Category) {
		return NewValidationError("无效的商品分类: %q", req.Category)
	}
	if !model.IsValidCondition(req.Condition) {
		return NewValidationError("无效的商品成色: %q", req.Condition)
	}
	if !model.IsValidSaleType(req.SaleType) {
		return NewValidationError("无效的销售方式: %q", req.SaleType)
	}
	if req.Price <= 0 {
		return NewValidationError("价格必须大于 0")
	}
	if req.Price > model.MaxPrice {
		return NewValidationError("价格不能超过 %d", model.MaxPrice)
	}
	if req.Stock != nil && *req.Stock < 1 {
		return NewValidationError("库存至少为 1")
	}
	if len(req.Images) == 0 {
		return NewValidationError("至少上传一张商品图片")
	}
	if req.SaleType == model.SaleTypeAuction {
		if req.AuctionEndDate == nil || !req.AuctionEndDate.After(s.now()) {
			return NewValidationError("拍卖商品需要一个未来的结束时间")
		}
	}
	return nil
}

// ==================== 编辑 / 删除 ====================

// Update 卖家编辑商品，任何编辑都会重新进入审核
func (s *ProductService) Update(ctx context.Context, caller *Caller, productID int64, req *dto.UpdateProductRequest) (*model.Product, error) {
	if err := RequireRole(caller, RoleSeller); err != nil {
		return nil, err
	}

	var updated *model.Product
	err := s.uow.Transaction(ctx, func(tx *repository.MarketUnitOfWork) error {
		product, err := s.ownedProduct(ctx, tx.Products, caller, productID)
		if err != nil {
			return err
		}

		fields, err := s.buildUpdateFields(product, req)
		if err != nil {
			return err
		}
		if len(fields) > 0 {
			if err := tx.Products.UpdateFields(ctx, productID, fields); err != nil {
				return internalError("update product", err)
			}
		}
		if err := s.moderation.Using(tx.Products).SubmitForModeration(ctx, productID); err != nil {
			return internalError("submit for moderation", err)
		}

		updated, err = tx.Products.GetByID(ctx, productID)
		if err != nil {
			return internalError("reload product", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("商品已编辑，重新进入审核", zap.Int64("product_id", productID))
	return updated, nil
}

func (s *ProductService) buildUpdateFields(product *model.Product, req *dto.UpdateProductRequest) (map[string]interface{}, error) {
	fields := make(map[string]interface{})

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, NewValidationError("商品名称不能为空")
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Images != nil {
		if len(req.Images) == 0 {
			return nil, NewValidationError("至少保留一张商品图片")
		}
		fields["images"] = datatypes.JSONSlice[string](req.Images)
	}
	if req.Category != nil {
		if !model.IsValidCategory(*req.Category) {
			return nil, NewValidationError("无效的商品分类: %q", *req.Category)
		}
		fields["category"] = *req.Category
	}
	if req.Condition != nil {
		if !model.IsValidCondition(*req.Condition) {
			return nil, NewValidationError("无效的商品成色: %q", *req.Condition)
		}
		fields["condition"] = *req.Condition
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return nil, NewValidationError("价格必须大于 0")
		}
		if *req.Price > model.MaxPrice {
			return nil, NewValidationError("价格不能超过 %d", model.MaxPrice)
		}
		fields["price"] = *req.Price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, NewValidationError("库存不能为负数")
		}
		fields["stock"] = *req.Stock
	}
	if req.Tags != nil {
		fields["tags"] = datatypes.JSONSlice[string](normalizeTags(req.Tags))
	}
	if req.AuctionEndDate != nil {
		if !product.IsAuction() {
			return nil, NewValidationError("一口价商品没有拍卖结束时间")
		}
		if !req.AuctionEndDate.After(s.now()) {
			return nil, NewValidationError("拍卖结束时间必须晚于当前时间")
		}
		fields["auction_end_date"] = *req.AuctionEndDate
	}
	return fields, nil
}

// Delete 卖家删除自己的商品（软删除）
func (s *ProductService) Delete(ctx context.Context, caller *Caller, productID int64) error {
	if err := RequireRole(caller, RoleUser); err != nil {
		return err
	}
	if _, err := s.ownedProduct(ctx, s.uow.Products, caller, productID); err != nil {
		return err
	}
	if err := s.uow.Products.Delete(ctx, productID); err != nil {
		return internalError("delete product", err)
	}
	s.logger.Info("商品已删除", zap.Int64("product_id", productID), zap.Int64("seller_id", caller.UserID))
	return nil
}

func (s *ProductService) ownedProduct(ctx context.Context, repo repository.ProductRepository, caller *Caller, productID int64) (*model.Product, error) {
	product, err := repo.GetByID(ctx, productID)
	if err != nil {
		return nil, internalError("get product", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if product.SellerID != caller.UserID {
		return nil, ErrNotProductOwner
	}
	return product, nil
}

// ==================== 查询 ====================

// GetProduct 商品详情
// 非公开商品只对卖家本人和管理员可见，其他人一律 NotFound；caller 可为 nil（匿名）
func (s *ProductService) GetProduct(ctx context.Context, caller *Caller, productID int64) (*model.Product, error) {
	product, err := s.uow.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, internalError("get product", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if product.IsPurchasable() {
		return product, nil
	}
	if caller != nil && (caller.IsAdmin || caller.UserID == product.SellerID) {
		return product, nil
	}
	return nil, ErrProductNotFound
}

// ListMine 卖家自己的全部商品（含未审核、已隐藏）
func (s *ProductService) ListMine(ctx context.Context, caller *Caller) ([]model.Product, error) {
	if err := RequireRole(caller, RoleUser); err != nil {
		return nil, err
	}
	products, err := s.uow.Products.ListBySeller(ctx, caller.UserID)
	if err != nil {
		return nil, internalError("list seller products", err)
	}
	return products, nil
}

// FindPublic 公开商品检索，只返回上架且审核通过的商品
func (s *ProductService) FindPublic(ctx context.Context, req *dto.ListProductsRequest) ([]model.Product, int64, error) {
	if req.Category != "" && !model.IsValidCategory(req.Category) {
		return nil, 0, NewValidationError("无效的商品分类: %q", req.Category)
	}
	if req.SaleType != "" && !model.IsValidSaleType(req.SaleType) {
		return nil, 0, NewValidationError("无效的销售方式: %q", req.SaleType)
	}

	products, total, err := s.uow.Products.FindPublic(ctx, repository.ProductFilter{
		Category: req.Category,
		SaleType: req.SaleType,
		Keyword:  strings.TrimSpace(req.Keyword),
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return nil, 0, internalError("find public products", err)
	}
	return products, total, nil
}

// normalizeTags 去空白、去重，保持原顺序
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
