package dto

import "time"

// ==================== 商品发布 / 编辑 ====================

// CreateProductRequest 发布商品
type CreateProductRequest struct {
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Images         []string   `json:"images"`
	Category       string     `json:"category"`  // pokemon, yugioh, boardgame, other
	Condition      string     `json:"condition"` // new, like-new, used, damaged
	SaleType       string     `json:"sale_type"` // buy-now, auction
	Price          int64      `json:"price"`
	Stock          *int       `json:"stock"` // 缺省为 1
	Tags           []string   `json:"tags"`
	AuctionEndDate *time.Time `json:"auction_end_date"`
}

// UpdateProductRequest 编辑商品，字段缺省表示不修改；销售方式不可修改
type UpdateProductRequest struct {
	Name           *string    `json:"name"`
	Description    *string    `json:"description"`
	Images         []string   `json:"images"`
	Category       *string    `json:"category"`
	Condition      *string    `json:"condition"`
	Price          *int64     `json:"price"`
	Stock          *int       `json:"stock"`
	Tags           []string   `json:"tags"`
	AuctionEndDate *time.Time `json:"auction_end_date"`
}

// UpdateVisibilityRequest 卖家上下架
type UpdateVisibilityRequest struct {
	Status string `json:"status" binding:"required"` // active, hidden_by_seller
}

// ModerateProductRequest 管理员审核
type ModerateProductRequest struct {
	Decision string `json:"decision" binding:"required"` // approved, rejected
}

// ==================== 查询 ====================

// ListProductsRequest 公开商品列表
type ListProductsRequest struct {
	Category string `form:"category"`
	SaleType string `form:"sale_type"`
	Keyword  string `form:"keyword"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
}

// ListProductsResponse 商品列表响应
type ListProductsResponse struct {
	Total int64       `json:"total"`
	List  []ProductVO `json:"list"`
}

// ProductVO 商品视图对象
type ProductVO struct {
	ID               int64      `json:"id"`
	SellerID         int64      `json:"seller_id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Images           []string   `json:"images"`
	Category         string     `json:"category"`
	Condition        string     `json:"condition"`
	SaleType         string     `json:"sale_type"`
	Price            int64      `json:"price"`
	Stock            int        `json:"stock"`
	Tags             []string   `json:"tags"`
	AuctionEndDate   *time.Time `json:"auction_end_date,omitempty"`
	CurrentBid       *int64     `json:"current_bid,omitempty"`
	ModerationStatus string     `json:"moderation_status"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
