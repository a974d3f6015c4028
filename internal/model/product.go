package model

import (
	"time"

	"gorm.io/datatypes"
)

// ==================== 商品枚举 ====================

// 商品分类
const (
	CategoryPokemon   = "pokemon"
	CategoryYugioh    = "yugioh"
	CategoryBoardgame = "boardgame"
	CategoryOther     = "other"
)

// 商品成色
const (
	ConditionNew     = "new"
	ConditionLikeNew = "like-new"
	ConditionUsed    = "used"
	ConditionDamaged = "damaged"
)

// 销售方式（创建后不可修改）
const (
	SaleTypeBuyNow  = "buy-now"
	SaleTypeAuction = "auction"
)

// 审核状态（管理员维护）
const (
	ModerationPending  = "pending"
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
)

// 上架状态
const (
	ListingStatusActive         = "active"
	ListingStatusSold           = "sold"
	ListingStatusHiddenBySeller = "hidden_by_seller"
	ListingStatusRemovedByAdmin = "removed_by_admin"
)

// MaxPrice 单价上限（最小货币单位）
const MaxPrice int64 = 1_000_000_000_000

var (
	validCategories = map[string]bool{
		CategoryPokemon: true, CategoryYugioh: true, CategoryBoardgame: true, CategoryOther: true,
	}
	validConditions = map[string]bool{
		ConditionNew: true, ConditionLikeNew: true, ConditionUsed: true, ConditionDamaged: true,
	}
	validSaleTypes = map[string]bool{
		SaleTypeBuyNow: true, SaleTypeAuction: true,
	}
)

// IsValidCategory 分类是否合法
func IsValidCategory(v string) bool { return validCategories[v] }

// IsValidCondition 成色是否合法
func IsValidCondition(v string) bool { return validConditions[v] }

// IsValidSaleType 销售方式是否合法
func IsValidSaleType(v string) bool { return validSaleTypes[v] }

// ==================== Product 商品 ====================

// Product 卖家发布的商品（卡牌 / 桌游）
type Product struct {
	BaseModel

	SellerID int64 `gorm:"index;not null" json:"seller_id"`

	Name        string                      `gorm:"size:255;not null" json:"name"`
	Description string                      `gorm:"type:text" json:"description"`
	Images      datatypes.JSONSlice[string] `json:"images"` // 第一张为封面
	Category    string                      `gorm:"size:32;index;not null" json:"category"`
	Condition   string                      `gorm:"size:32;not null" json:"condition"`
	SaleType    string                      `gorm:"size:16;not null" json:"sale_type"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`

	// 金额（最小货币单位）
	Price int64 `gorm:"not null" json:"price"`
	Stock int   `gorm:"not null;default:1;check:chk_products_stock,stock >= 0" json:"stock"`

	// 拍卖字段，仅 SaleType = auction 时有效
	AuctionEndDate *time.Time `json:"auction_end_date,omitempty"`
	CurrentBid     *int64     `json:"current_bid,omitempty"`
	WinnerID       *int64     `json:"winner_id,omitempty"`

	ModerationStatus string `gorm:"size:16;index;not null;default:pending" json:"moderation_status"`
	Status           string `gorm:"size:32;index;not null;default:active" json:"status"`

	Bids []Bid `gorm:"foreignKey:ProductID" json:"bids,omitempty"`
}

func (*Product) TableName() string {
	return "products"
}

// IsPurchasable 上架且审核通过才对外可见、可下单
func (p *Product) IsPurchasable() bool {
	return p.Status == ListingStatusActive && p.ModerationStatus == ModerationApproved
}

// IsAuction 是否拍卖商品
func (p *Product) IsAuction() bool {
	return p.SaleType == SaleTypeAuction
}

// CoverImage 封面图
func (p *Product) CoverImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ==================== Bid 出价记录 ====================

// Bid 拍卖出价，只保存数据，出价与结拍逻辑不在本服务内
type Bid struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64     `gorm:"index;not null" json:"product_id"`
	BidderID  int64     `gorm:"index;not null" json:"bidder_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

func (*Bid) TableName() string {
	return "product_bids"
}
