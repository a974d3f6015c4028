package model

import (
	"time"
)

// 卖家状态
const (
	SellerStatusNone                = "none"
	SellerStatusPending             = "pending"
	SellerStatusApproved            = "approved"
	SellerStatusRejected            = "rejected"
	SellerStatusCancellationPending = "cancellation_pending"
)

// User 平台用户（买家 / 卖家 / 管理员共用）
type User struct {
	BaseModel

	// 基础信息
	Username       string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email          string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password       string `gorm:"size:255;not null" json:"-"` // bcrypt 哈希
	FullName       string `gorm:"size:128" json:"full_name"`
	PhoneNumber    string `gorm:"size:32" json:"phone_number"`
	ProfilePicture string `gorm:"size:500" json:"profile_picture"`

	IsAdmin bool `gorm:"default:false" json:"is_admin"`

	// 卖家信息：ShopName 在申请成为卖家后才有值，全局唯一
	SellerStatus             string  `gorm:"size:32;index;not null;default:none" json:"seller_status"`
	ShopName                 *string `gorm:"size:128;uniqueIndex" json:"shop_name,omitempty"`
	SellerCancellationReason *string `gorm:"type:text" json:"seller_cancellation_reason,omitempty"`

	// 封禁
	IsBanned   bool       `gorm:"default:false;index" json:"is_banned"`
	BanDetails BanDetails `gorm:"embedded;embeddedPrefix:ban_" json:"ban_details"`

	AverageRating float64 `gorm:"default:0" json:"average_rating"`

	// ==============================
	// 关联关系
	// ==============================
	Addresses []Address `gorm:"foreignKey:UserID" json:"addresses,omitempty"`
	Ratings   []Rating  `gorm:"foreignKey:UserID" json:"ratings,omitempty"`
}

func (*User) TableName() string {
	return "users"
}

// BanDetails 封禁详情，Until 为空表示永久封禁
type BanDetails struct {
	Reason *string    `gorm:"size:255" json:"reason,omitempty"`
	Until  *time.Time `json:"banned_until,omitempty"`
}

// IsApprovedSeller 是否已认证卖家
func (u *User) IsApprovedSeller() bool {
	return u.SellerStatus == SellerStatusApproved
}

// BanActive 封禁在 now 时刻是否仍然生效
func (u *User) BanActive(now time.Time) bool {
	if !u.IsBanned {
		return false
	}
	return u.BanDetails.Until == nil || now.Before(*u.BanDetails.Until)
}

// ==================== Address 收货地址 ====================

// Address 地址簿条目，同一用户至多一个默认地址
type Address struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	Province  string    `gorm:"size:128;not null" json:"province"`
	District  string    `gorm:"size:128;not null" json:"district"`
	Ward      string    `gorm:"size:128;not null" json:"ward"`
	Street    string    `gorm:"size:255;not null" json:"street"`
	IsDefault bool      `gorm:"default:false" json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (*Address) TableName() string {
	return "user_addresses"
}

// ==================== Rating 评分 ====================

// Rating 其他用户给出的评分，Value 取值 1-5
type Rating struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	RaterID   int64     `gorm:"index;not null" json:"rater_id"`
	Value     int       `gorm:"not null;check:chk_user_ratings_value,value BETWEEN 1 AND 5" json:"value"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func (*Rating) TableName() string {
	return "user_ratings"
}
