package dto

import "time"

// ==================== 注册 / 登录 ====================

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=64"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	FullName    string `json:"full_name" binding:"required"`
	PhoneNumber string `json:"phone_number"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   int64   `json:"expires_in"` // 秒
	User        *UserVO `json:"user"`
}

// ==================== 用户信息 ====================

// UserVO 用户视图对象
type UserVO struct {
	ID                       int64       `json:"id"`
	Username                 string      `json:"username"`
	Email                    string      `json:"email"`
	FullName                 string      `json:"full_name"`
	PhoneNumber              string      `json:"phone_number"`
	ProfilePicture           string      `json:"profile_picture"`
	IsAdmin                  bool        `json:"is_admin"`
	SellerStatus             string      `json:"seller_status"`
	ShopName                 *string     `json:"shop_name,omitempty"`
	SellerCancellationReason *string     `json:"seller_cancellation_reason,omitempty"`
	IsBanned                 bool        `json:"is_banned"`
	BanReason                *string     `json:"ban_reason,omitempty"`
	BannedUntil              *time.Time  `json:"banned_until,omitempty"`
	AverageRating            float64     `json:"average_rating"`
	Addresses                []AddressVO `json:"addresses"`
	UpdatedAt                time.Time   `json:"updated_at"`
}

// ==================== 地址簿 ====================

// AddAddressRequest 新增地址
type AddAddressRequest struct {
	Province  string `json:"province" binding:"required"`
	District  string `json:"district" binding:"required"`
	Ward      string `json:"ward" binding:"required"`
	Street    string `json:"street" binding:"required"`
	IsDefault bool   `json:"is_default"`
}

// AddressVO 地址视图对象
type AddressVO struct {
	ID        int64  `json:"id"`
	Province  string `json:"province"`
	District  string `json:"district"`
	Ward      string `json:"ward"`
	Street    string `json:"street"`
	IsDefault bool   `json:"is_default"`
}

// ==================== 卖家申请 ====================

// SellerRequest 申请成为卖家
type SellerRequest struct {
	ShopName string `json:"shop_name"`
}

// SellerCancellationRequest 申请注销卖家
type SellerCancellationRequest struct {
	Reason string `json:"reason"`
}

// ManageUserRequest 管理员处理用户，字段缺省表示不修改
type ManageUserRequest struct {
	SellerStatus    *string `json:"seller_status"` // none, approved, rejected
	IsBanned        *bool   `json:"is_banned"`
	BanReason       *string `json:"ban_reason"`
	BanDurationDays *int    `json:"ban_duration_days"` // <=0 或缺省表示永久
}
