package service

import "card_market_v1/internal/model"

// Role 调用方能力
type Role string

const (
	RoleUser   Role = "user"   // 任意已登录用户
	RoleSeller Role = "seller" // 已认证卖家
	RoleAdmin  Role = "admin"  // 管理员
)

// Caller 已解析的调用方身份
type Caller struct {
	UserID       int64
	Username     string
	IsAdmin      bool
	SellerStatus string
}

// CallerFromUser 由用户记录构造调用方
func CallerFromUser(u *model.User) *Caller {
	return &Caller{
		UserID:       u.ID,
		Username:     u.Username,
		IsAdmin:      u.IsAdmin,
		SellerStatus: u.SellerStatus,
	}
}

// RequireRole 只依赖调用方身份的能力校验
func RequireRole(caller *Caller, role Role) error {
	if caller == nil || caller.UserID == 0 {
		return ErrUnauthenticated
	}
	switch role {
	case RoleAdmin:
		if !caller.IsAdmin {
			return ErrAdminRequired
		}
	case RoleSeller:
		if caller.SellerStatus != model.SellerStatusApproved {
			return ErrSellerRequired
		}
	}
	return nil
}
