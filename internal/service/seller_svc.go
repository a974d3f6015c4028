package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"card_market_v1/internal/api/dto"
	"card_market_v1/internal/model"
	"card_market_v1/internal/repository"
)

const (
	minShopNameLen           = 3
	minCancellationReasonLen = 10
	defaultBanReason         = "未提供原因"
)

// SellerService 卖家申请、注销申请、管理员裁决与封禁
type SellerService struct {
	uow    *repository.MarketUnitOfWork
	logger *zap.Logger
	now    func() time.Time
}

// NewSellerService 创建卖家生命周期服务
func NewSellerService(uow *repository.MarketUnitOfWork, logger *zap.Logger) *SellerService {
	return &SellerService{
		uow:    uow,
		logger: logger.Named("seller"),
		now:    time.Now,
	}
}

// ==================== 用户侧 ====================

// RequestSellerStatus 申请成为卖家
func (s *SellerService) RequestSellerStatus(ctx context.Context, caller *Caller, req *dto.SellerRequest) (*model.User, error) {
	if err := RequireRole(caller, RoleUser); err != nil {
		return nil, err
	}
	shopName := strings.TrimSpace(req.ShopName)
	if utf8.RuneCountInString(shopName) < minShopNameLen {
		return nil, NewValidationError("店铺名称至少 %d 个字符", minShopNameLen)
	}

	var updated *model.User
	err := s.uow.Transaction(ctx, func(tx *repository.MarketUnitOfWork) error {
		user, err := tx.Users.GetByID(ctx, caller.UserID)
		if err != nil {
			return internalError("get user", err)
		}
		if user == nil {
			return ErrUserNotFound
		}

		switch user.SellerStatus {
		case model.SellerStatusApproved:
			return NewConflictError("您已经是认证卖家")
		case model.SellerStatusPending:
			return NewConflictError("卖家申请正在审核中")
		case model.SellerStatusCancellationPending:
			return NewConflictError("注销申请处理中，暂不能重新申请")
		}

		if strings.TrimSpace(user.PhoneNumber) == "" {
			return NewValidationError("申请卖家前请先填写手机号")
		}
		count, err := tx.Addresses.CountByUser(ctx, user.ID)
		if err != nil {
			return internalError("count addresses", err)
		}
		if count == 0 {
			return NewValidationError("申请卖家前请先添加至少一个地址")
		}

		holder, err := tx.Users.FindByShopName(ctx, shopName)
		if err != nil {
			return internalError("find shop name", err)
		}
		if holder != nil && holder.ID != user.ID {
			return ErrShopNameTaken
		}

		ok, err := tx.Users.UpdateSellerState(ctx, user.ID,
			[]string{model.SellerStatusNone, model.SellerStatusRejected},
			map[string]interface{}{
				"seller_status": model.SellerStatusPending,
				"shop_name":     shopName,
			})
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrShopNameTaken
			}
			return internalError("update seller state", err)
		}
		if !ok {
			return NewConflictError("卖家申请正在审核中")
		}

		user.SellerStatus = model.SellerStatusPending
		user.ShopName = &shopName
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("卖家申请已提交", zap.Int64("user_id", caller.UserID), zap.String("shop_name", shopName))
	return updated, nil
}

// RequestCancellation 卖家申请注销卖家身份
func (s *SellerService) RequestCancellation(ctx context.Context, caller *Caller, req *dto.SellerCancellationRequest) (*model.User, error) {
	if err := RequireRole(caller, RoleUser); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if utf8.RuneCountInString(reason) < minCancellationReasonLen {
		return nil, NewValidationError("注销原因至少 %d 个字符", minCancellationReasonLen)
	}

	var updated *model.User
	err := s.uow.Transaction(ctx, func(tx *repository.MarketUnitOfWork) error {
		user, err := tx.Users.GetByID(ctx, caller.UserID)
		if err != nil {
			return internalError("get user", err)
		}
		if user == nil {
			return ErrUserNotFound
		}
		if user.SellerStatus == model.SellerStatusCancellationPending {
			return NewConflictError("注销申请已提交，请等待管理员处理")
		}
		if user.SellerStatus != model.SellerStatusApproved {
			return NewConflictError("只有认证卖家可以申请注销")
		}

		ok, err := tx.Users.UpdateSellerState(ctx, user.ID,
			[]string{model.SellerStatusApproved},
			map[string]interface{}{
				"seller_status":              model.SellerStatusCancellationPending,
				"seller_cancellation_reason": reason,
			})
		if err != nil {
			return internalError("update seller state", err)
		}
		if !ok {
			return NewConflictError("注销申请已提交，请等待管理员处理")
		}

		user.SellerStatus = model.SellerStatusCancellationPending
		user.SellerCancellationReason = &reason
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("卖家注销申请已提交", zap.Int64("user_id", caller.UserID))
	return updated, nil
}

// ==================== 管理员侧 ====================

// AdminDecide 管理员裁决卖家状态
func (s *SellerService) AdminDecide(ctx context.Context, caller *Caller, userID int64, decision string) (*model.User, error) {
	return s.ManageUser(ctx, caller, userID, &dto.ManageUserRequest{SellerStatus: &decision})
}

// SetBan 封禁 / 解封
func (s *SellerService) SetBan(ctx context.Context, caller *Caller, userID int64, banned bool, reason *string, durationDays *int) (*model.User, error) {
	return s.ManageUser(ctx, caller, userID, &dto.ManageUserRequest{
		IsBanned:        &banned,
		BanReason:       reason,
		BanDurationDays: durationDays,
	})
}

// ManageUser 管理员部分更新：只处理请求中出现的字段，所有改动在同一事务内完成
func (s *SellerService) ManageUser(ctx context.Context, caller *Caller, userID int64, req *dto.ManageUserRequest) (*model.User, error) {
	if err := RequireRole(caller, RoleAdmin); err != nil {
		return nil, err
	}
	if req.SellerStatus == nil && req.IsBanned == nil {
		return nil, NewValidationError("未指定要修改的字段")
	}
	if req.SellerStatus != nil && !isAdminDecision(*req.SellerStatus) {
		return nil, NewValidationError("无效的卖家状态: %q", *req.SellerStatus)
	}

	var hidden int64
	var updated *model.User
	err := s.uow.Transaction(ctx, func(tx *repository.MarketUnitOfWork) error {
		user, err := tx.Users.GetByID(ctx, userID)
		if err != nil {
			return internalError("get user", err)
		}
		if user == nil {
			return ErrUserNotFound
		}

		if req.SellerStatus != nil {
			n, err := s.decide(ctx, tx, user, *req.SellerStatus)
			if err != nil {
				return err
			}
			hidden = n
		}
		if req.IsBanned != nil {
			if err := s.applyBan(ctx, tx, user, *req.IsBanned, req.BanReason, req.BanDurationDays); err != nil {
				return err
			}
		}

		updated, err = tx.Users.GetByID(ctx, userID)
		if err != nil {
			return internalError("reload user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("管理员更新用户",
		zap.Int64("admin_id", caller.UserID),
		zap.Int64("user_id", userID),
		zap.String("seller_status", updated.SellerStatus),
		zap.Bool("is_banned", updated.IsBanned),
		zap.Int64("hidden_products", hidden))
	return updated, nil
}

func isAdminDecision(status string) bool {
	switch status {
	case model.SellerStatusApproved, model.SellerStatusRejected, model.SellerStatusNone:
		return true
	}
	return false
}

// decide 覆盖卖家状态
// 从在售身份（approved / cancellation_pending）降级时，下架其全部在售商品
func (s *SellerService) decide(ctx context.Context, tx *repository.MarketUnitOfWork, user *model.User, decision string) (int64, error) {
	fields := map[string]interface{}{"seller_status": decision}
	if user.SellerStatus == model.SellerStatusCancellationPending {
		fields["seller_cancellation_reason"] = nil
	}
	if err := tx.Users.UpdateFields(ctx, user.ID, fields); err != nil {
		return 0, internalError("update seller status", err)
	}

	wasSelling := user.SellerStatus == model.SellerStatusApproved ||
		user.SellerStatus == model.SellerStatusCancellationPending
	if !wasSelling || decision == model.SellerStatusApproved {
		return 0, nil
	}
	n, err := tx.Products.HideActiveBySeller(ctx, user.ID)
	if err != nil {
		return 0, internalError("hide seller products", err)
	}
	return n, nil
}

// applyBan durationDays 缺省或 <= 0 为永久封禁；解封时清空封禁详情
func (s *SellerService) applyBan(ctx context.Context, tx *repository.MarketUnitOfWork, user *model.User, banned bool, reason *string, durationDays *int) error {
	fields := map[string]interface{}{
		"is_banned":  false,
		"ban_reason": nil,
		"ban_until":  nil,
	}
	if banned {
		r := defaultBanReason
		if reason != nil && strings.TrimSpace(*reason) != "" {
			r = strings.TrimSpace(*reason)
		}
		fields["is_banned"] = true
		fields["ban_reason"] = r
		if durationDays != nil && *durationDays > 0 {
			fields["ban_until"] = s.now().AddDate(0, 0, *durationDays)
		}
	}
	if err := tx.Users.UpdateFields(ctx, user.ID, fields); err != nil {
		return internalError("update ban", err)
	}
	return nil
}

// ListPendingApplications 待审核的卖家申请
func (s *SellerService) ListPendingApplications(ctx context.Context, caller *Caller) ([]model.User, error) {
	return s.listByStatus(ctx, caller, model.SellerStatusPending)
}

// ListCancellationRequests 待处理的卖家注销申请
func (s *SellerService) ListCancellationRequests(ctx context.Context, caller *Caller) ([]model.User, error) {
	return s.listByStatus(ctx, caller, model.SellerStatusCancellationPending)
}

func (s *SellerService) listByStatus(ctx context.Context, caller *Caller, status string) ([]model.User, error) {
	if err := RequireRole(caller, RoleAdmin); err != nil {
		return nil, err
	}
	users, err := s.uow.Users.ListBySellerStatus(ctx, status)
	if err != nil {
		return nil, internalError("list users by seller status", err)
	}
	return users, nil
}

// LiftExpiredBans 定时任务调用：解除到期的临时封禁
func (s *SellerService) LiftExpiredBans(ctx context.Context) (int64, error) {
	n, err := s.uow.Users.LiftExpiredBans(ctx, s.now())
	if err != nil {
		return 0, internalError("lift expired bans", err)
	}
	if n > 0 {
		s.logger.Info("已解除到期封禁", zap.Int64("count", n))
	}
	return n, nil
}
