package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"card_market_v1/internal/api/dto"
	"card_market_v1/internal/middleware"
	"card_market_v1/internal/model"
	"card_market_v1/internal/repository"
)

// ==================== AccountService 账号服务 ====================

// AccountService 注册、登录与调用方身份解析
type AccountService struct {
	users  repository.UserRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewAccountService 创建账号服务
func NewAccountService(users repository.UserRepository, logger *zap.Logger) *AccountService {
	return &AccountService{
		users:  users,
		logger: logger.Named("account"),
		now:    time.Now,
	}
}

// Register 注册普通用户，卖家状态初始为 none
func (s *AccountService) Register(ctx context.Context, req *dto.RegisterRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, internalError("check user exists", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError("hash password", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		Password:     string(hashed),
		FullName:     strings.TrimSpace(req.FullName),
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		SellerStatus: model.SellerStatusNone,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, internalError("create user", err)
	}

	s.logger.Info("用户注册", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Login 校验密码并签发 Access Token
func (s *AccountService) Login(ctx context.Context, req *dto.LoginRequest) (string, *model.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return "", nil, internalError("get user by username", err)
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if user.BanActive(s.now()) {
		return "", nil, ErrUserBanned
	}

	token, err := middleware.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return "", nil, internalError("sign token", err)
	}
	return token, user, nil
}

// GetProfile 获取用户资料（含地址簿）
func (s *AccountService) GetProfile(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, internalError("get user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ResolveCaller 把认证得到的用户 ID 解析为调用方身份
// 封禁未到期的用户直接拒绝
func (s *AccountService) ResolveCaller(ctx context.Context, userID int64) (*Caller, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, internalError("resolve caller", err)
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if user.BanActive(s.now()) {
		return nil, ErrUserBanned
	}
	return CallerFromUser(user), nil
}
