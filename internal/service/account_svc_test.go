package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card_market_v1/internal/api/dto"
	"card_market_v1/internal/middleware"
	"card_market_v1/internal/model"
)

func registerReq(username string) *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Username:    username,
		Email:       username + "@Example.com",
		Password:    "secret123",
		FullName:    "测试用户",
		PhoneNumber: "0912345678",
	}
}

func TestAccountService_Register(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.accounts.Register(ctx, registerReq("alice"))
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, model.SellerStatusNone, u.SellerStatus)
	assert.False(t, u.IsAdmin)
	assert.NotEqual(t, "secret123", u.Password)

	t.Run("用户名重复", func(t *testing.T) {
		req := registerReq("alice")
		req.Email = "other@example.com"
		_, err := env.accounts.Register(ctx, req)
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("邮箱重复（大小写不敏感）", func(t *testing.T) {
		req := registerReq("bob")
		req.Email = "ALICE@example.com"
		_, err := env.accounts.Register(ctx, req)
		assert.ErrorIs(t, err, ErrUserExists)
	})
}

func TestAccountService_Login(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.accounts.Register(ctx, registerReq("alice"))
	require.NoError(t, err)

	token, got, err := env.accounts.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	claims, err := middleware.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"密码错误", "alice", "wrong"},
		{"用户不存在", "nobody", "secret123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.accounts.Login(ctx, &dto.LoginRequest{Username: tt.username, Password: tt.password})
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}

	t.Run("封禁用户无法登录", func(t *testing.T) {
		require.NoError(t, env.uow.Users.UpdateFields(ctx, u.ID, map[string]interface{}{"is_banned": true}))
		_, _, err := env.accounts.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "secret123"})
		assert.ErrorIs(t, err, ErrUserBanned)
	})
}

func TestAccountService_ResolveCaller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.createSeller(t, "seller")
	caller, err := env.accounts.ResolveCaller(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, seller.ID, caller.UserID)
	assert.Equal(t, model.SellerStatusApproved, caller.SellerStatus)
	assert.NoError(t, RequireRole(caller, RoleSeller))

	t.Run("用户不存在", func(t *testing.T) {
		_, err := env.accounts.ResolveCaller(ctx, 9999)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("无效 ID", func(t *testing.T) {
		_, err := env.accounts.ResolveCaller(ctx, 0)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("封禁中", func(t *testing.T) {
		u := env.createUser(t, "banned", func(u *model.User) {
			u.IsBanned = true
			u.BanDetails.Until = ptr(time.Now().Add(time.Hour))
		})
		_, err := env.accounts.ResolveCaller(ctx, u.ID)
		assert.ErrorIs(t, err, ErrUserBanned)
	})

	t.Run("封禁已到期", func(t *testing.T) {
		u := env.createUser(t, "expired", func(u *model.User) {
			u.IsBanned = true
			u.BanDetails.Until = ptr(time.Now().Add(-time.Hour))
		})
		_, err := env.accounts.ResolveCaller(ctx, u.ID)
		assert.NoError(t, err)
	})
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		caller  *Caller
		role    Role
		wantErr error
	}{
		{"匿名", nil, RoleUser, ErrUnauthenticated},
		{"零值身份", &Caller{}, RoleUser, ErrUnauthenticated},
		{"普通用户", &Caller{UserID: 1}, RoleUser, nil},
		{"未认证卖家", &Caller{UserID: 1, SellerStatus: model.SellerStatusPending}, RoleSeller, ErrSellerRequired},
		{"注销中的卖家", &Caller{UserID: 1, SellerStatus: model.SellerStatusCancellationPending}, RoleSeller, ErrSellerRequired},
		{"认证卖家", &Caller{UserID: 1, SellerStatus: model.SellerStatusApproved}, RoleSeller, nil},
		{"普通用户要求管理员", &Caller{UserID: 1, SellerStatus: model.SellerStatusApproved}, RoleAdmin, ErrAdminRequired},
		{"管理员", &Caller{UserID: 1, IsAdmin: true}, RoleAdmin, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireRole(tt.caller, tt.role)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(ErrOrderNotFound))
	assert.Equal(t, KindInsufficientStock, KindOf(NewInsufficientStockError("皮卡丘")))
	assert.Equal(t, KindServer, KindOf(assert.AnError))
	assert.Equal(t, "invalid_transition", KindInvalidTransition.String())

	wrapped := internalError("op", assert.AnError)
	assert.ErrorIs(t, wrapped, assert.AnError)
	assert.NotContains(t, wrapped.Message, assert.AnError.Error())
}
