package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"card_market_v1/internal/api/dto"
	"card_market_v1/internal/middleware"
	"card_market_v1/internal/service"
)

// AuthController 注册与登录
type AuthController struct {
	accounts *service.AccountService
}

func NewAuthController(accounts *service.AccountService) *AuthController {
	return &AuthController{accounts: accounts}
}

// Register 注册
// @Summary 用户注册
// @Tags Auth (账号模块)
// @Accept json
// @Produce json
// @Param body body dto.RegisterRequest true "注册信息"
// @Success 201 {object} dto.UserVO
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Failure 409 {object} map[string]interface{} "用户名或邮箱已存在"
// @Router /api/auth/register [post]
func (ctrl *AuthController) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := ctrl.accounts.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, toUserVO(user))
}

// Login 登录
// @Summary 用户登录，返回 Access Token
// @Tags Auth (账号模块)
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.LoginResponse
// @Failure 401 {object} map[string]interface{} "用户名或密码错误"
// @Router /api/auth/login [post]
func (ctrl *AuthController) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "参数错误: "+err.Error())
		return
	}

	token, user, err := ctrl.accounts.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, dto.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(middleware.GetJWTConfig().AccessTokenTTL.Seconds()),
		User:        toUserVO(user),
	})
}
