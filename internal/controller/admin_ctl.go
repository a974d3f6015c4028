package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"card_market_v1/internal/api/dto"
	"card_market_v1/internal/service"
)

// AdminController 管理员：卖家审核、封禁、商品审核
type AdminController struct {
	accounts   *service.AccountService
	sellers    *service.SellerService
	moderation *service.ModerationService
}

func NewAdminController(accounts *service.AccountService, sellers *service.SellerService, moderation *service.ModerationService) *AdminController {
	return &AdminController{accounts: accounts, sellers: sellers, moderation: moderation}
}

// PendingSellers 待审核卖家申请
// @Summary 待审核的卖家申请
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.UserVO
// @Router /api/admin/users/pending [get]
func (ctrl *AdminController) PendingSellers(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	users, err := ctrl.sellers.ListPendingApplications(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toUserVOs(users))
}

// CancellationRequests 待处理注销申请
// @Summary 待处理的卖家注销申请
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.UserVO
// @Router /api/admin/users/cancellation-requests [get]
func (ctrl *AdminController) CancellationRequests(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	users, err := ctrl.sellers.ListCancellationRequests(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toUserVOs(users))
}

// ManageUser 管理用户
// @Summary 裁决卖家状态 / 封禁解封，只修改请求中出现的字段
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param body body dto.ManageUserRequest true "修改内容"
// @Success 200 {object} dto.UserVO
// @Router /api/admin/users/{id} [patch]
func (ctrl *AdminController) ManageUser(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.ManageUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := ctrl.sellers.ManageUser(c.Request.Context(), caller, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toUserVO(user))
}

// PendingProducts 待审核商品
// @Summary 待审核商品（先提交的在前）
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.ProductVO
// @Router /api/admin/products/pending [get]
func (ctrl *AdminController) PendingProducts(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	products, err := ctrl.moderation.ListPending(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toProductVOs(products))
}

// ModerateProduct 审核商品
// @Summary 审核商品 approved / rejected
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Param body body dto.ModerateProductRequest true "审核结果"
// @Success 200 {object} dto.ProductVO
// @Router /api/admin/products/{id}/moderation [patch]
func (ctrl *AdminController) ModerateProduct(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.ModerateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "参数错误: "+err.Error())
		return
	}

	product, err := ctrl.moderation.Moderate(c.Request.Context(), caller, id, req.Decision)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toProductVO(product))
}
