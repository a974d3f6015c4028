package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"card_market_v1/internal/api/dto"
	"card_market_v1/internal/service"
)

// UserController 个人资料、地址簿与卖家申请
type UserController struct {
	accounts  *service.AccountService
	addresses *service.AddressService
	sellers   *service.SellerService
}

func NewUserController(accounts *service.AccountService, addresses *service.AddressService, sellers *service.SellerService) *UserController {
	return &UserController{accounts: accounts, addresses: addresses, sellers: sellers}
}

// Me 当前用户资料
// @Summary 获取当前用户资料（含地址簿）
// @Tags User
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.UserVO
// @Router /api/users/me [get]
func (ctrl *UserController) Me(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	user, err := ctrl.accounts.GetProfile(c.Request.Context(), caller.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toUserVO(user))
}

// ==================== 地址簿 ====================

// AddAddress 新增地址
// @Summary 新增收货地址，第一条地址自动成为默认
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AddAddressRequest true "地址"
// @Success 201 {object} dto.AddressVO
// @Router /api/users/me/addresses [post]
func (ctrl *UserController) AddAddress(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	var req dto.AddAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "参数错误: "+err.Error())
		return
	}

	addr, err := ctrl.addresses.Add(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, toAddressVO(addr))
}

// SetDefaultAddress 设为默认地址
// @Summary 设为默认地址
// @Tags User
// @Security BearerAuth
// @Param id path int true "地址ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/users/me/addresses/{id}/default [put]
func (ctrl *UserController) SetDefaultAddress(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ctrl.addresses.SetDefault(c.Request.Context(), caller, id); err != nil {
		respondError(c, err)
		return
	}
	ctrl.respondAddresses(c, caller)
}

// DeleteAddress 删除地址
// @Summary 删除地址，删除默认地址时最早的地址成为默认
// @Tags User
// @Security BearerAuth
// @Param id path int true "地址ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/users/me/addresses/{id} [delete]
func (ctrl *UserController) DeleteAddress(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ctrl.addresses.Delete(c.Request.Context(), caller, id); err != nil {
		respondError(c, err)
		return
	}
	ctrl.respondAddresses(c, caller)
}

func (ctrl *UserController) respondAddresses(c *gin.Context, caller *service.Caller) {
	list, err := ctrl.addresses.List(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	vos := make([]dto.AddressVO, 0, len(list))
	for i := range list {
		vos = append(vos, toAddressVO(&list[i]))
	}
	respondOK(c, http.StatusOK, vos)
}

// ==================== 卖家申请 ====================

// RequestSeller 申请成为卖家
// @Summary 申请成为卖家
// @Description 需要已填写手机号并至少保存一个地址；店铺名全局唯一
// @Tags Seller
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.SellerRequest true "店铺名"
// @Success 200 {object} dto.UserVO
// @Failure 409 {object} map[string]interface{} "店铺名已被使用 / 申请审核中"
// @Router /api/users/me/seller-request [post]
func (ctrl *UserController) RequestSeller(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	var req dto.SellerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := ctrl.sellers.RequestSellerStatus(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toUserVO(user))
}

// RequestCancellation 申请注销卖家
// @Summary 申请注销卖家身份
// @Tags Seller
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.SellerCancellationRequest true "注销原因"
// @Success 200 {object} dto.UserVO
// @Router /api/users/me/seller-cancellation [post]
func (ctrl *UserController) RequestCancellation(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	var req dto.SellerCancellationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := ctrl.sellers.RequestCancellation(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toUserVO(user))
}
