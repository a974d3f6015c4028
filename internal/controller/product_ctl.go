package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"card_market_v1/internal/api/dto"
	"card_market_v1/internal/service"
)

// ProductController 商品
type ProductController struct {
	accounts   *service.AccountService
	products   *service.ProductService
	moderation *service.ModerationService
}

func NewProductController(accounts *service.AccountService, products *service.ProductService, moderation *service.ModerationService) *ProductController {
	return &ProductController{accounts: accounts, products: products, moderation: moderation}
}

// ==================== 公开接口 ====================

// List 公开商品列表
// @Summary 商品列表（只含上架且审核通过的商品）
// @Tags Product
// @Produce json
// @Param category query string false "分类 pokemon/yugioh/boardgame/other"
// @Param sale_type query string false "销售方式 buy-now/auction"
// @Param keyword query string false "关键字"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} dto.ListProductsResponse
// @Router /api/products [get]
func (ctrl *ProductController) List(c *gin.Context) {
	var req dto.ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBadRequest(c, "参数错误: "+err.Error())
		return
	}

	products, total, err := ctrl.products.FindPublic(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dto.ListProductsResponse{
		Total: total,
		List:  toProductVOs(products),
	})
}

// Detail 商品详情
// @Summary 商品详情，未公开商品仅卖家本人与管理员可见
// @Tags Product
// @Produce json
// @Param id path int true "商品ID"
// @Success 200 {object} dto.ProductVO
// @Failure 404 {object} map[string]interface{}
// @Router /api/products/{id} [get]
func (ctrl *ProductController) Detail(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	caller := optionalCaller(c, ctrl.accounts)

	product, err := ctrl.products.GetProduct(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toProductVO(product))
}

// ==================== 卖家接口 ====================

// Create 发布商品
// @Summary 发布商品（仅认证卖家），发布后进入待审核
// @Tags Product
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateProductRequest true "商品信息"
// @Success 201 {object} dto.ProductVO
// @Router /api/products [post]
func (ctrl *ProductController) Create(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "参数错误: "+err.Error())
		return
	}

	product, err := ctrl.products.Create(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, toProductVO(product))
}

// Update 编辑商品
// @Summary 编辑商品，编辑后重新进入审核；销售方式不可修改
// @Tags Product
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Param body body dto.UpdateProductRequest true "修改内容"
// @Success 200 {object} dto.ProductVO
// @Router /api/products/{id} [put]
func (ctrl *ProductController) Update(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "参数错误: "+err.Error())
		return
	}

	product, err := ctrl.products.Update(c.Request.Context(), caller, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toProductVO(product))
}

// Delete 删除商品
// @Summary 删除商品（仅卖家本人）
// @Tags Product
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/products/{id} [delete]
func (ctrl *ProductController) Delete(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ctrl.products.Delete(c.Request.Context(), caller, id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil)
}

// SetStatus 上下架
// @Summary 卖家上下架，重新上架需再次审核
// @Tags Product
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Param body body dto.UpdateVisibilityRequest true "active / hidden_by_seller"
// @Success 200 {object} dto.ProductVO
// @Router /api/products/{id}/status [patch]
func (ctrl *ProductController) SetStatus(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "参数错误: "+err.Error())
		return
	}

	product, err := ctrl.moderation.SetVisibility(c.Request.Context(), caller, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toProductVO(product))
}

// ListMine 我的商品
// @Summary 卖家自己的商品（含待审核、已隐藏）
// @Tags Seller
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.ProductVO
// @Router /api/seller/products [get]
func (ctrl *ProductController) ListMine(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	products, err := ctrl.products.ListMine(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toProductVOs(products))
}
