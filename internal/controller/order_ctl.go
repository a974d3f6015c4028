package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"card_market_v1/internal/api/dto"
	"card_market_v1/internal/service"
)

// HeaderIdempotencyKey 下单幂等键请求头
const HeaderIdempotencyKey = "Idempotency-Key"

// OrderController 下单与订单管理
type OrderController struct {
	accounts *service.AccountService
	checkout *service.CheckoutService
	orders   *service.OrderService
}

func NewOrderController(accounts *service.AccountService, checkout *service.CheckoutService, orders *service.OrderService) *OrderController {
	return &OrderController{accounts: accounts, checkout: checkout, orders: orders}
}

// Checkout 下单
// @Summary 购物车下单，按卖家拆分为多张订单
// @Description 任一商品库存不足则整单失败、不产生任何订单；携带 Idempotency-Key 时重复提交返回首次结果
// @Tags Order
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "幂等键"
// @Param body body dto.CheckoutRequest true "下单请求"
// @Success 201 {object} dto.CheckoutResponse
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Failure 409 {object} map[string]interface{} "库存不足"
// @Router /api/orders [post]
func (ctrl *OrderController) Checkout(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "参数错误: "+err.Error())
		return
	}
	req.IdempotencyKey = strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))

	result, err := ctrl.checkout.Checkout(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	respondOK(c, status, dto.CheckoutResponse{
		Orders:   toOrderVOs(result.Orders),
		Replayed: result.Replayed,
	})
}

// ListMine 我的订单
// @Summary 买家订单列表（最新在前）
// @Tags Order
// @Produce json
// @Security BearerAuth
// @Param status query string false "订单状态"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} dto.ListOrdersResponse
// @Router /api/orders/my [get]
func (ctrl *OrderController) ListMine(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBadRequest(c, "参数错误: "+err.Error())
		return
	}

	orders, total, err := ctrl.orders.ListBuyerOrders(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dto.ListOrdersResponse{Total: total, List: toOrderVOs(orders)})
}

// ListSellerOrders 卖家收到的订单
// @Summary 卖家订单列表（最新在前）
// @Tags Seller
// @Produce json
// @Security BearerAuth
// @Param status query string false "订单状态"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} dto.ListOrdersResponse
// @Router /api/seller/orders [get]
func (ctrl *OrderController) ListSellerOrders(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBadRequest(c, "参数错误: "+err.Error())
		return
	}

	orders, total, err := ctrl.orders.ListSellerOrders(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dto.ListOrdersResponse{Total: total, List: toOrderVOs(orders)})
}

// Detail 订单详情
// @Summary 订单详情（买家或卖家）
// @Tags Order
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Success 200 {object} dto.OrderVO
// @Failure 404 {object} map[string]interface{}
// @Router /api/orders/{id} [get]
func (ctrl *OrderController) Detail(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orders.GetOrder(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toOrderVO(order))
}

// UpdateStatus 卖家更新订单状态
// @Summary 卖家推进订单状态 pending→processing→shipped→completed，或取消
// @Tags Order
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Param body body dto.UpdateOrderStatusRequest true "目标状态"
// @Success 200 {object} dto.OrderVO
// @Failure 409 {object} map[string]interface{} "非法状态流转"
// @Router /api/orders/{id}/status [patch]
func (ctrl *OrderController) UpdateStatus(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := ctrl.orders.UpdateStatus(c.Request.Context(), caller, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toOrderVO(order))
}

// Cancel 买家取消订单
// @Summary 买家取消待处理订单
// @Tags Order
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Success 200 {object} dto.OrderVO
// @Router /api/orders/{id}/cancel [post]
func (ctrl *OrderController) Cancel(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orders.CancelByBuyer(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, toOrderVO(order))
}

// Analytics 卖家本月统计
// @Summary 卖家本月已完成订单统计
// @Tags Seller
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SellerAnalyticsResponse
// @Router /api/seller/analytics [get]
func (ctrl *OrderController) Analytics(c *gin.Context) {
	caller, ok := currentCaller(c, ctrl.accounts)
	if !ok {
		return
	}
	stats, err := ctrl.orders.SellerAnalytics(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, stats)
}
