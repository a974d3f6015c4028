package dto

import "time"

// ==================== 下单 ====================

// CheckoutItem 购物车条目，Name/Price 仅供参考，以商品库为准
type CheckoutItem struct {
	ProductID int64  `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
}

// ShippingAddressDTO 收货地址
type ShippingAddressDTO struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Province    string `json:"province"`
	District    string `json:"district"`
	Ward        string `json:"ward"`
	Street      string `json:"street"`
}

// CheckoutRequest 下单请求
type CheckoutRequest struct {
	Items           []CheckoutItem     `json:"items"`
	ShippingAddress ShippingAddressDTO `json:"shipping_address"`
	PaymentMethod   string             `json:"payment_method"` // cod, bank_transfer
	IdempotencyKey  string             `json:"-"`              // 来自 Idempotency-Key 请求头
}

// CheckoutResponse 下单结果，每个卖家一张订单
type CheckoutResponse struct {
	Orders   []OrderVO `json:"orders"`
	Replayed bool      `json:"replayed"`
}

// ==================== 订单查询 ====================

// ListOrdersRequest 订单列表请求
type ListOrdersRequest struct {
	Status   string `form:"status"` // pending, processing, shipped, completed, cancelled
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
}

// ListOrdersResponse 订单列表响应
type ListOrdersResponse struct {
	Total int64     `json:"total"`
	List  []OrderVO `json:"list"`
}

// OrderVO 订单视图对象
type OrderVO struct {
	ID              int64              `json:"id"`
	OrderNo         string             `json:"order_no"`
	BuyerID         int64              `json:"buyer_id"`
	SellerID        int64              `json:"seller_id"`
	Status          string             `json:"status"`
	PaymentMethod   string             `json:"payment_method"`
	ShippingAddress ShippingAddressDTO `json:"shipping_address"`
	Items           []OrderItemVO      `json:"items"`
	Subtotal        int64              `json:"subtotal"`
	ShippingFee     int64              `json:"shipping_fee"`
	TotalAmount     int64              `json:"total_amount"`
	CreatedAt       time.Time          `json:"created_at"`
	CancelledAt     *time.Time         `json:"cancelled_at,omitempty"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
}

// OrderItemVO 订单行
type OrderItemVO struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image"`
}

// ==================== 状态更新 ====================

// UpdateOrderStatusRequest 更新订单状态请求
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ==================== 卖家统计 ====================

// SellerAnalyticsResponse 本月已完成订单统计
type SellerAnalyticsResponse struct {
	PeriodStart     time.Time `json:"period_start"`
	CompletedOrders int64     `json:"completed_orders"`
	Revenue         int64     `json:"revenue"`
	ProductsSold    int64     `json:"products_sold"`
}
