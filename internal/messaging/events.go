package messaging

import "time"

// 事件类型
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderLine 事件中的订单行
type OrderLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	Price     int64 `json:"price"`
}

// OrderCreatedEvent 下单成功后发布，每个卖家订单一条
type OrderCreatedEvent struct {
	Type        string      `json:"type"`
	OrderID     int64       `json:"order_id"`
	OrderNo     string      `json:"order_no"`
	BuyerID     int64       `json:"buyer_id"`
	SellerID    int64       `json:"seller_id"`
	TotalAmount int64       `json:"total_amount"`
	Lines       []OrderLine `json:"lines"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// OrderStatusChangedEvent 订单状态变更后发布
type OrderStatusChangedEvent struct {
	Type       string    `json:"type"`
	OrderID    int64     `json:"order_id"`
	OrderNo    string    `json:"order_no"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	ActorID    int64     `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
