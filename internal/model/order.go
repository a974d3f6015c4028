package model

import (
	"math"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ==================== 订单状态常量 ====================

const (
	OrderStatusPending    = "pending"    // 待处理
	OrderStatusProcessing = "processing" // 处理中
	OrderStatusShipped    = "shipped"    // 已发货
	OrderStatusCompleted  = "completed"  // 已完成
	OrderStatusCancelled  = "cancelled"  // 已取消
)

// 支付方式
const (
	PaymentMethodCOD          = "cod"
	PaymentMethodBankTransfer = "bank_transfer"
)

// orderTransitions 合法的状态流转，completed 与 cancelled 为终态
var orderTransitions = map[string][]string{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusCompleted, OrderStatusCancelled},
}

// IsValidOrderStatus 状态值是否合法
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// IsValidPaymentMethod 支付方式是否合法
func IsValidPaymentMethod(m string) bool {
	return m == PaymentMethodCOD || m == PaymentMethodBankTransfer
}

// ==================== 收货地址快照 ====================

// ShippingAddress 下单时的收货地址快照，不引用地址簿
type ShippingAddress struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Province    string `json:"province"`
	District    string `json:"district"`
	Ward        string `json:"ward"`
	Street      string `json:"street"`
}

// MissingFields 返回为空的字段名
func (a ShippingAddress) MissingFields() []string {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("full_name", a.FullName)
	check("phone_number", a.PhoneNumber)
	check("province", a.Province)
	check("district", a.District)
	check("ward", a.Ward)
	check("street", a.Street)
	return missing
}

// ==================== Order 订单主表 ====================

// Order 一个卖家一张订单，多卖家购物车拆分为多张
type Order struct {
	BaseModel

	OrderNo  string `gorm:"size:64;uniqueIndex;not null" json:"order_no"`
	BuyerID  int64  `gorm:"index;not null" json:"buyer_id"`
	SellerID int64  `gorm:"index;not null" json:"seller_id"`

	Status        string `gorm:"size:32;index;not null;default:pending" json:"status"`
	PaymentMethod string `gorm:"size:32;not null" json:"payment_method"`

	ShippingAddress datatypes.JSONType[ShippingAddress] `json:"shipping_address"`

	// 金额（最小货币单位），创建后不再变更
	Subtotal    int64 `gorm:"not null" json:"subtotal"`
	ShippingFee int64 `gorm:"not null" json:"shipping_fee"`
	TotalAmount int64 `gorm:"not null" json:"total_amount"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

func (*Order) TableName() string {
	return "orders"
}

// CanTransitionTo 检查状态流转是否合法，终态不再流转
func (o *Order) CanTransitionTo(next string) bool {
	if o.IsTerminal() {
		return false
	}
	for _, s := range orderTransitions[o.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// IsTerminal 是否终态
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusCancelled
}

// ItemsSubtotal 按快照价格累计行金额，溢出时 ok 为 false
func (o *Order) ItemsSubtotal() (sum int64, ok bool) {
	for i := range o.Items {
		line, ok := o.Items[i].LineTotal()
		if !ok || sum > math.MaxInt64-line {
			return 0, false
		}
		sum += line
	}
	return sum, true
}

// ==================== OrderItem 订单项 ====================

// OrderItem 订单行，名称与价格为下单时快照
type OrderItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64     `gorm:"index;not null" json:"order_id"`
	ProductID int64     `gorm:"index;not null" json:"product_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Price     int64     `gorm:"not null" json:"price"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Image     string    `gorm:"size:500" json:"image"`
	CreatedAt time.Time `json:"created_at"`
}

func (*OrderItem) TableName() string {
	return "order_items"
}

// LineTotal 单价 × 数量，溢出时 ok 为 false
func (i *OrderItem) LineTotal() (int64, bool) {
	if i.Price < 0 || i.Quantity < 0 {
		return 0, false
	}
	if i.Quantity > 0 && i.Price > math.MaxInt64/int64(i.Quantity) {
		return 0, false
	}
	return i.Price * int64(i.Quantity), true
}
