package service

import (
	"errors"
	"fmt"
)

// ==================== 错误分类 ====================

// ErrorKind 业务错误类别，控制器据此映射 HTTP 状态码
type ErrorKind int

const (
	KindServer ErrorKind = iota
	KindValidation
	KindConflict
	KindInsufficientStock
	KindForbidden
	KindNotFound
	KindInvalidTransition
	KindUnauthorized
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "server_error"
	}
}

// BizError 带类别的业务错误，Message 可直接展示给用户
type BizError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *BizError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *BizError) Unwrap() error {
	return e.Err
}

func bizErrorf(kind ErrorKind, format string, args ...interface{}) *BizError {
	return &BizError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError 参数错误
func NewValidationError(format string, args ...interface{}) *BizError {
	return bizErrorf(KindValidation, format, args...)
}

// NewConflictError 状态前置条件不满足
func NewConflictError(format string, args ...interface{}) *BizError {
	return bizErrorf(KindConflict, format, args...)
}

// NewInsufficientStockError 指名商品库存不足
func NewInsufficientStockError(productName string) *BizError {
	return bizErrorf(KindInsufficientStock, "商品「%s」库存不足", productName)
}

// NewInvalidTransitionError 非法状态流转
func NewInvalidTransitionError(from, to string) *BizError {
	return bizErrorf(KindInvalidTransition, "订单状态不能从 %s 变更为 %s", from, to)
}

// internalError 包装存储层错误，对外只展示通用提示
func internalError(op string, err error) *BizError {
	return &BizError{Kind: KindServer, Message: "服务器内部错误，请稍后重试", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf 取错误类别，非 BizError 一律视为服务器错误
func KindOf(err error) ErrorKind {
	var be *BizError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindServer
}

// ==================== 固定错误 ====================

var (
	ErrUnauthenticated    = &BizError{Kind: KindUnauthorized, Message: "请先登录"}
	ErrInvalidCredentials = &BizError{Kind: KindUnauthorized, Message: "用户名或密码错误"}
	ErrUserBanned         = &BizError{Kind: KindForbidden, Message: "账号已被封禁"}
	ErrAdminRequired      = &BizError{Kind: KindForbidden, Message: "需要管理员权限"}
	ErrSellerRequired     = &BizError{Kind: KindForbidden, Message: "仅限已认证卖家操作"}
	ErrNotProductOwner    = &BizError{Kind: KindForbidden, Message: "无权操作该商品"}

	ErrUserNotFound    = &BizError{Kind: KindNotFound, Message: "用户不存在"}
	ErrProductNotFound = &BizError{Kind: KindNotFound, Message: "商品不存在"}
	ErrOrderNotFound   = &BizError{Kind: KindNotFound, Message: "订单不存在或无权操作"}
	ErrAddressNotFound = &BizError{Kind: KindNotFound, Message: "地址不存在"}

	ErrEmptyCart           = &BizError{Kind: KindValidation, Message: "购物车为空"}
	ErrUserExists          = &BizError{Kind: KindConflict, Message: "用户名或邮箱已被注册"}
	ErrShopNameTaken       = &BizError{Kind: KindConflict, Message: "店铺名称已被使用"}
	ErrCheckoutInFlight    = &BizError{Kind: KindConflict, Message: "相同的下单请求正在处理中"}
	ErrOrderChangedUnderUs = &BizError{Kind: KindConflict, Message: "订单状态已变化，请刷新后重试"}
)
