package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"card_market_v1/internal/api/dto"
	"card_market_v1/internal/messaging"
	"card_market_v1/internal/model"
	"card_market_v1/internal/repository"
	"card_market_v1/internal/telemetry"
)

// ==================== OrderService ====================

// OrderService 订单状态机与订单查询
type OrderService struct {
	uow     *repository.MarketUnitOfWork
	stock   *StockService
	events  EventPublisher
	metrics *telemetry.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewOrderService 创建订单服务
func NewOrderService(uow *repository.MarketUnitOfWork, stock *StockService, metrics *telemetry.Metrics, logger *zap.Logger) *OrderService {
	return &OrderService{
		uow:     uow,
		stock:   stock,
		metrics: metrics,
		logger:  logger.Named("order"),
		now:     time.Now,
	}
}

// SetEventPublisher 设置事件发布（可选注入）
func (s *OrderService) SetEventPublisher(p EventPublisher) {
	s.events = p
}

// ==================== 订单状态更新 ====================

// UpdateStatus 卖家推进订单状态
// 非本人订单与不存在的订单返回同一个 NotFound
func (s *OrderService) UpdateStatus(ctx context.Context, caller *Caller, orderID int64, status string) (*model.Order, error) {
	if err := RequireRole(caller, RoleUser); err != nil {
		return nil, err
	}
	if !model.IsValidOrderStatus(status) {
		return nil, NewValidationError("无效的订单状态: %q", status)
	}
	isSeller := func(o *model.Order) bool { return o.SellerID == caller.UserID }
	return s.transition(ctx, caller, orderID, status, isSeller, nil)
}

// CancelByBuyer 买家取消，仅限待处理订单
func (s *OrderService) CancelByBuyer(ctx context.Context, caller *Caller, orderID int64) (*model.Order, error) {
	if err := RequireRole(caller, RoleUser); err != nil {
		return nil, err
	}
	isBuyer := func(o *model.Order) bool { return o.BuyerID == caller.UserID }
	onlyPending := func(o *model.Order) error {
		if o.Status != model.OrderStatusPending {
			return NewConflictError("卖家已开始处理，订单无法由买家取消")
		}
		return nil
	}
	return s.transition(ctx, caller, orderID, model.OrderStatusCancelled, isBuyer, onlyPending)
}

// transition 状态流转
// 状态以比较交换方式写入；流转到 cancelled 时在同一事务内回补库存。
// 已取消的订单再次取消直接返回，不再回补。
func (s *OrderService) transition(ctx context.Context, caller *Caller, orderID int64, to string,
	owns func(*model.Order) bool, guard func(*model.Order) error) (*model.Order, error) {
	var (
		result *model.Order
		from   string
	)

	err := s.uow.Transaction(ctx, func(tx *repository.MarketUnitOfWork) error {
		order, err := tx.Orders.GetByID(ctx, orderID)
		if err != nil {
			return internalError("get order", err)
		}
		if order == nil || !owns(order) {
			return ErrOrderNotFound
		}
		if to == model.OrderStatusCancelled && order.Status == model.OrderStatusCancelled {
			result = order
			return nil
		}
		if guard != nil {
			if err := guard(order); err != nil {
				return err
			}
		}
		if !order.CanTransitionTo(to) {
			return NewInvalidTransitionError(order.Status, to)
		}

		now := s.now()
		extra := map[string]interface{}{}
		switch to {
		case model.OrderStatusCompleted:
			extra["completed_at"] = now
		case model.OrderStatusCancelled:
			extra["cancelled_at"] = now
		}

		ok, err := tx.Orders.CompareAndSetStatus(ctx, order.ID, order.Status, to, extra)
		if err != nil {
			return internalError("update order status", err)
		}
		if !ok {
			// 并发请求抢先修改了状态
			latest, err := tx.Orders.GetByID(ctx, orderID)
			if err != nil {
				return internalError("reload order", err)
			}
			if latest != nil && to == model.OrderStatusCancelled && latest.Status == model.OrderStatusCancelled {
				result = latest
				return nil
			}
			return ErrOrderChangedUnderUs
		}

		if to == model.OrderStatusCancelled {
			stock := s.stock.Using(tx.Products)
			for _, it := range order.Items {
				if err := stock.Release(ctx, it.ProductID, it.Quantity); err != nil {
					return internalError("release stock", err)
				}
			}
			order.CancelledAt = &now
		}
		if to == model.OrderStatusCompleted {
			order.CompletedAt = &now
		}

		from = order.Status
		order.Status = to
		result = order
		return nil
	})
	if err != nil {
		if KindOf(err) == KindServer {
			s.logger.Error("订单状态更新失败", zap.Int64("order_id", orderID), zap.String("to", to), zap.Error(err))
		}
		return nil, err
	}

	if from != "" {
		s.afterTransition(ctx, caller, result, from)
	}
	return result, nil
}

func (s *OrderService) afterTransition(ctx context.Context, caller *Caller, order *model.Order, from string) {
	s.metrics.RecordTransition(ctx, from, order.Status)
	s.logger.Info("订单状态变更",
		zap.Int64("order_id", order.ID),
		zap.String("from", from),
		zap.String("to", order.Status),
		zap.Int64("actor_id", caller.UserID))

	if s.events == nil {
		return
	}
	evt := messaging.OrderStatusChangedEvent{
		Type:       messaging.EventOrderStatusChanged,
		OrderID:    order.ID,
		OrderNo:    order.OrderNo,
		From:       from,
		To:         order.Status,
		ActorID:    caller.UserID,
		OccurredAt: s.now(),
	}
	if err := s.events.Publish(ctx, order.OrderNo, evt); err != nil {
		s.logger.Warn("订单事件发送失败", zap.String("order_no", order.OrderNo), zap.Error(err))
	}
}

// ==================== 订单查询 ====================

// GetOrder 订单详情，买家、卖家与管理员可见
func (s *OrderService) GetOrder(ctx context.Context, caller *Caller, orderID int64) (*model.Order, error) {
	if err := RequireRole(caller, RoleUser); err != nil {
		return nil, err
	}
	order, err := s.uow.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, internalError("get order", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.BuyerID != caller.UserID && order.SellerID != caller.UserID && !caller.IsAdmin {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListBuyerOrders 我的订单，最新在前
func (s *OrderService) ListBuyerOrders(ctx context.Context, caller *Caller, req *dto.ListOrdersRequest) ([]model.Order, int64, error) {
	if err := RequireRole(caller, RoleUser); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, repository.OrderFilter{BuyerID: caller.UserID}, req)
}

// ListSellerOrders 卖家收到的订单，最新在前
func (s *OrderService) ListSellerOrders(ctx context.Context, caller *Caller, req *dto.ListOrdersRequest) ([]model.Order, int64, error) {
	if err := RequireRole(caller, RoleUser); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, repository.OrderFilter{SellerID: caller.UserID}, req)
}

func (s *OrderService) list(ctx context.Context, filter repository.OrderFilter, req *dto.ListOrdersRequest) ([]model.Order, int64, error) {
	if req.Status != "" && !model.IsValidOrderStatus(req.Status) {
		return nil, 0, NewValidationError("无效的订单状态: %q", req.Status)
	}
	filter.Status = req.Status
	filter.Page = req.Page
	filter.PageSize = req.PageSize

	orders, total, err := s.uow.Orders.List(ctx, filter)
	if err != nil {
		return nil, 0, internalError("list orders", err)
	}
	return orders, total, nil
}

// ==================== 卖家统计 ====================

// SellerAnalytics 本月（按创建时间）已完成订单的营收与售出商品数
func (s *OrderService) SellerAnalytics(ctx context.Context, caller *Caller) (*dto.SellerAnalyticsResponse, error) {
	if err := RequireRole(caller, RoleSeller); err != nil {
		return nil, err
	}
	now := s.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	stats, err := s.uow.Orders.GetSellerStats(ctx, caller.UserID, start)
	if err != nil {
		return nil, internalError("seller stats", err)
	}
	return &dto.SellerAnalyticsResponse{
		PeriodStart:     start,
		CompletedOrders: stats.CompletedOrders,
		Revenue:         stats.Revenue,
		ProductsSold:    stats.ProductsSold,
	}, nil
}
