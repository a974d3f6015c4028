package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"card_market_v1/internal/api/dto"
	"card_market_v1/internal/messaging"
	"card_market_v1/internal/model"
	"card_market_v1/internal/repository"
	"card_market_v1/internal/telemetry"
)

var checkoutTracer = otel.Tracer("service/checkout")

// ==================== 外部协作接口 ====================

// EventPublisher 领域事件发布
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// IdempotencyStore 下单幂等记录
type IdempotencyStore interface {
	Begin(ctx context.Context, buyerID int64, key string) (orderIDs []int64, fresh bool, err error)
	Complete(ctx context.Context, buyerID int64, key string, orderIDs []int64) error
	Abort(ctx context.Context, buyerID int64, key string) error
}

// ==================== CheckoutService 下单服务 ====================

// CheckoutConfig 下单配置
type CheckoutConfig struct {
	ShippingFeePerSeller int64 // 每个卖家订单的固定运费
}

// CheckoutResult 下单结果
type CheckoutResult struct {
	Orders   []model.Order
	Replayed bool // 命中幂等记录，返回的是上一次的订单
}

// CheckoutService 将购物车按卖家拆单，预占库存并创建订单
type CheckoutService struct {
	uow     *repository.MarketUnitOfWork
	stock   *StockService
	events  EventPublisher
	idem    IdempotencyStore
	cfg     CheckoutConfig
	metrics *telemetry.Metrics
	logger  *zap.Logger
}

// NewCheckoutService 创建下单服务
func NewCheckoutService(uow *repository.MarketUnitOfWork, stock *StockService, cfg CheckoutConfig,
	metrics *telemetry.Metrics, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		uow:     uow,
		stock:   stock,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.Named("checkout"),
	}
}

// SetEventPublisher 设置事件发布（可选注入）
func (s *CheckoutService) SetEventPublisher(p EventPublisher) {
	s.events = p
}

// SetIdempotencyStore 设置幂等存储（可选注入）
func (s *CheckoutService) SetIdempotencyStore(store IdempotencyStore) {
	s.idem = store
}

// cartLine 合并后的购物车行
type cartLine struct {
	ProductID     int64
	Quantity      int
	AdvisoryPrice int64
}

// sellerBucket 单个卖家的购物车行
type sellerBucket struct {
	SellerID int64
	Lines    []cartLine
}

// Checkout 下单
// 全部库存预占成功才会创建订单，任一商品不足则整单回滚
func (s *CheckoutService) Checkout(ctx context.Context, caller *Caller, req *dto.CheckoutRequest) (*CheckoutResult, error) {
	if err := RequireRole(caller, RoleUser); err != nil {
		return nil, err
	}

	ctx, span := checkoutTracer.Start(ctx, "checkout")
	defer span.End()
	span.SetAttributes(attribute.Int64("buyer_id", caller.UserID), attribute.Int("items", len(req.Items)))

	lines, addr, err := s.validate(req)
	if err != nil {
		s.metrics.RecordCheckout(ctx, KindOf(err).String(), 0)
		return nil, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	useIdem := key != "" && s.idem != nil
	if useIdem {
		ids, fresh, err := s.idem.Begin(ctx, caller.UserID, key)
		if err != nil {
			return nil, internalError("idempotency begin", err)
		}
		if !fresh {
			return s.replay(ctx, caller.UserID, ids)
		}
	}

	orders, err := s.placeOrders(ctx, caller.UserID, lines, addr, req.PaymentMethod)
	if err != nil {
		if useIdem {
			if abortErr := s.idem.Abort(ctx, caller.UserID, key); abortErr != nil {
				s.logger.Warn("幂等占位释放失败", zap.String("key", key), zap.Error(abortErr))
			}
		}
		if KindOf(err) == KindServer {
			s.logger.Error("下单失败", zap.Int64("buyer_id", caller.UserID), zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		s.metrics.RecordCheckout(ctx, KindOf(err).String(), 0)
		return nil, err
	}

	if useIdem {
		s.completeIdempotency(ctx, caller.UserID, key, orderIDs(orders))
	}

	s.metrics.RecordCheckout(ctx, "ok", len(orders))
	s.publishCreated(ctx, orders)
	s.logger.Info("下单成功",
		zap.Int64("buyer_id", caller.UserID),
		zap.Int("orders", len(orders)),
		zap.Int64s("order_ids", orderIDs(orders)))

	return &CheckoutResult{Orders: orders}, nil
}

// validate 在触碰库存之前完成全部参数校验，并合并同一商品的多行
func (s *CheckoutService) validate(req *dto.CheckoutRequest) ([]cartLine, model.ShippingAddress, error) {
	addr := model.ShippingAddress{
		FullName:    strings.TrimSpace(req.ShippingAddress.FullName),
		PhoneNumber: strings.TrimSpace(req.ShippingAddress.PhoneNumber),
		Province:    strings.TrimSpace(req.ShippingAddress.Province),
		District:    strings.TrimSpace(req.ShippingAddress.District),
		Ward:        strings.TrimSpace(req.ShippingAddress.Ward),
		Street:      strings.TrimSpace(req.ShippingAddress.Street),
	}

	if len(req.Items) == 0 {
		return nil, addr, ErrEmptyCart
	}
	if missing := addr.MissingFields(); len(missing) > 0 {
		return nil, addr, NewValidationError("收货地址缺少字段: %s", strings.Join(missing, ", "))
	}
	if !model.IsValidPaymentMethod(req.PaymentMethod) {
		return nil, addr, NewValidationError("不支持的支付方式: %q", req.PaymentMethod)
	}

	index := make(map[int64]int, len(req.Items))
	lines := make([]cartLine, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID <= 0 {
			return nil, addr, NewValidationError("商品 ID 无效")
		}
		if item.Quantity <= 0 {
			return nil, addr, NewValidationError("商品 #%d 的购买数量必须大于 0", item.ProductID)
		}
		if i, ok := index[item.ProductID]; ok {
			if lines[i].Quantity > math.MaxInt-item.Quantity {
				return nil, addr, NewValidationError("商品 #%d 的购买数量过大", item.ProductID)
			}
			lines[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, cartLine{ProductID: item.ProductID, Quantity: item.Quantity, AdvisoryPrice: item.Price})
	}
	return lines, addr, nil
}

// placeOrders 单事务内完成：读取商品、按卖家分组、预占库存、创建订单
func (s *CheckoutService) placeOrders(ctx context.Context, buyerID int64, lines []cartLine,
	addr model.ShippingAddress, paymentMethod string) ([]model.Order, error) {
	var created []model.Order

	err := s.uow.Transaction(ctx, func(tx *repository.MarketUnitOfWork) error {
		ids := make([]int64, len(lines))
		for i, l := range lines {
			ids[i] = l.ProductID
		}
		products, err := tx.Products.GetByIDs(ctx, ids)
		if err != nil {
			return internalError("load cart products", err)
		}
		byID := make(map[int64]*model.Product, len(products))
		for i := range products {
			byID[products[i].ID] = &products[i]
		}

		// 1. 商品校验
		for _, l := range lines {
			p, ok := byID[l.ProductID]
			if !ok {
				return NewValidationError("商品 #%d 不存在", l.ProductID)
			}
			if !p.IsPurchasable() {
				return NewValidationError("商品「%s」当前不可购买", p.Name)
			}
			if p.IsAuction() {
				return NewValidationError("商品「%s」为拍卖商品，不能直接购买", p.Name)
			}
			if p.SellerID == buyerID {
				return NewValidationError("不能购买自己发布的商品「%s」", p.Name)
			}
			if l.AdvisoryPrice > 0 && l.AdvisoryPrice != p.Price {
				s.logger.Debug("购物车价格已过期，按当前价格结算",
					zap.Int64("product_id", p.ID),
					zap.Int64("cart_price", l.AdvisoryPrice),
					zap.Int64("price", p.Price))
			}
		}

		// 2. 全部预占，按商品 ID 升序，避免并发下单互相等待
		reserveOrder := make([]cartLine, len(lines))
		copy(reserveOrder, lines)
		sort.Slice(reserveOrder, func(i, j int) bool { return reserveOrder[i].ProductID < reserveOrder[j].ProductID })

		stock := s.stock.Using(tx.Products)
		for _, l := range reserveOrder {
			err := stock.Reserve(ctx, l.ProductID, l.Quantity)
			if errors.Is(err, repository.ErrInsufficientStock) {
				return NewInsufficientStockError(byID[l.ProductID].Name)
			}
			var be *BizError
			if errors.As(err, &be) {
				return err
			}
			if err != nil {
				return internalError("reserve stock", err)
			}
		}

		// 3. 每个卖家一张订单
		for _, bucket := range groupBySeller(lines, byID) {
			order, err := s.buildOrder(buyerID, bucket, byID, addr, paymentMethod)
			if err != nil {
				return err
			}
			if err := tx.Orders.Create(ctx, order); err != nil {
				return internalError("create order", err)
			}
			created = append(created, *order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *CheckoutService) buildOrder(buyerID int64, bucket sellerBucket, byID map[int64]*model.Product,
	addr model.ShippingAddress, paymentMethod string) (*model.Order, error) {
	order := &model.Order{
		OrderNo:         newOrderNo(),
		BuyerID:         buyerID,
		SellerID:        bucket.SellerID,
		Status:          model.OrderStatusPending,
		PaymentMethod:   paymentMethod,
		ShippingAddress: datatypes.NewJSONType(addr),
		ShippingFee:     s.cfg.ShippingFeePerSeller,
	}
	for _, l := range bucket.Lines {
		p := byID[l.ProductID]
		order.Items = append(order.Items, model.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  l.Quantity,
			Image:     p.CoverImage(),
		})
	}
	subtotal, ok := order.ItemsSubtotal()
	if !ok || subtotal > math.MaxInt64-order.ShippingFee {
		return nil, NewValidationError("订单金额超出上限")
	}
	order.Subtotal = subtotal
	order.TotalAmount = subtotal + order.ShippingFee
	return order, nil
}

// completeIdempotency 写入幂等结果，失败重试一次
// 两次都失败时占位保留到过期，期间重试会收到 ErrCheckoutInFlight
func (s *CheckoutService) completeIdempotency(ctx context.Context, buyerID int64, key string, ids []int64) {
	err := s.idem.Complete(ctx, buyerID, key, ids)
	if err == nil {
		return
	}
	s.logger.Warn("幂等结果写入失败，重试", zap.String("key", key), zap.Error(err))
	if err = s.idem.Complete(ctx, buyerID, key, ids); err != nil {
		s.logger.Error("幂等结果写入失败",
			zap.Int64("buyer_id", buyerID),
			zap.String("key", key),
			zap.Int64s("order_ids", ids),
			zap.Error(err))
	}
}

// replay 返回幂等键对应的历史订单
func (s *CheckoutService) replay(ctx context.Context, buyerID int64, ids []int64) (*CheckoutResult, error) {
	if len(ids) == 0 {
		return nil, ErrCheckoutInFlight
	}
	orders, err := s.uow.Orders.GetByIDs(ctx, ids)
	if err != nil {
		return nil, internalError("load replayed orders", err)
	}
	for _, o := range orders {
		if o.BuyerID != buyerID {
			return nil, ErrCheckoutInFlight
		}
	}
	s.metrics.RecordCheckout(ctx, "replay", 0)
	return &CheckoutResult{Orders: orders, Replayed: true}, nil
}

func (s *CheckoutService) publishCreated(ctx context.Context, orders []model.Order) {
	if s.events == nil {
		return
	}
	for _, o := range orders {
		evt := messaging.OrderCreatedEvent{
			Type:        messaging.EventOrderCreated,
			OrderID:     o.ID,
			OrderNo:     o.OrderNo,
			BuyerID:     o.BuyerID,
			SellerID:    o.SellerID,
			TotalAmount: o.TotalAmount,
			OccurredAt:  time.Now(),
		}
		for _, it := range o.Items {
			evt.Lines = append(evt.Lines, messaging.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
		}
		if err := s.events.Publish(ctx, o.OrderNo, evt); err != nil {
			s.logger.Warn("订单事件发送失败", zap.String("order_no", o.OrderNo), zap.Error(err))
		}
	}
}

// groupBySeller 按卖家分组，卖家顺序与购物车中首次出现的顺序一致
func groupBySeller(lines []cartLine, byID map[int64]*model.Product) []sellerBucket {
	var buckets []sellerBucket
	index := make(map[int64]int)
	for _, l := range lines {
		sellerID := byID[l.ProductID].SellerID
		i, ok := index[sellerID]
		if !ok {
			i = len(buckets)
			index[sellerID] = i
			buckets = append(buckets, sellerBucket{SellerID: sellerID})
		}
		buckets[i].Lines = append(buckets[i].Lines, l)
	}
	return buckets
}

func newOrderNo() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func orderIDs(orders []model.Order) []int64 {
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}
