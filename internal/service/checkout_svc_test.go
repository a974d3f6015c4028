package service

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card_market_v1/internal/api/dto"
	"card_market_v1/internal/messaging"
	"card_market_v1/internal/model"
)

func TestCheckout_SplitsBySeller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	buyer := env.createUser(t, "buyer")
	s1 := env.createSeller(t, "seller1")
	s2 := env.createSeller(t, "seller2")
	a := env.createProduct(t, s1.ID, "皮卡丘", 1000, 5)
	b := env.createProduct(t, s1.ID, "喷火龙", 2000, 5)
	c := env.createProduct(t, s2.ID, "青眼白龙", 1500, 5)

	res, err := env.checkout.Checkout(ctx, CallerFromUser(buyer), checkoutReq(item(a.ID, 1), item(b.ID, 1), item(c.ID, 1)))
	require.NoError(t, err)
	require.Len(t, res.Orders, 2)
	assert.False(t, res.Replayed)

	first, second := res.Orders[0], res.Orders[1]
	assert.Equal(t, s1.ID, first.SellerID)
	assert.Equal(t, int64(3000), first.Subtotal)
	assert.Equal(t, int64(testShippingFee), first.ShippingFee)
	assert.Equal(t, int64(3300), first.TotalAmount)
	assert.Len(t, first.Items, 2)

	assert.Equal(t, s2.ID, second.SellerID)
	assert.Equal(t, int64(1800), second.TotalAmount)

	for _, o := range res.Orders {
		assert.Equal(t, buyer.ID, o.BuyerID)
		assert.Equal(t, model.OrderStatusPending, o.Status)
		assert.Equal(t, model.PaymentMethodCOD, o.PaymentMethod)
		assert.Equal(t, "张三", o.ShippingAddress.Data().FullName)
		assert.NotEmpty(t, o.OrderNo)
	}
	assert.NotEqual(t, first.OrderNo, second.OrderNo)

	assert.Equal(t, 4, env.stockOf(t, a.ID))
	assert.Equal(t, 4, env.stockOf(t, b.ID))
	assert.Equal(t, 4, env.stockOf(t, c.ID))
}

func TestCheckout_AllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	buyer := env.createUser(t, "buyer")
	s1 := env.createSeller(t, "seller1")
	s2 := env.createSeller(t, "seller2")
	a := env.createProduct(t, s1.ID, "皮卡丘", 1000, 5)
	c := env.createProduct(t, s2.ID, "青眼白龙", 1500, 1)

	_, err := env.checkout.Checkout(ctx, CallerFromUser(buyer), checkoutReq(item(a.ID, 2), item(c.ID, 2)))
	require.Error(t, err)
	assert.Equal(t, KindInsufficientStock, KindOf(err))
	assert.Contains(t, err.Error(), "青眼白龙")

	// 已预占的库存随事务回滚
	assert.Equal(t, 5, env.stockOf(t, a.ID))
	assert.Equal(t, 1, env.stockOf(t, c.ID))
	assert.Zero(t, env.countOrders(t))
}

func TestCheckout_ProductChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	buyer := env.createUser(t, "buyer")
	seller := env.createSeller(t, "seller")
	ok := env.createProduct(t, seller.ID, "正常商品", 1000, 5)
	pending := env.createProduct(t, seller.ID, "待审核", 1000, 5, func(p *model.Product) {
		p.ModerationStatus = model.ModerationPending
	})
	rejected := env.createProduct(t, seller.ID, "审核拒绝", 1000, 5, func(p *model.Product) {
		p.ModerationStatus = model.ModerationRejected
	})
	hidden := env.createProduct(t, seller.ID, "已下架", 1000, 5, func(p *model.Product) {
		p.Status = model.ListingStatusHiddenBySeller
	})
	removed := env.createProduct(t, seller.ID, "被移除", 1000, 5, func(p *model.Product) {
		p.Status = model.ListingStatusRemovedByAdmin
	})
	auction := env.createProduct(t, seller.ID, "拍卖品", 1000, 1, func(p *model.Product) {
		p.SaleType = model.SaleTypeAuction
	})
	own := env.createProduct(t, buyer.ID, "自己的商品", 1000, 5)

	tests := []struct {
		name      string
		productID int64
	}{
		{"商品不存在", 9999},
		{"待审核商品", pending.ID},
		{"审核拒绝商品", rejected.ID},
		{"卖家下架商品", hidden.ID},
		{"管理员移除商品", removed.ID},
		{"拍卖商品", auction.ID},
		{"购买自己的商品", own.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.checkout.Checkout(ctx, CallerFromUser(buyer), checkoutReq(item(ok.ID, 1), item(tt.productID, 1)))
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Equal(t, 5, env.stockOf(t, ok.ID), "校验失败不应扣减库存")
			assert.Zero(t, env.countOrders(t))
		})
	}
}

func TestCheckout_RequestValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	buyer := env.createUser(t, "buyer")
	seller := env.createSeller(t, "seller")
	p := env.createProduct(t, seller.ID, "皮卡丘", 1000, 5)

	tests := []struct {
		name   string
		mutate func(req *dto.CheckoutRequest)
	}{
		{"空购物车", func(req *dto.CheckoutRequest) { req.Items = nil }},
		{"数量为 0", func(req *dto.CheckoutRequest) { req.Items[0].Quantity = 0 }},
		{"数量为负", func(req *dto.CheckoutRequest) { req.Items[0].Quantity = -1 }},
		{"商品 ID 无效", func(req *dto.CheckoutRequest) { req.Items[0].ProductID = 0 }},
		{"缺少收件人", func(req *dto.CheckoutRequest) { req.ShippingAddress.FullName = "" }},
		{"街道只有空格", func(req *dto.CheckoutRequest) { req.ShippingAddress.Street = "   " }},
		{"缺少电话", func(req *dto.CheckoutRequest) { req.ShippingAddress.PhoneNumber = "" }},
		{"支付方式不支持", func(req *dto.CheckoutRequest) { req.PaymentMethod = "credit_card" }},
		{"支付方式为空", func(req *dto.CheckoutRequest) { req.PaymentMethod = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := checkoutReq(item(p.ID, 1))
			tt.mutate(req)

			_, err := env.checkout.Checkout(ctx, CallerFromUser(buyer), req)
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Equal(t, 5, env.stockOf(t, p.ID))
		})
	}

	t.Run("未登录", func(t *testing.T) {
		_, err := env.checkout.Checkout(ctx, nil, checkoutReq(item(p.ID, 1)))
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestCheckout_PriceSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	buyer := env.createUser(t, "buyer")
	seller := env.createSeller(t, "seller")
	p := env.createProduct(t, seller.ID, "皮卡丘", 1000, 5)

	// 客户端价格只做参考
	line := item(p.ID, 2)
	line.Price = 1
	line.Name = "假名字"
	res, err := env.checkout.Checkout(ctx, CallerFromUser(buyer), checkoutReq(line))
	require.NoError(t, err)
	order := res.Orders[0]
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(1000), order.Items[0].Price)
	assert.Equal(t, "皮卡丘", order.Items[0].Name)
	assert.Equal(t, int64(2000), order.Subtotal)

	// 之后改价、改名不影响已有订单
	env.setProductFields(t, p.ID, map[string]interface{}{"price": 5000, "name": "皮卡丘 改"})

	stored, err := env.uow.Orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), stored.Items[0].Price)
	assert.Equal(t, "皮卡丘", stored.Items[0].Name)
	assert.Equal(t, int64(2000+testShippingFee), stored.TotalAmount)
	assert.Equal(t, p.CoverImage(), stored.Items[0].Image)
}

func TestCheckout_AmountOverflow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	buyer := env.createUser(t, "buyer")
	seller := env.createSeller(t, "seller")
	huge := int64(math.MaxInt64/2 + 1)
	a := env.createProduct(t, seller.ID, "天价卡 A", huge, 2)
	b := env.createProduct(t, seller.ID, "天价卡 B", huge, 2)
	c := env.createProduct(t, seller.ID, "天价卡 C", math.MaxInt64-100, 2)

	tests := []struct {
		name  string
		items []dto.CheckoutItem
	}{
		{"单行金额溢出", []dto.CheckoutItem{item(a.ID, 2)}},
		{"小计累加溢出", []dto.CheckoutItem{item(a.ID, 1), item(b.ID, 1)}},
		{"加运费后溢出", []dto.CheckoutItem{item(c.ID, 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.checkout.Checkout(ctx, CallerFromUser(buyer), checkoutReq(tt.items...))
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Zero(t, env.countOrders(t))
			assert.Equal(t, 2, env.stockOf(t, a.ID))
			assert.Equal(t, 2, env.stockOf(t, b.ID))
			assert.Equal(t, 2, env.stockOf(t, c.ID))
		})
	}
}

func TestCheckout_MergedQuantityOverflow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	buyer := env.createUser(t, "buyer")
	seller := env.createSeller(t, "seller")
	p := env.createProduct(t, seller.ID, "皮卡丘", 1000, 3)

	half := math.MaxInt/2 + 1
	_, err := env.checkout.Checkout(ctx, CallerFromUser(buyer), checkoutReq(item(p.ID, half), item(p.ID, half)))
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, 3, env.stockOf(t, p.ID))
}

func TestCheckout_MergesDuplicateLines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	buyer := env.createUser(t, "buyer")
	seller := env.createSeller(t, "seller")
	p := env.createProduct(t, seller.ID, "皮卡丘", 1000, 3)

	t.Run("合并后超出库存", func(t *testing.T) {
		_, err := env.checkout.Checkout(ctx, CallerFromUser(buyer), checkoutReq(item(p.ID, 2), item(p.ID, 2)))
		assert.Equal(t, KindInsufficientStock, KindOf(err))
		assert.Equal(t, 3, env.stockOf(t, p.ID))
	})

	t.Run("合并为一行", func(t *testing.T) {
		order := env.placeOrder(t, buyer, item(p.ID, 1), item(p.ID, 2))
		require.Len(t, order.Items, 1)
		assert.Equal(t, 3, order.Items[0].Quantity)
		assert.Equal(t, 0, env.stockOf(t, p.ID))
	})
}

func TestCheckout_LastUnit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.createSeller(t, "seller")
	p := env.createProduct(t, seller.ID, "限量卡", 1000, 1)
	b1 := env.createUser(t, "buyer1")
	b2 := env.createUser(t, "buyer2")

	env.placeOrder(t, b1, item(p.ID, 1))

	_, err := env.checkout.Checkout(ctx, CallerFromUser(b2), checkoutReq(item(p.ID, 1)))
	assert.Equal(t, KindInsufficientStock, KindOf(err))
	assert.Equal(t, 0, env.stockOf(t, p.ID))
	assert.Equal(t, int64(1), env.countOrders(t))
}

func TestCheckout_ConcurrentBuyers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.createSeller(t, "seller")
	p := env.createProduct(t, seller.ID, "热门卡包", 1000, 3)

	const buyers = 8
	callers := make([]*Caller, buyers)
	for i := range callers {
		callers[i] = CallerFromUser(env.createUser(t, "buyer"+string(rune('a'+i))))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		shortfall int
	)
	for _, c := range callers {
		wg.Add(1)
		go func(c *Caller) {
			defer wg.Done()
			_, err := env.checkout.Checkout(ctx, c, checkoutReq(item(p.ID, 1)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case KindOf(err) == KindInsufficientStock:
				shortfall++
			default:
				t.Errorf("意外错误: %v", err)
			}
		}(c)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, buyers-3, shortfall)
	assert.Equal(t, 0, env.stockOf(t, p.ID))
	assert.Equal(t, int64(3), env.countOrders(t))
}

func TestCheckout_Idempotency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	store := newMemIdempotencyStore()
	env.checkout.SetIdempotencyStore(store)

	buyer := env.createUser(t, "buyer")
	seller := env.createSeller(t, "seller")
	p := env.createProduct(t, seller.ID, "皮卡丘", 1000, 5)

	t.Run("相同幂等键重放", func(t *testing.T) {
		req := checkoutReq(item(p.ID, 1))
		req.IdempotencyKey = "key-1"

		first, err := env.checkout.Checkout(ctx, CallerFromUser(buyer), req)
		require.NoError(t, err)
		assert.False(t, first.Replayed)

		second, err := env.checkout.Checkout(ctx, CallerFromUser(buyer), req)
		require.NoError(t, err)
		assert.True(t, second.Replayed)
		require.Len(t, second.Orders, 1)
		assert.Equal(t, first.Orders[0].ID, second.Orders[0].ID)

		assert.Equal(t, 4, env.stockOf(t, p.ID))
		assert.Equal(t, int64(1), env.countOrders(t))
	})

	t.Run("处理中的请求", func(t *testing.T) {
		_, fresh, err := store.Begin(ctx, buyer.ID, "key-busy")
		require.NoError(t, err)
		require.True(t, fresh)

		req := checkoutReq(item(p.ID, 1))
		req.IdempotencyKey = "key-busy"
		_, err = env.checkout.Checkout(ctx, CallerFromUser(buyer), req)
		assert.ErrorIs(t, err, ErrCheckoutInFlight)
	})

	t.Run("失败后释放幂等键", func(t *testing.T) {
		req := checkoutReq(item(p.ID, 100))
		req.IdempotencyKey = "key-retry"

		_, err := env.checkout.Checkout(ctx, CallerFromUser(buyer), req)
		assert.Equal(t, KindInsufficientStock, KindOf(err))
		assert.Equal(t, 1, store.aborts)

		req.Items[0].Quantity = 1
		res, err := env.checkout.Checkout(ctx, CallerFromUser(buyer), req)
		require.NoError(t, err)
		assert.False(t, res.Replayed)
	})

	t.Run("不同买家互不影响", func(t *testing.T) {
		other := env.createUser(t, "other")
		req := checkoutReq(item(p.ID, 1))
		req.IdempotencyKey = "key-1"

		res, err := env.checkout.Checkout(ctx, CallerFromUser(other), req)
		require.NoError(t, err)
		assert.False(t, res.Replayed)
		assert.Equal(t, other.ID, res.Orders[0].BuyerID)
	})
}

func TestCheckout_IdempotencyCompleteRetry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	buyer := env.createUser(t, "buyer")
	seller := env.createSeller(t, "seller")
	p := env.createProduct(t, seller.ID, "皮卡丘", 1000, 5)

	t.Run("首次写入失败后重试成功", func(t *testing.T) {
		store := newMemIdempotencyStore()
		store.failCompletes = 1
		env.checkout.SetIdempotencyStore(store)

		req := checkoutReq(item(p.ID, 1))
		req.IdempotencyKey = "key-flaky"
		first, err := env.checkout.Checkout(ctx, CallerFromUser(buyer), req)
		require.NoError(t, err)
		assert.Equal(t, 2, store.completes)

		again, err := env.checkout.Checkout(ctx, CallerFromUser(buyer), req)
		require.NoError(t, err)
		assert.True(t, again.Replayed)
		assert.Equal(t, first.Orders[0].ID, again.Orders[0].ID)
		assert.Equal(t, 4, env.stockOf(t, p.ID))
	})

	t.Run("两次都失败时订单仍然成立", func(t *testing.T) {
		store := newMemIdempotencyStore()
		store.failCompletes = 2
		env.checkout.SetIdempotencyStore(store)

		req := checkoutReq(item(p.ID, 1))
		req.IdempotencyKey = "key-down"
		res, err := env.checkout.Checkout(ctx, CallerFromUser(buyer), req)
		require.NoError(t, err)
		require.Len(t, res.Orders, 1)
		assert.Equal(t, 2, store.completes)
		assert.Zero(t, store.aborts, "订单已提交，占位不能释放")

		_, err = env.checkout.Checkout(ctx, CallerFromUser(buyer), req)
		assert.ErrorIs(t, err, ErrCheckoutInFlight)
		assert.Equal(t, 3, env.stockOf(t, p.ID))
	})
}

func TestCheckout_PublishesEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pub := &recordingPublisher{}
	env.checkout.SetEventPublisher(pub)

	buyer := env.createUser(t, "buyer")
	s1 := env.createSeller(t, "seller1")
	s2 := env.createSeller(t, "seller2")
	a := env.createProduct(t, s1.ID, "皮卡丘", 1000, 5)
	c := env.createProduct(t, s2.ID, "青眼白龙", 1500, 5)

	res, err := env.checkout.Checkout(ctx, CallerFromUser(buyer), checkoutReq(item(a.ID, 1), item(c.ID, 2)))
	require.NoError(t, err)

	require.Equal(t, 2, pub.count())
	evt, ok := pub.events[1].(messaging.OrderCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, messaging.EventOrderCreated, evt.Type)
	assert.Equal(t, res.Orders[1].ID, evt.OrderID)
	assert.Equal(t, res.Orders[1].OrderNo, pub.keys[1])
	assert.Equal(t, int64(3000+testShippingFee), evt.TotalAmount)
	require.Len(t, evt.Lines, 1)
	assert.Equal(t, 2, evt.Lines[0].Quantity)

	t.Run("失败不发事件", func(t *testing.T) {
		_, err := env.checkout.Checkout(ctx, CallerFromUser(buyer), checkoutReq(item(a.ID, 100)))
		require.Error(t, err)
		assert.Equal(t, 2, pub.count())
	})
}
