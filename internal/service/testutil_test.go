package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"card_market_v1/internal/api/dto"
	"card_market_v1/internal/model"
	"card_market_v1/internal/repository"
)

// ==================== 测试环境 ====================

const testShippingFee = 300

// setupTestDB 内存 SQLite，单连接保证事务内外看到同一个库
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "连接测试数据库失败")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(model.AllModels()...), "数据库迁移失败")
	return db
}

type testEnv struct {
	db  *gorm.DB
	uow *repository.MarketUnitOfWork

	accounts   *AccountService
	addresses  *AddressService
	stock      *StockService
	checkout   *CheckoutService
	orders     *OrderService
	sellers    *SellerService
	moderation *ModerationService
	products   *ProductService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	log := zap.NewNop()
	uow := repository.NewMarketUnitOfWork(db)

	stock := NewStockService(uow.Products, nil, log)
	moderation := NewModerationService(uow.Products, log)
	return &testEnv{
		db:         db,
		uow:        uow,
		accounts:   NewAccountService(uow.Users, log),
		addresses:  NewAddressService(uow),
		stock:      stock,
		checkout:   NewCheckoutService(uow, stock, CheckoutConfig{ShippingFeePerSeller: testShippingFee}, nil, log),
		orders:     NewOrderService(uow, stock, nil, log),
		sellers:    NewSellerService(uow, log),
		moderation: moderation,
		products:   NewProductService(uow, moderation, log),
	}
}

// ==================== 数据准备 ====================

func (e *testEnv) createUser(t *testing.T, username string, mutate ...func(u *model.User)) *model.User {
	t.Helper()
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		Password:     "hashed",
		FullName:     username,
		PhoneNumber:  "0900000000",
		SellerStatus: model.SellerStatusNone,
	}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) createSeller(t *testing.T, username string) *model.User {
	t.Helper()
	shop := username + "-shop"
	return e.createUser(t, username, func(u *model.User) {
		u.SellerStatus = model.SellerStatusApproved
		u.ShopName = &shop
	})
}

func (e *testEnv) createAdmin(t *testing.T, username string) *model.User {
	t.Helper()
	return e.createUser(t, username, func(u *model.User) { u.IsAdmin = true })
}

// createProduct 上架且审核通过的一口价商品
func (e *testEnv) createProduct(t *testing.T, sellerID int64, name string, price int64, stock int, mutate ...func(p *model.Product)) *model.Product {
	t.Helper()
	p := &model.Product{
		SellerID:         sellerID,
		Name:             name,
		Description:      name + " 描述",
		Images:           []string{"https://img.example.com/" + name + ".jpg"},
		Category:         model.CategoryPokemon,
		Condition:        model.ConditionNew,
		SaleType:         model.SaleTypeBuyNow,
		Price:            price,
		Stock:            stock,
		ModerationStatus: model.ModerationApproved,
		Status:           model.ListingStatusActive,
	}
	for _, m := range mutate {
		m(p)
	}
	require.NoError(t, e.db.Create(p).Error)
	if stock == 0 {
		// stock 字段带默认值，零值创建会被替换
		e.setProductFields(t, p.ID, map[string]interface{}{"stock": 0})
		p.Stock = 0
	}
	return p
}

func (e *testEnv) setProductFields(t *testing.T, id int64, fields map[string]interface{}) {
	t.Helper()
	require.NoError(t, e.db.Model(&model.Product{}).Where("id = ?", id).Updates(fields).Error)
}

func (e *testEnv) stockOf(t *testing.T, productID int64) int {
	t.Helper()
	var p model.Product
	require.NoError(t, e.db.Unscoped().First(&p, productID).Error)
	return p.Stock
}

func (e *testEnv) reloadUser(t *testing.T, id int64) *model.User {
	t.Helper()
	var u model.User
	require.NoError(t, e.db.First(&u, id).Error)
	return &u
}

func (e *testEnv) reloadProduct(t *testing.T, id int64) *model.Product {
	t.Helper()
	var p model.Product
	require.NoError(t, e.db.Unscoped().First(&p, id).Error)
	return &p
}

func (e *testEnv) countOrders(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.Order{}).Count(&n).Error)
	return n
}

// placeOrder 下单并返回唯一的订单
func (e *testEnv) placeOrder(t *testing.T, buyer *model.User, items ...dto.CheckoutItem) *model.Order {
	t.Helper()
	res, err := e.checkout.Checkout(context.Background(), CallerFromUser(buyer), checkoutReq(items...))
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	return &res.Orders[0]
}

func validAddress() dto.ShippingAddressDTO {
	return dto.ShippingAddressDTO{
		FullName:    "张三",
		PhoneNumber: "0912345678",
		Province:    "河内",
		District:    "还剑郡",
		Ward:        "行鼓坊",
		Street:      "丁先皇街 1 号",
	}
}

func checkoutReq(items ...dto.CheckoutItem) *dto.CheckoutRequest {
	return &dto.CheckoutRequest{
		Items:           items,
		ShippingAddress: validAddress(),
		PaymentMethod:   model.PaymentMethodCOD,
	}
}

func item(productID int64, qty int) dto.CheckoutItem {
	return dto.CheckoutItem{ProductID: productID, Quantity: qty}
}

func ptr[T any](v T) *T { return &v }

// ==================== 测试替身 ====================

// memIdempotencyStore 内存幂等存储
type memIdempotencyStore struct {
	mu            sync.Mutex
	records       map[string][]int64
	aborts        int
	completes     int
	failCompletes int // 前 N 次 Complete 返回错误
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{records: make(map[string][]int64)}
}

func (s *memIdempotencyStore) key(buyerID int64, key string) string {
	return fmt.Sprintf("%d:%s", buyerID, key)
}

func (s *memIdempotencyStore) Begin(_ context.Context, buyerID int64, key string) ([]int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(buyerID, key)
	if ids, ok := s.records[k]; ok {
		return ids, false, nil
	}
	s.records[k] = nil
	return nil, true, nil
}

func (s *memIdempotencyStore) Complete(_ context.Context, buyerID int64, key string, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completes++
	if s.failCompletes > 0 {
		s.failCompletes--
		return errors.New("redis: connection reset")
	}
	s.records[s.key(buyerID, key)] = ids
	return nil
}

func (s *memIdempotencyStore) Abort(_ context.Context, buyerID int64, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, s.key(buyerID, key))
	s.aborts++
	return nil
}

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
