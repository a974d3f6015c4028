package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"card_market_v1/internal/config"
	"card_market_v1/internal/controller"
	"card_market_v1/internal/messaging"
	"card_market_v1/internal/middleware"
	"card_market_v1/internal/model"
	"card_market_v1/internal/repository"
	"card_market_v1/internal/router"
	"card_market_v1/internal/service"
	"card_market_v1/internal/task"
	"card_market_v1/internal/telemetry"
	"card_market_v1/pkg/cache"
	"card_market_v1/pkg/database"
	"card_market_v1/pkg/logger"
)

const (
	serviceName    = "card-market"
	serviceVersion = "1.0.0"
)

// @title Card Market API
// @version 1.0
// @description 卡牌与桌游二手交易市场
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.Must(cfg.AppEnv, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	// 1. 可观测性
	ctx := context.Background()
	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, serviceName, serviceVersion)
	if err != nil {
		log.Fatal("初始化链路追踪失败", zap.Error(err))
	}
	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		log.Fatal("初始化指标导出失败", zap.Error(err))
	}
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		log.Fatal("创建业务指标失败", zap.Error(err))
	}

	// 2. 初始化数据库
	db := initDatabase(cfg, log)

	// 3. 初始化依赖
	deps := initDependencies(ctx, cfg, db, metrics, log)

	// 4. 启动定时任务
	tasks := initTasks(cfg, deps, log)

	// 5. 初始化路由
	r := router.SetupRouter(deps.Controllers, router.Options{
		Logger:          log,
		MetricsHandler:  metricsHandler,
		CheckoutLimiter: deps.Limiter,
	})

	// 6. 启动服务
	startServer(cfg, otelhttp.NewHandler(r, serviceName), log)

	tasks.Stop()
	deps.Close(log)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = shutdownMeter(shutdownCtx)
	_ = shutdownTracer(shutdownCtx)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	UoW         *repository.MarketUnitOfWork
	Services    *Services
	Controllers *router.Controllers
	Limiter     *middleware.UserRateLimiter
	closers     []func() error
}

// Services 服务集合
type Services struct {
	Account    *service.AccountService
	Address    *service.AddressService
	Stock      *service.StockService
	Checkout   *service.CheckoutService
	Order      *service.OrderService
	Seller     *service.SellerService
	Moderation *service.ModerationService
	Product    *service.ProductService
}

// Close 释放外部连接
func (d *Dependencies) Close(log *zap.Logger) {
	for _, c := range d.closers {
		if err := c(); err != nil {
			log.Warn("关闭外部连接失败", zap.Error(err))
		}
	}
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库，开发环境可用 AutoMigrate，生产环境走 cmd/migrate
func initDatabase(cfg *config.Config, log *zap.Logger) *gorm.DB {
	var models []interface{}
	if cfg.DBAutoMigrate {
		models = model.AllModels()
	}

	db, err := database.InitDB(database.Options{
		DSN:    cfg.DatabaseDSN,
		LogSQL: cfg.DBLogSQL,
	}, log, models...)
	if err != nil {
		log.Fatal("数据库初始化失败", zap.Error(err))
	}
	if err := middleware.RegisterAuditCallbacks(db); err != nil {
		log.Fatal("注册审计回调失败", zap.Error(err))
	}
	return db
}

// initDependencies 初始化所有依赖
func initDependencies(ctx context.Context, cfg *config.Config, db *gorm.DB, metrics *telemetry.Metrics, log *zap.Logger) *Dependencies {
	middleware.SetJWTConfig(&middleware.JWTConfig{
		SecretKey:      cfg.JWTSecret,
		AccessTokenTTL: cfg.JWTAccessTTL,
		Issuer:         serviceName,
	})

	deps := &Dependencies{DB: db}

	// -------- Repo 层 --------
	uow := repository.NewMarketUnitOfWork(db)
	deps.UoW = uow

	// -------- 业务服务 --------
	stock := service.NewStockService(uow.Products, metrics, log)
	moderation := service.NewModerationService(uow.Products, log)
	services := &Services{
		Account:    service.NewAccountService(uow.Users, log),
		Address:    service.NewAddressService(uow),
		Stock:      stock,
		Checkout:   service.NewCheckoutService(uow, stock, service.CheckoutConfig{ShippingFeePerSeller: cfg.ShippingFeePerSeller}, metrics, log),
		Order:      service.NewOrderService(uow, stock, metrics, log),
		Seller:     service.NewSellerService(uow, log),
		Moderation: moderation,
		Product:    service.NewProductService(uow, moderation, log),
	}
	deps.Services = services

	// -------- 可选外部组件 --------
	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn("Redis 不可用，下单幂等关闭", zap.Error(err))
		} else {
			services.Checkout.SetIdempotencyStore(cache.NewIdempotencyStore(client, cfg.IdempotencyTTL))
			deps.closers = append(deps.closers, client.Close)
			log.Info("下单幂等已启用", zap.String("redis", cfg.RedisAddr))
		}
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		services.Checkout.SetEventPublisher(producer)
		services.Order.SetEventPublisher(producer)
		deps.closers = append(deps.closers, producer.Close)
		log.Info("订单事件发布已启用", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaOrderTopic))
	}
	if cfg.CheckoutRatePerMinute > 0 {
		deps.Limiter = middleware.NewUserRateLimiter(cfg.CheckoutRatePerMinute, cfg.CheckoutRatePerMinute)
	}

	// -------- Controller 层 --------
	deps.Controllers = initControllers(services)
	return deps
}

// initControllers 初始化所有控制器
func initControllers(svc *Services) *router.Controllers {
	return &router.Controllers{
		Auth:    controller.NewAuthController(svc.Account),
		User:    controller.NewUserController(svc.Account, svc.Address, svc.Seller),
		Product: controller.NewProductController(svc.Account, svc.Product, svc.Moderation),
		Order:   controller.NewOrderController(svc.Account, svc.Checkout, svc.Order),
		Admin:   controller.NewAdminController(svc.Account, svc.Seller, svc.Moderation),
	}
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(cfg *config.Config, deps *Dependencies, log *zap.Logger) *task.TaskManager {
	taskCfg := task.DefaultConfig()
	if cfg.BanReleaseCron != "" {
		taskCfg.BanReleaseSpec = cfg.BanReleaseCron
	}

	taskDeps := &task.TaskManagerDeps{
		Bans:   deps.Services.Seller,
		Logger: log,
	}
	if deps.Limiter != nil {
		taskDeps.Limiter = deps.Limiter
	}

	tm := task.NewTaskManager(taskDeps, taskCfg)
	if err := tm.Start(); err != nil {
		log.Fatal("启动定时任务失败", zap.Error(err))
	}
	return tm
}

// ==================== 服务启动 ====================

// startServer 启动服务，收到退出信号后优雅关闭
func startServer(cfg *config.Config, handler http.Handler, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 异步启动服务
	go func() {
		log.Info("服务启动", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("服务强制关闭", zap.Error(err))
	}

	log.Info("服务已退出")
}
