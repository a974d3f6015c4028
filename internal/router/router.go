package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"card_market_v1/internal/controller"
	"card_market_v1/internal/middleware"

	_ "card_market_v1/docs"
)

// Controllers 路由依赖的控制器
type Controllers struct {
	Auth    *controller.AuthController
	User    *controller.UserController
	Product *controller.ProductController
	Order   *controller.OrderController
	Admin   *controller.AdminController
}

// Options 路由可选组件
type Options struct {
	Logger          *zap.Logger
	MetricsHandler  http.Handler              // 为空时不注册 /metrics
	CheckoutLimiter *middleware.UserRateLimiter // 为空时下单不限流
}

// SetupRouter 创建 gin 引擎并注册所有路由
func SetupRouter(ctls *Controllers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if opts.Logger != nil {
		r.Use(middleware.RequestLogger(opts.Logger))
	}

	InitRoutes(r, ctls, opts)
	return r
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, ctls *Controllers, opts Options) {
	// 1. Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	// 2. API 路由组
	api := r.Group("/api")
	{
		// 账号
		auth := api.Group("/auth")
		{
			auth.POST("/register", ctls.Auth.Register)
			auth.POST("/login", ctls.Auth.Login)
		}

		// 商品公开接口，登录时卖家本人可查看未公开商品
		public := api.Group("/products", middleware.OptionalAuth())
		{
			public.GET("", ctls.Product.List)
			public.GET("/:id", ctls.Product.Detail)
		}

		// 以下均需登录
		authed := api.Group("", middleware.JWTAuth(), middleware.AuditContext())

		me := authed.Group("/users/me")
		{
			me.GET("", ctls.User.Me)
			me.POST("/addresses", ctls.User.AddAddress)
			me.PUT("/addresses/:id/default", ctls.User.SetDefaultAddress)
			me.DELETE("/addresses/:id", ctls.User.DeleteAddress)
			me.POST("/seller-request", ctls.User.RequestSeller)
			me.POST("/seller-cancellation", ctls.User.RequestCancellation)
		}

		products := authed.Group("/products")
		{
			products.POST("", ctls.Product.Create)
			products.PUT("/:id", ctls.Product.Update)
			products.DELETE("/:id", ctls.Product.Delete)
			products.PATCH("/:id/status", ctls.Product.SetStatus)
		}

		seller := authed.Group("/seller")
		{
			seller.GET("/products", ctls.Product.ListMine)
			seller.GET("/orders", ctls.Order.ListSellerOrders)
			seller.GET("/analytics", ctls.Order.Analytics)
		}

		orders := authed.Group("/orders")
		{
			if opts.CheckoutLimiter != nil {
				orders.POST("", opts.CheckoutLimiter.Middleware("checkout"), ctls.Order.Checkout)
			} else {
				orders.POST("", ctls.Order.Checkout)
			}
			orders.GET("/my", ctls.Order.ListMine)
			orders.GET("/:id", ctls.Order.Detail)
			orders.PATCH("/:id/status", ctls.Order.UpdateStatus)
			orders.POST("/:id/cancel", ctls.Order.Cancel)
		}

		admin := authed.Group("/admin")
		{
			admin.GET("/users/pending", ctls.Admin.PendingSellers)
			admin.GET("/users/cancellation-requests", ctls.Admin.CancellationRequests)
			admin.PATCH("/users/:id", ctls.Admin.ManageUser)
			admin.GET("/products/pending", ctls.Admin.PendingProducts)
			admin.PATCH("/products/:id/moderation", ctls.Admin.ModerateProduct)
		}
	}
}
