package order

import (
	"equip_shop/internal/domain/order/handler"
	"equip_shop/internal/domain/order/repository"
	"equip_shop/internal/domain/order/service"
	"equip_shop/internal/pkg/middleware"
	"equip_shop/internal/pkg/registry"
	"equip_shop/pkg/database"

	"github.com/shopspring/decimal"
)

// OrderModule 下单与后台订单管理
type OrderModule struct{}

func init() {
	registry.Register(&OrderModule{})
}

func (m *OrderModule) Name() string {
	return "order"
}

func (m *OrderModule) Priority() int {
	// 依赖 admin 模块注册的会话
	return 10
}

func (m *OrderModule) Init(ctx *registry.ModuleContext) error {
	cfg := ctx.Config

	// 1. 依赖注入
	repo := repository.NewOrderRepository(ctx.DB, database.DefaultRetryPolicy)
	links := service.LinkOptions{ReturnURL: cfg.Checkout.ReturnURL, CancelURL: cfg.Checkout.CancelURL}

	var notifier service.OrderNotifier
	if ctx.Mailer != nil && ctx.Workers != nil && len(cfg.SMTP.NotifyTo) > 0 {
		notifier = service.NewMailNotifier(ctx.Workers, ctx.Mailer, cfg.SMTP.NotifyTo, ctx.Metrics, ctx.Logger)
	}

	checkout := service.NewCheckoutService(repo, ctx.Gateway, service.NewCodeGenerator(), notifier, ctx.Metrics,
		service.CheckoutOptions{
			ShippingFee: decimal.NewFromInt(cfg.Checkout.ShippingFee),
			CodeRetries: cfg.Checkout.CodeRetries,
			Links:       links,
		}, ctx.Logger.Named("checkout"))
	admin := service.NewAdminService(repo, ctx.Gateway, links, ctx.Metrics, ctx.Logger.Named("order_admin"))
	h := handler.NewOrderHandler(checkout, admin)

	// 2. 路由注册
	setupRoutes(ctx, h)
	return nil
}

func setupRoutes(ctx *registry.ModuleContext, h *handler.OrderHandler) {
	api := ctx.Router.Group("/api")
	api.POST("/checkout", middleware.RateLimitMiddleware(ctx.Limiters.Checkout, ctx.Logger), h.Checkout)

	adminGroup := api.Group("/admin/orders")
	adminGroup.Use(middleware.SessionAuth(ctx.Sessions, ctx.Config.JWT.CookieName))
	{
		adminGroup.GET("", h.ListOrders)
		adminGroup.GET("/:id", h.GetOrder)
		adminGroup.PUT("/:id", h.UpdateOrder)
		adminGroup.POST("/:id/payment-link", h.RetryPaymentLink)
	}
}
