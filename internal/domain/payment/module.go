package payment

import (
	"equip_shop/internal/domain/order/repository"
	"equip_shop/internal/domain/payment/handler"
	"equip_shop/internal/domain/payment/service"
	"equip_shop/internal/pkg/middleware"
	"equip_shop/internal/pkg/registry"
	"equip_shop/pkg/database"

	"go.uber.org/zap"
)

// PaymentModule 支付回调模块
type PaymentModule struct{}

func init() {
	registry.Register(&PaymentModule{})
}

func (m *PaymentModule) Name() string {
	return "payment"
}

func (m *PaymentModule) Priority() int {
	// 与订单模块共用订单表，放在其后初始化
	return 20
}

func (m *PaymentModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	orders := repository.NewOrderRepository(ctx.DB, database.DefaultRetryPolicy)
	if ctx.Gateway == nil {
		ctx.Logger.Warn("payment gateway not configured, webhook will reject callbacks")
	}
	svc := service.NewWebhookService(orders, ctx.Gateway, ctx.Metrics, ctx.Logger.Named("webhook"))
	h := handler.NewWebhookHandler(svc)

	// 2. 路由注册 (无需鉴权，但需验签)
	g := ctx.Router.Group("/api/payment")
	g.POST("/webhook", middleware.RateLimitMiddleware(ctx.Limiters.Webhook, ctx.Logger), h.PayOSWebhook)

	ctx.Logger.Info("payment webhook registered", zap.Bool("gateway", ctx.Gateway != nil))
	return nil
}
