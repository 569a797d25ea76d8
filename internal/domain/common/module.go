package common

import (
	"context"

	"equip_shop/internal/domain/admin/model"
	systemHandler "equip_shop/internal/pkg/common"
	"equip_shop/internal/pkg/middleware"
	"equip_shop/internal/pkg/registry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CommonModule 通用功能模块
type CommonModule struct{}

func init() {
	registry.Register(&CommonModule{})
}

func (m *CommonModule) Name() string {
	return "common"
}

func (m *CommonModule) Priority() int {
	return 100 // 最后初始化
}

func (m *CommonModule) Init(ctx *registry.ModuleContext) error {
	checks := map[string]systemHandler.HealthCheck{
		"database": func(c context.Context) error {
			sqlDB, err := ctx.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(c)
		},
	}
	if ctx.Redis != nil {
		checks["redis"] = func(c context.Context) error {
			return ctx.Redis.Ping(c).Err()
		}
	}

	h := systemHandler.NewSystemHandler(checks, ctx.Mailer, ctx.Config.SMTP.NotifyTo, ctx.Logger.Named("system"))

	// 注册通用路由
	setupRoutes(ctx, h)
	return nil
}

func setupRoutes(ctx *registry.ModuleContext, h *systemHandler.SystemHandler) {
	r := ctx.Router
	r.GET("/health", h.Health)
	if ctx.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(ctx.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	r.POST("/api/admin/test-email",
		middleware.SessionAuth(ctx.Sessions, ctx.Config.JWT.CookieName),
		middleware.RequireRole(model.RoleAdmin),
		h.TestEmail)
}
