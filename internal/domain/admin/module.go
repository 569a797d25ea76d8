package admin

import (
	"context"
	"time"

	"equip_shop/internal/domain/admin/handler"
	"equip_shop/internal/domain/admin/repository"
	"equip_shop/internal/domain/admin/service"
	"equip_shop/internal/pkg/middleware"
	"equip_shop/internal/pkg/registry"
	"equip_shop/pkg/database"
)

// AdminModule 后台账号与登录
type AdminModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&AdminModule{})
}

func (m *AdminModule) Name() string {
	return "admin"
}

func (m *AdminModule) Priority() int {
	// 其他模块的后台接口依赖会话，最先初始化
	return 1
}

func (m *AdminModule) Init(ctx *registry.ModuleContext) error {
	cfg := ctx.Config

	// 1. 依赖注入
	repo := repository.NewAdminRepository(ctx.DB, database.DefaultRetryPolicy)
	svc := service.NewAuthService(repo, ctx.Sessions, ctx.Logger.Named("auth"))

	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := svc.EnsureBootstrap(seedCtx, cfg.Admin.BootstrapUsername, cfg.Admin.BootstrapPassword); err != nil {
		return err
	}

	h := handler.NewAuthHandler(svc, handler.CookieOptions{
		Name:   cfg.JWT.CookieName,
		Domain: cfg.JWT.CookieDomain,
		Secure: cfg.JWT.CookieSecure,
		MaxAge: int(ctx.Sessions.TTL().Seconds()),
	})

	// 2. 路由注册
	setupRoutes(ctx, h)
	return nil
}

func setupRoutes(ctx *registry.ModuleContext, h *handler.AuthHandler) {
	authGroup := ctx.Router.Group("/api/auth")
	{
		authGroup.POST("/login", middleware.RateLimitMiddleware(ctx.Limiters.Login, ctx.Logger), h.Login)
		authGroup.POST("/logout", h.Logout)
	}

	protected := authGroup.Group("", middleware.SessionAuth(ctx.Sessions, ctx.Config.JWT.CookieName))
	protected.GET("/me", h.Me)
}
