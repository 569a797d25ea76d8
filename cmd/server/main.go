package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "equip_shop/internal/domain/admin"
	_ "equip_shop/internal/domain/common"
	_ "equip_shop/internal/domain/order"
	_ "equip_shop/internal/domain/payment"
	"equip_shop/internal/pkg/config"
	"equip_shop/internal/pkg/gateway"
	"equip_shop/internal/pkg/mailer"
	"equip_shop/internal/pkg/middleware"
	"equip_shop/internal/pkg/registry"
	"equip_shop/internal/pkg/session"
	"equip_shop/internal/pkg/worker"
	"equip_shop/pkg/database"
	"equip_shop/pkg/logger"
	"equip_shop/pkg/metrics"
	"equip_shop/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	if err := logger.Init(cfg.App.Env); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Log

	gin.SetMode(cfg.Server.Mode)
	response.Debug = cfg.App.Debug

	db, err := database.InitDatabase(cfg.Database, cfg.App.Debug, log)
	if err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(cfg.Redis, log)
		if err != nil {
			log.Fatal("redis init failed", zap.Error(err))
		}
		defer rdb.Close()
	}

	collector := metrics.GetGlobalCollector()
	if err := database.RegisterPoolMetrics(db, collector.Registry(), cfg.Database.DBName); err != nil {
		log.Warn("register pool metrics failed", zap.Error(err))
	}

	var gw gateway.Gateway
	if cfg.PayOS.Enabled() {
		gw = gateway.NewPayOS(cfg.PayOS, gateway.DefaultBreakerSettings, collector, log.Named("payos"))
	} else {
		log.Warn("PayOS credentials missing, online payment disabled")
	}

	var sender mailer.Sender
	if cfg.SMTP.Enabled() {
		sender = mailer.NewSMTPSender(cfg.SMTP)
	}

	pool := worker.NewPool(2, 100, log.Named("worker"))
	pool.OnDeadLetter = func(task worker.Task, err error) {
		log.Error("background task dropped", zap.String("task", task.Name), zap.Error(err))
	}
	pool.Start()

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.LoggerMiddleware(log),
		middleware.MetricsMiddleware(collector),
		middleware.CORS(cfg.Server.AllowedOrigins),
		gin.Recovery(),
	)

	ctx := &registry.ModuleContext{
		DB:       db,
		Redis:    rdb,
		Router:   r,
		Config:   cfg,
		Logger:   log,
		Sessions: session.NewManager(cfg.JWT.Secret, time.Duration(cfg.JWT.Expire)*time.Hour),
		Gateway:  gw,
		Mailer:   sender,
		Workers:  pool,
		Metrics:  collector,
		Limiters: middleware.NewLimiters(cfg.RateLimit, rdb),
	}
	if err := registry.InitModules(ctx); err != nil {
		log.Fatal("module init failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// 优雅退出
	quit, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-quit.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	// 等待排队中的通知邮件发送完毕
	if err := pool.Stop(shutdownCtx); err != nil {
		log.Error("worker pool shutdown", zap.Error(err))
	}
	log.Info("server exited")
}
