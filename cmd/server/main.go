package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/admin-console/internal/config"
	"github.com/pu-ac-cn/admin-console/internal/database"
	"github.com/pu-ac-cn/admin-console/internal/handler"
	"github.com/pu-ac-cn/admin-console/internal/logging"
	"github.com/pu-ac-cn/admin-console/internal/model"
	"github.com/pu-ac-cn/admin-console/internal/redis"
	"github.com/pu-ac-cn/admin-console/internal/repository"
	"github.com/pu-ac-cn/admin-console/internal/service"
	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化日志
	logs, err := logging.New(&cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logs.Close()
	logger := logs.Logger()

	// 初始化数据库连接
	if err := database.Init(&cfg.Database, logger); err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer database.Close()
	logger.Info("数据库连接成功", zap.String("driver", cfg.Database.Driver))

	// 初始化 Redis 连接
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Fatal("初始化 Redis 失败", zap.Error(err))
	}
	defer redis.Close()
	logger.Info("Redis 连接成功", zap.String("addr", cfg.Redis.Addr))

	// 自动迁移数据库表
	if err := database.AutoMigrate(
		&model.Permission{},
		&model.Group{},
		&model.User{},
	); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 初始化 Repository
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	permRepo := repository.NewPermissionRepository(db)

	if _, err := permRepo.EnsureDefaults(context.Background()); err != nil {
		logger.Fatal("初始化默认权限失败", zap.Error(err))
	}
	logger.Info("数据库迁移完成")

	if cfg.Session.Secret == "" {
		logger.Warn("未配置 session.secret，使用随机密钥，重启后会话失效")
	}
	if cfg.Bootstrap.Secret == "" {
		logger.Info("未配置 bootstrap.secret，系统初始化接口已关闭")
	}

	// 初始化 Service
	policy := service.NewPolicy()
	sessionService := service.NewSessionService(redis.GetClient(), &service.SessionServiceConfig{
		SessionExpiry: cfg.Session.Expiry,
	})
	tokenService := service.NewTokenService(cfg.Session.Secret)
	authService := service.NewAuthService(userRepo, groupRepo, sessionService, tokenService, logs)
	userService := service.NewUserService(userRepo, groupRepo, sessionService, policy, logs)
	groupService := service.NewGroupService(groupRepo, policy, logs)
	bootstrapService := service.NewBootstrapService(service.BootstrapConfig{
		Secret:        cfg.Bootstrap.Secret,
		AdminUsername: cfg.Bootstrap.AdminUsername,
		AdminPassword: cfg.Bootstrap.AdminPassword,
		AdminEmail:    cfg.Bootstrap.AdminEmail,
	}, userRepo, groupRepo, permRepo, logs)

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handler.NewRouter(handler.RouterConfig{
		Log:         logs,
		Auth:        authService,
		CookieName:  cfg.Session.CookieName,
		LoginURL:    cfg.Server.LoginURL,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, handler.Handlers{
		Auth: handler.NewAuthHandler(authService, userService, handler.CookieConfig{
			Name:   cfg.Session.CookieName,
			MaxAge: cfg.Session.Expiry,
			Secure: cfg.Session.Secure,
		}),
		User:  handler.NewUserHandler(userService),
		Group: handler.NewGroupHandler(groupService),
		System: handler.NewSystemHandler(bootstrapService,
			handler.HealthCheck{Name: "database", Check: database.Ping},
			handler.HealthCheck{Name: "redis", Check: redis.Ping},
		),
	})

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("服务启动", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务...")

	// 优雅关闭，等待 5 秒
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务关闭失败", zap.Error(err))
	}

	logger.Info("服务已关闭")
}
