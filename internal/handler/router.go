package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/admin-console/internal/logging"
	"github.com/pu-ac-cn/admin-console/internal/middleware"
	"github.com/pu-ac-cn/admin-console/internal/service"
)

// RouterConfig 路由配置
type RouterConfig struct {
	Log         *logging.Pipeline
	Auth        service.AuthService
	CookieName  string
	LoginURL    string
	CORSOrigins []string
}

// Handlers 全部处理器
type Handlers struct {
	Auth   *AuthHandler
	User   *UserHandler
	Group  *GroupHandler
	System *SystemHandler
}

// NewRouter 创建路由
// 中间件只负责认证，权限判断由服务层完成
func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger(cfg.Log))
	router.Use(middleware.Recovery(cfg.Log))
	router.Use(middleware.CORS(cfg.CORSOrigins...))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.SessionAuth(cfg.Auth, cfg.CookieName, cfg.Log))

	// 公开路由
	router.GET("/health", h.System.Health)
	router.GET("/init/:secret/", h.System.Init)
	router.POST("/login", h.Auth.Login)
	router.POST("/register", h.Auth.Register)

	// 需要登录的路由
	authed := router.Group("/")
	authed.Use(middleware.RequireLogin(cfg.LoginURL))
	{
		authed.POST("/logout", h.Auth.Logout)
		authed.GET("/api/me", h.Auth.Me)
		authed.GET("/api/stats", h.Auth.Stats)

		users := authed.Group("/users")
		{
			users.GET("/", h.User.ListUsers)
			users.POST("/create/", h.User.CreateUser)
			users.GET("/available-for-group/:group_id/", h.User.AvailableForGroup)
			users.GET("/:id/", h.User.GetUser)
			users.POST("/:id/update/", h.User.UpdateUser)
			users.POST("/:id/delete/", h.User.DeleteUser)
			users.POST("/:id/change-password/", h.User.ChangePassword)
			users.POST("/:id/change-group/", h.User.ChangeGroup)
		}

		groups := authed.Group("/groups")
		{
			groups.GET("/", h.Group.ListGroups)
			groups.POST("/create/", h.Group.CreateGroup)
			groups.GET("/:id/", h.Group.GetGroup)
			groups.POST("/:id/update/", h.Group.UpdateGroup)
			groups.GET("/:id/members/", h.Group.Members)
		}
	}

	return router
}
