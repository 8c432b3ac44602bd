// Package handler HTTP 处理器
package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/admin-console/internal/middleware"
	"github.com/pu-ac-cn/admin-console/internal/service"
	"github.com/pu-ac-cn/admin-console/pkg/response"
)

// CookieConfig 会话 Cookie 配置
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// AuthHandler 认证处理器
type AuthHandler struct {
	authService service.AuthService
	userService service.UserService
	cookie      CookieConfig
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authSvc service.AuthService, userSvc service.UserService, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "sessionid"
	}
	return &AuthHandler{
		authService: authSvc,
		userService: userSvc,
		cookie:      cookie,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username  string `json:"username" form:"username"`
	Email     string `json:"email" form:"email"`
	Password1 string `json:"password1" form:"password1"`
	Password2 string `json:"password2" form:"password2"`
}

// Login 用户登录
// POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "请输入用户名和密码")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	h.setSessionCookie(c, result.Token)
	response.SuccessWithMsg(c, "登录成功", gin.H{"user": userJSON(result.User)})
}

// Logout 用户登出
// POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if session := middleware.GetSession(c); session != nil {
		if err := h.authService.Logout(c.Request.Context(), session.ID); err != nil {
			fail(c, err)
			return
		}
	}
	h.clearSessionCookie(c)
	response.SuccessWithMsg(c, "已退出登录", nil)
}

// Register 用户注册，成功后直接登录
// POST /register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	result, err := h.authService.Register(c.Request.Context(), &service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password1: req.Password1,
		Password2: req.Password2,
	})
	if err != nil {
		fail(c, err)
		return
	}

	h.setSessionCookie(c, result.Token)
	response.SuccessWithMsg(c, "注册成功", gin.H{"user": userJSON(result.User)})
}

// Me 当前登录用户
// GET /api/me
func (h *AuthHandler) Me(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	if p == nil {
		fail(c, service.ErrAuthenticationRequired)
		return
	}

	permissions := make([]string, 0, len(p.Permissions))
	for code := range p.Permissions {
		permissions = append(permissions, code)
	}
	sort.Strings(permissions)

	data := userJSON(p.User)
	data["is_superuser"] = p.IsSuperuser()
	data["groups"] = p.Groups
	data["permissions"] = permissions
	data["last_login"] = p.User.LastLogin
	response.Success(c, data)
}

// Stats 首页统计
// GET /api/stats
func (h *AuthHandler) Stats(c *gin.Context) {
	stats, err := h.userService.Stats(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, stats)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.cookie.MaxAge.Seconds()), "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}
