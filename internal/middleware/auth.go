package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/admin-console/internal/logging"
	"github.com/pu-ac-cn/admin-console/internal/model"
	"github.com/pu-ac-cn/admin-console/internal/service"
	"github.com/pu-ac-cn/admin-console/pkg/response"
	"go.uber.org/zap"
)

// SessionAuth 会话认证中间件
// 从 Cookie 中解析会话并加载当前用户，不强制要求登录
func SessionAuth(auth service.AuthService, cookieName string, log *logging.Pipeline) gin.HandlerFunc {
	if log == nil {
		log = logging.NewNop()
	}
	log = log.Named("session")

	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		principal, session, err := auth.ResolvePrincipal(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrAuthenticationRequired) {
				log.Debug(c.Request.Context(), "会话无效", zap.Error(err))
			} else {
				log.Error(c.Request.Context(), "加载会话失败", err)
			}
			// 清除无效 Cookie
			c.SetCookie(cookieName, "", -1, "/", "", false, true)
			c.Next()
			return
		}

		c.Set(KeyPrincipal, principal)
		c.Set(KeySession, session)
		c.Next()
	}
}

// RequireLogin 要求登录
// 页面请求跳转到登录页，其余请求返回 401
func RequireLogin(loginURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p := GetPrincipal(c); p != nil && p.IsAuthenticated() {
			c.Next()
			return
		}

		if loginURL != "" && wantsHTML(c.Request) {
			target := loginURL + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		response.Abort(c, http.StatusUnauthorized, service.ErrAuthenticationRequired.Error())
	}
}

// GetPrincipal 获取当前登录用户，未登录时返回 nil
func GetPrincipal(c *gin.Context) *service.Principal {
	v, ok := c.Get(KeyPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*service.Principal)
	return p
}

// GetSession 获取当前会话
func GetSession(c *gin.Context) *model.Session {
	v, ok := c.Get(KeySession)
	if !ok {
		return nil
	}
	s, _ := v.(*model.Session)
	return s
}

func wantsHTML(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
