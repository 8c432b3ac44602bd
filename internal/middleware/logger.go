// Package middleware 中间件
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pu-ac-cn/admin-console/internal/clientinfo"
	"github.com/pu-ac-cn/admin-console/internal/logging"
	"go.uber.org/zap"
)

// 上下文键
const (
	KeyRequestID = "request_id"
	KeyPrincipal = "principal"
	KeySession   = "session"
)

// Logger 日志中间件
// 生成请求 ID，将客户端信息放入请求 context，并在请求结束后记录访问日志
func Logger(log *logging.Pipeline) gin.HandlerFunc {
	if log == nil {
		log = logging.NewNop()
	}
	access := log.Logger().Named("http")

	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(KeyRequestID, requestID)
		c.Header("X-Request-ID", requestID)

		info := clientinfo.FromRequest(c.Request)
		c.Request = c.Request.WithContext(clientinfo.WithInfo(c.Request.Context(), info))

		start := time.Now()
		path := routePath(c)
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", info.IP),
			zap.String("client", info.Summary()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if p := GetPrincipal(c); p != nil {
			fields = append(fields, zap.String("username", p.Username()))
		}
		access.Info("HTTP 请求", fields...)
	}
}

// routePath 返回匹配到的路由模板，未匹配时返回原始路径
// 路径参数可能携带初始化密码，不能原样写入日志
func routePath(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}
