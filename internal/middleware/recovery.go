package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/admin-console/internal/logging"
	"github.com/pu-ac-cn/admin-console/pkg/response"
	"go.uber.org/zap"
)

// Recovery 恢复中间件
// 捕获 panic，写入错误日志，返回 500
func Recovery(log *logging.Pipeline) gin.HandlerFunc {
	if log == nil {
		log = logging.NewNop()
	}
	log = log.Named("recovery")

	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(c.Request.Context(), "服务器内部错误", fmt.Errorf("panic: %v", r),
					zap.String(KeyRequestID, c.GetString(KeyRequestID)),
					zap.String("stack", string(debug.Stack())),
					zap.String("path", routePath(c)),
					zap.String("method", c.Request.Method),
				)
				response.Abort(c, http.StatusInternalServerError, "服务器内部错误，请稍后重试")
			}
		}()
		c.Next()
	}
}
