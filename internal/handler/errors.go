package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/admin-console/internal/service"
	"github.com/pu-ac-cn/admin-console/pkg/response"
)

// fail 按错误类别返回对应状态码，消息取错误本身
func fail(c *gin.Context, err error) {
	response.Error(c, statusFor(err), err.Error())
}

// statusFor 错误类别到 HTTP 状态码的映射
// 初始化失败一律为 500，不论失败原因属于哪一类
func statusFor(err error) int {
	var bErr *service.BootstrapError
	if errors.As(err, &bErr) {
		return http.StatusInternalServerError
	}
	switch {
	case errors.Is(err, service.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrDuplicateName),
		errors.Is(err, service.ErrSelfActionForbidden):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
