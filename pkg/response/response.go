// Package response 统一响应格式
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 响应状态
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response 统一响应结构
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Status: StatusSuccess,
		Data:   data,
	})
}

// SuccessWithMsg 带消息的成功响应
func SuccessWithMsg(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Status:  StatusSuccess,
		Message: msg,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpStatus int, msg string) {
	c.JSON(httpStatus, Response{
		Status:  StatusError,
		Message: msg,
	})
}

// Abort 错误响应并中止后续处理
func Abort(c *gin.Context, httpStatus int, msg string) {
	c.AbortWithStatusJSON(httpStatus, Response{
		Status:  StatusError,
		Message: msg,
	})
}
