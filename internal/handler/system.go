package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/admin-console/internal/service"
	"github.com/pu-ac-cn/admin-console/pkg/response"
)

// HealthCheck 依赖检查项
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// SystemHandler 系统初始化与健康检查
type SystemHandler struct {
	bootstrap service.BootstrapService
	checks    []HealthCheck
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(bootstrap service.BootstrapService, checks ...HealthCheck) *SystemHandler {
	return &SystemHandler{bootstrap: bootstrap, checks: checks}
}

// Init 系统初始化
// GET /init/:secret/
func (h *SystemHandler) Init(c *gin.Context) {
	result, err := h.bootstrap.Initialize(c.Request.Context(), c.Param("secret"))
	if err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithMsg(c, "系统初始化成功", result)
}

// Health 健康检查
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	data := gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}
	for _, check := range h.checks {
		status := "ok"
		if err := check.Check(ctx); err != nil {
			status = "error"
			data["status"] = "degraded"
		}
		data[check.Name] = status
	}
	response.Success(c, data)
}
