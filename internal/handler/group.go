package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/admin-console/internal/middleware"
	"github.com/pu-ac-cn/admin-console/internal/service"
	"github.com/pu-ac-cn/admin-console/pkg/response"
)

// GroupHandler 用户组管理处理器
type GroupHandler struct {
	groupService service.GroupService
}

// NewGroupHandler 创建用户组管理处理器
func NewGroupHandler(groupSvc service.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupSvc}
}

// GroupRequest 创建和更新用户组请求
type GroupRequest struct {
	Name string `json:"name" form:"name"`
}

// ListGroups 用户组列表，包含成员数
// GET /groups/
func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.groupService.ListGroups(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		fail(c, err)
		return
	}

	list := make([]gin.H, len(groups))
	for i, g := range groups {
		list[i] = groupJSON(g)
	}
	response.Success(c, list)
}

// GetGroup 用户组详情
// GET /groups/:id/
func (h *GroupHandler) GetGroup(c *gin.Context) {
	detail, err := h.groupService.GetGroup(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, groupJSON(detail))
}

// CreateGroup 创建用户组
// POST /groups/create/
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req GroupRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	group, err := h.groupService.CreateGroup(c.Request.Context(), middleware.GetPrincipal(c), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithMsg(c, "用户组创建成功", groupJSON(&service.GroupDetail{Group: group}))
}

// UpdateGroup 重命名用户组
// POST /groups/:id/update/
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	var req GroupRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	detail, err := h.groupService.UpdateGroup(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithMsg(c, "用户组更新成功", groupJSON(detail))
}

// Members 用户组成员
// GET /groups/:id/members/
func (h *GroupHandler) Members(c *gin.Context) {
	group, members, err := h.groupService.ListMembers(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	list := make([]gin.H, len(members))
	for i, u := range members {
		list[i] = gin.H{
			"id":        u.ID,
			"username":  u.Username,
			"email":     u.Email,
			"is_active": u.IsActive,
		}
	}
	response.Success(c, gin.H{
		"group_name": group.Name,
		"members":    list,
	})
}
