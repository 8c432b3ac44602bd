package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/admin-console/internal/middleware"
	"github.com/pu-ac-cn/admin-console/internal/repository"
	"github.com/pu-ac-cn/admin-console/internal/service"
	"github.com/pu-ac-cn/admin-console/pkg/response"
)

// UserHandler 用户管理处理器
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建用户管理处理器
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userService: userSvc}
}

// UserRequest 创建和更新用户请求
type UserRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	GroupID  string `json:"group_id" form:"group_id"`
	IsActive *bool  `json:"is_active" form:"is_active"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	NewPassword string `json:"new_password" form:"new_password"`
}

// ChangeGroupRequest 修改用户组请求，group_id 为空表示移除全部用户组
type ChangeGroupRequest struct {
	GroupID string `json:"group_id" form:"group_id"`
}

// maxPageSize 每页最多返回的用户数
const maxPageSize = 100

// ListUsers 获取用户列表
// GET /users/
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		response.Error(c, http.StatusBadRequest, "page 参数无效")
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || pageSize < 1 {
		response.Error(c, http.StatusBadRequest, "page_size 参数无效")
		return
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	filter := &repository.UserFilter{
		Username:  c.Query("username"),
		GroupName: c.Query("group"),
	}
	if v := c.Query("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "is_active 参数无效")
			return
		}
		filter.IsActive = &active
	}

	users, total, err := h.userService.ListUsers(c.Request.Context(), middleware.GetPrincipal(c), filter, &repository.Pagination{
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      usersJSON(users),
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetUser 获取用户详情
// GET /users/:id/
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, userJSON(user))
}

// CreateUser 创建用户
// POST /users/create/
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), middleware.GetPrincipal(c), &service.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		GroupID:  req.GroupID,
		IsActive: req.IsActive,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithMsg(c, "用户创建成功", userJSON(user))
}

// UpdateUser 更新用户信息
// POST /users/:id/update/
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"), &service.UpdateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		GroupID:  req.GroupID,
		IsActive: req.IsActive,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithMsg(c, "用户信息更新成功", userJSON(user))
}

// DeleteUser 删除用户
// POST /users/:id/delete/
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.DeleteUser(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithMsg(c, "用户删除成功", nil)
}

// ChangePassword 修改密码
// POST /users/:id/change-password/
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"), req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithMsg(c, "密码修改成功", nil)
}

// ChangeGroup 修改用户组
// POST /users/:id/change-group/
func (h *UserHandler) ChangeGroup(c *gin.Context) {
	var req ChangeGroupRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	if err := h.userService.ChangeGroup(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"), req.GroupID); err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithMsg(c, "用户组更新成功", nil)
}

// AvailableForGroup 可加入用户组的用户，只返回 id 和用户名
// GET /users/available-for-group/:group_id/
func (h *UserHandler) AvailableForGroup(c *gin.Context) {
	users, err := h.userService.ListAvailableForGroup(c.Request.Context(), middleware.GetPrincipal(c), c.Param("group_id"))
	if err != nil {
		fail(c, err)
		return
	}

	list := make([]gin.H, len(users))
	for i, u := range users {
		list[i] = gin.H{"id": u.ID, "username": u.Username}
	}
	response.Success(c, list)
}
