package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/admin-console/internal/model"
	"github.com/pu-ac-cn/admin-console/internal/service"
)

// userJSON 用户响应格式（不含密码）
func userJSON(u *model.User) gin.H {
	var groupName interface{}
	if name := u.GroupName(); name != "" {
		groupName = name
	}
	return gin.H{
		"id":          u.ID,
		"username":    u.Username,
		"email":       u.Email,
		"is_active":   u.IsActive,
		"group_name":  groupName,
		"date_joined": u.DateJoined,
	}
}

func usersJSON(users []*model.User) []gin.H {
	list := make([]gin.H, len(users))
	for i, u := range users {
		list[i] = userJSON(u)
	}
	return list
}

func groupJSON(d *service.GroupDetail) gin.H {
	return gin.H{
		"id":         d.Group.ID,
		"name":       d.Group.Name,
		"user_count": d.UserCount,
	}
}
