package model

// Group 用户组模型
type Group struct {
	BaseModel
	Name string `gorm:"type:varchar(150);uniqueIndex;not null" json:"name"`

	// 关联
	Permissions []Permission `gorm:"many2many:group_permissions;" json:"permissions,omitempty"`
	Users       []User       `gorm:"many2many:user_groups;" json:"-"`
}

// TableName 指定表名
// groups 在 MySQL 8 中是保留字
func (Group) TableName() string {
	return "auth_groups"
}

// PermissionCodes 返回用户组拥有的权限代码
func (g *Group) PermissionCodes() []string {
	codes := make([]string, 0, len(g.Permissions))
	for _, p := range g.Permissions {
		codes = append(codes, p.Code)
	}
	return codes
}

// Permission 权限模型，由资源类型和操作组成
type Permission struct {
	BaseModel
	Resource string `gorm:"type:varchar(50);not null" json:"resource"` // 资源，user 或 group
	Action   string `gorm:"type:varchar(50);not null" json:"action"`   // 操作，add/change/delete/view
	Code     string `gorm:"type:varchar(100);uniqueIndex" json:"code"` // 权限代码，格式：resource.action
	Name     string `gorm:"type:varchar(255)" json:"name"`             // 权限描述
}

// TableName 指定表名
func (Permission) TableName() string {
	return "permissions"
}

// 内置用户组名称
const (
	GroupSuperAdmin = "超级管理员"
	GroupAdmin      = "管理员"
	GroupRegular    = "普通用户"
)

// 权限资源
const (
	ResourceUser  = "user"
	ResourceGroup = "group"
)

// 权限操作
const (
	ActionAdd    = "add"
	ActionChange = "change"
	ActionDelete = "delete"
	ActionView   = "view"
)

// 常用权限代码
var (
	PermAddUser     = BuildPermissionCode(ResourceUser, ActionAdd)
	PermChangeUser  = BuildPermissionCode(ResourceUser, ActionChange)
	PermDeleteUser  = BuildPermissionCode(ResourceUser, ActionDelete)
	PermViewUser    = BuildPermissionCode(ResourceUser, ActionView)
	PermAddGroup    = BuildPermissionCode(ResourceGroup, ActionAdd)
	PermChangeGroup = BuildPermissionCode(ResourceGroup, ActionChange)
	PermDeleteGroup = BuildPermissionCode(ResourceGroup, ActionDelete)
	PermViewGroup   = BuildPermissionCode(ResourceGroup, ActionView)
)

var resourceNames = map[string]string{
	ResourceUser:  "用户",
	ResourceGroup: "用户组",
}

var actionNames = map[string]string{
	ActionAdd:    "新增",
	ActionChange: "修改",
	ActionDelete: "删除",
	ActionView:   "查看",
}

// BuildPermissionCode 构建权限代码
func BuildPermissionCode(resource, action string) string {
	return resource + "." + action
}

// DefaultPermissions 系统默认权限列表，用户与用户组各四项
func DefaultPermissions() []Permission {
	resources := []string{ResourceUser, ResourceGroup}
	actions := []string{ActionAdd, ActionChange, ActionDelete, ActionView}

	permissions := make([]Permission, 0, len(resources)*len(actions))
	for _, resource := range resources {
		for _, action := range actions {
			permissions = append(permissions, Permission{
				Resource: resource,
				Action:   action,
				Code:     BuildPermissionCode(resource, action),
				Name:     actionNames[action] + resourceNames[resource],
			})
		}
	}
	return permissions
}

// DefaultGroups 默认用户组名称，按创建顺序排列
func DefaultGroups() []string {
	return []string{GroupSuperAdmin, GroupAdmin, GroupRegular}
}

// DefaultGroupPermissions 默认用户组与权限代码的对应关系
func DefaultGroupPermissions() map[string][]string {
	all := make([]string, 0, 8)
	for _, p := range DefaultPermissions() {
		all = append(all, p.Code)
	}
	return map[string][]string{
		GroupSuperAdmin: all,
		GroupAdmin:      {PermAddUser, PermChangeUser, PermDeleteUser, PermViewUser, PermViewGroup},
		GroupRegular:    {PermViewUser, PermViewGroup},
	}
}
