package service

import (
	"github.com/pu-ac-cn/admin-console/internal/model"
)

// Action 受权限控制的操作
type Action string

const (
	ActionViewUser           Action = "view_user"
	ActionCreateUser         Action = "create_user"
	ActionUpdateUser         Action = "update_user"
	ActionDeleteUser         Action = "delete_user"
	ActionChangePassword     Action = "change_password"
	ActionChangeGroup        Action = "change_group"
	ActionListAvailableUsers Action = "list_available_users"
	ActionViewGroup          Action = "view_group"
	ActionCreateGroup        Action = "create_group"
	ActionUpdateGroup        Action = "update_group"
)

// actionPermissions 操作所需的权限代码，未列出的操作不要求命名权限
var actionPermissions = map[Action]string{
	ActionViewUser:           model.PermViewUser,
	ActionCreateUser:         model.PermAddUser,
	ActionUpdateUser:         model.PermChangeUser,
	ActionDeleteUser:         model.PermDeleteUser,
	ActionChangeGroup:        model.PermChangeUser,
	ActionListAvailableUsers: model.PermChangeUser,
	ActionViewGroup:          model.PermViewGroup,
	ActionCreateGroup:        model.PermAddGroup,
	ActionUpdateGroup:        model.PermChangeGroup,
}

// scopedActions 非超级管理员只能对普通用户执行的操作
var scopedActions = map[Action]bool{
	ActionUpdateUser:  true,
	ActionDeleteUser:  true,
	ActionChangeGroup: true,
}

// assigningActions 会为用户指定用户组的操作
var assigningActions = map[Action]bool{
	ActionCreateUser:  true,
	ActionUpdateUser:  true,
	ActionChangeGroup: true,
}

// selfForbidden 不能对自己执行的操作
var selfForbidden = map[Action]error{
	ActionDeleteUser:  ErrSelfDelete,
	ActionChangeGroup: ErrSelfGroupChange,
}

// PermissionFor 返回操作所需的权限代码
func PermissionFor(action Action) (string, bool) {
	code, ok := actionPermissions[action]
	return code, ok
}

// Principal 已登录的操作者
type Principal struct {
	User        *model.User
	Groups      []string
	Permissions map[string]struct{}
}

// NewPrincipal 根据用户及其用户组权限构建操作者
// user.Groups 需预加载 Permissions
func NewPrincipal(user *model.User) *Principal {
	p := &Principal{
		User:        user,
		Groups:      user.GroupNames(),
		Permissions: make(map[string]struct{}),
	}
	for _, g := range user.Groups {
		for _, code := range g.PermissionCodes() {
			p.Permissions[code] = struct{}{}
		}
	}
	return p
}

// ID 操作者用户 ID
func (p *Principal) ID() string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.ID
}

// Username 操作者用户名
func (p *Principal) Username() string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.Username
}

// IsAuthenticated 是否为已登录且启用的用户
func (p *Principal) IsAuthenticated() bool {
	return p != nil && p.User != nil && p.User.ID != "" && p.User.IsActive
}

// IsSuperuser 是否为超级用户，超级用户隐式拥有全部权限
func (p *Principal) IsSuperuser() bool {
	return p != nil && p.User != nil && p.User.IsSuperuser
}

// InGroup 是否属于指定用户组
func (p *Principal) InGroup(name string) bool {
	if p == nil {
		return false
	}
	for _, g := range p.Groups {
		if g == name {
			return true
		}
	}
	return false
}

// IsSuperAdmin 是否属于超级管理员组，超级用户同样视为超级管理员
func (p *Principal) IsSuperAdmin() bool {
	return p.IsSuperuser() || p.InGroup(model.GroupSuperAdmin)
}

// HasPermission 检查权限代码
func (p *Principal) HasPermission(code string) bool {
	if p == nil {
		return false
	}
	if p.IsSuperuser() {
		return true
	}
	_, ok := p.Permissions[code]
	return ok
}

// Target 操作对象
type Target struct {
	UserID string   // 目标用户 ID，不针对用户时为空
	Groups []string // 目标用户当前所属用户组
	Assign string   // 将要分配的用户组名称，不分配时为空
}

// UserTarget 以用户作为操作对象
func UserTarget(user *model.User) Target {
	if user == nil {
		return Target{}
	}
	return Target{UserID: user.ID, Groups: user.GroupNames()}
}

// InGroup 目标用户是否属于指定用户组
func (t Target) InGroup(name string) bool {
	for _, g := range t.Groups {
		if g == name {
			return true
		}
	}
	return false
}

// Decision 授权结果
type Decision struct {
	Allowed bool
	Reason  error // 拒绝原因，允许时为 nil
	Rule    string
}

// Err 允许时返回 nil，否则返回拒绝原因
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return d.Reason
}

// Rule 授权规则，返回非 nil 表示拒绝
type Rule struct {
	Name  string
	Check func(actor *Principal, action Action, target Target) error
	// TargetGroups 规则依赖目标用户的用户组，预检查时跳过
	TargetGroups bool
}

// DefaultRules 默认授权规则，按顺序求值，第一个拒绝即为结果
// 自我保护先于权限检查，保证删除自己总是得到同一个错误
var DefaultRules = []Rule{
	{Name: "authentication", Check: requireAuthentication},
	{Name: "self_protection", Check: forbidSelfAction},
	{Name: "permission", Check: requirePermission},
	{Name: "scope", Check: restrictScope, TargetGroups: true},
	{Name: "password", Check: restrictPasswordChange},
	{Name: "assignment", Check: restrictAssignment, TargetGroups: true},
}

// Policy 授权策略
type Policy struct {
	rules []Rule
}

// NewPolicy 创建授权策略，未提供规则时使用 DefaultRules
func NewPolicy(rules ...Rule) *Policy {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Policy{rules: rules}
}

// CanAct 判断操作者能否对目标执行操作
func (p *Policy) CanAct(actor *Principal, action Action, target Target) Decision {
	for _, rule := range p.rules {
		if err := rule.Check(actor, action, target); err != nil {
			return Decision{Allowed: false, Reason: err, Rule: rule.Name}
		}
	}
	return Decision{Allowed: true}
}

// Precheck 在加载目标用户之前求值，跳过依赖目标用户组的规则
// 通过预检查后仍需用完整的目标调用 CanAct
func (p *Policy) Precheck(actor *Principal, action Action, target Target) Decision {
	for _, rule := range p.rules {
		if rule.TargetGroups {
			continue
		}
		if err := rule.Check(actor, action, target); err != nil {
			return Decision{Allowed: false, Reason: err, Rule: rule.Name}
		}
	}
	return Decision{Allowed: true}
}

// Authorize 同 CanAct，直接返回错误
func (p *Policy) Authorize(actor *Principal, action Action, target Target) error {
	return p.CanAct(actor, action, target).Err()
}

func requireAuthentication(actor *Principal, _ Action, _ Target) error {
	if !actor.IsAuthenticated() {
		return ErrAuthenticationRequired
	}
	return nil
}

func forbidSelfAction(actor *Principal, action Action, target Target) error {
	err, ok := selfForbidden[action]
	if ok && target.UserID != "" && target.UserID == actor.ID() {
		return err
	}
	return nil
}

func requirePermission(actor *Principal, action Action, _ Target) error {
	code, ok := actionPermissions[action]
	if ok && !actor.HasPermission(code) {
		return ErrPermissionDenied
	}
	return nil
}

func restrictScope(actor *Principal, action Action, target Target) error {
	if !scopedActions[action] || actor.IsSuperAdmin() {
		return nil
	}
	if !target.InGroup(model.GroupRegular) {
		return ErrScopeViolation
	}
	return nil
}

func restrictPasswordChange(actor *Principal, action Action, target Target) error {
	if action != ActionChangePassword {
		return nil
	}
	if actor.IsSuperuser() || target.UserID == actor.ID() {
		return nil
	}
	return ErrPermissionDenied
}

// restrictAssignment 只有超级管理员可以把用户加入超级管理员组
func restrictAssignment(actor *Principal, action Action, target Target) error {
	if !assigningActions[action] || target.Assign != model.GroupSuperAdmin {
		return nil
	}
	if actor.IsSuperAdmin() {
		return nil
	}
	return ErrSuperAdminAssignment
}
