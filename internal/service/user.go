package service

import (
	"context"
	"strings"
	"time"

	"github.com/pu-ac-cn/admin-console/internal/logging"
	"github.com/pu-ac-cn/admin-console/internal/model"
	"github.com/pu-ac-cn/admin-console/internal/repository"
	"go.uber.org/zap"
)

// CreateUserInput 创建用户参数
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	GroupID  string // 为空时不加入用户组
	IsActive *bool  // 为空时默认启用
}

// UpdateUserInput 更新用户参数
type UpdateUserInput struct {
	Username string
	Email    string
	Password string // 为空时不修改密码
	GroupID  string // 为空时移除全部用户组
	IsActive *bool  // 为空时默认启用
}

// Stats 首页统计数据
type Stats struct {
	UserCount       int64 `json:"user_count"`
	ActiveUserCount int64 `json:"active_user_count"`
	GroupCount      int64 `json:"group_count"`
}

// UserService 用户管理服务接口
type UserService interface {
	CreateUser(ctx context.Context, actor *Principal, in *CreateUserInput) (*model.User, error)
	UpdateUser(ctx context.Context, actor *Principal, id string, in *UpdateUserInput) (*model.User, error)
	DeleteUser(ctx context.Context, actor *Principal, id string) error
	ChangePassword(ctx context.Context, actor *Principal, id, newPassword string) error
	// ChangeGroup 替换用户的用户组，groupID 为空时移除全部用户组
	ChangeGroup(ctx context.Context, actor *Principal, userID, groupID string) error
	GetUser(ctx context.Context, actor *Principal, id string) (*model.User, error)
	ListUsers(ctx context.Context, actor *Principal, filter *repository.UserFilter, page *repository.Pagination) ([]*model.User, int64, error)
	// ListAvailableForGroup 列出可加入用户组的用户，非超级管理员只能看到普通用户
	ListAvailableForGroup(ctx context.Context, actor *Principal, groupID string) ([]*model.User, error)
	Stats(ctx context.Context, actor *Principal) (*Stats, error)
}

type userService struct {
	guard
	userRepo  repository.UserRepository
	groupRepo repository.GroupRepository
	sessions  SessionService
}

// NewUserService 创建用户管理服务
// sessions 可为 nil，此时删除用户不清理会话
func NewUserService(userRepo repository.UserRepository, groupRepo repository.GroupRepository, sessions SessionService, policy *Policy, log *logging.Pipeline) UserService {
	return &userService{
		guard:     newGuard(policy, log, "user"),
		userRepo:  userRepo,
		groupRepo: groupRepo,
		sessions:  sessions,
	}
}

func (s *userService) CreateUser(ctx context.Context, actor *Principal, in *CreateUserInput) (*model.User, error) {
	if err := s.authorize(ctx, actor, ActionCreateUser, Target{}); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	s.log.Operation(ctx, "管理员 "+actor.Username()+" 尝试创建用户: "+username)

	if username == "" {
		return nil, s.reject(ctx, "用户创建失败", username, ErrUsernameEmpty)
	}
	exists, err := s.userRepo.ExistsByUsername(ctx, username, "")
	if err != nil {
		return nil, s.fail(ctx, "用户创建失败: "+username, wrap(err, "检查用户名失败"))
	}
	if exists {
		return nil, s.reject(ctx, "用户创建失败", username, ErrUsernameExists)
	}
	if in.Password == "" {
		return nil, s.reject(ctx, "用户创建失败", username, ErrPasswordEmpty)
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, s.reject(ctx, "用户创建失败", username, err)
	}

	groups, err := s.resolveGroups(ctx, in.GroupID)
	if err != nil {
		return nil, s.report(ctx, "用户创建失败", username, err)
	}
	if err := s.authorizeAssignment(ctx, actor, ActionCreateUser, Target{}, groups); err != nil {
		return nil, err
	}

	user := &model.User{
		Username:   username,
		Email:      strings.TrimSpace(in.Email),
		IsActive:   boolOr(in.IsActive, true),
		DateJoined: time.Now(),
		Groups:     groups,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, s.report(ctx, "用户创建失败", username, wrap(err, "密码加密失败"))
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, s.report(ctx, "用户创建失败", username, wrap(err, "保存用户失败"))
	}

	s.log.Audit(ctx, logging.ContextUserManagement, "用户创建成功: "+username,
		zap.String("user_id", user.ID), zap.String("group", user.GroupName()))
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor *Principal, id string, in *UpdateUserInput) (*model.User, error) {
	user, err := s.loadTarget(ctx, actor, ActionUpdateUser, id)
	if err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	s.log.Operation(ctx, "管理员 "+actor.Username()+" 尝试更新用户信息: "+user.Username+" -> "+username)

	if username == "" {
		return nil, s.reject(ctx, "用户信息更新失败", user.Username, ErrUsernameEmpty)
	}
	exists, err := s.userRepo.ExistsByUsername(ctx, username, user.ID)
	if err != nil {
		return nil, s.fail(ctx, "用户信息更新失败: "+username, wrap(err, "检查用户名失败"))
	}
	if exists {
		return nil, s.reject(ctx, "用户信息更新失败", username, ErrUsernameExists)
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, s.reject(ctx, "用户信息更新失败", username, err)
	}
	groups, err := s.resolveGroups(ctx, in.GroupID)
	if err != nil {
		return nil, s.report(ctx, "用户信息更新失败", username, err)
	}
	if err := s.authorizeAssignment(ctx, actor, ActionUpdateUser, UserTarget(user), groups); err != nil {
		return nil, err
	}

	user.Username = username
	user.Email = strings.TrimSpace(in.Email)
	user.IsActive = boolOr(in.IsActive, true)
	user.Groups = groups
	if in.Password != "" {
		if err := user.SetPassword(in.Password); err != nil {
			return nil, s.report(ctx, "用户信息更新失败", username, wrap(err, "密码加密失败"))
		}
	}

	// 字段和用户组关联在同一事务中更新
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, s.report(ctx, "用户信息更新失败", username, wrap(err, "保存用户失败"))
	}

	if in.Password != "" {
		s.log.Security(ctx, "用户密码已更新: "+username, zap.String("user_id", user.ID))
	}
	if len(groups) > 0 {
		s.log.Operation(ctx, "用户组已更新: "+username+" -> "+groups[0].Name)
	}
	s.log.Audit(ctx, logging.ContextUserManagement, "用户信息更新成功: "+username, zap.String("user_id", user.ID))
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, actor *Principal, id string) error {
	user, err := s.loadTarget(ctx, actor, ActionDeleteUser, id)
	if err != nil {
		return err
	}
	s.log.Operation(ctx, "管理员 "+actor.Username()+" 尝试删除用户: "+user.Username)

	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return s.report(ctx, "用户删除失败", user.Username, wrap(err, "删除用户失败"))
	}
	if s.sessions != nil {
		if err := s.sessions.DeleteByUserID(ctx, user.ID); err != nil {
			// 用户已删除，残留会话在解析时会因用户不存在而失效
			s.log.Warn(ctx, "清理用户会话失败: "+user.Username, zap.Error(err))
		}
	}

	s.log.Audit(ctx, logging.ContextUserManagement, "用户删除成功: "+user.Username, zap.String("user_id", user.ID))
	return nil
}

func (s *userService) ChangePassword(ctx context.Context, actor *Principal, id, newPassword string) error {
	if d := s.policy.Precheck(actor, ActionChangePassword, Target{UserID: id}); !d.Allowed {
		s.log.Operation(ctx, "密码修改失败: "+actor.Username()+" 尝试修改用户 "+id+" 的密码但没有权限",
			zap.String("rule", d.Rule))
		return d.Reason
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return s.report(ctx, "密码修改失败", id, wrap(err, "获取用户失败"))
	}
	s.log.Operation(ctx, "用户 "+actor.Username()+" 尝试修改密码: "+user.Username)

	if newPassword == "" {
		return s.reject(ctx, "密码修改失败", user.Username, ErrNewPasswordEmpty)
	}
	if err := checkPassword(newPassword); err != nil {
		return s.reject(ctx, "密码修改失败", user.Username, err)
	}
	if err := user.SetPassword(newPassword); err != nil {
		return s.report(ctx, "密码修改失败", user.Username, wrap(err, "密码加密失败"))
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, user.PasswordHash); err != nil {
		return s.report(ctx, "密码修改失败", user.Username, wrap(err, "保存密码失败"))
	}

	s.log.Security(ctx, "密码修改成功: "+user.Username, zap.String("user_id", user.ID))
	s.log.Audit(ctx, logging.ContextUserManagement, "用户密码变更: "+user.Username, zap.String("user_id", user.ID))
	return nil
}

func (s *userService) ChangeGroup(ctx context.Context, actor *Principal, userID, groupID string) error {
	user, err := s.loadTarget(ctx, actor, ActionChangeGroup, userID)
	if err != nil {
		return err
	}

	groups, err := s.resolveGroups(ctx, groupID)
	if err != nil {
		return s.report(ctx, "用户组更新失败", user.Username, err)
	}
	if err := s.authorizeAssignment(ctx, actor, ActionChangeGroup, UserTarget(user), groups); err != nil {
		return err
	}
	oldGroups := user.GroupNames()
	if err := s.userRepo.SetGroups(ctx, user.ID, groups); err != nil {
		return s.report(ctx, "用户组更新失败", user.Username, wrap(err, "更新用户组失败"))
	}

	newGroup := "无组"
	if len(groups) > 0 {
		newGroup = groups[0].Name
	}
	change := user.Username + " [" + strings.Join(oldGroups, ", ") + "] -> " + newGroup
	s.log.Operation(ctx, "用户组更新成功: "+change)
	s.log.Audit(ctx, logging.ContextUserManagement, "用户组变更: "+change,
		zap.String("user_id", user.ID), zap.Strings("old_groups", oldGroups), zap.String("new_group", newGroup))
	return nil
}

func (s *userService) GetUser(ctx context.Context, actor *Principal, id string) (*model.User, error) {
	if err := s.authorize(ctx, actor, ActionViewUser, Target{UserID: id}); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.report(ctx, "获取用户详情失败", id, wrap(err, "获取用户失败"))
	}
	s.log.Operation(ctx, "管理员 "+actor.Username()+" 查看用户详情: "+user.Username)
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, actor *Principal, filter *repository.UserFilter, page *repository.Pagination) ([]*model.User, int64, error) {
	if err := s.authorize(ctx, actor, ActionViewUser, Target{}); err != nil {
		return nil, 0, err
	}
	users, total, err := s.userRepo.List(ctx, filter, page)
	if err != nil {
		return nil, 0, s.fail(ctx, "获取用户列表失败", wrap(err, "获取用户列表失败"))
	}
	s.log.Debug(ctx, "返回用户数据", zap.Int64("total", total))
	return users, total, nil
}

func (s *userService) ListAvailableForGroup(ctx context.Context, actor *Principal, groupID string) ([]*model.User, error) {
	if err := s.authorize(ctx, actor, ActionListAvailableUsers, Target{}); err != nil {
		return nil, err
	}
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, s.report(ctx, "查询可分配用户失败", groupID, wrap(err, "获取用户组失败"))
	}

	memberOf := ""
	if !actor.IsSuperAdmin() {
		memberOf = model.GroupRegular
		s.log.Operation(ctx, "管理员 "+actor.Username()+" 只能管理普通用户")
	}
	users, err := s.userRepo.ListAvailableForGroup(ctx, group.ID, memberOf)
	if err != nil {
		return nil, s.fail(ctx, "查询可分配用户失败", wrap(err, "查询可分配用户失败"))
	}
	s.log.Operation(ctx, "查询可分配到用户组 '"+group.Name+"' 的用户", zap.Int("count", len(users)))
	return users, nil
}

func (s *userService) Stats(ctx context.Context, actor *Principal) (*Stats, error) {
	if !actor.IsAuthenticated() {
		s.log.Warn(ctx, "未登录用户请求操作", zap.String("action", "stats"))
		return nil, ErrAuthenticationRequired
	}
	var (
		stats Stats
		err   error
	)
	active := true
	if stats.UserCount, err = s.userRepo.Count(ctx, nil); err != nil {
		return nil, s.fail(ctx, "统计用户失败", wrap(err, "统计用户失败"))
	}
	if stats.ActiveUserCount, err = s.userRepo.Count(ctx, &repository.UserFilter{IsActive: &active}); err != nil {
		return nil, s.fail(ctx, "统计活跃用户失败", wrap(err, "统计用户失败"))
	}
	if stats.GroupCount, err = s.groupRepo.Count(ctx); err != nil {
		return nil, s.fail(ctx, "统计用户组失败", wrap(err, "统计用户组失败"))
	}
	return &stats, nil
}

// loadTarget 预检查、加载目标用户，再按完整目标授权
func (s *userService) loadTarget(ctx context.Context, actor *Principal, action Action, id string) (*model.User, error) {
	if d := s.policy.Precheck(actor, action, Target{UserID: id}); !d.Allowed {
		s.logDenied(ctx, actor, action, d)
		return nil, d.Reason
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.report(ctx, "获取用户失败", id, wrap(err, "获取用户失败"))
	}
	if d := s.policy.CanAct(actor, action, UserTarget(user)); !d.Allowed {
		s.logDenied(ctx, actor, action, d)
		return nil, d.Reason
	}
	return user, nil
}

// authorizeAssignment 按将要分配的用户组再次授权
func (s *userService) authorizeAssignment(ctx context.Context, actor *Principal, action Action, target Target, groups []model.Group) error {
	if len(groups) == 0 {
		return nil
	}
	target.Assign = groups[0].Name
	return s.authorize(ctx, actor, action, target)
}

// resolveGroups 将单个用户组 ID 转换为用户组列表
func (s *userService) resolveGroups(ctx context.Context, groupID string) ([]model.Group, error) {
	if groupID == "" {
		return nil, nil
	}
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, wrap(err, "获取用户组失败")
	}
	return []model.Group{*group}, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
