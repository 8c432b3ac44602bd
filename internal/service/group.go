package service

import (
	"context"
	"strings"

	"github.com/pu-ac-cn/admin-console/internal/logging"
	"github.com/pu-ac-cn/admin-console/internal/model"
	"github.com/pu-ac-cn/admin-console/internal/repository"
	"go.uber.org/zap"
)

// GroupDetail 用户组及其成员数量
type GroupDetail struct {
	Group     *model.Group
	UserCount int64
}

// GroupService 用户组管理服务接口
type GroupService interface {
	CreateGroup(ctx context.Context, actor *Principal, name string) (*model.Group, error)
	UpdateGroup(ctx context.Context, actor *Principal, id, name string) (*GroupDetail, error)
	GetGroup(ctx context.Context, actor *Principal, id string) (*GroupDetail, error)
	ListGroups(ctx context.Context, actor *Principal) ([]*GroupDetail, error)
	ListMembers(ctx context.Context, actor *Principal, id string) (*model.Group, []*model.User, error)
}

type groupService struct {
	guard
	groupRepo repository.GroupRepository
}

// NewGroupService 创建用户组管理服务
func NewGroupService(groupRepo repository.GroupRepository, policy *Policy, log *logging.Pipeline) GroupService {
	return &groupService{
		guard:     newGuard(policy, log, "group"),
		groupRepo: groupRepo,
	}
}

func (s *groupService) CreateGroup(ctx context.Context, actor *Principal, name string) (*model.Group, error) {
	if err := s.authorize(ctx, actor, ActionCreateGroup, Target{}); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	s.log.Operation(ctx, "管理员 "+actor.Username()+" 尝试创建用户组: "+name)

	if name == "" {
		return nil, s.reject(ctx, "用户组创建失败", name, ErrGroupNameEmpty)
	}
	exists, err := s.groupRepo.ExistsByName(ctx, name, "")
	if err != nil {
		return nil, s.fail(ctx, "用户组创建失败: "+name, wrap(err, "检查用户组名失败"))
	}
	if exists {
		return nil, s.reject(ctx, "用户组创建失败", name, ErrGroupNameExists)
	}

	group := &model.Group{Name: name}
	// 并发创建同名用户组时由唯一索引兜底
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, s.report(ctx, "用户组创建失败", name, wrap(err, "保存用户组失败"))
	}

	s.log.Audit(ctx, logging.ContextGroupManagement, "用户组创建成功: "+name, zap.String("group_id", group.ID))
	return group, nil
}

func (s *groupService) UpdateGroup(ctx context.Context, actor *Principal, id, name string) (*GroupDetail, error) {
	if err := s.authorize(ctx, actor, ActionUpdateGroup, Target{}); err != nil {
		return nil, err
	}
	group, err := s.groupRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.report(ctx, "用户组更新失败", id, wrap(err, "获取用户组失败"))
	}
	oldName := group.Name
	name = strings.TrimSpace(name)
	s.log.Operation(ctx, "管理员 "+actor.Username()+" 尝试更新用户组: "+oldName+" -> "+name)

	if name == "" {
		return nil, s.reject(ctx, "用户组更新失败", oldName, ErrGroupNameEmpty)
	}
	exists, err := s.groupRepo.ExistsByName(ctx, name, group.ID)
	if err != nil {
		return nil, s.fail(ctx, "用户组更新失败: "+name, wrap(err, "检查用户组名失败"))
	}
	if exists {
		return nil, s.reject(ctx, "用户组更新失败", name, ErrGroupNameExists)
	}
	if err := s.groupRepo.UpdateName(ctx, group.ID, name); err != nil {
		return nil, s.report(ctx, "用户组更新失败", name, wrap(err, "保存用户组失败"))
	}
	group.Name = name

	count, err := s.groupRepo.CountMembers(ctx, group.ID)
	if err != nil {
		return nil, s.report(ctx, "统计用户组成员失败", name, wrap(err, "统计用户组成员失败"))
	}
	s.log.Audit(ctx, logging.ContextGroupManagement, "用户组更新成功: "+oldName+" -> "+name, zap.String("group_id", group.ID))
	return &GroupDetail{Group: group, UserCount: count}, nil
}

func (s *groupService) GetGroup(ctx context.Context, actor *Principal, id string) (*GroupDetail, error) {
	if err := s.authorize(ctx, actor, ActionViewGroup, Target{}); err != nil {
		return nil, err
	}
	group, err := s.groupRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.report(ctx, "获取用户组详情失败", id, wrap(err, "获取用户组失败"))
	}
	count, err := s.groupRepo.CountMembers(ctx, group.ID)
	if err != nil {
		return nil, s.report(ctx, "统计用户组成员失败", group.Name, wrap(err, "统计用户组成员失败"))
	}
	return &GroupDetail{Group: group, UserCount: count}, nil
}

func (s *groupService) ListGroups(ctx context.Context, actor *Principal) ([]*GroupDetail, error) {
	if err := s.authorize(ctx, actor, ActionViewGroup, Target{}); err != nil {
		return nil, err
	}
	groups, err := s.groupRepo.List(ctx)
	if err != nil {
		return nil, s.fail(ctx, "获取用户组列表失败", wrap(err, "获取用户组列表失败"))
	}
	counts, err := s.groupRepo.MemberCounts(ctx)
	if err != nil {
		return nil, s.fail(ctx, "统计用户组成员失败", wrap(err, "统计用户组成员失败"))
	}

	details := make([]*GroupDetail, 0, len(groups))
	for _, g := range groups {
		details = append(details, &GroupDetail{Group: g, UserCount: counts[g.ID]})
	}
	return details, nil
}

func (s *groupService) ListMembers(ctx context.Context, actor *Principal, id string) (*model.Group, []*model.User, error) {
	if err := s.authorize(ctx, actor, ActionViewGroup, Target{}); err != nil {
		return nil, nil, err
	}
	group, err := s.groupRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, s.report(ctx, "获取用户组成员失败", id, wrap(err, "获取用户组失败"))
	}
	members, err := s.groupRepo.ListMembers(ctx, group.ID)
	if err != nil {
		return nil, nil, s.fail(ctx, "获取用户组成员失败: "+group.Name, wrap(err, "获取用户组成员失败"))
	}
	return group, members, nil
}
