package repository

import (
	"context"
	"errors"

	"github.com/pu-ac-cn/admin-console/internal/model"
	"gorm.io/gorm"
)

var (
	ErrGroupNotFound      = errors.New("用户组不存在")
	ErrGroupNameExists    = errors.New("用户组名已存在")
	ErrPermissionNotFound = errors.New("权限不存在")
)

// GroupRepository 用户组仓库接口
type GroupRepository interface {
	Create(ctx context.Context, group *model.Group) error
	GetByID(ctx context.Context, id string) (*model.Group, error)
	GetByName(ctx context.Context, name string) (*model.Group, error)
	UpdateName(ctx context.Context, id, name string) error
	SetPermissions(ctx context.Context, id string, perms []model.Permission) error
	List(ctx context.Context) ([]*model.Group, error)
	ListMembers(ctx context.Context, id string) ([]*model.User, error)
	CountMembers(ctx context.Context, id string) (int64, error)
	MemberCounts(ctx context.Context) (map[string]int64, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Count(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) error
}

// PermissionRepository 权限仓库接口
type PermissionRepository interface {
	EnsureDefaults(ctx context.Context) ([]model.Permission, error)
	ListByCodes(ctx context.Context, codes []string) ([]model.Permission, error)
	List(ctx context.Context) ([]model.Permission, error)
}

// groupRepository 用户组仓库实现
type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository 创建用户组仓库
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, group *model.Group) error {
	exists, err := r.ExistsByName(ctx, group.Name, "")
	if err != nil {
		return err
	}
	if exists {
		return ErrGroupNameExists
	}
	perms := group.Permissions
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Permissions", "Users").Create(group).Error; err != nil {
			return err
		}
		if len(perms) == 0 {
			return nil
		}
		return tx.Model(group).Association("Permissions").Replace(perms)
	})
	// 并发创建同名用户组时由唯一索引兜底
	if isDuplicate(err) {
		return ErrGroupNameExists
	}
	return err
}

func (r *groupRepository) GetByID(ctx context.Context, id string) (*model.Group, error) {
	var group model.Group
	if err := r.db.WithContext(ctx).Preload("Permissions").First(&group, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) GetByName(ctx context.Context, name string) (*model.Group, error) {
	var group model.Group
	if err := r.db.WithContext(ctx).Preload("Permissions").First(&group, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) UpdateName(ctx context.Context, id, name string) error {
	exists, err := r.ExistsByName(ctx, name, id)
	if err != nil {
		return err
	}
	if exists {
		return ErrGroupNameExists
	}
	result := r.db.WithContext(ctx).Model(&model.Group{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		if isDuplicate(result.Error) {
			return ErrGroupNameExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 名称未变化时部分驱动返回 0 行
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.Group{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrGroupNotFound
		}
	}
	return nil
}

func (r *groupRepository) SetPermissions(ctx context.Context, id string, perms []model.Permission) error {
	group := &model.Group{BaseModel: model.BaseModel{ID: id}}
	if len(perms) == 0 {
		return r.db.WithContext(ctx).Model(group).Association("Permissions").Clear()
	}
	return r.db.WithContext(ctx).Model(group).Association("Permissions").Replace(perms)
}

func (r *groupRepository) List(ctx context.Context) ([]*model.Group, error) {
	var groups []*model.Group
	if err := r.db.WithContext(ctx).Preload("Permissions").Order("name").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *groupRepository) ListMembers(ctx context.Context, id string) ([]*model.User, error) {
	var users []*model.User
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Joins("JOIN user_groups ON user_groups.user_id = users.id").
		Where("user_groups.group_id = ?", id).
		Order("users.username").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *groupRepository) CountMembers(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("user_groups").Where("group_id = ?", id).Count(&count).Error
	return count, err
}

// MemberCounts 返回每个用户组的成员数量，没有成员的用户组不在结果中
func (r *groupRepository) MemberCounts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		GroupID string
		Total   int64
	}
	err := r.db.WithContext(ctx).Table("user_groups").
		Select("group_id, COUNT(*) AS total").
		Group("group_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.GroupID] = row.Total
	}
	return counts, nil
}

func (r *groupRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.Group{}).Where("name = ?", name)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *groupRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Group{}).Count(&count).Error
	return count, err
}

// DeleteAll 删除全部用户组及其成员、权限关联
func (r *groupRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM user_groups").Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM group_permissions").Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&model.Group{}).Error
	})
}

// permissionRepository 权限仓库实现
type permissionRepository struct {
	db *gorm.DB
}

// NewPermissionRepository 创建权限仓库
func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

// EnsureDefaults 确保默认权限存在，已存在的按代码复用
func (r *permissionRepository) EnsureDefaults(ctx context.Context) ([]model.Permission, error) {
	defaults := model.DefaultPermissions()
	perms := make([]model.Permission, 0, len(defaults))
	for _, p := range defaults {
		perm := p
		err := r.db.WithContext(ctx).
			Where(model.Permission{Code: perm.Code}).
			Attrs(model.Permission{Resource: perm.Resource, Action: perm.Action, Name: perm.Name}).
			FirstOrCreate(&perm).Error
		if err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, nil
}

func (r *permissionRepository) ListByCodes(ctx context.Context, codes []string) ([]model.Permission, error) {
	var perms []model.Permission
	if len(codes) == 0 {
		return perms, nil
	}
	if err := r.db.WithContext(ctx).Where("code IN ?", codes).Find(&perms).Error; err != nil {
		return nil, err
	}
	if len(perms) != len(codes) {
		return nil, ErrPermissionNotFound
	}
	return perms, nil
}

func (r *permissionRepository) List(ctx context.Context) ([]model.Permission, error) {
	var perms []model.Permission
	if err := r.db.WithContext(ctx).Order("code").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}
