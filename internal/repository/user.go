package repository

import (
	"context"
	"errors"
	"time"

	"github.com/pu-ac-cn/admin-console/internal/model"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrUserUsernameExists = errors.New("用户名已存在")
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	SetGroups(ctx context.Context, id string, groups []model.Group) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	List(ctx context.Context, filter *UserFilter, page *Pagination) ([]*model.User, int64, error)
	ListAvailableForGroup(ctx context.Context, groupID, memberOf string) ([]*model.User, error)
	ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error)
	Count(ctx context.Context, filter *UserFilter) (int64, error)
}

type UserFilter struct {
	Username  string
	GroupName string
	IsActive  *bool
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create 创建用户及其用户组关联
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	exists, err := r.ExistsByUsername(ctx, user.Username, "")
	if err != nil {
		return err
	}
	if exists {
		return ErrUserUsernameExists
	}
	groups := user.Groups
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Groups").Create(user).Error; err != nil {
			return err
		}
		if len(groups) == 0 {
			return nil
		}
		return tx.Model(user).Association("Groups").Replace(groups)
	})
	if isDuplicate(err) {
		return ErrUserUsernameExists
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Preload("Groups.Permissions").Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Preload("Groups.Permissions").Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update 更新用户字段，并用 user.Groups 整体替换用户组关联
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	exists, err := r.ExistsByUsername(ctx, user.Username, user.ID)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserUsernameExists
	}
	groups := user.Groups
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"username":      user.Username,
			"email":         user.Email,
			"password_hash": user.PasswordHash,
			"is_active":     user.IsActive,
			"is_superuser":  user.IsSuperuser,
			"updated_at":    time.Now(),
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return replaceGroups(tx, user.ID, groups)
	})
	if isDuplicate(err) {
		return ErrUserUsernameExists
	}
	return err
}

func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("password_hash", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).UpdateColumn("last_login", at).Error
}

// SetGroups 清空用户现有用户组并设置为给定用户组
func (r *userRepository) SetGroups(ctx context.Context, id string, groups []model.Group) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrUserNotFound
		}
		return replaceGroups(tx, id, groups)
	})
}

func replaceGroups(tx *gorm.DB, userID string, groups []model.Group) error {
	user := &model.User{BaseModel: model.BaseModel{ID: userID}}
	if len(groups) == 0 {
		return tx.Model(user).Association("Groups").Clear()
	}
	return tx.Model(user).Association("Groups").Replace(groups)
}

// Delete 删除用户，同时删除用户组关联
func (r *userRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := &model.User{BaseModel: model.BaseModel{ID: id}}
		if err := tx.Model(user).Association("Groups").Clear(); err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.User{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

// DeleteAll 删除全部用户及其用户组关联
func (r *userRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM user_groups").Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&model.User{}).Error
	})
}

func (r *userRepository) List(ctx context.Context, filter *UserFilter, page *Pagination) ([]*model.User, int64, error) {
	var users []*model.User
	var total int64
	query := r.filtered(ctx, filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = page.apply(query)
	if err := query.Preload("Groups").Order("date_joined DESC").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListAvailableForGroup 列出不在指定用户组中的用户
// memberOf 非空时只返回属于该名称用户组的用户
func (r *userRepository) ListAvailableForGroup(ctx context.Context, groupID, memberOf string) ([]*model.User, error) {
	var users []*model.User
	query := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id NOT IN (?)", r.db.Table("user_groups").Select("user_id").Where("group_id = ?", groupID))
	if memberOf != "" {
		query = query.Where("id IN (?)", r.membersOf(memberOf))
	}
	if err := query.Order("username").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.User{}).Where("username = ?", username)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *userRepository) Count(ctx context.Context, filter *UserFilter) (int64, error) {
	var count int64
	err := r.filtered(ctx, filter).Count(&count).Error
	return count, err
}

func (r *userRepository) filtered(ctx context.Context, filter *UserFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&model.User{})
	if filter == nil {
		return query
	}
	if filter.Username != "" {
		query = query.Where("username LIKE ?", "%"+filter.Username+"%")
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.GroupName != "" {
		query = query.Where("id IN (?)", r.membersOf(filter.GroupName))
	}
	return query
}

// membersOf 返回属于指定名称用户组的用户 ID 子查询
func (r *userRepository) membersOf(groupName string) *gorm.DB {
	return r.db.Table("user_groups").
		Select("user_groups.user_id").
		Joins("JOIN auth_groups ON auth_groups.id = user_groups.group_id").
		Where("auth_groups.name = ?", groupName)
}
