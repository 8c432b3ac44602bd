package model

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User 用户模型
type User struct {
	BaseModel
	Username     string     `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"type:varchar(254)" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	IsSuperuser  bool       `gorm:"not null" json:"is_superuser"`
	DateJoined   time.Time  `gorm:"not null" json:"date_joined"`
	LastLogin    *time.Time `json:"last_login,omitempty"`

	// 关联
	Groups []Group `gorm:"many2many:user_groups;" json:"groups,omitempty"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// SetPassword 设置密码（哈希存储）
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// VerifyPassword 验证密码
func (u *User) VerifyPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// GroupName 返回用户的主用户组名称，无组时返回空字符串
func (u *User) GroupName() string {
	if len(u.Groups) == 0 {
		return ""
	}
	return u.Groups[0].Name
}

// GroupNames 返回用户所属的全部用户组名称
func (u *User) GroupNames() []string {
	names := make([]string, 0, len(u.Groups))
	for _, g := range u.Groups {
		names = append(names, g.Name)
	}
	return names
}

// InGroup 检查用户是否属于指定名称的用户组
func (u *User) InGroup(name string) bool {
	for _, g := range u.Groups {
		if g.Name == name {
			return true
		}
	}
	return false
}
