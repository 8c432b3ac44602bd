package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/pu-ac-cn/admin-console/internal/logging"
	"github.com/pu-ac-cn/admin-console/internal/model"
	"github.com/pu-ac-cn/admin-console/internal/repository"
	"go.uber.org/zap"
)

// 系统初始化相关错误
var (
	ErrBootstrapDisabled = newError(ErrPermissionDenied, "系统初始化未启用")
	ErrBootstrapSecret   = newError(ErrPermissionDenied, "初始化密码错误")
)

// BootstrapStage 初始化阶段
type BootstrapStage string

const (
	StageCleanup     BootstrapStage = "cleanup"
	StageGroups      BootstrapStage = "groups"
	StagePermissions BootstrapStage = "permissions"
	StageSuperuser   BootstrapStage = "superuser"
)

var stageMessages = map[BootstrapStage]string{
	StageCleanup:     "清理现有数据失败",
	StageGroups:      "创建用户组失败",
	StagePermissions: "设置权限失败",
	StageSuperuser:   "创建管理员用户失败",
}

// BootstrapError 初始化失败，包含失败阶段和清理结果
type BootstrapError struct {
	Stage      BootstrapStage
	Err        error
	CleanupErr error // 失败后清理数据的错误，清理成功时为 nil
}

func (e *BootstrapError) Error() string {
	msg := fmt.Sprintf("%s：%v", stageMessages[e.Stage], e.Err)
	if e.CleanupErr != nil {
		msg += fmt.Sprintf("；清理数据失败：%v", e.CleanupErr)
	}
	return msg
}

func (e *BootstrapError) Unwrap() error { return e.Err }

// BootstrapConfig 初始化配置
type BootstrapConfig struct {
	Secret        string // 为空时禁用初始化
	AdminUsername string
	AdminPassword string
	AdminEmail    string
}

// BootstrapResult 初始化结果
type BootstrapResult struct {
	AdminUsername string `json:"admin_username"`
	AdminPassword string `json:"admin_password"`
}

// BootstrapService 系统初始化服务接口
type BootstrapService interface {
	// Initialize 清空用户和用户组，重建默认用户组、权限和超级管理员
	Initialize(ctx context.Context, secret string) (*BootstrapResult, error)
	// PromoteSuperuser 将用户设为超级用户并加入超级管理员组
	PromoteSuperuser(ctx context.Context, username string) (*model.User, error)
}

type bootstrapService struct {
	config    BootstrapConfig
	userRepo  repository.UserRepository
	groupRepo repository.GroupRepository
	permRepo  repository.PermissionRepository
	log       *logging.Pipeline
}

// NewBootstrapService 创建系统初始化服务
func NewBootstrapService(cfg BootstrapConfig, userRepo repository.UserRepository, groupRepo repository.GroupRepository, permRepo repository.PermissionRepository, log *logging.Pipeline) BootstrapService {
	if cfg.AdminUsername == "" {
		cfg.AdminUsername = "admin"
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = "admin"
	}
	if cfg.AdminEmail == "" {
		cfg.AdminEmail = "admin@example.com"
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &bootstrapService{
		config:    cfg,
		userRepo:  userRepo,
		groupRepo: groupRepo,
		permRepo:  permRepo,
		log:       log.Named("bootstrap"),
	}
}

func (s *bootstrapService) Initialize(ctx context.Context, secret string) (*BootstrapResult, error) {
	s.log.Security(ctx, "系统初始化请求")

	if s.config.Secret == "" {
		s.log.Security(ctx, "系统初始化失败 - 未配置初始化密钥")
		return nil, ErrBootstrapDisabled
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.config.Secret)) != 1 {
		s.log.Security(ctx, "系统初始化失败 - 密码错误")
		return nil, ErrBootstrapSecret
	}

	s.log.Operation(ctx, "开始系统初始化...")
	if err := s.run(ctx); err != nil {
		return nil, err
	}

	s.log.Audit(ctx, logging.ContextSystem, "系统初始化完成",
		zap.String("admin_username", s.config.AdminUsername))
	return &BootstrapResult{
		AdminUsername: s.config.AdminUsername,
		AdminPassword: s.config.AdminPassword,
	}, nil
}

// run 依次执行各阶段，失败时清理已写入的数据
func (s *bootstrapService) run(ctx context.Context) error {
	groups := make(map[string]*model.Group)

	stages := []struct {
		stage BootstrapStage
		fn    func(context.Context) error
	}{
		{StageCleanup, s.cleanup},
		{StageGroups, func(ctx context.Context) error { return s.createGroups(ctx, groups) }},
		{StagePermissions, func(ctx context.Context) error { return s.assignPermissions(ctx, groups) }},
		{StageSuperuser, func(ctx context.Context) error { return s.createSuperuser(ctx, groups[model.GroupSuperAdmin]) }},
	}

	for _, st := range stages {
		if err := st.fn(ctx); err != nil {
			bErr := &BootstrapError{Stage: st.stage, Err: err}
			s.log.Error(ctx, stageMessages[st.stage], err, zap.String("stage", string(st.stage)))

			// 清理阶段本身失败时不再重复清理
			if st.stage != StageCleanup {
				s.log.Warn(ctx, "尝试清理初始化过程中的数据...")
				if cErr := s.cleanup(ctx); cErr != nil {
					bErr.CleanupErr = cErr
					s.log.Error(ctx, "初始化和清理均失败", cErr)
				} else {
					s.log.Operation(ctx, "数据清理完成")
				}
			}
			return bErr
		}
	}
	return nil
}

func (s *bootstrapService) cleanup(ctx context.Context) error {
	userCount, err := s.userRepo.Count(ctx, nil)
	if err != nil {
		return err
	}
	groupCount, err := s.groupRepo.Count(ctx)
	if err != nil {
		return err
	}
	s.log.Operation(ctx, "清理现有数据", zap.Int64("users", userCount), zap.Int64("groups", groupCount))

	if err := s.userRepo.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.groupRepo.DeleteAll(ctx); err != nil {
		return err
	}
	s.log.Operation(ctx, "现有数据清理完成")
	return nil
}

func (s *bootstrapService) createGroups(ctx context.Context, groups map[string]*model.Group) error {
	for _, name := range model.DefaultGroups() {
		group := &model.Group{Name: name}
		if err := s.groupRepo.Create(ctx, group); err != nil {
			return translate(err)
		}
		groups[name] = group
	}
	s.log.Operation(ctx, "用户组创建完成: 超级管理员, 管理员, 普通用户")
	return nil
}

func (s *bootstrapService) assignPermissions(ctx context.Context, groups map[string]*model.Group) error {
	if _, err := s.permRepo.EnsureDefaults(ctx); err != nil {
		return err
	}
	for name, codes := range model.DefaultGroupPermissions() {
		group, ok := groups[name]
		if !ok {
			return fmt.Errorf("用户组 %s 未创建", name)
		}
		perms, err := s.permRepo.ListByCodes(ctx, codes)
		if err != nil {
			return err
		}
		if err := s.groupRepo.SetPermissions(ctx, group.ID, perms); err != nil {
			return err
		}
		group.Permissions = perms
		s.log.Debug(ctx, name+"权限设置完成", zap.Int("count", len(perms)))
	}
	s.log.Operation(ctx, "用户组权限设置完成")
	return nil
}

func (s *bootstrapService) createSuperuser(ctx context.Context, group *model.Group) error {
	if group == nil {
		return errors.New("超级管理员组未创建")
	}
	user := &model.User{
		Username:    s.config.AdminUsername,
		Email:       s.config.AdminEmail,
		IsActive:    true,
		IsSuperuser: true,
		DateJoined:  time.Now(),
		Groups:      []model.Group{*group},
	}
	if err := user.SetPassword(s.config.AdminPassword); err != nil {
		return err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return translate(err)
	}
	s.log.Operation(ctx, "超级管理员用户创建完成 - 用户名: "+user.Username+", 邮箱: "+user.Email)
	return nil
}

func (s *bootstrapService) PromoteSuperuser(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, translate(err)
	}
	group, err := s.groupRepo.GetByName(ctx, model.GroupSuperAdmin)
	if err != nil {
		return nil, translate(err)
	}

	user.IsSuperuser = true
	user.IsActive = true
	user.Groups = []model.Group{*group}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, translate(err)
	}

	s.log.Audit(ctx, logging.ContextSystem, "用户已设为超级管理员: "+user.Username, zap.String("user_id", user.ID))
	return user, nil
}
