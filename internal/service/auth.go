package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pu-ac-cn/admin-console/internal/clientinfo"
	"github.com/pu-ac-cn/admin-console/internal/logging"
	"github.com/pu-ac-cn/admin-console/internal/model"
	"github.com/pu-ac-cn/admin-console/internal/repository"
	"go.uber.org/zap"
)

// ErrSessionInvalid 会话不存在或已过期
var ErrSessionInvalid = newError(ErrAuthenticationRequired, "会话已失效，请重新登录")

// LoginResult 登录结果
type LoginResult struct {
	User    *model.User
	Session *model.Session
	Token   string // 写入 Cookie 的会话令牌
}

// RegisterInput 注册参数
type RegisterInput struct {
	Username  string
	Email     string
	Password1 string
	Password2 string
}

// AuthService 认证服务接口
type AuthService interface {
	// Login 验证凭据并创建会话
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	// Logout 删除会话
	Logout(ctx context.Context, sessionID string) error
	// Register 注册普通用户并登录
	Register(ctx context.Context, in *RegisterInput) (*LoginResult, error)
	// ResolvePrincipal 根据会话令牌加载当前用户
	ResolvePrincipal(ctx context.Context, token string) (*Principal, *model.Session, error)
}

// authService 认证服务实现
type authService struct {
	userRepo  repository.UserRepository
	groupRepo repository.GroupRepository
	sessions  SessionService
	tokens    TokenService
	log       *logging.Pipeline
}

// NewAuthService 创建认证服务
func NewAuthService(userRepo repository.UserRepository, groupRepo repository.GroupRepository, sessions SessionService, tokens TokenService, log *logging.Pipeline) AuthService {
	if log == nil {
		log = logging.NewNop()
	}
	return &authService{
		userRepo:  userRepo,
		groupRepo: groupRepo,
		sessions:  sessions,
		tokens:    tokens,
		log:       log.Named("auth"),
	}
}

// Login 验证凭据并创建会话
func (s *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	s.log.Operation(ctx, "用户尝试登录: "+username)

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			s.log.Error(ctx, "用户登录失败: "+username, err)
			return nil, wrap(err, "获取用户失败")
		}
		s.log.Security(ctx, "用户登录失败: "+username+" - 用户名或密码错误")
		return nil, ErrInvalidCredentials
	}
	if !user.VerifyPassword(password) {
		s.log.Security(ctx, "用户登录失败: "+username+" - 用户名或密码错误", zap.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		s.log.Security(ctx, "用户登录失败: "+username+" - 用户已被禁用", zap.String("user_id", user.ID))
		return nil, ErrUserDisabled
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		s.log.Error(ctx, "用户登录失败: "+username, err)
		return nil, err
	}
	s.log.Operation(ctx, "用户登录成功: "+username, zap.String("user_id", user.ID))
	return result, nil
}

// Logout 删除会话
func (s *authService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.log.Error(ctx, "用户登出失败", err)
		return err
	}
	s.log.Operation(ctx, "用户已登出", zap.String("session_id", sessionID))
	return nil
}

// Register 注册普通用户并登录
func (s *authService) Register(ctx context.Context, in *RegisterInput) (*LoginResult, error) {
	username := strings.TrimSpace(in.Username)
	s.log.Operation(ctx, "用户尝试注册: "+username)

	if err := s.validateRegister(ctx, username, in); err != nil {
		s.log.Warn(ctx, "用户注册失败: "+username+" - "+err.Error())
		return nil, err
	}

	user := &model.User{
		Username:   username,
		Email:      strings.TrimSpace(in.Email),
		IsActive:   true,
		DateJoined: time.Now(),
	}
	if err := user.SetPassword(in.Password1); err != nil {
		err = wrap(err, "密码加密失败")
		s.log.Error(ctx, "用户注册失败: "+username, err)
		return nil, err
	}

	group, err := s.groupRepo.GetByName(ctx, model.GroupRegular)
	switch {
	case err == nil:
		user.Groups = []model.Group{*group}
	case errors.Is(err, repository.ErrGroupNotFound):
		// 系统尚未初始化时没有普通用户组
		s.log.Warn(ctx, "普通用户组不存在，注册用户未加入用户组: "+username)
	default:
		s.log.Error(ctx, "用户注册失败: "+username, err)
		return nil, wrap(err, "获取用户组失败")
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		err = wrap(err, "保存用户失败")
		if !isKnown(err) {
			s.log.Error(ctx, "用户注册失败: "+username, err)
		}
		return nil, err
	}
	s.log.Audit(ctx, logging.ContextAuth, "用户注册成功: "+username, zap.String("user_id", user.ID))

	result, err := s.startSession(ctx, user)
	if err != nil {
		s.log.Error(ctx, "注册后自动登录失败: "+username, err)
		return nil, err
	}
	return result, nil
}

func (s *authService) validateRegister(ctx context.Context, username string, in *RegisterInput) error {
	if username == "" {
		return ErrUsernameEmpty
	}
	if in.Password1 == "" {
		return ErrPasswordEmpty
	}
	if in.Password1 != in.Password2 {
		return ErrPasswordMismatch
	}
	if err := checkPassword(in.Password1); err != nil {
		return err
	}
	exists, err := s.userRepo.ExistsByUsername(ctx, username, "")
	if err != nil {
		return wrap(err, "检查用户名失败")
	}
	if exists {
		return ErrUsernameExists
	}
	return nil
}

// ResolvePrincipal 根据会话令牌加载当前用户
func (s *authService) ResolvePrincipal(ctx context.Context, token string) (*Principal, *model.Session, error) {
	sessionID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil, err
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
			return nil, nil, ErrSessionInvalid
		}
		return nil, nil, err
	}
	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrSessionInvalid
		}
		return nil, nil, wrap(err, "获取用户失败")
	}
	if !user.IsActive {
		return nil, nil, ErrUserDisabled
	}
	return NewPrincipal(user), session, nil
}

// startSession 更新最后登录时间，创建会话并签发令牌
func (s *authService) startSession(ctx context.Context, user *model.User) (*LoginResult, error) {
	now := time.Now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, wrap(err, "更新登录时间失败")
	}
	user.LastLogin = &now

	session := &model.Session{UserID: user.ID}
	if info, ok := clientinfo.FromContext(ctx); ok {
		session.IPAddress = info.IP
		session.UserAgent = info.UserAgent
		session.DeviceInfo = info.Summary()
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	token, err := s.tokens.Sign(session)
	if err != nil {
		return nil, wrap(err, "签发会话令牌失败")
	}
	return &LoginResult{User: user, Session: session, Token: token}, nil
}
