package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pu-ac-cn/admin-console/internal/model"
	"github.com/redis/go-redis/v9"
)

var (
	ErrSessionNotFound = errors.New("会话不存在")
	ErrSessionExpired  = errors.New("会话已过期")
)

// SessionService 会话服务接口
type SessionService interface {
	Create(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, sessionID string) (*model.Session, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteByUserID(ctx context.Context, userID string) error
	ListByUserID(ctx context.Context, userID string) ([]*model.Session, error)
}

// SessionServiceConfig 会话服务配置
type SessionServiceConfig struct {
	SessionExpiry time.Duration // 会话有效期，默认 14 天
}

type sessionService struct {
	redis  *redis.Client
	config *SessionServiceConfig
}

// NewSessionService 创建会话服务
func NewSessionService(redisClient *redis.Client, config *SessionServiceConfig) SessionService {
	if config == nil {
		config = &SessionServiceConfig{}
	}
	if config.SessionExpiry == 0 {
		config.SessionExpiry = 14 * 24 * time.Hour
	}
	return &sessionService{
		redis:  redisClient,
		config: config,
	}
}

// Redis key 前缀
const (
	sessionKeyPrefix   = "console:session:"
	userSessionsPrefix = "console:user_sessions:"
)

// Create 创建会话
func (s *sessionService) Create(ctx context.Context, session *model.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = time.Now().Add(s.config.SessionExpiry)
	}
	session.CreatedAt = time.Now()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return errors.New("会话过期时间无效")
	}

	userKey := userSessionsPrefix + session.UserID
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKeyPrefix+session.ID, data, ttl)
		pipe.SAdd(ctx, userKey, session.ID)
		// 用户会话索引比最长会话稍长
		pipe.Expire(ctx, userKey, s.config.SessionExpiry+time.Hour)
		return nil
	})
	if err != nil {
		return fmt.Errorf("存储会话失败: %w", err)
	}
	return nil
}

// Get 获取会话
func (s *sessionService) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	key := sessionKeyPrefix + sessionID
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("获取会话失败: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("反序列化会话失败: %w", err)
	}

	if session.IsExpired() {
		s.redis.Del(ctx, key)
		s.redis.SRem(ctx, userSessionsPrefix+session.UserID, sessionID)
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// Delete 删除会话
func (s *sessionService) Delete(ctx context.Context, sessionID string) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
		return err
	}

	if err := s.redis.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("删除会话失败: %w", err)
	}

	if session != nil {
		s.redis.SRem(ctx, userSessionsPrefix+session.UserID, sessionID)
	}

	return nil
}

// DeleteByUserID 删除用户的所有会话
func (s *sessionService) DeleteByUserID(ctx context.Context, userID string) error {
	userKey := userSessionsPrefix + userID
	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("获取用户会话列表失败: %w", err)
	}

	keys := make([]string, 0, len(sessionIDs)+1)
	for _, sessionID := range sessionIDs {
		keys = append(keys, sessionKeyPrefix+sessionID)
	}
	keys = append(keys, userKey)

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("删除用户会话失败: %w", err)
	}
	return nil
}

// ListByUserID 列出用户的所有会话
func (s *sessionService) ListByUserID(ctx context.Context, userID string) ([]*model.Session, error) {
	userKey := userSessionsPrefix + userID
	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		return nil, fmt.Errorf("获取用户会话列表失败: %w", err)
	}

	var sessions []*model.Session
	for _, sessionID := range sessionIDs {
		session, err := s.Get(ctx, sessionID)
		if err != nil {
			// 跳过已过期或不存在的会话
			if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
				s.redis.SRem(ctx, userKey, sessionID)
				continue
			}
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}
