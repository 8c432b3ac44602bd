package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pu-ac-cn/admin-console/internal/model"
)

// 会话令牌相关错误
var (
	ErrInvalidToken = newError(ErrAuthenticationRequired, "无效的会话令牌")
	ErrTokenExpired = newError(ErrAuthenticationRequired, "会话令牌已过期")
)

const tokenIssuer = "admin-console"

// SessionClaims 会话 Cookie 中携带的声明
// Cookie 只是会话的句柄，会话数据保存在 Redis 中
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// TokenService 会话令牌服务
type TokenService interface {
	// Sign 为会话签发 Cookie 令牌
	Sign(session *model.Session) (string, error)
	// Parse 校验令牌并返回会话 ID
	Parse(tokenString string) (string, error)
}

type tokenService struct {
	secret []byte
}

// NewTokenService 创建会话令牌服务
// secret 为空时生成随机密钥，重启后已签发的 Cookie 失效
func NewTokenService(secret string) TokenService {
	key := []byte(secret)
	if len(key) == 0 {
		buf := make([]byte, 32)
		_, _ = rand.Read(buf)
		key = []byte(hex.EncodeToString(buf))
	}
	return &tokenService{secret: key}
}

func (s *tokenService) Sign(session *model.Session) (string, error) {
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
		SessionID: session.ID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *tokenService) Parse(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", ErrInvalidToken
	}
	return claims.SessionID, nil
}
