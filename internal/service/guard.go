package service

import (
	"context"
	"errors"

	"github.com/pu-ac-cn/admin-console/internal/logging"
	"go.uber.org/zap"
)

// guard 业务服务共用的授权与日志辅助
type guard struct {
	policy *Policy
	log    *logging.Pipeline
}

func newGuard(policy *Policy, log *logging.Pipeline, name string) guard {
	if policy == nil {
		policy = NewPolicy()
	}
	if log == nil {
		log = logging.NewNop()
	}
	return guard{policy: policy, log: log.Named(name)}
}

// authorize 执行不依赖目标用户组的授权检查
func (s guard) authorize(ctx context.Context, actor *Principal, action Action, target Target) error {
	d := s.policy.CanAct(actor, action, target)
	if !d.Allowed {
		s.logDenied(ctx, actor, action, d)
	}
	return d.Err()
}

func (s guard) logDenied(ctx context.Context, actor *Principal, action Action, d Decision) {
	fields := []zap.Field{zap.String("action", string(action)), zap.String("rule", d.Rule)}
	if errors.Is(d.Reason, ErrAuthenticationRequired) {
		s.log.Warn(ctx, "未登录用户请求操作", fields...)
		return
	}
	s.log.Security(ctx, "权限检查未通过: "+actor.Username()+" - "+d.Reason.Error(), fields...)
}

// reject 记录业务校验失败
func (s guard) reject(ctx context.Context, action, username string, err error) error {
	s.log.Operation(ctx, action+": "+username+" - "+err.Error())
	return err
}

// fail 记录意外错误
func (s guard) fail(ctx context.Context, msg string, err error) error {
	s.log.Error(ctx, msg, err)
	return err
}

// report 已知类别的错误按业务失败记录，其余按意外错误记录
func (s guard) report(ctx context.Context, action, subject string, err error) error {
	if isKnown(err) {
		return s.reject(ctx, action, subject, err)
	}
	return s.fail(ctx, action+": "+subject, err)
}
