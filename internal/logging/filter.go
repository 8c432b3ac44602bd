package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// securityKeywords 消息中包含这些关键字的事件同时写入安全日志
var securityKeywords = []string{
	"登录", "权限", "初始化", "删除", "密码",
	"login", "permission", "init", "delete", "password",
}

// filterCore 在写入前按事件内容决定是否接收
type filterCore struct {
	zapcore.Core
	accept  func(ent zapcore.Entry, fields []zapcore.Field) bool
	context []zapcore.Field
}

func (c *filterCore) With(fields []zapcore.Field) zapcore.Core {
	ctx := make([]zapcore.Field, 0, len(c.context)+len(fields))
	ctx = append(ctx, c.context...)
	ctx = append(ctx, fields...)
	return &filterCore{
		Core:    c.Core.With(fields),
		accept:  c.accept,
		context: ctx,
	}
}

// Check 必须注册自身而不是内部 core，否则 Write 会绕过过滤
func (c *filterCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *filterCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	all := fields
	if len(c.context) > 0 {
		all = make([]zapcore.Field, 0, len(c.context)+len(fields))
		all = append(all, c.context...)
		all = append(all, fields...)
	}
	if !c.accept(ent, all) {
		return nil
	}
	return c.Core.Write(ent, fields)
}

// categoryOf 返回事件分类，未携带分类字段时返回空
func categoryOf(fields []zapcore.Field) Category {
	for i := len(fields) - 1; i >= 0; i-- {
		if fields[i].Key == FieldCategory && fields[i].Type == zapcore.StringType {
			return Category(fields[i].String)
		}
	}
	return ""
}

// IsSecurityEvent 安全类事件，或消息中含安全关键字的事件
// 只判断经 Emit 发出的事件，第三方库的普通日志不参与关键字匹配
func IsSecurityEvent(ent zapcore.Entry, fields []zapcore.Field) bool {
	category := categoryOf(fields)
	if category == CategorySecurity {
		return true
	}
	if category == "" {
		return false
	}
	return HasSecurityKeyword(ent.Message)
}

// IsAuditEvent 只接收审计类事件
func IsAuditEvent(_ zapcore.Entry, fields []zapcore.Field) bool {
	return categoryOf(fields) == CategoryAudit
}

// HasSecurityKeyword 检查消息是否包含安全关键字，英文不区分大小写
func HasSecurityKeyword(msg string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range securityKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
