package logging

import (
	"context"

	"github.com/pu-ac-cn/admin-console/internal/clientinfo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category 事件分类
type Category string

const (
	CategoryOperation Category = "operation"
	CategorySecurity  Category = "security"
	CategoryAudit     Category = "audit"
)

// 审计上下文
const (
	ContextUserManagement  = "user_management"
	ContextGroupManagement = "group_management"
	ContextSystem          = "system"
	ContextAuth            = "auth"
)

// 事件字段名
const (
	FieldCategory = "category"
	FieldOrigin   = "origin"
	FieldContext  = "context"
	FieldIP       = "ip"
	FieldClient   = "client"
)

// Event 日志事件
type Event struct {
	Level    zapcore.Level
	Category Category
	Origin   string // 事件来源，未设置时以 logger 名称和调用函数为准
	Message  string
	Context  string // 审计上下文，仅审计事件使用
	Fields   []zap.Field
}

// Emit 发出一个日志事件
// ctx 中的客户端信息会附加到事件上
func (p *Pipeline) Emit(ctx context.Context, ev Event) {
	p.emit(ctx, ev)
}

// Debug 调试信息，只进入应用日志
func (p *Pipeline) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	p.emit(ctx, Event{Level: zapcore.DebugLevel, Category: CategoryOperation, Message: msg, Fields: fields})
}

// Operation 操作日志
func (p *Pipeline) Operation(ctx context.Context, msg string, fields ...zap.Field) {
	p.emit(ctx, Event{Level: zapcore.InfoLevel, Category: CategoryOperation, Message: msg, Fields: fields})
}

// Warn 警告级别的操作日志
func (p *Pipeline) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	p.emit(ctx, Event{Level: zapcore.WarnLevel, Category: CategoryOperation, Message: msg, Fields: fields})
}

// Security 安全日志
func (p *Pipeline) Security(ctx context.Context, msg string, fields ...zap.Field) {
	p.emit(ctx, Event{Level: zapcore.WarnLevel, Category: CategorySecurity, Message: msg, Fields: fields})
}

// Audit 审计日志
func (p *Pipeline) Audit(ctx context.Context, auditContext, msg string, fields ...zap.Field) {
	p.emit(ctx, Event{Level: zapcore.InfoLevel, Category: CategoryAudit, Context: auditContext, Message: msg, Fields: fields})
}

// Error 错误日志，附带调用栈
func (p *Pipeline) Error(ctx context.Context, msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	p.emit(ctx, Event{Level: zapcore.ErrorLevel, Category: CategoryOperation, Message: msg, Fields: fields})
}

func (p *Pipeline) emit(ctx context.Context, ev Event) {
	ce := p.events.Check(ev.Level, ev.Message)
	if ce == nil {
		return
	}

	if ev.Category == "" {
		ev.Category = CategoryOperation
	}
	if ev.Category == CategoryAudit && ev.Context == "" {
		ev.Context = ContextUserManagement
	}

	fields := make([]zap.Field, 0, len(ev.Fields)+5)
	fields = append(fields, zap.String(FieldCategory, string(ev.Category)))
	if ev.Origin != "" {
		fields = append(fields, zap.String(FieldOrigin, ev.Origin))
	}
	if ev.Category == CategoryAudit {
		fields = append(fields, zap.String(FieldContext, ev.Context))
	}
	if info, ok := clientinfo.FromContext(ctx); ok {
		fields = append(fields, zap.String(FieldIP, info.IP), zap.String(FieldClient, info.Summary()))
	}
	fields = append(fields, ev.Fields...)

	ce.Write(fields...)
}
