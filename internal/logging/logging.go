// Package logging 日志管道
//
// 所有日志先进入同一个 zap.Logger，再按各自的级别与订阅条件分发到
// 控制台、应用日志、安全日志、审计日志和错误日志。
package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pu-ac-cn/admin-console/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Sinks 各日志流的输出目标，为 nil 的流不启用
type Sinks struct {
	Console  zapcore.WriteSyncer
	App      zapcore.WriteSyncer
	Security zapcore.WriteSyncer
	Audit    zapcore.WriteSyncer
	Error    zapcore.WriteSyncer
}

// Pipeline 日志管道
type Pipeline struct {
	base    *zap.Logger
	events  *zap.Logger
	closers []func() error
}

// New 根据配置创建日志管道
// 文件输出经 lumberjack 按大小轮转，并通过 BufferedWriteSyncer 异步落盘
func New(cfg *config.LogConfig) (*Pipeline, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}

	var closers []func() error
	file := func(rc config.RotateConfig, fallback string) zapcore.WriteSyncer {
		name := rc.Filename
		if name == "" {
			name = fallback
		}
		lj := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, name),
			MaxSize:    rc.MaxSizeMB,
			MaxAge:     rc.MaxAgeDays,
			MaxBackups: rc.MaxBackups,
			Compress:   rc.Compress,
			LocalTime:  true,
		}
		ws := &zapcore.BufferedWriteSyncer{
			WS:            zapcore.AddSync(lj),
			Size:          cfg.BufferSize,
			FlushInterval: cfg.FlushInterval,
		}
		// 先停止缓冲（会刷盘）再关闭文件
		closers = append(closers, ws.Stop, lj.Close)
		return ws
	}

	sinks := Sinks{
		App:      file(cfg.App, "app.log"),
		Security: file(cfg.Security, "security.log"),
		Audit:    file(cfg.Audit, "audit.log"),
		Error:    file(cfg.Error, "error.log"),
	}
	if cfg.Console {
		sinks.Console = zapcore.Lock(os.Stdout)
	}

	p := NewWithSinks(level, sinks)
	p.closers = closers
	return p, nil
}

// NewWithSinks 使用给定输出目标创建日志管道，写入为同步方式
func NewWithSinks(level zapcore.Level, sinks Sinks) *Pipeline {
	var cores []zapcore.Core

	if sinks.Console != nil {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEncoderConfig()),
			sinks.Console,
			atLeast(level, zapcore.InfoLevel),
		))
	}
	if sinks.App != nil {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEncoderConfig(false)),
			sinks.App,
			level,
		))
	}
	if sinks.Security != nil {
		cores = append(cores, &filterCore{
			Core:   zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig(false)), sinks.Security, level),
			accept: IsSecurityEvent,
		})
	}
	if sinks.Audit != nil {
		cores = append(cores, &filterCore{
			Core:   zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig(false)), sinks.Audit, level),
			accept: IsAuditEvent,
		})
	}
	if sinks.Error != nil {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEncoderConfig(true)),
			sinks.Error,
			atLeast(level, zapcore.ErrorLevel),
		))
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return fromLogger(base)
}

// NewNop 创建不输出任何内容的日志管道
func NewNop() *Pipeline {
	return fromLogger(zap.NewNop())
}

func fromLogger(base *zap.Logger) *Pipeline {
	return &Pipeline{
		base: base,
		// 跳过 Emit/helper 与 emit 两层调用
		events: base.WithOptions(zap.AddCallerSkip(2)),
	}
}

// Logger 返回底层 zap.Logger，用于访问日志等普通日志
func (p *Pipeline) Logger() *zap.Logger {
	return p.base
}

// Named 返回带组件名称的日志管道
func (p *Pipeline) Named(name string) *Pipeline {
	return &Pipeline{
		base:    p.base.Named(name),
		events:  p.events.Named(name),
		closers: p.closers,
	}
}

// Sync 刷新缓冲
func (p *Pipeline) Sync() error {
	return p.base.Sync()
}

// Close 刷新缓冲并关闭日志文件
func (p *Pipeline) Close() error {
	// 标准输出不支持 fsync，忽略同步错误
	_ = p.base.Sync()

	var errs []error
	for _, closeFn := range p.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

func atLeast(level, min zapcore.Level) zapcore.Level {
	if level < min {
		return min
	}
	return level
}

func fileEncoderConfig(withStack bool) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.MessageKey = "msg"
	cfg.FunctionKey = "func"
	if !withStack {
		cfg.StacktraceKey = zapcore.OmitKey
	}
	return cfg
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.FunctionKey = "func"
	cfg.StacktraceKey = zapcore.OmitKey
	return cfg
}
