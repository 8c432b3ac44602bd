package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pu-ac-cn/admin-console/internal/config"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// Init 初始化数据库连接
// log 为空时使用 gorm 默认日志
func Init(cfg *config.DatabaseConfig, log *zap.Logger) error {
	dialector, err := Dialector(cfg)
	if err != nil {
		return err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: newLogger(log, cfg.LogLevel),
		// 唯一索引冲突转换为 gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	// 配置连接池
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("获取数据库连接池失败: %w", err)
	}

	// 设置连接池参数
	sqlDB.SetMaxIdleConns(10)           // 最大空闲连接数
	sqlDB.SetMaxOpenConns(100)          // 最大打开连接数
	sqlDB.SetConnMaxLifetime(time.Hour) // 连接最大生命周期

	db = conn
	return nil
}

// Dialector 根据配置构建数据库方言
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Postgres.Host,
			cfg.Postgres.Port,
			cfg.Postgres.User,
			cfg.Postgres.Password,
			cfg.Postgres.DBName,
			cfg.Postgres.SSLMode,
		)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
			cfg.MySQL.User,
			cfg.MySQL.Password,
			cfg.MySQL.Host,
			cfg.MySQL.Port,
			cfg.MySQL.DBName,
			cfg.MySQL.Charset,
			cfg.MySQL.ParseTime,
			cfg.MySQL.Loc,
		)
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}
}

// GetDB 获取数据库实例
func GetDB() *gorm.DB {
	return db
}

// Close 关闭数据库连接
func Close() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping 测试数据库连接
func Ping(ctx context.Context) error {
	if db == nil {
		return fmt.Errorf("数据库未初始化")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(models ...interface{}) error {
	if db == nil {
		return fmt.Errorf("数据库未初始化")
	}
	return db.AutoMigrate(models...)
}

// zapWriter 将 gorm 日志写入 zap
type zapWriter struct {
	sugar *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.sugar.Debugf(format, args...)
}

func newLogger(log *zap.Logger, level string) logger.Interface {
	lvl := ParseLogLevel(level)
	if log == nil {
		return logger.Default.LogMode(lvl)
	}
	return logger.New(zapWriter{sugar: log.Named("gorm").Sugar()}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
	})
}

// ParseLogLevel 解析 gorm 日志级别，未知取值按 warn 处理
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
