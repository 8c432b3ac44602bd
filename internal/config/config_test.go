package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoad 测试配置加载
func TestLoad(t *testing.T) {
	// 创建临时配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
server:
  addr: ":9090"
  mode: "release"
  read_timeout: "15s"
  write_timeout: "15s"
  cors_origins:
    - "http://console.local"

database:
  driver: "postgres"
  postgres:
    host: "testhost"
    port: 5433
    user: "testuser"
    password: "testpass"
    dbname: "testdb"
    sslmode: "require"

redis:
  addr: "testredis:6380"
  password: "redispass"
  db: 1

session:
  secret: "cookie-secret"
  expiry: "1h"

bootstrap:
  secret: "init-secret"
  admin_username: "root"

log:
  dir: "/var/log/console"
  security:
    max_age_days: 365
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("创建测试配置文件失败: %v", err)
	}

	// 测试从文件加载配置
	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	// 验证服务器配置
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr 期望 :9090, 实际 %s", cfg.Server.Addr)
	}
	if cfg.Server.Mode != "release" {
		t.Errorf("Server.Mode 期望 release, 实际 %s", cfg.Server.Mode)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "http://console.local" {
		t.Errorf("Server.CORSOrigins 期望 [http://console.local], 实际 %v", cfg.Server.CORSOrigins)
	}

	// 验证数据库配置
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver 期望 postgres, 实际 %s", cfg.Database.Driver)
	}
	if cfg.Database.Postgres.Host != "testhost" {
		t.Errorf("Database.Postgres.Host 期望 testhost, 实际 %s", cfg.Database.Postgres.Host)
	}
	if cfg.Database.Postgres.Port != 5433 {
		t.Errorf("Database.Postgres.Port 期望 5433, 实际 %d", cfg.Database.Postgres.Port)
	}

	// 验证 Redis 配置
	if cfg.Redis.Addr != "testredis:6380" {
		t.Errorf("Redis.Addr 期望 testredis:6380, 实际 %s", cfg.Redis.Addr)
	}
	if cfg.Redis.DB != 1 {
		t.Errorf("Redis.DB 期望 1, 实际 %d", cfg.Redis.DB)
	}

	// 验证会话配置
	if cfg.Session.Secret != "cookie-secret" {
		t.Errorf("Session.Secret 期望 cookie-secret, 实际 %s", cfg.Session.Secret)
	}
	if cfg.Session.Expiry != time.Hour {
		t.Errorf("Session.Expiry 期望 1h, 实际 %v", cfg.Session.Expiry)
	}
	if cfg.Session.CookieName != "sessionid" {
		t.Errorf("Session.CookieName 期望 sessionid, 实际 %s", cfg.Session.CookieName)
	}

	// 验证初始化配置
	if cfg.Bootstrap.Secret != "init-secret" {
		t.Errorf("Bootstrap.Secret 期望 init-secret, 实际 %s", cfg.Bootstrap.Secret)
	}
	if cfg.Bootstrap.AdminUsername != "root" {
		t.Errorf("Bootstrap.AdminUsername 期望 root, 实际 %s", cfg.Bootstrap.AdminUsername)
	}
	if cfg.Bootstrap.AdminPassword != "admin" {
		t.Errorf("Bootstrap.AdminPassword 期望默认 admin, 实际 %s", cfg.Bootstrap.AdminPassword)
	}

	// 验证日志配置
	if cfg.Log.Dir != "/var/log/console" {
		t.Errorf("Log.Dir 期望 /var/log/console, 实际 %s", cfg.Log.Dir)
	}
	if cfg.Log.Security.MaxAgeDays != 365 {
		t.Errorf("Log.Security.MaxAgeDays 期望 365, 实际 %d", cfg.Log.Security.MaxAgeDays)
	}
	if cfg.Log.Security.Filename != "security.log" {
		t.Errorf("Log.Security.Filename 期望默认 security.log, 实际 %s", cfg.Log.Security.Filename)
	}
}

// TestLoadDefaults 测试默认配置
func TestLoadDefaults(t *testing.T) {
	// 创建空配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(""), 0644); err != nil {
		t.Fatalf("创建测试配置文件失败: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	// 验证默认值
	if cfg.Server.Addr != ":8080" {
		t.Errorf("默认 Server.Addr 期望 :8080, 实际 %s", cfg.Server.Addr)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("默认 Database.Driver 期望 postgres, 实际 %s", cfg.Database.Driver)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("默认 Redis.Addr 期望 localhost:6379, 实际 %s", cfg.Redis.Addr)
	}
	if cfg.Bootstrap.Secret != "" {
		t.Errorf("默认 Bootstrap.Secret 期望为空, 实际 %s", cfg.Bootstrap.Secret)
	}
	if cfg.Log.App.MaxSizeMB != 500 || cfg.Log.App.MaxAgeDays != 30 {
		t.Errorf("默认 Log.App 期望 500MB/30 天, 实际 %d/%d", cfg.Log.App.MaxSizeMB, cfg.Log.App.MaxAgeDays)
	}
	if cfg.Log.Audit.MaxAgeDays != 180 {
		t.Errorf("默认 Log.Audit.MaxAgeDays 期望 180, 实际 %d", cfg.Log.Audit.MaxAgeDays)
	}
}

// TestLoadEnvOverride 测试环境变量覆盖
func TestLoadEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("bootstrap:\n  secret: \"from-file\"\n"), 0644); err != nil {
		t.Fatalf("创建测试配置文件失败: %v", err)
	}

	t.Setenv("CONSOLE_BOOTSTRAP_SECRET", "from-env")
	t.Setenv("CONSOLE_SERVER_ADDR", ":7070")

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Bootstrap.Secret != "from-env" {
		t.Errorf("Bootstrap.Secret 期望 from-env, 实际 %s", cfg.Bootstrap.Secret)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Server.Addr 期望 :7070, 实际 %s", cfg.Server.Addr)
	}
}

// TestGet 测试获取全局配置
func TestGet(t *testing.T) {
	// 创建临时配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
server:
  addr: ":8888"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("创建测试配置文件失败: %v", err)
	}

	// 加载配置
	_, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	// 获取全局配置
	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() 返回 nil")
	}
	if cfg.Server.Addr != ":8888" {
		t.Errorf("Get().Server.Addr 期望 :8888, 实际 %s", cfg.Server.Addr)
	}
}

// TestLoadFromFileNotFound 测试加载不存在的配置文件
func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("期望返回错误，但没有")
	}
}
