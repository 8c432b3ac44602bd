package config

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 CONSOLE_BOOTSTRAP_SECRET
const EnvPrefix = "CONSOLE"

var (
	current *Config
	mu      sync.RWMutex
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Session   SessionConfig   `mapstructure:"session"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	LoginURL     string        `mapstructure:"login_url"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	LogLevel string         `mapstructure:"log_level"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// MySQLConfig MySQL 配置
type MySQLConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	DBName    string `mapstructure:"dbname"`
	Charset   string `mapstructure:"charset"`
	ParseTime bool   `mapstructure:"parse_time"`
	Loc       string `mapstructure:"loc"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SessionConfig 会话配置
type SessionConfig struct {
	Secret     string        `mapstructure:"secret"`      // Cookie 签名密钥
	CookieName string        `mapstructure:"cookie_name"` // Cookie 名称
	Expiry     time.Duration `mapstructure:"expiry"`      // 会话有效期
	Secure     bool          `mapstructure:"secure"`      // 仅 HTTPS 传输
}

// BootstrapConfig 系统初始化配置
// Secret 为空时初始化接口处于关闭状态
type BootstrapConfig struct {
	Secret        string `mapstructure:"secret"`
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
	AdminEmail    string `mapstructure:"admin_email"`
}

// LogConfig 日志配置
type LogConfig struct {
	Dir           string        `mapstructure:"dir"`
	Level         string        `mapstructure:"level"`
	Console       bool          `mapstructure:"console"`
	BufferSize    int           `mapstructure:"buffer_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	App           RotateConfig  `mapstructure:"app"`
	Security      RotateConfig  `mapstructure:"security"`
	Audit         RotateConfig  `mapstructure:"audit"`
	Error         RotateConfig  `mapstructure:"error"`
}

// RotateConfig 单个日志文件的轮转策略
type RotateConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Load 加载配置
// 依次查找 ./configs/config.yaml 与 ./config.yaml，不存在时使用默认值
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return unmarshal(v)
}

// LoadFromFile 从指定文件加载配置
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

// Get 获取最近一次加载的配置
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func newViper() *viper.Viper {
	v := viper.New()

	// 支持环境变量覆盖，server.addr -> CONSOLE_SERVER_ADDR
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	mu.Lock()
	current = &cfg
	mu.Unlock()

	return &cfg, nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.login_url", "/login")

	// 数据库默认配置
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "admin_console")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.user", "root")
	v.SetDefault("database.mysql.dbname", "admin_console")
	v.SetDefault("database.mysql.charset", "utf8mb4")
	v.SetDefault("database.mysql.parse_time", true)
	v.SetDefault("database.mysql.loc", "Local")

	// Redis 默认配置
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// 会话默认配置
	v.SetDefault("session.cookie_name", "sessionid")
	v.SetDefault("session.expiry", "336h")
	v.SetDefault("session.secure", false)

	// 初始化默认配置，secret 默认为空即关闭
	v.SetDefault("bootstrap.secret", "")
	v.SetDefault("bootstrap.admin_username", "admin")
	v.SetDefault("bootstrap.admin_password", "admin")
	v.SetDefault("bootstrap.admin_email", "admin@example.com")

	// 日志默认配置
	v.SetDefault("log.dir", "logs")
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.console", true)
	v.SetDefault("log.buffer_size", 256*1024)
	v.SetDefault("log.flush_interval", "1s")

	v.SetDefault("log.app.filename", "app.log")
	v.SetDefault("log.app.max_size_mb", 500)
	v.SetDefault("log.app.max_age_days", 30)
	v.SetDefault("log.app.compress", true)

	v.SetDefault("log.security.filename", "security.log")
	v.SetDefault("log.security.max_size_mb", 100)
	v.SetDefault("log.security.max_age_days", 90)
	v.SetDefault("log.security.compress", true)

	v.SetDefault("log.audit.filename", "audit.log")
	v.SetDefault("log.audit.max_size_mb", 100)
	v.SetDefault("log.audit.max_age_days", 180)
	v.SetDefault("log.audit.compress", true)

	v.SetDefault("log.error.filename", "error.log")
	v.SetDefault("log.error.max_size_mb", 100)
	v.SetDefault("log.error.max_age_days", 30)
	v.SetDefault("log.error.compress", true)
}
