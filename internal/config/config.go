package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/freightbid/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
	Auction  AuctionConfig  `mapstructure:"auction"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // sqlite / postgres
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig 外部签发令牌的校验配置
type JWTConfig struct {
	SecretKey string `mapstructure:"secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	BidRateLimit RateLimitConfig `mapstructure:"bid_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
}

// AuctionConfig 竞价时钟与扫描配置
type AuctionConfig struct {
	DefaultDurationMinutes int `mapstructure:"default_duration_minutes"`
	TrailingWindowMinutes  int `mapstructure:"trailing_window_minutes"`
	ExtensionMinutes       int `mapstructure:"extension_minutes"`
	MaxExtensionMinutes    int `mapstructure:"max_extension_minutes"`
	SweepIntervalSeconds   int `mapstructure:"sweep_interval_seconds"`
	SweepBatchSize         int `mapstructure:"sweep_batch_size"`
	// 截止后仍未授标的最长等待时间，0 表示不启用
	AwardDeadlineMinutes int `mapstructure:"award_deadline_minutes"`
}

// TrailingWindow 尾段窗口
func (c AuctionConfig) TrailingWindow() time.Duration {
	return time.Duration(c.TrailingWindowMinutes) * time.Minute
}

// Extension 单次延时
func (c AuctionConfig) Extension() time.Duration {
	return time.Duration(c.ExtensionMinutes) * time.Minute
}

// MaxExtension 累计延时上限
func (c AuctionConfig) MaxExtension() time.Duration {
	return time.Duration(c.MaxExtensionMinutes) * time.Minute
}

// SweepInterval 过期扫描间隔
func (c AuctionConfig) SweepInterval() time.Duration {
	if c.SweepIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// AwardDeadline 授标截止等待时间
func (c AuctionConfig) AwardDeadline() time.Duration {
	return time.Duration(c.AwardDeadlineMinutes) * time.Minute
}

// PaymentConfig 授标后结算协作方配置
type PaymentConfig struct {
	SettlementURL string `mapstructure:"settlement_url"`
	Secret        string `mapstructure:"secret"`
	TimeoutMS     int    `mapstructure:"timeout_ms"`
}

// RealtimeConfig WebSocket 推送配置
type RealtimeConfig struct {
	ReadBufferSize      int `mapstructure:"read_buffer_size"`
	WriteBufferSize     int `mapstructure:"write_buffer_size"`
	PingIntervalSeconds int `mapstructure:"ping_interval_seconds"`
	SendBufferSize      int `mapstructure:"send_buffer_size"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../") // 从 cmd/server 运行
	v.AddConfigPath("./etc")

	SetDefaults(v)

	// 环境变量支持，例如 auction.extension_minutes -> AUCTION_EXTENSION_MINUTES
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	return &cfg
}

// SetDefaults 写入默认配置
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.level", "")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "freightbid.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/freightbid.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "fb")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"critical": 6,
		"default":  3,
		"low":      1,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Authorization",
		"X-Request-ID",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.bid_rate_limit.window_seconds", 10)
	v.SetDefault("security.bid_rate_limit.max_attempts", 20)
	v.SetDefault("auction.default_duration_minutes", 60)
	v.SetDefault("auction.trailing_window_minutes", 5)
	v.SetDefault("auction.extension_minutes", 5)
	v.SetDefault("auction.max_extension_minutes", 30)
	v.SetDefault("auction.sweep_interval_seconds", 30)
	v.SetDefault("auction.sweep_batch_size", 100)
	v.SetDefault("auction.award_deadline_minutes", 0)
	v.SetDefault("payment.settlement_url", "")
	v.SetDefault("payment.secret", "")
	v.SetDefault("payment.timeout_ms", 5000)
	v.SetDefault("realtime.read_buffer_size", 1024)
	v.SetDefault("realtime.write_buffer_size", 1024)
	v.SetDefault("realtime.ping_interval_seconds", 30)
	v.SetDefault("realtime.send_buffer_size", 32)
}
