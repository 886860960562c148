package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
	Generation GenerationConfig `mapstructure:"generation"`
	Output     OutputConfig     `mapstructure:"output"`
	Feature    FeatureConfig    `mapstructure:"feature"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	BodyLimitMB  int64      `mapstructure:"body_limit_mb"`  // 上传名单的请求体上限
	RateLimit    int        `mapstructure:"rate_limit"`     // 每个 IP 每分钟生成次数，0 表示不限
	ReadTimeout  int        `mapstructure:"read_timeout"`   // 秒
	WriteTimeout int        `mapstructure:"write_timeout"`  // 秒
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig 运行历史数据库配置（postgres 或 sqlite）
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Path            string `mapstructure:"path"` // sqlite 文件路径
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
	LogLevel        string `mapstructure:"log_level"`          // gorm 日志级别：silent / error / warn / info
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（产物存储与限流）
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 接口访问控制；APIKeys 为空时不校验
type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
	Header  string   `mapstructure:"header"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GenerationConfig 考勤合成参数
type GenerationConfig struct {
	ClockInHour    int           `mapstructure:"clock_in_hour"`
	ClockInMinMin  int           `mapstructure:"clock_in_min_minute"`
	ClockInMinMax  int           `mapstructure:"clock_in_max_minute"`
	ClockOutHour   int           `mapstructure:"clock_out_hour"`
	ClockOutMinMin int           `mapstructure:"clock_out_min_minute"`
	ClockOutMinMax int           `mapstructure:"clock_out_max_minute"`
	AbsentMin      int           `mapstructure:"absent_min"`
	AbsentMax      int           `mapstructure:"absent_max"`
	WeeklyOff      string        `mapstructure:"weekly_off"`
	Holidays       []string      `mapstructure:"holidays"` // YYYY-MM-DD
	OvertimeMode   string        `mapstructure:"overtime_mode"`
	MaxMonths      int           `mapstructure:"max_months"`
	MaxRosterSize  int           `mapstructure:"max_roster_size"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Formats        string        `mapstructure:"formats"`  // 默认输出格式，逗号分隔
	Timezone       string        `mapstructure:"timezone"` // ics 打卡时间时区
}

// OutputConfig 产物保存配置
type OutputConfig struct {
	ArtifactTTL time.Duration `mapstructure:"artifact_ttl"`
	Dir         string        `mapstructure:"dir"` // CLI 默认输出根目录
}

// FeatureConfig 功能开关配置
type FeatureConfig struct {
	HistoryEnabled bool `mapstructure:"history_enabled"`
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量（含 .env） > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 只补充未设置的环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("ATTEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.body_limit_mb", 10)
	v.SetDefault("server.rate_limit", 30)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.path", "attendance.db")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "attendance")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟
	v.SetDefault("db.log_level", "warn")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.api_keys", []string{})
	v.SetDefault("auth.header", "X-API-Key")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("generation.clock_in_hour", 9)
	v.SetDefault("generation.clock_in_min_minute", 5)
	v.SetDefault("generation.clock_in_max_minute", 40)
	v.SetDefault("generation.clock_out_hour", 14)
	v.SetDefault("generation.clock_out_min_minute", 0)
	v.SetDefault("generation.clock_out_max_minute", 45)
	v.SetDefault("generation.absent_min", 2)
	v.SetDefault("generation.absent_max", 4)
	v.SetDefault("generation.weekly_off", "sunday")
	v.SetDefault("generation.holidays", []string{})
	v.SetDefault("generation.overtime_mode", "all")
	v.SetDefault("generation.max_months", 24)
	v.SetDefault("generation.max_roster_size", 5000)
	v.SetDefault("generation.timeout", "60s")
	v.SetDefault("generation.formats", "xlsx,pdf,docx,ics")
	v.SetDefault("generation.timezone", "UTC")

	v.SetDefault("output.artifact_ttl", "1h")
	v.SetDefault("output.dir", ".")

	v.SetDefault("feature.history_enabled", false)
	v.SetDefault("feature.metrics_enabled", true)
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("配置校验失败: db.driver 只支持 postgres / sqlite，当前 %q", c.Database.Driver)
	}

	g := c.Generation
	if g.AbsentMin < 0 || g.AbsentMin > g.AbsentMax {
		return fmt.Errorf("配置校验失败: generation.absent_min 必须在 0 与 absent_max 之间")
	}
	if g.ClockInMinMin < 0 || g.ClockInMinMin > g.ClockInMinMax || g.ClockInMinMax > 59 {
		return fmt.Errorf("配置校验失败: generation 上班分钟范围必须在 0-59 且 min ≤ max")
	}
	if g.ClockOutMinMin < 0 || g.ClockOutMinMin > g.ClockOutMinMax || g.ClockOutMinMax > 59 {
		return fmt.Errorf("配置校验失败: generation 下班分钟范围必须在 0-59 且 min ≤ max")
	}
	if g.MaxMonths <= 0 {
		return fmt.Errorf("配置校验失败: generation.max_months 必须大于 0")
	}
	if g.MaxRosterSize <= 0 {
		return fmt.Errorf("配置校验失败: generation.max_roster_size 必须大于 0")
	}
	if g.Timeout <= 0 {
		return fmt.Errorf("配置校验失败: generation.timeout 必须大于 0")
	}
	if _, err := time.LoadLocation(g.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: generation.timezone 无效: %w", err)
	}
	if c.Output.ArtifactTTL <= 0 {
		return fmt.Errorf("配置校验失败: output.artifact_ttl 必须大于 0")
	}
	for _, k := range c.Auth.APIKeys {
		if len(k) < 16 {
			return fmt.Errorf("配置校验失败: auth.api_keys 每个密钥长度不能少于 16 字符")
		}
	}
	return nil
}

// [自证通过] config/config.go
