package config

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Email    EmailConfig    `mapstructure:"email"`
	Menu     MenuConfig     `mapstructure:"menu"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port         string   `mapstructure:"port"`
	Mode         string   `mapstructure:"mode"`
	BaseURL      string   `mapstructure:"base_url"`
	Brand        string   `mapstructure:"brand"` // 公开页面展示的品牌名
	MaxUploadMB  int64    `mapstructure:"max_upload_mb"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig 数据库配置
// Driver: postgres（默认，Supabase 即 Postgres）、mysql、sqlite
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Charset  string `mapstructure:"charset"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"` // sqlite 文件路径
}

// StorageConfig 对象存储配置
// Provider: supabase、gcs、gcs_emulator
type StorageConfig struct {
	Provider         string   `mapstructure:"provider"`
	URL              string   `mapstructure:"url"`         // Supabase 项目地址
	AnonKey          string   `mapstructure:"anon_key"`    // 公开 key，仅客户端安全操作
	ServiceKey       string   `mapstructure:"service_key"` // 服务端 key，绕过行级权限，写操作必需
	Bucket           string   `mapstructure:"bucket"`
	ProjectID        string   `mapstructure:"project_id"` // GCS 建桶需要
	EmulatorHost     string   `mapstructure:"emulator_host"`
	PublicBaseURL    string   `mapstructure:"public_base_url"`
	CDNDomain        string   `mapstructure:"cdn_domain"`
	Upsert           bool     `mapstructure:"upsert"`
	CacheControl     string   `mapstructure:"cache_control"`
	EnsureBucket     bool     `mapstructure:"ensure_bucket"`
	MaxFileSize      int64    `mapstructure:"max_file_size"`
	AllowedMimeTypes []string `mapstructure:"allowed_mime_types"`
	TimeoutSeconds   int      `mapstructure:"timeout_seconds"`
}

// RedisConfig Redis 配置（启用后用于跨实例的 slug 锁）
type RedisConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Addr           string `mapstructure:"addr"`
	Password       string `mapstructure:"password"`
	DB             int    `mapstructure:"db"`
	LockTTLSeconds int    `mapstructure:"lock_ttl_seconds"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret      string        `mapstructure:"secret"`
	ExpireHours int           `mapstructure:"expire_hours"`
	ExpireTime  time.Duration `mapstructure:"-"`
}

// AdminConfig 初始管理员（admin_users 表为空时创建）
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// EmailConfig 邮件配置
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	AlertTo  string `mapstructure:"alert_to"` // 部分失败告警收件人
}

// MenuConfig 菜单流水线配置
type MenuConfig struct {
	UploadConcurrency int  `mapstructure:"upload_concurrency"`
	SeedPlaceholder   bool `mapstructure:"seed_placeholder"`
}

var (
	// GlobalConfig 全局配置实例
	GlobalConfig *Config
)

// envAliases 沿用原 Supabase 项目的环境变量名
var envAliases = map[string][]string{
	"storage.url":         {"MENUBOARD_STORAGE_URL", "SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL"},
	"storage.anon_key":    {"MENUBOARD_STORAGE_ANON_KEY", "SUPABASE_ANON_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY"},
	"storage.service_key": {"MENUBOARD_STORAGE_SERVICE_KEY", "SUPABASE_SERVICE_ROLE_KEY"},
}

// LoadConfig 加载配置
// 优先级: 环境变量 > 外部配置文件 > 嵌入的默认配置
// configPath: 可选的外部配置文件路径
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 首先加载嵌入的默认配置
	if err := v.ReadConfig(bytes.NewReader(DefaultConfigYAML)); err != nil {
		return nil, fmt.Errorf("读取内置配置失败: %w", err)
	}

	// 2. 尝试加载外部配置文件（可选，用于覆盖默认配置）
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.MergeInConfig(); err != nil {
			log.Printf("警告: 无法读取指定配置文件 %s: %v", configPath, err)
		}
	} else {
		externalViper := viper.New()
		externalViper.SetConfigName("config")
		externalViper.SetConfigType("yaml")
		externalViper.AddConfigPath(".")
		externalViper.AddConfigPath("./config")
		externalViper.AddConfigPath("/etc/menuboard")
		externalViper.AddConfigPath("$HOME/.menuboard")

		if err := externalViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(externalViper.AllSettings()); err != nil {
				log.Printf("警告: 合并外部配置失败: %v", err)
			}
		}
	}

	// 3. 环境变量覆盖
	v.SetEnvPrefix("MENUBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("绑定环境变量失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	GlobalConfig = &cfg
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.JWT.ExpireHours <= 0 {
		cfg.JWT.ExpireHours = 24
	}
	cfg.JWT.ExpireTime = time.Duration(cfg.JWT.ExpireHours) * time.Hour
	if cfg.Menu.UploadConcurrency <= 0 {
		cfg.Menu.UploadConcurrency = 1
	}
	if cfg.Storage.TimeoutSeconds <= 0 {
		cfg.Storage.TimeoutSeconds = 60
	}
	if cfg.Redis.LockTTLSeconds <= 0 {
		cfg.Redis.LockTTLSeconds = 120
	}
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = 32
	}
}

// DefaultJWTSecret 内置配置中的占位密钥，release 模式下不可使用
const DefaultJWTSecret = "change-me-in-production"

func validate(cfg *Config) error {
	if cfg.IsRelease() {
		secret := strings.TrimSpace(cfg.JWT.Secret)
		if secret == "" || secret == DefaultJWTSecret {
			return fmt.Errorf("release 模式必须设置 jwt.secret（或 MENUBOARD_JWT_SECRET），不能使用默认值")
		}
	}
	return nil
}

// MustLoadConfig 加载配置，失败则 panic
func MustLoadConfig(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}
	return cfg
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	if GlobalConfig == nil {
		panic("配置未初始化，请先调用 LoadConfig")
	}
	return GlobalConfig
}

// IsRelease 是否生产模式
func (c *Config) IsRelease() bool {
	return c != nil && c.Server.Mode == "release"
}

// Summary 返回可打印的配置摘要（不含敏感信息）
func (c *Config) Summary() []interface{} {
	return []interface{}{
		"port", c.Server.Port,
		"mode", c.Server.Mode,
		"db_driver", c.Database.Driver,
		"db", fmt.Sprintf("%s@%s:%s/%s", c.Database.Username, c.Database.Host, c.Database.Port, c.Database.DBName),
		"storage_provider", c.Storage.Provider,
		"bucket", c.Storage.Bucket,
		"redis_lock", c.Redis.Enabled,
		"email", c.Email.Enabled,
		"upload_concurrency", c.Menu.UploadConcurrency,
	}
}
