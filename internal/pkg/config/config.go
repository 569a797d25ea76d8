package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	App       AppConfig       `mapstructure:"app"`
	Checkout  CheckoutConfig  `mapstructure:"checkout"`
	PayOS     PayOSConfig     `mapstructure:"payos"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

// DSN gorm postgres 驱动使用的连接串
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode, d.TimeZone)
}

// URL golang-migrate 使用的连接串
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret       string `mapstructure:"secret"`
	Expire       int64  `mapstructure:"expire"` // 小时
	CookieName   string `mapstructure:"cookie_name"`
	CookieDomain string `mapstructure:"cookie_domain"`
	CookieSecure bool   `mapstructure:"cookie_secure"`
}

type AppConfig struct {
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`
}

// CheckoutConfig 下单相关配置
type CheckoutConfig struct {
	ShippingFee int64  `mapstructure:"shipping_fee"` // 固定运费 (VND)
	ReturnURL   string `mapstructure:"return_url"`   // 支付成功跳转
	CancelURL   string `mapstructure:"cancel_url"`   // 取消支付跳转
	CodeRetries int    `mapstructure:"code_retries"` // 订单号冲突时的重试次数
}

// PayOSConfig PayOS 支付网关
type PayOSConfig struct {
	ClientID    string        `mapstructure:"client_id"`
	APIKey      string        `mapstructure:"api_key"`
	ChecksumKey string        `mapstructure:"checksum_key"` // 请求签名与回调验签共用
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Enabled 未配置凭据时不注册网关，下单仍可使用 COD / 转账
func (p PayOSConfig) Enabled() bool {
	return p.ClientID != "" && p.APIKey != "" && p.ChecksumKey != ""
}

type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	NotifyTo []string      `mapstructure:"notify_to"` // 新订单通知收件人
	Timeout  time.Duration `mapstructure:"timeout"`   // 连接/问候/读写超时
}

func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

// RateLimitConfig 限流配置，backend 为 memory 或 redis
type RateLimitConfig struct {
	Backend  string    `mapstructure:"backend"`
	Checkout LimitRule `mapstructure:"checkout"`
	Login    LimitRule `mapstructure:"login"`
	Webhook  LimitRule `mapstructure:"webhook"`
}

// LimitRule 每个窗口内允许的请求数
type LimitRule struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// AdminConfig 首次启动时创建的后台账号
type AdminConfig struct {
	BootstrapUsername string `mapstructure:"bootstrap_username"`
	BootstrapPassword string `mapstructure:"bootstrap_password"`
}

var GlobalConfig Config

// Validate 验证配置
func (c *Config) Validate() error {
	// JWT 配置验证
	if c.JWT.Secret == "" || c.JWT.Secret == "your_super_secret_key" {
		return errors.New("please set a secure JWT secret")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT secret should be at least 32 characters")
	}

	// 数据库配置验证
	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return errors.New("database configuration is incomplete")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("redis address is required when redis is enabled")
	}
	if c.RateLimit.Backend == "redis" && !c.Redis.Enabled {
		return errors.New("rate_limit.backend=redis requires redis.enabled")
	}

	if c.Checkout.ShippingFee < 0 {
		return errors.New("checkout.shipping_fee must not be negative")
	}
	if c.PayOS.Enabled() && (c.Checkout.ReturnURL == "" || c.Checkout.CancelURL == "") {
		return errors.New("checkout return_url and cancel_url are required when PayOS is configured")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.expire", 24)
	v.SetDefault("jwt.cookie_name", "admin_session")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.debug", true)
	v.SetDefault("checkout.shipping_fee", 500000)
	v.SetDefault("checkout.code_retries", 3)
	v.SetDefault("payos.base_url", "https://api-merchant.payos.vn")
	v.SetDefault("payos.timeout", 10*time.Second)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.timeout", 10*time.Second)
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.checkout.requests", 10)
	v.SetDefault("rate_limit.checkout.window", time.Minute)
	v.SetDefault("rate_limit.login.requests", 5)
	v.SetDefault("rate_limit.login.window", time.Minute)
	v.SetDefault("rate_limit.webhook.requests", 120)
	v.SetDefault("rate_limit.webhook.window", time.Minute)
}

// Load 读取配置文件与环境变量
func Load() (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	// 获取环境变量，默认为dev
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	// 根据环境选择配置文件
	configName := "config"
	if env != "dev" {
		configName = "config." + env
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Printf("Warning: Config file not found, using defaults or env vars: %v", err)
	}

	// 绑定环境变量，例如 PAYOS_CLIENT_ID -> payos.client_id
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if cfg.App.Env == "" {
		cfg.App.Env = env
	}

	// 手动覆盖，AutomaticEnv 对未出现在配置文件中的嵌套键不生效
	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if pw := os.Getenv("DB_PASSWORD"); pw != "" {
		cfg.Database.Password = pw
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cfg.Redis.Addr = redisAddr
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		cfg.JWT.Secret = jwtSecret
	}
	if v := os.Getenv("PAYOS_CLIENT_ID"); v != "" {
		cfg.PayOS.ClientID = v
	}
	if v := os.Getenv("PAYOS_API_KEY"); v != "" {
		cfg.PayOS.APIKey = v
	}
	if v := os.Getenv("PAYOS_CHECKSUM_KEY"); v != "" {
		cfg.PayOS.ChecksumKey = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.SMTP.Password = v
	}
}

// LoadConfig 加载配置到 GlobalConfig，失败直接退出
func LoadConfig() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("%v", err)
	}
	GlobalConfig = *cfg
	log.Printf("Configuration loaded and validated successfully. Environment: %s", cfg.App.Env)
	return cfg
}
