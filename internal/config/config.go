package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"port"`
	LogLevel    string `mapstructure:"log_level"`
	StoreDriver string `mapstructure:"store_driver"` // "postgres" or "memory"
	AutoMigrate bool   `mapstructure:"auto_migrate"`
	JWTSecret   string `mapstructure:"jwt_secret"`

	Supabase    SupabaseConfig   `mapstructure:"supabase"`
	Cloudflare  CloudflareConfig `mapstructure:"cloudflare"`
	S3          S3Config         `mapstructure:"s3"`
	Stability   GeneratorConfig  `mapstructure:"stability"`
	HuggingFace GeneratorConfig  `mapstructure:"huggingface"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Images      ImagesConfig     `mapstructure:"images"`
	Preview     PreviewConfig    `mapstructure:"preview"`
}

type SupabaseConfig struct {
	DBURL         string `mapstructure:"db_url"`
	URL           string `mapstructure:"url"`
	ServiceKey    string `mapstructure:"service_key"`
	StorageBucket string `mapstructure:"storage_bucket"`
}

type CloudflareConfig struct {
	AccountID string        `mapstructure:"account_id"`
	APIToken  string        `mapstructure:"api_token"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// S3Config describes any S3-compatible bucket (AWS, Tencent COS, MinIO).
type S3Config struct {
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	Bucket          string        `mapstructure:"bucket"`
	Region          string        `mapstructure:"region"`
	Endpoint        string        `mapstructure:"endpoint"`
	PublicBaseURL   string        `mapstructure:"public_base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type GeneratorConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ImagesConfig struct {
	CanonicalBaseURL string   `mapstructure:"canonical_base_url"`
	CanonicalVariant string   `mapstructure:"canonical_variant"`
	FontPaths        []string `mapstructure:"font_paths"`
	MaxUploadBytes   int64    `mapstructure:"max_upload_bytes"`
}

type PreviewConfig struct {
	RatePerMinute int `mapstructure:"rate_per_minute"`
	Burst         int `mapstructure:"burst"`
}

var defaults = map[string]interface{}{
	"port":         "8080",
	"log_level":    "info",
	"store_driver": "postgres",
	"auto_migrate": false,
	"jwt_secret":   "",

	"supabase.db_url":         "",
	"supabase.url":            "",
	"supabase.service_key":    "",
	"supabase.storage_bucket": "images",

	"cloudflare.account_id": "",
	"cloudflare.api_token":  "",
	"cloudflare.base_url":   "https://api.cloudflare.com/client/v4",
	"cloudflare.timeout":    60 * time.Second,

	"s3.access_key_id":     "",
	"s3.secret_access_key": "",
	"s3.bucket":            "",
	"s3.region":            "ap-guangzhou",
	"s3.endpoint":          "",
	"s3.public_base_url":   "",
	"s3.timeout":           120 * time.Second,

	"stability.api_key": "",
	"stability.url":     "https://api.stability.ai/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image",
	"stability.timeout": 60 * time.Second,

	"huggingface.api_key": "",
	"huggingface.url":     "https://api-inference.huggingface.co/models/stabilityai/stable-diffusion-xl-base-1.0",
	"huggingface.timeout": 60 * time.Second,

	"redis.addr":     "",
	"redis.password": "",
	"redis.db":       0,

	"images.canonical_base_url": "https://images.shipian.app",
	"images.canonical_variant":  "public",
	"images.font_paths": []string{
		"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
		"/usr/share/fonts/truetype/wqy/wqy-microhei.ttc",
		"/System/Library/Fonts/PingFang.ttc",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	},
	"images.max_upload_bytes": int64(16 << 20),

	"preview.rate_per_minute": 6,
	"preview.burst":           3,
}

// Load reads .env (if present) then the process environment. Nested keys map to
// upper-case env names with "_" separators, e.g. SUPABASE_DB_URL or S3_BUCKET.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "memory":
	case "postgres":
		if c.Supabase.DBURL == "" {
			return errors.New("SUPABASE_DB_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}
