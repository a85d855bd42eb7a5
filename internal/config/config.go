package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host           string   `yaml:"host"`
		Port           int      `yaml:"port"`
		Env            string   `yaml:"env"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Database struct {
		Driver string `yaml:"driver"` // postgres, sqlite
		DSN    string `yaml:"url"`
	} `yaml:"database"`

	Storage struct {
		Type       string `yaml:"type"`        // local, s3, cloudflare_r2, minio
		BasePath   string `yaml:"base_path"`   // local storage root
		BaseURL    string `yaml:"base_url"`    // public URL prefix
		Bucket     string `yaml:"bucket"`      // S3/R2/MinIO
		Region     string `yaml:"region"`      // S3
		AccessKey  string `yaml:"access_key"`  // S3/R2/MinIO
		SecretKey  string `yaml:"secret_key"`  // S3/R2/MinIO
		Endpoint   string `yaml:"endpoint"`    // R2, MinIO or custom S3
		UseSSL     bool   `yaml:"use_ssl"`     // MinIO
		PublicRead bool   `yaml:"public_read"` // S3 object ACL
	} `yaml:"storage"`

	Upload struct {
		MaxSize            int64  `yaml:"max_size"`
		DefaultCategory    string `yaml:"default_category"`
		RejectUnknownTypes bool   `yaml:"reject_unknown_types"`
		Thumbnails         bool   `yaml:"thumbnails"`
		ImageQuality       int    `yaml:"image_quality"`
		RetentionHours     int    `yaml:"retention_hours"`
	} `yaml:"upload"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
		TTL      int    `yaml:"ttl_seconds"`
	} `yaml:"redis"`

	Queue struct {
		RedisAddr   string `yaml:"redis_addr"`
		Concurrency int    `yaml:"concurrency"`
	} `yaml:"queue"`

	Signing struct {
		Secret   string `yaml:"secret"`
		TTL      int    `yaml:"ttl_minutes"`
		Required bool   `yaml:"required"`
	} `yaml:"signing"`
}

// CacheTTL returns the record cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTL) * time.Second
}

// Retention is how long soft-deleted images are kept before purging.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Upload.RetentionHours) * time.Hour
}

// SignedURLTTL returns the lifetime of signed file URLs.
func (c *Config) SignedURLTTL() time.Duration {
	return time.Duration(c.Signing.TTL) * time.Minute
}

var AppConfig *Config

// LoadConfig reads .env, then the YAML file at CONFIG_PATH (default
// config/config.yaml) if it exists, then applies environment overrides and
// defaults. The result is stored in AppConfig.
func LoadConfig() {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

// Load builds a Config without touching AppConfig.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	var cfg Config

	if path == "" {
		path = "config/config.yaml"
	}
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		log.Printf("config: %s not found, using environment and defaults", path)
		cfg.Upload.RejectUnknownTypes = true
	default:
		return nil, fmt.Errorf("open config file %s: %w", path, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Host, "SERVER_HOST")
	setInt(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Server.Env, "SERVER_ENV")

	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Database.DSN, "DATABASE_URL")

	setString(&cfg.Storage.Type, "STORAGE_TYPE")
	setString(&cfg.Storage.BasePath, "STORAGE_BASE_PATH")
	setString(&cfg.Storage.BaseURL, "STORAGE_BASE_URL")
	setString(&cfg.Storage.Bucket, "STORAGE_BUCKET")
	setString(&cfg.Storage.Region, "STORAGE_REGION")
	setString(&cfg.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	setString(&cfg.Storage.SecretKey, "STORAGE_SECRET_KEY")
	setString(&cfg.Storage.Endpoint, "STORAGE_ENDPOINT")
	setBool(&cfg.Storage.UseSSL, "STORAGE_USE_SSL")

	setInt64(&cfg.Upload.MaxSize, "UPLOAD_MAX_SIZE")
	setString(&cfg.Upload.DefaultCategory, "UPLOAD_DEFAULT_CATEGORY")
	setBool(&cfg.Upload.RejectUnknownTypes, "UPLOAD_REJECT_UNKNOWN_TYPES")
	setBool(&cfg.Upload.Thumbnails, "UPLOAD_THUMBNAILS")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setString(&cfg.Queue.RedisAddr, "QUEUE_REDIS_ADDR")
	setInt(&cfg.Queue.Concurrency, "QUEUE_CONCURRENCY")

	setString(&cfg.Signing.Secret, "SIGNING_SECRET")
	setInt(&cfg.Signing.TTL, "SIGNING_TTL_MINUTES")
	setBool(&cfg.Signing.Required, "SIGNING_REQUIRED")
	setInt(&cfg.Upload.RetentionHours, "UPLOAD_RETENTION_HOURS")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4000
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = "./uploads"
	}
	if cfg.Storage.BaseURL == "" {
		cfg.Storage.BaseURL = "/api/v1/files"
	}
	if cfg.Upload.MaxSize == 0 {
		cfg.Upload.MaxSize = 5 * 1024 * 1024
	}
	if cfg.Upload.DefaultCategory == "" {
		cfg.Upload.DefaultCategory = "general"
	}
	if cfg.Upload.ImageQuality == 0 {
		cfg.Upload.ImageQuality = 85
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "cabinet:image:"
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 300
	}
	if cfg.Queue.Concurrency == 0 {
		cfg.Queue.Concurrency = 4
	}
	if cfg.Signing.TTL == 0 {
		cfg.Signing.TTL = 15
	}
	if cfg.Upload.RetentionHours == 0 {
		cfg.Upload.RetentionHours = 168
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		} else {
			log.Printf("config: ignoring %s=%q: %v", key, v, err)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		} else {
			log.Printf("config: ignoring %s=%q: %v", key, v, err)
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		} else {
			log.Printf("config: ignoring %s=%q: %v", key, v, err)
		}
	}
}
