package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PhonePeConfig struct {
	MerchantID string `yaml:"merchant_id"`
	SaltKey    string `yaml:"salt_key"`
	SaltIndex  int    `yaml:"salt_index"`
	BaseURL    string `yaml:"base_url"`
}

type RazorpayConfig struct {
	KeyID     string `yaml:"key_id"`
	KeySecret string `yaml:"key_secret"`
	BaseURL   string `yaml:"base_url"`
}

type PaymentConfig struct {
	Provider string         `yaml:"provider"` // phonepe | razorpay | noop
	Timeout  time.Duration  `yaml:"timeout"`
	PhonePe  PhonePeConfig  `yaml:"phonepe"`
	Razorpay RazorpayConfig `yaml:"razorpay"`
}

type NotifyConfig struct {
	Provider     string `yaml:"provider"` // fcm | noop
	FCMServerKey string `yaml:"fcm_server_key"`
	FCMBaseURL   string `yaml:"fcm_base_url"`
}

type JobsConfig struct {
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	ReconcileMinAge   time.Duration `yaml:"reconcile_min_age"`
	ReconcileBatch    int           `yaml:"reconcile_batch"`
	ReminderHour      int           `yaml:"reminder_hour"` // local hour of day, 0-23
	PublishInterval   time.Duration `yaml:"publish_interval"`
	LockTTL           time.Duration `yaml:"lock_ttl"`
}

type AdminConfig struct {
	APIKey        string        `yaml:"api_key"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Payment  PaymentConfig  `yaml:"payment"`
	Notify   NotifyConfig   `yaml:"notify"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Admin    AdminConfig    `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Payment.Provider == "phonepe" && (cfg.Payment.PhonePe.MerchantID == "" || cfg.Payment.PhonePe.SaltKey == "") {
		return nil, errors.New("payment.phonepe.merchant_id and salt_key are required")
	}
	if cfg.Payment.Provider == "razorpay" && (cfg.Payment.Razorpay.KeyID == "" || cfg.Payment.Razorpay.KeySecret == "") {
		return nil, errors.New("payment.razorpay.key_id and key_secret are required")
	}
	if cfg.Notify.Provider == "fcm" && cfg.Notify.FCMServerKey == "" {
		return nil, errors.New("notify.fcm_server_key is required")
	}
	if cfg.Admin.SessionSecret == "" {
		return nil, errors.New("admin.session_secret is required")
	}
	if cfg.Jobs.ReminderHour < 0 || cfg.Jobs.ReminderHour > 23 {
		return nil, errors.New("jobs.reminder_hour must be 0-23")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 8
	}
	if cfg.Payment.Provider == "" {
		cfg.Payment.Provider = "noop"
	}
	if cfg.Payment.Timeout <= 0 {
		cfg.Payment.Timeout = 10 * time.Second
	}
	if cfg.Payment.PhonePe.BaseURL == "" {
		cfg.Payment.PhonePe.BaseURL = "https://api.phonepe.com/apis/hermes"
	}
	if cfg.Payment.PhonePe.SaltIndex == 0 {
		cfg.Payment.PhonePe.SaltIndex = 1
	}
	if cfg.Payment.Razorpay.BaseURL == "" {
		cfg.Payment.Razorpay.BaseURL = "https://api.razorpay.com"
	}
	if cfg.Notify.Provider == "" {
		cfg.Notify.Provider = "noop"
	}
	if cfg.Notify.FCMBaseURL == "" {
		cfg.Notify.FCMBaseURL = "https://fcm.googleapis.com"
	}
	if cfg.Jobs.SweepInterval <= 0 {
		cfg.Jobs.SweepInterval = 24 * time.Hour
	}
	if cfg.Jobs.ReconcileInterval <= 0 {
		cfg.Jobs.ReconcileInterval = 15 * time.Minute
	}
	if cfg.Jobs.ReconcileMinAge <= 0 {
		cfg.Jobs.ReconcileMinAge = 10 * time.Minute
	}
	if cfg.Jobs.ReconcileBatch <= 0 {
		cfg.Jobs.ReconcileBatch = 100
	}
	if cfg.Jobs.PublishInterval <= 0 {
		cfg.Jobs.PublishInterval = time.Hour
	}
	if cfg.Jobs.LockTTL <= 0 {
		cfg.Jobs.LockTTL = 5 * time.Minute
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 12 * time.Hour
	}
}
