package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Google      GoogleConfig      `mapstructure:"google"`
	Razorpay    RazorpayConfig    `mapstructure:"razorpay"`
	Entitlement EntitlementConfig `mapstructure:"entitlement"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	ElevenLabs  ElevenLabsConfig  `mapstructure:"elevenlabs"`
	OSS         OSSConfig         `mapstructure:"oss"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Upload      UploadConfig      `mapstructure:"upload"`
	Log         LogConfig         `mapstructure:"log"`
	Cron        CronConfig        `mapstructure:"cron"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release
	Env  string `mapstructure:"env"`  // production, development
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type GoogleConfig struct {
	// One client id per platform (web, ios, android). A token issued to any of them is accepted.
	ClientIDs []string `mapstructure:"client_ids"`
}

type RazorpayConfig struct {
	Dev  RazorpayCredentials `mapstructure:"dev"`
	Prod RazorpayCredentials `mapstructure:"prod"`
}

type RazorpayCredentials struct {
	KeyID         string `mapstructure:"key_id"`
	KeySecret     string `mapstructure:"key_secret"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type EntitlementConfig struct {
	FreeLimit  int `mapstructure:"free_limit"`
	GraceHours int `mapstructure:"grace_hours"`
}

// CronConfig drives the background sweeps in cmd/server.
type CronConfig struct {
	SyncIntervalMinutes int `mapstructure:"sync_interval_minutes"`
	SyncStaleHours      int `mapstructure:"sync_stale_hours"`
	SyncBatchSize       int `mapstructure:"sync_batch_size"`
	LedgerRetentionDays int `mapstructure:"ledger_retention_days"`
}

type OpenAIConfig struct {
	APIKey             string  `mapstructure:"api_key"`
	BaseURL            string  `mapstructure:"base_url"`
	ChatModel          string  `mapstructure:"chat_model"`
	MaxTokens          int     `mapstructure:"max_tokens"`
	Temperature        float32 `mapstructure:"temperature"`
	TranscriptionModel string  `mapstructure:"transcription_model"`
}

type ElevenLabsConfig struct {
	APIKey  string `mapstructure:"api_key"`
	VoiceID string `mapstructure:"voice_id"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type UploadConfig struct {
	MaxSize int64 `mapstructure:"max_size"` // bytes
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

// IsProduction reports whether production plans and credentials are in effect.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, EnvProduction)
}

// ActiveRazorpay returns the credential set for the current environment.
func (c *Config) ActiveRazorpay() RazorpayCredentials {
	if c.IsProduction() {
		return c.Razorpay.Prod
	}
	return c.Razorpay.Dev
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret must be provided")
	}

	envName := EnvDevelopment
	if c.IsProduction() {
		envName = EnvProduction
	}
	creds := c.ActiveRazorpay()
	if creds.KeyID == "" || creds.KeySecret == "" {
		return fmt.Errorf("razorpay key id and key secret must be provided for %s environment", envName)
	}
	if creds.WebhookSecret == "" {
		return fmt.Errorf("razorpay webhook secret must be provided for %s environment", envName)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4040)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.env", EnvDevelopment)
	v.SetDefault("jwt.expire_hours", 70*24)
	v.SetDefault("entitlement.free_limit", 3)
	v.SetDefault("entitlement.grace_hours", 24)
	v.SetDefault("openai.chat_model", "gpt-4o")
	v.SetDefault("openai.max_tokens", 800)
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("openai.transcription_model", "whisper-1")
	v.SetDefault("elevenlabs.model", "eleven_multilingual_v2")
	v.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io")
	v.SetDefault("upload.max_size", 10*1024*1024)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("cron.sync_interval_minutes", 30)
	v.SetDefault("cron.sync_stale_hours", 6)
	v.SetDefault("cron.sync_batch_size", 50)
	v.SetDefault("cron.ledger_retention_days", 30)
}

func Load(configPath string) (*Config, error) {
	// .env is optional; real deployments inject the environment directly
	_ = godotenv.Load()

	// config.local.yaml holds real secrets and is never committed
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
