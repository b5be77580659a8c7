package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
	Store     StoreConfig
	Email     EmailConfig
	SMS       SMSConfig
	R2        R2Config
}

type ServerConfig struct {
	Port        string
	Env         string
	LogLevel    string
	LogFormat   string
	BodyLimitMB int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	ImportsPerHour   int
	CampaignsPerHour int
}

type JobsConfig struct {
	MaxConcurrent     int
	JanitorInterval   time.Duration
	ImportBatchSize   int
	CampaignBatchSize int
	BatchDelay        time.Duration
}

type StoreConfig struct {
	Driver   string
	DSN      string
	MaxConns int
}

type EmailConfig struct {
	Provider string
	From     string
	FromName string
	Mailgun  MailgunConfig
	SendGrid SendGridConfig
	SMTP     SMTPConfig
}

type MailgunConfig struct {
	Domain  string
	APIKey  string
	BaseURL string
}

type SendGridConfig struct {
	APIKey string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
}

type SMSConfig struct {
	AccountSID          string
	AuthToken           string
	From                string
	MessagingServiceSID string
	BaseURL             string
	StatusCallback      string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

// Enabled reports whether upload archiving is configured.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.BucketName != ""
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("DATABASE_URL")
	readSecret("MAILGUN_API_KEY")
	readSecret("SENDGRID_API_KEY")
	readSecret("SMTP_PASSWORD")
	readSecret("SMS_AUTH_TOKEN")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.log_format", "LOG_FORMAT")
	_ = viper.BindEnv("server.body_limit_mb", "SERVER_BODY_LIMIT_MB")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("ratelimit.imports_per_hour", "RATELIMIT_IMPORTS_PER_HOUR")
	_ = viper.BindEnv("ratelimit.campaigns_per_hour", "RATELIMIT_CAMPAIGNS_PER_HOUR")
	_ = viper.BindEnv("jobs.max_concurrent", "JOBS_MAX_CONCURRENT")
	_ = viper.BindEnv("jobs.janitor_interval", "JOBS_JANITOR_INTERVAL")
	_ = viper.BindEnv("jobs.import_batch_size", "JOBS_IMPORT_BATCH_SIZE")
	_ = viper.BindEnv("jobs.campaign_batch_size", "JOBS_CAMPAIGN_BATCH_SIZE")
	_ = viper.BindEnv("jobs.batch_delay", "JOBS_BATCH_DELAY")
	_ = viper.BindEnv("store.driver", "STORE_DRIVER")
	_ = viper.BindEnv("store.dsn", "DATABASE_URL")
	_ = viper.BindEnv("store.max_conns", "STORE_MAX_CONNS")
	_ = viper.BindEnv("email.provider", "EMAIL_PROVIDER")
	_ = viper.BindEnv("email.from", "EMAIL_FROM")
	_ = viper.BindEnv("email.from_name", "EMAIL_FROM_NAME")
	_ = viper.BindEnv("email.mailgun.domain", "MAILGUN_DOMAIN")
	_ = viper.BindEnv("email.mailgun.api_key", "MAILGUN_API_KEY")
	_ = viper.BindEnv("email.mailgun.base_url", "MAILGUN_BASE_URL")
	_ = viper.BindEnv("email.sendgrid.api_key", "SENDGRID_API_KEY")
	_ = viper.BindEnv("email.smtp.host", "SMTP_HOST")
	_ = viper.BindEnv("email.smtp.port", "SMTP_PORT")
	_ = viper.BindEnv("email.smtp.username", "SMTP_USERNAME")
	_ = viper.BindEnv("email.smtp.password", "SMTP_PASSWORD")
	_ = viper.BindEnv("sms.account_sid", "SMS_ACCOUNT_SID")
	_ = viper.BindEnv("sms.auth_token", "SMS_AUTH_TOKEN")
	_ = viper.BindEnv("sms.from", "SMS_FROM")
	_ = viper.BindEnv("sms.messaging_service_sid", "SMS_MESSAGING_SERVICE_SID")
	_ = viper.BindEnv("sms.base_url", "SMS_BASE_URL")
	_ = viper.BindEnv("sms.status_callback", "SMS_STATUS_CALLBACK")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("server.log_format", "console")
	viper.SetDefault("server.body_limit_mb", 20)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.imports_per_hour", 20)
	viper.SetDefault("ratelimit.campaigns_per_hour", 10)

	// Job engine defaults
	viper.SetDefault("jobs.max_concurrent", 4)
	viper.SetDefault("jobs.janitor_interval", "1h")
	viper.SetDefault("jobs.import_batch_size", 500)
	viper.SetDefault("jobs.campaign_batch_size", 50)
	viper.SetDefault("jobs.batch_delay", "1s")

	// Store defaults
	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.dsn", "file:sellerfunnel.db")
	viper.SetDefault("store.max_conns", 10)

	// Transport defaults
	viper.SetDefault("email.provider", "")
	viper.SetDefault("email.from_name", "Seller Funnel")
	viper.SetDefault("email.smtp.port", "587")
	viper.SetDefault("sms.base_url", "https://api.twilio.com")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:        viper.GetString("server.port"),
			Env:         viper.GetString("server.env"),
			LogLevel:    viper.GetString("server.log_level"),
			LogFormat:   viper.GetString("server.log_format"),
			BodyLimitMB: viper.GetInt("server.body_limit_mb"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			ImportsPerHour:   viper.GetInt("ratelimit.imports_per_hour"),
			CampaignsPerHour: viper.GetInt("ratelimit.campaigns_per_hour"),
		},
		Jobs: JobsConfig{
			MaxConcurrent:     viper.GetInt("jobs.max_concurrent"),
			JanitorInterval:   viper.GetDuration("jobs.janitor_interval"),
			ImportBatchSize:   viper.GetInt("jobs.import_batch_size"),
			CampaignBatchSize: viper.GetInt("jobs.campaign_batch_size"),
			BatchDelay:        viper.GetDuration("jobs.batch_delay"),
		},
		Store: StoreConfig{
			Driver:   viper.GetString("store.driver"),
			DSN:      viper.GetString("store.dsn"),
			MaxConns: viper.GetInt("store.max_conns"),
		},
		Email: EmailConfig{
			Provider: viper.GetString("email.provider"),
			From:     viper.GetString("email.from"),
			FromName: viper.GetString("email.from_name"),
			Mailgun: MailgunConfig{
				Domain:  viper.GetString("email.mailgun.domain"),
				APIKey:  viper.GetString("email.mailgun.api_key"),
				BaseURL: viper.GetString("email.mailgun.base_url"),
			},
			SendGrid: SendGridConfig{
				APIKey: viper.GetString("email.sendgrid.api_key"),
			},
			SMTP: SMTPConfig{
				Host:     viper.GetString("email.smtp.host"),
				Port:     viper.GetString("email.smtp.port"),
				Username: viper.GetString("email.smtp.username"),
				Password: viper.GetString("email.smtp.password"),
			},
		},
		SMS: SMSConfig{
			AccountSID:          viper.GetString("sms.account_sid"),
			AuthToken:           viper.GetString("sms.auth_token"),
			From:                viper.GetString("sms.from"),
			MessagingServiceSID: viper.GetString("sms.messaging_service_sid"),
			BaseURL:             viper.GetString("sms.base_url"),
			StatusCallback:      viper.GetString("sms.status_callback"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
	}

	return cfg, nil
}
