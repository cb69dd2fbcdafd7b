package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the application-wide configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"db"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Signing     SigningConfig     `mapstructure:"signing"`
	Certificate CertificateConfig `mapstructure:"certificate"`
	Directory   DirectoryConfig   `mapstructure:"directory"`
	Renderer    RendererConfig    `mapstructure:"renderer"`
	Mail        MailConfig        `mapstructure:"mail"`
	Delivery    DeliveryConfig    `mapstructure:"delivery"`
	Log         LogConfig         `mapstructure:"log"`
}

// ServerConfig HTTP server settings.
type ServerConfig struct {
	Port         int             `mapstructure:"port"`
	BaseURL      string          `mapstructure:"base_url"`
	MaxBodyBytes int64           `mapstructure:"max_body_bytes"`
	CORS         CORSConfig      `mapstructure:"cors"`
	VerifyLimit  RateLimitConfig `mapstructure:"verify_rate_limit"`
}

// CORSConfig cross-origin settings. "*" in AllowOrigins opens
// non-credentialed access to any origin.
type CORSConfig struct {
	AllowOrigins []string      `mapstructure:"allow_origins"`
	MaxAge       time.Duration `mapstructure:"max_age"`
}

// RateLimitConfig sliding window limit for the public verify route.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig database settings. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// DSN builds the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT settings. Tokens are issued by the platform's identity
// service; this service only verifies them.
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// SigningConfig certificate signature key material. Retired keys only
// verify certificates signed before a rotation.
type SigningConfig struct {
	Secret  string       `mapstructure:"secret"`
	KeyID   string       `mapstructure:"key_id"`
	Retired []SigningKey `mapstructure:"retired"`
}

// SigningKey one retired verification key.
type SigningKey struct {
	Secret string `mapstructure:"secret"`
	KeyID  string `mapstructure:"key_id"`
}

// CertificateConfig issuance policy.
type CertificateConfig struct {
	NumberPrefix     string        `mapstructure:"number_prefix"`
	SequenceWidth    int           `mapstructure:"sequence_width"`
	OrganizationName string        `mapstructure:"organization_name"`
	DefaultValidity  time.Duration `mapstructure:"default_validity"` // 0 = never expires
	BulkConcurrency  int           `mapstructure:"bulk_concurrency"`
	BulkMaxItems     int           `mapstructure:"bulk_max_items"`
	ReminderWindow   time.Duration `mapstructure:"reminder_window"`
	ReminderSchedule string        `mapstructure:"reminder_schedule"` // cron spec, empty disables
}

// DirectoryConfig core platform API used to resolve candidates and courses.
type DirectoryConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RendererConfig PDF rendering service.
type RendererConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MailConfig SendGrid settings.
type MailConfig struct {
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	APIHost        string `mapstructure:"api_host"`
	From           string `mapstructure:"from"`
	FromName       string `mapstructure:"from_name"`
}

// DeliveryConfig async e-mail worker pool.
type DeliveryConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// LogConfig logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration.
// Precedence: environment > config file > defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── defaults ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 10<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.cors.max_age", "12h")
	v.SetDefault("server.verify_rate_limit.requests", 60)
	v.SetDefault("server.verify_rate_limit.window", "1m")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.sqlite_path", "certhub.db")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "certhub")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "placement-platform")
	v.SetDefault("auth.access_token_ttl", "15m")

	v.SetDefault("signing.key_id", "k1")

	v.SetDefault("certificate.number_prefix", "CERT")
	v.SetDefault("certificate.sequence_width", 6)
	v.SetDefault("certificate.organization_name", "Training & Placement Cell")
	v.SetDefault("certificate.default_validity", "0s")
	v.SetDefault("certificate.bulk_concurrency", 4)
	v.SetDefault("certificate.bulk_max_items", 500)
	v.SetDefault("certificate.reminder_window", "720h")
	v.SetDefault("certificate.reminder_schedule", "0 9 * * *")

	v.SetDefault("directory.timeout", "5s")
	v.SetDefault("renderer.timeout", "20s")

	v.SetDefault("mail.api_host", "https://api.sendgrid.com")
	v.SetDefault("mail.from_name", "Certificates")

	v.SetDefault("delivery.workers", 2)
	v.SetDefault("delivery.queue_size", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// ── config file ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── environment ──
	v.SetEnvPrefix("CERTHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("config: auth.jwt_secret must be at least 16 characters")
	}
	if len(c.Signing.Secret) < 32 {
		return fmt.Errorf("config: signing.secret must be at least 32 characters")
	}
	if c.Signing.KeyID == "" || strings.Contains(c.Signing.KeyID, ":") {
		return fmt.Errorf("config: signing.key_id must be non-empty and must not contain ':'")
	}
	for _, k := range c.Signing.Retired {
		if k.KeyID == c.Signing.KeyID {
			return fmt.Errorf("config: retired signing key %q reuses the active key id", k.KeyID)
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port must be between 1 and 65535")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported db.driver %q", c.Database.Driver)
	}
	if c.Certificate.NumberPrefix == "" {
		return fmt.Errorf("config: certificate.number_prefix must not be empty")
	}
	if c.Certificate.SequenceWidth < 1 || c.Certificate.SequenceWidth > 12 {
		return fmt.Errorf("config: certificate.sequence_width must be between 1 and 12")
	}
	if c.Certificate.DefaultValidity < 0 {
		return fmt.Errorf("config: certificate.default_validity must not be negative")
	}
	return nil
}
