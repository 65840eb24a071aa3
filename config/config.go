package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Log      LogConfig      `mapstructure:"log"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	BodyLimitMB     int           `mapstructure:"body_limit_mb"`
	AllowedOrigins  string        `mapstructure:"allowed_origins"`
	RateLimitMax    int           `mapstructure:"rate_limit_max"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	TimeZone        string        `mapstructure:"timezone"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN renders the libpq connection string used by the postgres driver.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode, d.TimeZone)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type AuditConfig struct {
	Store      string `mapstructure:"store"` // "file" or "db"
	FilePath   string `mapstructure:"file_path"`
	MaxEntries int    `mapstructure:"max_entries"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type BillingConfig struct {
	DefaultTaxRate  float64 `mapstructure:"default_tax_rate"`
	PaymentTermDays int     `mapstructure:"payment_term_days"`
}

type BackupConfig struct {
	Dir            string `mapstructure:"dir"`
	MinIOEndpoint  string `mapstructure:"minio_endpoint"`
	MinIOAccessKey string `mapstructure:"minio_access_key"`
	MinIOSecretKey string `mapstructure:"minio_secret_key"`
	MinIOBucket    string `mapstructure:"minio_bucket"`
	MinIOUseSSL    bool   `mapstructure:"minio_use_ssl"`
}

type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.body_limit_mb", 4)
	v.SetDefault("server.allowed_origins", "*")
	v.SetDefault("server.rate_limit_max", 60)
	v.SetDefault("server.rate_limit_window", time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.secure_cookies", false)

	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "minerfix")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("jwt.ttl", 24*time.Hour)

	v.SetDefault("audit.store", "db")
	v.SetDefault("audit.file_path", "data/audit-logs.json")
	v.SetDefault("audit.max_entries", 10000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("billing.default_tax_rate", 0)
	v.SetDefault("billing.payment_term_days", 30)

	v.SetDefault("backup.dir", "data/backups")
	v.SetDefault("backup.minio_bucket", "minerfix-backups")

	v.SetDefault("admin.name", "Administrator")
}

// env var names kept close to the ones the service has always read.
var envBindings = map[string]string{
	"server.port":              "PORT",
	"server.body_limit_mb":     "BODY_LIMIT_MB",
	"server.allowed_origins":   "ALLOWED_ORIGINS",
	"server.rate_limit_max":    "RATE_LIMIT_MAX",
	"server.rate_limit_window": "RATE_LIMIT_WINDOW",
	"server.shutdown_timeout":  "SHUTDOWN_TIMEOUT",
	"server.secure_cookies":    "SECURE_COOKIES",

	"database.host":              "DB_HOST",
	"database.port":              "DB_PORT",
	"database.user":              "DB_USER",
	"database.password":          "DB_PASSWORD",
	"database.name":              "DB_NAME",
	"database.sslmode":           "DB_SSLMODE",
	"database.timezone":          "DB_TIMEZONE",
	"database.max_open_conns":    "DB_MAX_OPEN_CONNS",
	"database.max_idle_conns":    "DB_MAX_IDLE_CONNS",
	"database.conn_max_lifetime": "DB_CONN_MAX_LIFETIME",

	"jwt.secret": "JWT_SECRET",
	"jwt.ttl":    "JWT_TTL",

	"audit.store":       "AUDIT_STORE",
	"audit.file_path":   "AUDIT_FILE",
	"audit.max_entries": "AUDIT_MAX_ENTRIES",

	"log.level":  "LOG_LEVEL",
	"log.format": "LOG_FORMAT",

	"billing.default_tax_rate":  "DEFAULT_TAX_RATE",
	"billing.payment_term_days": "PAYMENT_TERM_DAYS",

	"backup.dir":              "BACKUP_DIR",
	"backup.minio_endpoint":   "MINIO_ENDPOINT",
	"backup.minio_access_key": "MINIO_ACCESS_KEY",
	"backup.minio_secret_key": "MINIO_SECRET_KEY",
	"backup.minio_bucket":     "MINIO_BUCKET",
	"backup.minio_use_ssl":    "MINIO_USE_SSL",

	"admin.email":    "ADMIN_EMAIL",
	"admin.password": "ADMIN_PASSWORD",
	"admin.name":     "ADMIN_NAME",
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is fine; containers pass real env vars.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("JWT secret not configured (set JWT_SECRET)")
	}
	switch c.Audit.Store {
	case "file", "db":
	default:
		return fmt.Errorf("unknown AUDIT_STORE %q (want file or db)", c.Audit.Store)
	}
	if c.Audit.MaxEntries <= 0 {
		return fmt.Errorf("AUDIT_MAX_ENTRIES must be positive")
	}
	return nil
}
