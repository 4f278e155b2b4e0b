package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppName string `mapstructure:"app_name"`
	Env     string `mapstructure:"app_env"`
	Host    string `mapstructure:"http_host"`
	Port    int    `mapstructure:"http_port"`

	DatabaseDriver   string `mapstructure:"database_driver"`
	DatabaseURL      string `mapstructure:"database_url"`
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     string `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDB       string `mapstructure:"postgres_db"`

	JWTSecret          string   `mapstructure:"jwt_secret"`
	AccessTokenMinutes int      `mapstructure:"access_token_expire_minutes"`
	EncryptKey         string   `mapstructure:"encryption_key"`
	LegacyEncryptKeys  []string `mapstructure:"encryption_legacy_keys"`

	CORSOrigins      []string `mapstructure:"cors_origins"`
	LogLevel         string   `mapstructure:"log_level"`
	MessageMaxLength int      `mapstructure:"message_max_length"`

	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"`
	RedisAddr          string `mapstructure:"redis_addr"`
	RedisPassword      string `mapstructure:"redis_password"`
	RedisDB            int    `mapstructure:"redis_db"`

	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`

	PollInterval time.Duration `mapstructure:"poll_interval"`

	// Derived
	AccessTokenTTL time.Duration `mapstructure:"-"`
}

var defaults = map[string]any{
	"app_name":                    "Workmatch Messaging API",
	"app_env":                     "development",
	"http_host":                   "0.0.0.0",
	"http_port":                   8000,
	"database_driver":             "sqlite",
	"database_url":                "",
	"postgres_host":               "localhost",
	"postgres_port":               "5432",
	"postgres_user":               "postgres",
	"postgres_password":           "postgres",
	"postgres_db":                 "workmatch",
	"jwt_secret":                  "",
	"access_token_expire_minutes": 60 * 24,
	"encryption_key":              "",
	"encryption_legacy_keys":      []string{},
	"cors_origins":                []string{"http://localhost:3000", "http://localhost:5173"},
	"log_level":                   "info",
	"message_max_length":          5000,
	"rate_limit_per_minute":       120,
	"redis_addr":                  "",
	"redis_password":              "",
	"redis_db":                    0,
	"kafka_brokers":               []string{},
	"kafka_topic":                 "workmatch.messaging",
	"poll_interval":               "2500ms",
}

// Load reads configuration from an optional file, a .env file in the working
// directory and the process environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClient reads the same sources as Load but only checks the settings a
// terminal client uses, so it works without server secrets.
func LoadClient(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if cfg.PollInterval <= 0 {
		return nil, errors.New("POLL_INTERVAL must be positive")
	}
	return cfg, nil
}

func read(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)
	cfg.KafkaBrokers = trimAll(cfg.KafkaBrokers)
	cfg.LegacyEncryptKeys = trimAll(cfg.LegacyEncryptKeys)
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	cfg.AccessTokenTTL = time.Duration(cfg.AccessTokenMinutes) * time.Minute

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = cfg.defaultDatabaseURL()
	}
	return &cfg, nil
}

func (c *Config) defaultDatabaseURL() string {
	if c.DatabaseDriver != "postgres" {
		return "workmatch.db"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     fmt.Sprintf("%s:%s", c.PostgresHost, c.PostgresPort),
		Path:     c.PostgresDB,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func (c *Config) validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.EncryptKey == "" {
		errs = append(errs, errors.New("ENCRYPTION_KEY is required"))
	}
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver))
	}
	if c.MessageMaxLength <= 0 {
		errs = append(errs, errors.New("MESSAGE_MAX_LENGTH must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
