package config

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"storefront/shared/utils"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration.
type Config struct {
	Env        string `envconfig:"ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat  string `envconfig:"LOG_FORMAT" default:"json"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8081"`

	// PostgreSQL: пользователи, роли, разрешения
	DBHost         string `envconfig:"DB_HOST" required:"true"`
	DBPort         string `envconfig:"DB_PORT" default:"5432"`
	DBUser         string `envconfig:"DB_USER" required:"true"`
	DBName         string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode      string `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns     int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	MigrateOnStart bool   `envconfig:"MIGRATE_ON_START" default:"true"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string `ignored:"true"`

	// Redis: refresh-сессии
	RedisAddr                string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB                  int           `envconfig:"REDIS_DB" default:"0"`
	RedisHealthCheckInterval time.Duration `envconfig:"REDIS_HEALTHCHECK_INTERVAL" default:"30s"`
	RedisOpTimeout           time.Duration `envconfig:"REDIS_OP_TIMEOUT" default:"2s"`
	RedisPassword            string        `ignored:"true"`

	// JWT
	JWTAlgorithm    string        `envconfig:"JWT_ALGORITHM" default:"HS256"`
	AccessTokenTTL  time.Duration `envconfig:"JWT_ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTokenTTL time.Duration `envconfig:"JWT_REFRESH_TOKEN_TTL" default:"168h"` // 7 days
	JWTSecret       string        `ignored:"true"`
	PasswordPepper  string        `ignored:"true"`

	// Cookies
	CookieSecure   bool   `envconfig:"COOKIE_SECURE" default:"true"`
	CookieDomain   string `envconfig:"COOKIE_DOMAIN" default:""`
	CookieSameSite string `envconfig:"COOKIE_SAMESITE" default:"lax"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	// Попыток логина в минуту с одного IP
	LoginRateLimit int `envconfig:"LOGIN_RATE_LIMIT" default:"10"`

	// RabbitMQ необязателен: без URL события сессий не публикуются
	RabbitMQURL           string `ignored:"true"`
	SessionEventsExchange string `envconfig:"SESSION_EVENTS_EXCHANGE" default:"auth.sessions"`
}

// GetAllowedOrigins splits the CORSAllowedOrigins string into a slice.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// SameSite переводит COOKIE_SAMESITE в http.SameSite.
func (c *Config) SameSite() http.SameSite {
	if strings.EqualFold(c.CookieSameSite, "strict") {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}

// PostgresDSN собирает URL подключения для pgx и migrate.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	var errs []error
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("JWT_ALGORITHM must be one of HS256, HS384, HS512, got %q", c.JWTAlgorithm))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("JWT token TTLs must be positive"))
	} else if c.AccessTokenTTL >= c.RefreshTokenTTL {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_TOKEN_TTL (%s) must be shorter than JWT_REFRESH_TOKEN_TTL (%s)", c.AccessTokenTTL, c.RefreshTokenTTL))
	}
	switch strings.ToLower(c.CookieSameSite) {
	case "lax", "strict":
	default:
		errs = append(errs, fmt.Errorf("COOKIE_SAMESITE must be lax or strict, got %q", c.CookieSameSite))
	}
	if c.LoginRateLimit <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT must be positive"))
	}
	if c.RedisOpTimeout <= 0 {
		errs = append(errs, errors.New("REDIS_OP_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// LoadConfig loads configuration from environment variables and secrets.
func LoadConfig(envFilePath string) (*Config, error) {
	if _, err := os.Stat(envFilePath); err == nil {
		if err = godotenv.Load(envFilePath); err != nil {
			log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
		} else {
			log.Printf("Loaded configuration from %s", envFilePath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
	}

	var cfg Config
	// НЕсекретные переменные из окружения
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	// ОБЯЗАТЕЛЬНЫЕ секреты из файлов
	var loadErr error
	if cfg.DBPassword, loadErr = utils.ReadSecret("db_password"); loadErr != nil {
		return nil, loadErr
	}
	if cfg.JWTSecret, loadErr = utils.ReadSecret("jwt_secret"); loadErr != nil {
		return nil, loadErr
	}
	if cfg.PasswordPepper, loadErr = utils.ReadSecret("password_pepper"); loadErr != nil {
		return nil, loadErr
	}

	// НЕОБЯЗАТЕЛЬНЫЕ секреты
	if cfg.RedisPassword, loadErr = utils.ReadOptionalSecret("redis_password"); loadErr != nil {
		return nil, loadErr
	}
	if cfg.RabbitMQURL, loadErr = utils.ReadOptionalSecret("rabbitmq_url"); loadErr != nil {
		return nil, loadErr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("Configuration loaded successfully (secrets read from files).")
	return &cfg, nil
}
