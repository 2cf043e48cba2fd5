package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Chat      ChatConfig
	Stripe    StripeConfig
	Catalog   CatalogConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Port       string
	Env        string
	LogLevel   string
	CORSOrigin string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	TimeZone string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// ChatConfig points at the support agent workflow. A zero Timeout means no
// client-side timeout.
type ChatConfig struct {
	Endpoint string
	Timeout  time.Duration
}

type StripeConfig struct {
	SecretKey string
	Currency  string
}

type CatalogConfig struct {
	CacheTTL      time.Duration
	ServiceRadius float64
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
	// TrustedProxies are IPs or CIDRs whose X-Forwarded-For header is believed.
	TrustedProxies []string
	IdleTTL        time.Duration
}

const (
	defaultPort              = "8080"
	defaultChatEndpoint      = "https://be-app.ailinc.com/api/clients/1/ai-agent/"
	defaultCurrency          = "inr"
	defaultServiceRadiusKm   = 10
	defaultRequestsPerMinute = 200
	defaultBurst             = 200
)

// LoadConfig reads .env from the working directory, then the environment.
// A missing .env file is not an error.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	v.SetDefault("APP_PORT", defaultPort)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("CHAT_ENDPOINT", defaultChatEndpoint)
	v.SetDefault("STRIPE_CURRENCY", defaultCurrency)
	v.SetDefault("CATALOG_SERVICE_RADIUS_KM", defaultServiceRadiusKm)
	v.SetDefault("RATE_LIMIT_RPM", defaultRequestsPerMinute)
	v.SetDefault("RATE_LIMIT_BURST", defaultBurst)

	return &Config{
		App: AppConfig{
			Port:       v.GetString("APP_PORT"),
			Env:        v.GetString("APP_ENV"),
			LogLevel:   v.GetString("LOG_LEVEL"),
			CORSOrigin: v.GetString("CORS_ALLOWED_ORIGIN"),
		},
		DB: DBConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			TimeZone: v.GetString("DB_TIMEZONE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        v.GetString("JWT_SECRET"),
			AccessExpiry:  durationOr(v.GetString("JWT_ACCESS_EXPIRY"), 15*time.Minute),
			RefreshExpiry: durationOr(v.GetString("JWT_REFRESH_EXPIRY"), 7*24*time.Hour),
		},
		Chat: ChatConfig{
			Endpoint: v.GetString("CHAT_ENDPOINT"),
			Timeout:  durationOr(v.GetString("CHAT_TIMEOUT"), 0),
		},
		Stripe: StripeConfig{
			SecretKey: v.GetString("STRIPE_SECRET_KEY"),
			Currency:  v.GetString("STRIPE_CURRENCY"),
		},
		Catalog: CatalogConfig{
			CacheTTL:      durationOr(v.GetString("CATALOG_CACHE_TTL"), 5*time.Minute),
			ServiceRadius: v.GetFloat64("CATALOG_SERVICE_RADIUS_KM"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: v.GetInt("RATE_LIMIT_RPM"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
			TrustedProxies:    splitList(v.GetString("RATE_LIMIT_TRUSTED_PROXIES")),
			IdleTTL:           durationOr(v.GetString("RATE_LIMIT_IDLE_TTL"), 10*time.Minute),
		},
	}
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

// splitList parses a comma separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
