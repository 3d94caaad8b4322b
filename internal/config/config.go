package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName  string
	Addr         string
	LogLevel     string
	CookieSecure bool

	DatabaseURL string
	RedisURL    string

	JWTSecret  []byte
	JWTIssuer  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration

	BcryptCost        int
	PasswordMinLength int
	DefaultRole       string

	SeedOnStart       bool
	SeedAdminEmail    string
	SeedAdminPassword string

	RateLimit RateLimitConfig

	KafkaBrokers     []string
	KafkaTopicPrefix string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string
}

type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
	Prefix   string
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("notice: cannot read .env: %v, using process environment", err)
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "auth"),
		Addr:        EnvDefault("AUTH_ADDR", ":8000"),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		CookieSecure: EnvBoolDefault("COOKIE_SECURE", true),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    EnvDefault("REDIS_URL", "redis://localhost:6379/0"),

		JWTSecret:  []byte(os.Getenv("JWT_SECRET_KEY")),
		JWTIssuer:  os.Getenv("JWT_ISSUER"),
		AccessTTL:  time.Duration(EnvIntDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		RefreshTTL: time.Duration(EnvIntDefault("REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
		ResetTTL:   time.Duration(EnvIntDefault("RESET_TOKEN_EXPIRE_MINUTES", 15)) * time.Minute,

		BcryptCost:        EnvIntDefault("BCRYPT_COST", 10),
		PasswordMinLength: EnvIntDefault("PASSWORD_MIN_LENGTH", 8),
		DefaultRole:       EnvDefault("DEFAULT_ROLE", "user"),

		SeedOnStart:       EnvBoolDefault("SEED_ON_START", true),
		SeedAdminEmail:    os.Getenv("SEED_ADMIN_EMAIL"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),

		RateLimit: RateLimitConfig{
			Enabled:  EnvBoolDefault("RATE_LIMIT_ENABLED", true),
			Requests: EnvIntDefault("RATE_LIMIT_REQUESTS", 100),
			Window:   EnvDurationDefault("RATE_LIMIT_WINDOW", time.Minute),
			Prefix:   EnvDefault("RATE_LIMIT_PREFIX", "rl"),
		},

		KafkaBrokers:     CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopicPrefix: EnvDefault("KAFKA_TOPIC_PREFIX", "auth"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "auth-audit"),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
