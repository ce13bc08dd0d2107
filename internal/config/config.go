package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Secrets have no defaults and must come from the environment or a .env file.
type AppConfig struct {
	Port string

	DatabaseURL        string
	DBMaxConns         int
	DBMinConns         int
	DBMaxConnLifetime  time.Duration
	DBMaxConnIdleTime  time.Duration
	DBHealthCheckEvery time.Duration

	RedisURL            string
	LeaderboardCacheTTL time.Duration
	LeaderboardLimit    int

	RabbitMQURL   string
	EventsQueue   string
	EventsWorkers int

	ClerkSecretKey     string
	ClerkWebhookSecret string

	FCMCredentialsFile string
	FCMCredentialsJSON string

	MetricsUser string
	MetricsPass string

	RateLimitPerSecond float64
	RateLimitBurst     int
	TrustedProxies     []string

	AllowedOrigins []string

	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// Load reads an optional .env file, applies defaults and then environment
// overrides. DATABASE_URL is required.
func Load(envFiles ...string) (AppConfig, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(envFiles...)

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	return cfg, nil
}

// Defaults returns the configuration used when nothing is set.
func Defaults() AppConfig {
	return AppConfig{
		Port:                "3333",
		DBMaxConns:          25,
		DBMinConns:          5,
		DBMaxConnLifetime:   time.Hour,
		DBMaxConnIdleTime:   30 * time.Minute,
		DBHealthCheckEvery:  time.Minute,
		LeaderboardCacheTTL: time.Minute,
		LeaderboardLimit:    10,
		EventsQueue:         "gamification.events",
		EventsWorkers:       5,
		FCMCredentialsFile:  "./serviceAccountKey.json",
		RateLimitPerSecond:  5,
		RateLimitBurst:      30,
		AllowedOrigins:      []string{"*"},
		LogLevel:            "info",
		LogMaxSizeMB:        100,
		LogMaxBackups:       3,
		LogMaxAgeDays:       7,
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	cfg.Port = getEnv("PORT", cfg.Port)

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.DBMaxConns = getEnvInt("DB_MAX_CONNS", cfg.DBMaxConns)
	cfg.DBMinConns = getEnvInt("DB_MIN_CONNS", cfg.DBMinConns)
	cfg.DBMaxConnLifetime = getEnvDuration("DB_MAX_CONN_LIFETIME", cfg.DBMaxConnLifetime)
	cfg.DBMaxConnIdleTime = getEnvDuration("DB_MAX_CONN_IDLE_TIME", cfg.DBMaxConnIdleTime)

	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.LeaderboardCacheTTL = getEnvDuration("LEADERBOARD_CACHE_TTL", cfg.LeaderboardCacheTTL)
	cfg.LeaderboardLimit = getEnvInt("LEADERBOARD_LIMIT", cfg.LeaderboardLimit)

	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.EventsQueue = getEnv("EVENTS_QUEUE", cfg.EventsQueue)
	cfg.EventsWorkers = getEnvInt("NOTIFICATION_WORKERS", cfg.EventsWorkers)

	cfg.ClerkSecretKey = getEnv("CLERK_SECRET_KEY", cfg.ClerkSecretKey)
	cfg.ClerkWebhookSecret = getEnv("CLERK_WEBHOOK_SECRET", cfg.ClerkWebhookSecret)

	cfg.FCMCredentialsFile = getEnv("FCM_SERVICE_ACCOUNT_FILE", cfg.FCMCredentialsFile)
	cfg.FCMCredentialsJSON = getEnv("FCM_SERVICE_ACCOUNT_JSON", cfg.FCMCredentialsJSON)

	cfg.MetricsUser = getEnv("METRICS_USER", cfg.MetricsUser)
	cfg.MetricsPass = getEnv("METRICS_PASS", cfg.MetricsPass)

	cfg.RateLimitPerSecond = getEnvFloat("RATE_LIMIT_PER_SECOND", cfg.RateLimitPerSecond)
	cfg.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = splitAndTrim(v)
	}

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitAndTrim(v)
	}

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogPath = getEnv("LOG_PATH", cfg.LogPath)
	cfg.LogMaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", cfg.LogMaxSizeMB)
	cfg.LogMaxBackups = getEnvInt("LOG_MAX_BACKUPS", cfg.LogMaxBackups)
	cfg.LogMaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", cfg.LogMaxAgeDays)
	cfg.LogCompress = getEnvBool("LOG_COMPRESS", cfg.LogCompress)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
