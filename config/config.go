package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port    string
	GinMode string

	DBDriver string
	DBDSN    string

	JWTSecret string
	JWTTTL    time.Duration

	AdminEmail    string
	AdminPassword string
	AdminName     string

	CORSOrigins []string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	IdempotencyTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	TelegramBotToken string
	TelegramChatID   int64

	ChangePollInterval time.Duration
	LogLevel           string
}

// Load reads the environment. Call godotenv.Load before it to pick up .env.
func Load() Config {
	return Config{
		Port:    getenv("PORT", "8080"),
		GinMode: getenv("GIN_MODE", "debug"),

		DBDriver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBDSN:    getenv("DB_DSN", "restaurant_booking.db"),

		JWTSecret: getenv("JWT_SECRET", ""),
		JWTTTL:    getduration("JWT_TTL", 24*time.Hour),

		AdminEmail:    strings.ToLower(getenv("ADMIN_EMAIL", "")),
		AdminPassword: getenv("ADMIN_PASSWORD", ""),
		AdminName:     getenv("ADMIN_NAME", "Administrator"),

		CORSOrigins: splitCSV(getenv("CORS_ORIGINS", "http://localhost:3000")),

		RedisAddr:      getenv("REDIS_ADDR", ""),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		RedisDB:        getint("REDIS_DB", 0),
		IdempotencyTTL: getduration("IDEMPOTENCY_TTL", 24*time.Hour),

		KafkaBrokers: splitCSV(getenv("KAFKA_BROKERS", "")),
		KafkaTopic:   getenv("KAFKA_TOPIC", "restaurant.bookings"),

		TelegramBotToken: getenv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   int64(getint("TELEGRAM_CHAT_ID", 0)),

		ChangePollInterval: getduration("CHANGE_POLL_INTERVAL", 500*time.Millisecond),
		LogLevel:           getenv("LOG_LEVEL", "info"),
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	v, err := strconv.Atoi(getenv(k, ""))
	if err != nil {
		return def
	}
	return v
}

func getduration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getenv(k, ""))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
