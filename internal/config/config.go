package config

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

type Config struct {
	ServerAddress string

	DatabaseURL string

	JWTSecret []byte
	JWTIssuer string

	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	RefreshCookieMaxAge time.Duration
	CookieSameSite      http.SameSite
	CookieSecure        bool

	KafkaBrokers []string

	LogLevel string
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found: %v, using system environment", err)
	}

	cfg := Config{
		ServerAddress: EnvDefault("SERVER_ADDRESS", ":8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret: []byte(os.Getenv("JWT_SECRET")),
		JWTIssuer: EnvDefault("JWT_ISSUER", "member-service"),

		AccessTokenTTL:      time.Duration(EnvIntDefault("ACCESS_TOKEN_TTL_MINUTES", 60)) * time.Minute,
		RefreshTokenTTL:     time.Duration(EnvIntDefault("REFRESH_TOKEN_TTL_HOURS", 90*24)) * time.Hour,
		RefreshCookieMaxAge: time.Duration(EnvIntDefault("REFRESH_COOKIE_MAX_AGE_HOURS", 7*24)) * time.Hour,
		CookieSameSite:      sameSite(EnvDefault("COOKIE_SAMESITE", "strict")),
		CookieSecure:        EnvBoolDefault("COOKIE_SECURE", true),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		LogLevel: EnvDefault("LOG_LEVEL", "info"),
	}

	MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	return cfg
}

func sameSite(v string) http.SameSite {
	if strings.EqualFold(v, "lax") {
		return http.SameSiteLaxMode
	}
	return http.SameSiteStrictMode
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

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}
