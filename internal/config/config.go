package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port               string
	DBDriver           string // "postgres" or "sqlite"
	DBDSN              string // postgres DSN
	DBPath             string // sqlite file path
	VerifyToken        string
	WebhookSecret      string
	DefaultCountryCode string
	GraphAPIVersion    string
	HTTPTimeout        time.Duration
	LogLevel           string
	LogPretty          bool
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file loaded")
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DBDriver:           getEnv("DB_DRIVER", "sqlite"),
		DBDSN:              getEnv("DB_DSN", ""),
		DBPath:             getEnv("DB_PATH", "./whatsapp-connect.db"),
		VerifyToken:        getEnv("VERIFY_TOKEN", ""),
		WebhookSecret:      getEnv("WEBHOOK_SECRET", ""),
		DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "1"),
		GraphAPIVersion:    getEnv("GRAPH_API_VERSION", "v19.0"),
		HTTPTimeout:        getDuration("HTTP_TIMEOUT", 30*time.Second),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogPretty:          getBool("LOG_PRETTY", false),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
