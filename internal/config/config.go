package config

import (
	"fmt"
	"log"
	"os"
	"time"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env             string
	HTTPPort        string
	APIBaseURL      string
	APIToken        string
	SubmitAttempts  int
	SubmitBackoff   time.Duration
	QueueBackend    string
	CacheBackend    string
	RedisAddr       string
	RosterCacheTTL  time.Duration
	ReportDir       string
	RateLimitPerMin int
	CORSOrigin      string
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() App {
	return App{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPPort:        getEnv("HTTP_PORT", "8082"),
		APIBaseURL:      getEnv("API_BASE_URL", "http://localhost:4000"),
		APIToken:        getEnv("API_TOKEN", ""),
		SubmitAttempts:  intEnv("SUBMIT_ATTEMPTS", 3),
		SubmitBackoff:   durationEnv("SUBMIT_BACKOFF", time.Second),
		QueueBackend:    getEnv("QUEUE_BACKEND", "memory"),
		CacheBackend:    getEnv("CACHE_BACKEND", "memory"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RosterCacheTTL:  durationEnv("ROSTER_CACHE_TTL", 30*time.Second),
		ReportDir:       getEnv("REPORT_DIR", "reports"),
		RateLimitPerMin: intEnv("RATE_LIMIT_PER_MIN", 120),
		CORSOrigin:      getEnv("CORS_ORIGIN", "*"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
