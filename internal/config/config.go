package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultBackendURL = "https://api.pointbox.me/api/customer"

type Config struct {
	HTTPAddr              string
	GRPCAddr              string
	BackendURL            string
	BackendTimeout        time.Duration
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	RedisKeyPrefix        string
	SessionSecret         string
	SessionIssuer         string
	SessionTTL            time.Duration
	SessionCookie         string
	CookieSecure          bool
	SessionVerifyInterval time.Duration
	DefaultLanguage       string
	LocalesDir            string
	DeviceToken           string
	BannerRotateInterval  time.Duration
	CountdownInterval     time.Duration
	ChatWebhookURL        string
	WhatsAppURL           string
	LogLevel              string
	DebugRequests         bool
}

func Load() Config {
	return Config{
		HTTPAddr:              getenv("HTTP_ADDR", ":8080"),
		GRPCAddr:              os.Getenv("GRPC_ADDR"),
		BackendURL:            strings.TrimRight(getenv("CUSTOMER_API_URL", getenv("API_URL", defaultBackendURL)), "/"),
		BackendTimeout:        getenvDuration("BACKEND_TIMEOUT", 0),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               getenvInt("REDIS_DB", 0),
		RedisKeyPrefix:        getenv("REDIS_KEY_PREFIX", "pointbox:"),
		SessionSecret:         getenv("SESSION_SECRET", "dev-secret"),
		SessionIssuer:         getenv("SESSION_ISSUER", "pointbox-customer-web"),
		SessionTTL:            getenvDuration("SESSION_TTL", 30*24*time.Hour),
		SessionCookie:         getenv("SESSION_COOKIE", "pointbox_browser"),
		CookieSecure:          getenvBool("COOKIE_SECURE", false),
		SessionVerifyInterval: getenvDuration("SESSION_VERIFY_INTERVAL", 5*time.Minute),
		DefaultLanguage:       getenv("DEFAULT_LANGUAGE", "en"),
		LocalesDir:            os.Getenv("LOCALES_DIR"),
		DeviceToken:           getenv("DEVICE_TOKEN", "pointbox-web"),
		BannerRotateInterval:  getenvPositiveDuration("BANNER_ROTATE_INTERVAL", 5*time.Second),
		CountdownInterval:     getenvPositiveDuration("COUNTDOWN_INTERVAL", time.Minute),
		ChatWebhookURL:        os.Getenv("CHAT_WEBHOOK_URL"),
		WhatsAppURL:           getenv("WHATSAPP_URL", "https://wa.me/96176504204"),
		LogLevel:              getenv("LOG_LEVEL", "info"),
		DebugRequests:         getenvBool("DEBUG_REQUESTS", false),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// getenvPositiveDuration is getenvDuration for tickers, which cannot run on
// a zero or negative interval.
func getenvPositiveDuration(key string, fallback time.Duration) time.Duration {
	if d := getenvDuration(key, fallback); d > 0 {
		return d
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
