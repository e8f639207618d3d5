package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	OrdersBackendKV   = "kv"
	OrdersBackendBlob = "blob"
)

type Config struct {
	Port   string
	AppEnv string

	MongoURI string
	DBName   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PiAPIKey        string
	PiSandbox       bool
	PiAPIURL        string
	PiSandboxAPIURL string
	PiHTTPTimeout   time.Duration

	AdminKey string

	SessionSecret string
	SessionTTL    time.Duration
	SessionCookie string
	CookieSecure  bool
	CookieDomain  string

	PublicBaseURL string
	OrdersBackend string
}

// Load reads the process environment, optionally seeded from a .env file.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}

	cfg := Config{
		Port:            getEnvOrDefault("PORT", "8080"),
		AppEnv:          strings.ToLower(getEnvOrDefault("APP_ENV", "development")),
		MongoURI:        getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		DBName:          getEnvOrDefault("DB_NAME", "pistore"),
		RedisAddr:       getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:         getIntEnv("REDIS_DB", 0),
		PiAPIKey:        getEnvOrDefault("PI_API_KEY", ""),
		PiSandbox:       getBoolEnv("PI_SANDBOX", true),
		PiAPIURL:        getEnvOrDefault("PI_API_URL", "https://api.minepi.com/v2"),
		PiSandboxAPIURL: getEnvOrDefault("PI_SANDBOX_API_URL", "https://api.minepi.com/v2"),
		PiHTTPTimeout:   getDurationEnv("PI_HTTP_TIMEOUT", 15, time.Second),
		AdminKey:        getEnvOrDefault("ADMIN_KEY", ""),
		SessionSecret:   getEnvOrDefault("SESSION_SECRET", ""),
		SessionTTL:      getDurationEnv("SESSION_TTL", 24*7, time.Hour),
		SessionCookie:   getEnvOrDefault("SESSION_COOKIE", "pi_session"),
		CookieSecure:    getBoolEnv("COOKIE_SECURE", false),
		CookieDomain:    getEnvOrDefault("COOKIE_DOMAIN", ""),
		PublicBaseURL:   strings.TrimRight(getEnvOrDefault("PUBLIC_BASE_URL", ""), "/"),
		OrdersBackend:   strings.ToLower(getEnvOrDefault("ORDERS_BACKEND", OrdersBackendKV)),
	}

	if cfg.OrdersBackend != OrdersBackendKV && cfg.OrdersBackend != OrdersBackendBlob {
		log.Printf("[CONFIG] [WARN] unknown ORDERS_BACKEND %q, using %q", cfg.OrdersBackend, OrdersBackendKV)
		cfg.OrdersBackend = OrdersBackendKV
	}
	if cfg.SessionSecret == "" {
		log.Println("[CONFIG] [WARN] SESSION_SECRET not set, sessions cannot be issued")
	}
	if cfg.PiAPIKey == "" {
		log.Println("[CONFIG] [WARN] PI_API_KEY not set, payment calls will be rejected upstream")
	}

	return cfg
}

// PiBaseURL picks the provider endpoint for the current deployment.
func (c Config) PiBaseURL() string {
	if c.PiSandbox {
		return strings.TrimRight(c.PiSandboxAPIURL, "/")
	}
	return strings.TrimRight(c.PiAPIURL, "/")
}

// IsProduction reports whether destructive admin tooling must stay disabled.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}
