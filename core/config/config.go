package config

import (
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	Presence   PresenceConfig
	Router     RouterConfig
	Realtime   RealtimeConfig
	WorkerPool WorkerPoolConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasePath           string
	TrustedProxies     []string
	CorsAllowedOrigins []string
	IdentityHeader     string
	ServerID           string
}

type PresenceConfig struct {
	HeartbeatTimeout time.Duration
	SweepInterval    time.Duration
	Shards           int
}

type RouterConfig struct {
	Shards int
}

type RealtimeConfig struct {
	OutboundBuffer      int
	PingInterval        time.Duration
	ExcludeTypingSender bool
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

// Global provides access to the loaded configuration globally
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	cors := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := getEnv("APP_CORS_ALLOWED_ORIGINS", ""); v != "" {
		cors = splitList(v)
	}

	var proxies []string
	if v := getEnv("APP_TRUSTED_PROXIES", ""); v != "" {
		proxies = splitList(v)
	}

	cfg := &Config{
		App: AppConfig{
			Version:            "v1.0.0",
			Port:               getEnv("APP_PORT", "3000"),
			Debug:              getEnvBool("APP_DEBUG", false),
			Environment:        getEnv("APP_ENV", "development"),
			BasePath:           strings.TrimRight(getEnv("APP_BASE_PATH", ""), "/"),
			TrustedProxies:     proxies,
			CorsAllowedOrigins: cors,
			IdentityHeader:     getEnv("APP_IDENTITY_HEADER", "X-User-ID"),
			ServerID:           getEnv("SERVER_ID", ""),
		},
		Presence: PresenceConfig{
			HeartbeatTimeout: getEnvDuration("PRESENCE_HEARTBEAT_TIMEOUT", 30*time.Second),
			SweepInterval:    getEnvDuration("PRESENCE_SWEEP_INTERVAL", 10*time.Second),
			Shards:           getEnvInt("PRESENCE_SHARDS", 32),
		},
		Router: RouterConfig{
			Shards: getEnvInt("ROUTER_SHARDS", 32),
		},
		Realtime: RealtimeConfig{
			OutboundBuffer:      getEnvInt("REALTIME_OUTBOUND_BUFFER", 64),
			PingInterval:        getEnvDuration("REALTIME_PING_INTERVAL", 25*time.Second),
			ExcludeTypingSender: getEnvBool("REALTIME_EXCLUDE_TYPING_SENDER", true),
		},
		WorkerPool: WorkerPoolConfig{
			Size:      getEnvInt("NOTIFY_WORKER_POOL_SIZE", 8),
			QueueSize: getEnvInt("NOTIFY_WORKER_QUEUE_SIZE", 256),
		},
	}

	Global = cfg
	return cfg, nil
}
