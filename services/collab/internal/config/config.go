// Package config centralizes environment-variable configuration for the
// room manager, with constant defaults for anything unset.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultPort      = "8082"
	defaultRedisHost = "localhost"
	defaultRedisPort = "6379"
	defaultRoomsDB   = 0

	defaultHeartbeatTTL       = 120 * time.Second
	defaultGraceHold          = 300 * time.Second
	defaultGraceHoldPoll      = 1 * time.Second
	defaultLockTTL            = 60 * time.Second
	defaultWSReceiveWait      = 10 * time.Second
	defaultHeartbeatPing      = 30 * time.Second
	defaultQuestionPoolURL    = "http://localhost:8083/pool"
	defaultQuestionHistoryURL = "http://localhost:8084"
)

// Config holds every environment-derived setting for the room manager.
type Config struct {
	Port string

	RedisHost string
	RedisPort string
	RoomsDB   int
	EventsDB  int

	StreamKey string
	Group     string

	APIGatewayURL   string
	RegistryPath    string
	HeartbeatPath   string
	HeartbeatPeriod time.Duration
	GatewayWSURL    string
	frontEndURL     string

	QuestionPoolURL    string
	QuestionHistoryURL string

	ServiceName    string
	ServiceAddress string
	JWTSecret      string

	HeartbeatTTL  time.Duration
	GraceHold     time.Duration
	GraceHoldPoll time.Duration
	LockTTL       time.Duration
	WSReceiveWait time.Duration
}

// Load reads configuration from the environment, falling back to the
// defaults above for anything unset.
func Load() Config {
	// create_room and the heartbeat/cleanup keys live in the same DB the
	// matchmaker writes to, so REDIS_ROOMS_DB follows REDIS_DB unless
	// overridden explicitly.
	roomsDB := getEnvInt("REDIS_ROOMS_DB", getEnvInt("REDIS_DB", defaultRoomsDB))
	return Config{
		Port: getEnv("PORT", defaultPort),

		RedisHost: getEnv("REDIS_HOST", defaultRedisHost),
		RedisPort: getEnv("REDIS_PORT", defaultRedisPort),
		RoomsDB:   roomsDB,
		EventsDB:  getEnvInt("REDIS_EVENTS_DB", roomsDB+1),

		StreamKey: getEnv("REDIS_STREAM_KEY", "expired_ttl"),
		Group:     getEnv("REDIS_GROUP", "collab"),

		APIGatewayURL:   getEnv("APIGATEWAY_URL", ""),
		RegistryPath:    getEnv("REGISTRY_PATH", "/registry/register-openapi"),
		HeartbeatPath:   getEnv("HEARTBEAT_PATH", "/registry/heartbeat"),
		HeartbeatPeriod: getEnvDuration("HEARTBEAT_PERIOD", defaultHeartbeatPing),
		GatewayWSURL:    getEnv("GATEWAY_WEBSOCKET_URL", ""),
		frontEndURL:     getEnv("FRONT_END_URL", ""),

		QuestionPoolURL:    getEnv("QUESTION_SERVICE_POOL_URL", defaultQuestionPoolURL),
		QuestionHistoryURL: getEnv("QUESTION_SERVICE_HISTORY_URL", defaultQuestionHistoryURL),

		ServiceName:    getEnv("SERVICE_NAME", "collab"),
		ServiceAddress: getEnv("SERVICE_ADDRESS", getEnv("HOST_URL", "http://localhost:"+getEnv("PORT", defaultPort))),
		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-me"),

		HeartbeatTTL:  defaultHeartbeatTTL,
		GraceHold:     defaultGraceHold,
		GraceHoldPoll: defaultGraceHoldPoll,
		LockTTL:       defaultLockTTL,
		WSReceiveWait: defaultWSReceiveWait,
	}
}

// RedisAddr returns the host:port pair go-redis expects.
func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// FrontEndURL returns the configured FRONT_END_URL, used as the sole
// allowed CORS origin when set.
func (c Config) FrontEndURL() string {
	return c.frontEndURL
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
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

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(secs) * time.Second
}
