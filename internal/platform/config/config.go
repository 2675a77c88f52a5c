package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. Everything comes from the
// environment so main stays lean.
type Server struct {
	Addr          string
	LogLevel      string
	JWTSigningKey string

	// PostgresURL enables the postgres stores when set; empty means the
	// in-memory stores are used.
	PostgresURL string

	Redis RedisConfig
	Kafka KafkaConfig

	// BlockInterval is how often the block scheduler advances the local
	// height and triggers the expiry sweep. In a full deployment the
	// consensus layer drives this instead.
	BlockInterval time.Duration

	// AllowReissueAfterSweep permits a credential key to be issued again
	// after the sweeper purged it. Off by default: uniqueness is permanent
	// and history stays tamper-evident.
	AllowReissueAfterSweep bool
}

// RedisConfig configures the optional redis-backed expiry index.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional event publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:          getenv("CREDREG_ADDR", ":8080"),
		LogLevel:      getenv("CREDREG_LOG_LEVEL", "info"),
		JWTSigningKey: getenv("CREDREG_JWT_SIGNING_KEY", ""),
		PostgresURL:   os.Getenv("CREDREG_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("CREDREG_REDIS_URL"),
			PoolSize:     getint("CREDREG_REDIS_POOL_SIZE", 10),
			MinIdleConns: getint("CREDREG_REDIS_MIN_IDLE", 2),
			DialTimeout:  getduration("CREDREG_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getduration("CREDREG_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getduration("CREDREG_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Topic: getenv("CREDREG_KAFKA_TOPIC", "credreg.events"),
		},
		BlockInterval:          getduration("CREDREG_BLOCK_INTERVAL", 6*time.Second),
		AllowReissueAfterSweep: os.Getenv("CREDREG_ALLOW_REISSUE_AFTER_SWEEP") == "true",
	}
	if brokers := os.Getenv("CREDREG_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
