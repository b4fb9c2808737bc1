package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr        string
	DatabaseURL string
	RedisAddr   string

	// SequenceBackend selects the counter store: "postgres", "redis" or
	// "memory". Memory is for local development only; it does not survive
	// restarts.
	SequenceBackend string

	// KafkaBrokers enables the audit relay when non-empty.
	KafkaBrokers    []string
	KafkaAuditTopic string
	RelayInterval   time.Duration
	RelayBatchSize  int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:            envOr("FIELDLEDGER_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		SequenceBackend: envOr("SEQUENCE_BACKEND", "postgres"),
		KafkaAuditTopic: envOr("KAFKA_AUDIT_TOPIC", "fieldledger.audit.events"),
		RelayInterval:   durationOr("RELAY_INTERVAL", 5*time.Second),
		RelayBatchSize:  500,
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
