// Package config loads the gateway configuration from an optional .env file
// and the environment, applying defaults and validating every section.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Gateway     GatewayConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
}

type ApplicationConfig struct {
	Env  string
	Name string
}

type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// GatewayConfig covers message authentication and identity
type GatewayConfig struct {
	SystemIdentity        string   // Header.Sender on every response
	EmployerIdentity      string   // the only sender allowed to send employer-stage notifications
	APIKeys               []string // accepted X-API-KEY values; empty disables the check
	SignatureVerification bool
	SigningKeyPath        string // PEM RSA private key; empty leaves response signatures blank
	MaxBodyBytes          int64
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig contains the audit store configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	AuditCollection string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig configures the duplicate message guard. An empty Addr disables it.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	ReplayTTL   time.Duration
	InFlightTTL time.Duration
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// KafkaConfig contains the lifecycle event relay's Kafka settings
type KafkaConfig struct {
	Brokers           string
	LifecycleTopic    string
	DLQTopic          string // optional
	NumPartitions     int
	ReplicationFactor int
	WriteTimeout      time.Duration
}

type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

type WorkerPoolConfig struct {
	Size int // Maximum number of messages processed concurrently
}

// validate collects every invalid value into a single error
func (c *Config) validate() error {
	var validationErrors []string
	check := func(ok bool, msg string) {
		if !ok {
			validationErrors = append(validationErrors, msg)
		}
	}

	check(c.Server.Port > 0, "SERVER_PORT must be greater than 0")
	check(c.Server.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	check(c.Server.ReadTimeout > 0, "SERVER_READ_TIMEOUT must be greater than 0")
	check(c.Server.WriteTimeout > 0, "SERVER_WRITE_TIMEOUT must be greater than 0")
	check(c.Server.IdleTimeout > 0, "SERVER_IDLE_TIMEOUT must be greater than 0")

	check(c.Gateway.SystemIdentity != "", "GATEWAY_SYSTEM_IDENTITY is required")
	check(c.Gateway.EmployerIdentity != "", "GATEWAY_EMPLOYER_IDENTITY is required")
	check(c.Gateway.MaxBodyBytes > 0, "GATEWAY_MAX_BODY_BYTES must be greater than 0")

	check(c.Postgres.URL != "", "POSTGRES_URL is required")
	check(c.Postgres.MaxConns > 0, "POSTGRES_MAX_CONNS must be greater than 0")
	check(c.Postgres.MinConns > 0, "POSTGRES_MIN_CONNS must be greater than 0")
	check(c.Postgres.MinConns <= c.Postgres.MaxConns, "POSTGRES_MIN_CONNS must not exceed POSTGRES_MAX_CONNS")
	check(c.Postgres.ConnMaxLifetime > 0, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	check(c.Postgres.ConnMaxIdleTime > 0, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")

	check(c.MongoDB.URI != "", "MONGO_URI is required")
	check(c.MongoDB.Database != "", "MONGO_DATABASE is required")
	check(c.MongoDB.AuditCollection != "", "MONGO_AUDIT_COLLECTION is required")
	check(c.MongoDB.Timeout > 0, "MONGO_TIMEOUT must be greater than 0")
	check(c.MongoDB.MaxPoolSize > 0, "MONGO_MAX_POOL_SIZE must be greater than 0")
	check(c.MongoDB.MaxConnIdleTime > 0, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")

	if c.Redis.Enabled() {
		check(c.Redis.ReplayTTL > 0, "REDIS_REPLAY_TTL must be greater than 0")
		check(c.Redis.InFlightTTL > 0, "REDIS_IN_FLIGHT_TTL must be greater than 0")
	}

	check(c.Kafka.Brokers != "", "KAFKA_BROKERS is required")
	check(c.Kafka.LifecycleTopic != "", "KAFKA_LIFECYCLE_TOPIC is required")
	check(c.Kafka.WriteTimeout > 0, "KAFKA_WRITE_TIMEOUT must be greater than 0")

	check(c.Outbox.PollingInterval > 0, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	check(c.Outbox.BatchSize > 0, "OUTBOX_BATCH_SIZE must be greater than 0")
	check(c.Outbox.MaxRetryAttempts > 0, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")

	check(c.WorkerPool.Size > 0, "WORKER_POOL_SIZE must be greater than 0")

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}
	return nil
}
