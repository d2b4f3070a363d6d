package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// Service identity. OTEL_* names follow the OpenTelemetry spec so the
	// same variables drive any other SDK pointed at the same collector.
	ServiceName    string `env:"OTEL_SERVICE_NAME" envDefault:"otelkit-demo"`
	ServiceVersion string `env:"OTEL_SERVICE_VERSION" envDefault:"0.1.0"`
	Environment    string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production

	// OTLP export
	OTLPEndpoint         string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTLPHeaders          string `env:"OTEL_EXPORTER_OTLP_HEADERS" envDefault:""`
	TracesSampler        string `env:"OTEL_TRACES_SAMPLER" envDefault:"parentbased_always_on"`
	TracesSamplerArg     string `env:"OTEL_TRACES_SAMPLER_ARG" envDefault:""`
	MetricExportInterval int    `env:"OTEL_METRIC_EXPORT_INTERVAL" envDefault:"60000"` // milliseconds, per spec

	// HTTP server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	ServerHost string `env:"SERVER_HOST" envDefault:"0.0.0.0"`

	// PostgreSQL
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"otel_demo"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"10"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"50"`

	// Redis
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"otelkit"`

	// RabbitMQ
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// DBM collector, feature parity with the RDS Postgres monitoring setup
	DBMEnabled              bool `env:"DBM_ENABLED" envDefault:"true"`
	DBMCollectionInterval   int  `env:"DBM_COLLECTION_INTERVAL" envDefault:"30"` // seconds
	DBMSlowQueryThresholdMS int  `env:"DBM_SLOW_QUERY_THRESHOLD_MS" envDefault:"100"`
	DBMExplainSampleRate    int  `env:"DBM_EXPLAIN_SAMPLE_RATE" envDefault:"100"` // 1 in N
	DBMMaxExplainsPerCycle  int  `env:"DBM_MAX_EXPLAINS_PER_INTERVAL" envDefault:"10"`
	DBMMaxQueryLength       int  `env:"DBM_MAX_QUERY_LENGTH" envDefault:"4096"`

	// Last9 read API (log/metric queries)
	Last9APIBaseURL string `env:"LAST9_API_BASE_URL" envDefault:""`
	Last9AuthToken  string `env:"LAST9_AUTH_TOKEN" envDefault:""`

	// Snowflake ID generator
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// Logging, always to stdout
	LoggerLevel  string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text; production forces json

	// Rate limiting, enforced in middleware
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"100"`
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}

	validateConfig()
}

func validateConfig() {
	if Cfg.OTLPEndpoint == "" {
		log.Fatal("OTEL_EXPORTER_OTLP_ENDPOINT is required")
	}

	if Cfg.IsProduction() && Cfg.OTLPHeaders == "" {
		log.Printf("WARN: OTEL_EXPORTER_OTLP_HEADERS is not set, the collector must accept unauthenticated OTLP")
	}

	if Cfg.Last9APIBaseURL != "" && Cfg.Last9AuthToken == "" {
		log.Fatal("LAST9_AUTH_TOKEN is required when LAST9_API_BASE_URL is set")
	}

	if Cfg.DBMCollectionInterval <= 0 {
		log.Fatal("DBM_COLLECTION_INTERVAL must be a positive number of seconds")
	}
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
