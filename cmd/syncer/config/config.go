package config

import "time"

// Config holds application configuration.
type Config struct {
	DatabaseURL   string        `env:"DATABASE_URL"`
	PageSize      int           `env:"PAGE_SIZE" envDefault:"500"`
	HTTPTimeout   time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	TaskRetention time.Duration `env:"TASK_RETENTION" envDefault:"168h"`

	ERP      ERP
	RabbitMQ RabbitMQ
}

// ERP holds remote ERP API configuration.
type ERP struct {
	BaseURL      string `env:"ERP_API_URL"`
	APIKey       string `env:"ERP_API_KEY"`
	APIKeyHeader string `env:"ERP_API_KEY_HEADER" envDefault:"X-API-Key"`
	MaxRetries   uint64 `env:"ERP_MAX_RETRIES" envDefault:"3"`
}

// RabbitMQ holds RabbitMQ configuration.
type RabbitMQ struct {
	URL      string `env:"RABBITMQ_URL"`
	Exchange string `env:"RABBITMQ_EXCHANGE" envDefault:"erpsync-ex"`
	Queue    string `env:"RABBITMQ_QUEUE" envDefault:"erpsync.commands"`
}
