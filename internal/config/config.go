package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	Logging    LoggingConfig    `yaml:"logging"`
	App        AppConfig        `yaml:"app"`
	Worker     WorkerConfig     `yaml:"worker"`
	Predictor  PredictorConfig  `yaml:"predictor"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Fetcher    FetcherConfig    `yaml:"fetcher"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and topology configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Topology   TopologyConfig   `yaml:"topology"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// TopologyConfig names the exchanges and queues the gateway declares. The
// task queue dead-letters into the dead_letter_queue after task_ttl.
type TopologyConfig struct {
	TaskExchange     string        `yaml:"task_exchange"`
	TaskQueue        string        `yaml:"task_queue"`
	TaskRoutingKey   string        `yaml:"task_routing_key"`
	ResultExchange   string        `yaml:"result_exchange"`
	ResultQueue      string        `yaml:"result_queue"`
	ResultRoutingKey string        `yaml:"result_routing_key"`
	DeadLetterQueue  string        `yaml:"dead_letter_queue"`
	TaskTTL          time.Duration `yaml:"task_ttl"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	PredictTimeout  time.Duration `yaml:"predict_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PredictorConfig holds the recognition model endpoint configuration
type PredictorConfig struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ReconcilerConfig holds reconciler service configuration
type ReconcilerConfig struct {
	// MonitorSchedule is a cron expression for the queue-depth monitor.
	MonitorSchedule string `yaml:"monitor_schedule"`
}

// FetcherConfig holds synchronous result fetch configuration
type FetcherConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxTimeout   time.Duration `yaml:"max_timeout"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// validateShared checks the sections every service needs.
func (c *Config) validateShared() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	t := c.RabbitMQ.Topology
	if t.TaskExchange == "" || t.TaskQueue == "" {
		return fmt.Errorf("rabbitmq task exchange and queue are required")
	}

	if t.ResultExchange == "" || t.ResultQueue == "" {
		return fmt.Errorf("rabbitmq result exchange and queue are required")
	}

	if t.DeadLetterQueue == "" {
		return fmt.Errorf("rabbitmq dead-letter queue is required")
	}

	if t.TaskTTL <= 0 {
		return fmt.Errorf("rabbitmq task_ttl must be greater than 0")
	}

	return nil
}

// ValidateAPIConfig checks the configuration for the API service
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Fetcher.PollInterval <= 0 {
		return fmt.Errorf("fetcher poll_interval must be greater than 0")
	}

	if c.Fetcher.MaxTimeout <= 0 {
		return fmt.Errorf("fetcher max_timeout must be greater than 0")
	}

	return c.validateShared()
}

// ValidateWorkerConfig checks the configuration for the worker service
func (c *Config) ValidateWorkerConfig() error {
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.PredictTimeout <= 0 {
		return fmt.Errorf("worker predict_timeout must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	if c.Predictor.BaseURL == "" {
		return fmt.Errorf("predictor base_url is required")
	}

	return c.validateShared()
}

// ValidateReconcilerConfig checks the configuration for the reconciler service
func (c *Config) ValidateReconcilerConfig() error {
	if c.Reconciler.MonitorSchedule == "" {
		return fmt.Errorf("reconciler monitor_schedule is required")
	}

	return c.validateShared()
}
