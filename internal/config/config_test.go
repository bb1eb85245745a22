package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "recognition_db", cfg.Database.Database)
				assert.Equal(t, "recognition_tasks", cfg.RabbitMQ.Topology.TaskExchange)
				assert.Equal(t, "recognition_dead_letter_queue", cfg.RabbitMQ.Topology.DeadLetterQueue)
				assert.Equal(t, time.Hour, cfg.RabbitMQ.Topology.TaskTTL)
				assert.Equal(t, 4, cfg.Worker.Concurrency)
				assert.Equal(t, "@every 1m", cfg.Reconciler.MonitorSchedule)
				assert.Equal(t, 100*time.Millisecond, cfg.Fetcher.PollInterval)
			}
		})
	}
}

func validBase() *Config {
	cfg, err := Load("testdata/valid_config.yaml")
	if err != nil {
		panic(err)
	}
	return cfg
}

func TestValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name:      "invalid server port",
			mutate:    func(cfg *Config) { cfg.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "missing database host",
			mutate:    func(cfg *Config) { cfg.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "missing task queue",
			mutate:    func(cfg *Config) { cfg.RabbitMQ.Topology.TaskQueue = "" },
			wantErr:   true,
			errString: "task exchange and queue are required",
		},
		{
			name:      "missing dead-letter queue",
			mutate:    func(cfg *Config) { cfg.RabbitMQ.Topology.DeadLetterQueue = "" },
			wantErr:   true,
			errString: "dead-letter queue is required",
		},
		{
			name:      "zero task ttl",
			mutate:    func(cfg *Config) { cfg.RabbitMQ.Topology.TaskTTL = 0 },
			wantErr:   true,
			errString: "task_ttl must be greater than 0",
		},
		{
			name:      "zero fetcher poll interval",
			mutate:    func(cfg *Config) { cfg.Fetcher.PollInterval = 0 },
			wantErr:   true,
			errString: "poll_interval must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBase()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name:      "zero concurrency",
			mutate:    func(cfg *Config) { cfg.Worker.Concurrency = 0 },
			wantErr:   true,
			errString: "concurrency must be greater than 0",
		},
		{
			name:      "zero predict timeout",
			mutate:    func(cfg *Config) { cfg.Worker.PredictTimeout = 0 },
			wantErr:   true,
			errString: "predict_timeout must be greater than 0",
		},
		{
			name:      "missing predictor url",
			mutate:    func(cfg *Config) { cfg.Predictor.BaseURL = "" },
			wantErr:   true,
			errString: "predictor base_url is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBase()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateReconcilerConfig(t *testing.T) {
	cfg := validBase()
	require.NoError(t, cfg.ValidateReconcilerConfig())

	cfg.Reconciler.MonitorSchedule = ""
	err := cfg.ValidateReconcilerConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitor_schedule is required")
}
