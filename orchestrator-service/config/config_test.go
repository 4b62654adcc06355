package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		ServiceName: "saga-orchestrator",
		Env:         "test",
		Orchestrator: Orchestrator{
			StepTimeout:         30 * time.Second,
			CompensationTimeout: 2 * time.Minute,
			SweepInterval:       5 * time.Second,
			SweepBatchSize:      100,
		},
		Dispatcher: Dispatcher{Mode: DispatcherModeLocal, Workers: 4, MaxAttempts: 3},
		Storage:    Storage{Driver: StorageDriverMemory},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name          string
		modify        func(c *Config)
		expectedError string
	}{
		{
			name:   "valid local config",
			modify: func(c *Config) {},
		},
		{
			name: "valid sns config",
			modify: func(c *Config) {
				c.Dispatcher.Mode = DispatcherModeSNS
				c.AWS.SNSTopicArn = "arn:aws:sns:us-east-1:000000000000:saga-events"
				c.AWS.SQSQueueURL = "http://localhost:4566/000000000000/saga-orchestrator"
			},
		},
		{
			name:          "compensation timeout not longer than step timeout",
			modify:        func(c *Config) { c.Orchestrator.CompensationTimeout = c.Orchestrator.StepTimeout },
			expectedError: "compensation timeout",
		},
		{
			name:          "zero step timeout",
			modify:        func(c *Config) { c.Orchestrator.StepTimeout = 0 },
			expectedError: "step timeout must be positive",
		},
		{
			name:          "zero sweep interval",
			modify:        func(c *Config) { c.Orchestrator.SweepInterval = 0 },
			expectedError: "sweep interval must be positive",
		},
		{
			name:          "zero sweep batch",
			modify:        func(c *Config) { c.Orchestrator.SweepBatchSize = 0 },
			expectedError: "sweep batch size",
		},
		{
			name:          "local dispatcher without workers",
			modify:        func(c *Config) { c.Dispatcher.Workers = 0 },
			expectedError: "dispatcher workers",
		},
		{
			name:          "sns dispatcher without queue",
			modify:        func(c *Config) { c.Dispatcher.Mode = DispatcherModeSNS },
			expectedError: "sns dispatcher requires",
		},
		{
			name:          "unknown dispatcher mode",
			modify:        func(c *Config) { c.Dispatcher.Mode = "kafka" },
			expectedError: `unknown dispatcher mode "kafka"`,
		},
		{
			name:          "unknown storage driver",
			modify:        func(c *Config) { c.Storage.Driver = "mongo" },
			expectedError: `unknown storage driver "mongo"`,
		},
		{
			name: "saga without compensation",
			modify: func(c *Config) {
				c.Sagas = map[string]SagaDefinition{
					"refund": {Steps: []string{"refund_payment"}},
				}
			},
			expectedError: "refund_payment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := cfg.Validate()

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_SagaDefinitions(t *testing.T) {
	cfg := validConfig()
	cfg.Sagas = map[string]SagaDefinition{
		"create_order": {
			Steps:         []string{"reserve_inventory", "charge_payment"},
			Compensations: map[string]string{"reserve_inventory": "release_inventory", "charge_payment": "refund_payment"},
		},
		"archive_order": {
			Steps:         []string{"archive_order"},
			Compensations: map[string]string{"archive_order": "restore_order"},
		},
	}

	definitions := cfg.SagaDefinitions()

	types := make([]string, len(definitions))
	for i, def := range definitions {
		types[i] = def.Type
	}
	assert.Equal(t, []string{"archive_order", "cancel_order", "create_order"}, types)
	assert.Equal(t, []string{"reserve_inventory", "charge_payment"}, definitions[2].Steps)
	assert.Len(t, definitions[1].Steps, 5)
}

func TestConfig_OrchestratorConfig(t *testing.T) {
	cfg := validConfig()

	orchestrator := cfg.OrchestratorConfig()

	assert.Equal(t, 30*time.Second, orchestrator.StepTimeout)
	assert.Equal(t, 2*time.Minute, orchestrator.CompensationTimeout)
}
