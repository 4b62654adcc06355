package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/draftea/saga-system/orchestrator-service/application"
	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DispatcherModeLocal = "local"
	DispatcherModeSNS   = "sns"

	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

type Config struct {
	ServiceName  string                    `mapstructure:"service_name"`
	Env          string                    `mapstructure:"env"`
	Port         string                    `mapstructure:"port"`
	Database     Database                  `mapstructure:"database"`
	AWS          AWS                       `mapstructure:"aws"`
	Telemetry    Telemetry                 `mapstructure:"telemetry"`
	Orchestrator Orchestrator              `mapstructure:"orchestrator"`
	Dispatcher   Dispatcher                `mapstructure:"dispatcher"`
	Storage      Storage                   `mapstructure:"storage"`
	Sagas        map[string]SagaDefinition `mapstructure:"sagas"`
}

type Database struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type AWS struct {
	Region      string `mapstructure:"region"`
	SNSTopicArn string `mapstructure:"sns_topic_arn"`
	SQSQueueURL string `mapstructure:"sqs_queue_url"`
}

type Telemetry struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

type Orchestrator struct {
	StepTimeout         time.Duration `mapstructure:"step_timeout"`
	CompensationTimeout time.Duration `mapstructure:"compensation_timeout"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
	SweepBatchSize      int           `mapstructure:"sweep_batch_size"`
}

type Dispatcher struct {
	Mode           string        `mapstructure:"mode"`
	Workers        int           `mapstructure:"workers"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

type Storage struct {
	Driver        string `mapstructure:"driver"`
	RunMigrations bool   `mapstructure:"run_migrations"`
}

// SagaDefinition declares a saga type in configuration. It replaces the
// built in definition of the same type.
type SagaDefinition struct {
	Steps         []string          `mapstructure:"steps"`
	Compensations map[string]string `mapstructure:"compensations"`
}

func ReadConfig() (*Config, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("unable to get current file")
	}

	configDir := filepath.Join(filepath.Dir(filename))
	viper.SetConfigName(getConfigName())
	viper.SetConfigType("json")
	viper.AddConfigPath(configDir)

	// Allow environment variables to override config
	viper.AutomaticEnv()
	viper.SetEnvPrefix("SAGA")

	setDefaults()

	err := viper.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	err = viper.Unmarshal(&config)
	if err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func getConfigName() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "local"
	}
	return env
}

func setDefaults() {
	// Service defaults
	viper.SetDefault("service_name", "saga-orchestrator")
	viper.SetDefault("env", getEnv("ENV", "local"))
	viper.SetDefault("port", getEnv("PORT", "8080"))

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.database", "saga_system")
	viper.SetDefault("database.ssl_mode", "disable")

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		viper.Set("database.url", dbURL)
	}

	// AWS defaults
	viper.SetDefault("aws.region", getEnv("AWS_DEFAULT_REGION", "us-east-1"))
	viper.SetDefault("aws.sns_topic_arn", getEnv("SNS_TOPIC_ARN", "arn:aws:sns:us-east-1:000000000000:saga-events"))
	viper.SetDefault("aws.sqs_queue_url", getEnv("SQS_QUEUE_URL", "http://localhost:4566/000000000000/saga-orchestrator"))

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.otlp_endpoint", "localhost:4318")

	// Orchestrator defaults
	viper.SetDefault("orchestrator.step_timeout", "30s")
	viper.SetDefault("orchestrator.compensation_timeout", "2m")
	viper.SetDefault("orchestrator.sweep_interval", "5s")
	viper.SetDefault("orchestrator.sweep_batch_size", 100)

	viper.SetDefault("dispatcher.mode", DispatcherModeLocal)
	viper.SetDefault("dispatcher.workers", 8)
	viper.SetDefault("dispatcher.max_attempts", 3)
	viper.SetDefault("dispatcher.initial_backoff", "100ms")
	viper.SetDefault("dispatcher.max_backoff", "2s")

	viper.SetDefault("storage.driver", StorageDriverMemory)
	viper.SetDefault("storage.run_migrations", true)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetDatabaseURL constructs database URL from config
func (c *Config) GetDatabaseURL() string {
	if url := viper.GetString("database.url"); url != "" {
		return url
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// OrchestratorConfig returns the deadlines applied to sagas
func (c *Config) OrchestratorConfig() application.OrchestratorConfig {
	return application.OrchestratorConfig{
		StepTimeout:         c.Orchestrator.StepTimeout,
		CompensationTimeout: c.Orchestrator.CompensationTimeout,
	}
}

// SagaDefinitions returns the built in definitions overlaid with the configured ones
func (c *Config) SagaDefinitions() []domain.Definition {
	byType := make(map[string]domain.Definition)
	for _, def := range domain.BaselineDefinitions() {
		byType[def.Type] = def
	}
	for sagaType, def := range c.Sagas {
		byType[sagaType] = domain.Definition{
			Type:          sagaType,
			Steps:         def.Steps,
			Compensations: def.Compensations,
		}
	}

	types := make([]string, 0, len(byType))
	for sagaType := range byType {
		types = append(types, sagaType)
	}
	sort.Strings(types)

	definitions := make([]domain.Definition, 0, len(types))
	for _, sagaType := range types {
		definitions = append(definitions, byType[sagaType])
	}
	return definitions
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	if err := c.OrchestratorConfig().Validate(); err != nil {
		return err
	}
	if c.Orchestrator.SweepInterval <= 0 {
		return errors.New("sweep interval must be positive")
	}
	if c.Orchestrator.SweepBatchSize < 1 {
		return errors.New("sweep batch size must be at least 1")
	}

	switch c.Dispatcher.Mode {
	case DispatcherModeLocal:
		if c.Dispatcher.Workers < 1 {
			return errors.New("dispatcher workers must be at least 1")
		}
	case DispatcherModeSNS:
		if c.AWS.SNSTopicArn == "" || c.AWS.SQSQueueURL == "" {
			return errors.New("sns dispatcher requires aws.sns_topic_arn and aws.sqs_queue_url")
		}
	default:
		return errors.Errorf("unknown dispatcher mode %q", c.Dispatcher.Mode)
	}

	switch c.Storage.Driver {
	case StorageDriverMemory, StorageDriverPostgres:
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if _, err := domain.NewRegistry(c.SagaDefinitions()...); err != nil {
		return err
	}
	return nil
}
