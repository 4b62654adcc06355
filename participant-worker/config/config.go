package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	ServiceName string           `mapstructure:"service_name"`
	Env         string           `mapstructure:"env"`
	Port        string           `mapstructure:"port"`
	AWS         AWS              `mapstructure:"aws"`
	Telemetry   Telemetry        `mapstructure:"telemetry"`
	Worker      Worker           `mapstructure:"worker"`
	Stock       map[string]int64 `mapstructure:"stock"`
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

type Worker struct {
	Consumers         int           `mapstructure:"consumers"`
	Readers           int           `mapstructure:"readers"`
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
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
	viper.SetEnvPrefix("PARTICIPANT")

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
	viper.SetDefault("service_name", "saga-participant-worker")
	viper.SetDefault("env", getEnv("ENV", "local"))
	viper.SetDefault("port", getEnv("PORT", "8081"))

	viper.SetDefault("aws.region", getEnv("AWS_DEFAULT_REGION", "us-east-1"))
	viper.SetDefault("aws.sns_topic_arn", getEnv("SNS_TOPIC_ARN", "arn:aws:sns:us-east-1:000000000000:saga-events"))
	viper.SetDefault("aws.sqs_queue_url", getEnv("SQS_QUEUE_URL", "http://localhost:4566/000000000000/saga-participants"))

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.otlp_endpoint", "localhost:4318")

	viper.SetDefault("worker.consumers", 4)
	viper.SetDefault("worker.readers", 1)
	viper.SetDefault("worker.visibility_timeout", "60s")
	viper.SetDefault("worker.max_attempts", 3)
	viper.SetDefault("worker.initial_backoff", "100ms")
	viper.SetDefault("worker.max_backoff", "2s")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate checks the settings the worker cannot start without
func (c *Config) Validate() error {
	if c.AWS.SNSTopicArn == "" {
		return errors.New("aws.sns_topic_arn is required")
	}
	if c.AWS.SQSQueueURL == "" {
		return errors.New("aws.sqs_queue_url is required")
	}
	if c.Worker.Consumers < 1 {
		return errors.New("worker consumers must be at least 1")
	}
	if c.Worker.Readers < 1 {
		return errors.New("worker readers must be at least 1")
	}
	if c.Worker.VisibilityTimeout < time.Second {
		return errors.New("worker visibility timeout must be at least one second")
	}
	if c.Worker.MaxAttempts < 1 {
		return errors.New("worker max attempts must be at least 1")
	}
	for sku, qty := range c.Stock {
		if qty < 0 {
			return errors.Errorf("stock of %s cannot be negative", sku)
		}
	}
	return nil
}
