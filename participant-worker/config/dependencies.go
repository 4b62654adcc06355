package config

import (
	"context"
	"fmt"
	"time"

	"github.com/draftea/saga-system/participants"
	"github.com/draftea/saga-system/shared/events"
	sharedinfra "github.com/draftea/saga-system/shared/infrastructure"
	"github.com/draftea/saga-system/shared/logger"
	"github.com/draftea/saga-system/shared/saga"
	"github.com/draftea/saga-system/shared/telemetry"
	"go.uber.org/zap"
)

type Dependencies struct {
	Logger *zap.Logger

	// Participants
	Participants *participants.Set
	Runner       *saga.Runner
	Worker       *saga.Worker

	// Infrastructure
	EventPublisher  *sharedinfra.SNSPublisherAdapter
	EventSubscriber *sharedinfra.SQSSubscriberAdapter

	// Telemetry
	Telemetry         *telemetry.Telemetry
	telemetryShutdown func()
}

func BuildDependencies(ctx context.Context, config *Config) (*Dependencies, error) {
	log, err := logger.New(config.Env, config.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	deps := &Dependencies{Logger: log}

	if config.Telemetry.Enabled {
		tel, shutdown, err := telemetry.InitTelemetry(ctx, telemetry.ParticipantWorkerConfig.
			WithServiceName(config.ServiceName).
			WithOTLPEndpoint(config.Telemetry.OTLPEndpoint))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		deps.Telemetry = tel
		deps.telemetryShutdown = shutdown
	}

	// Initialize AWS infrastructure
	eventPublisher, err := sharedinfra.NewSNSPublisherAdapter(ctx, config.AWS.SNSTopicArn)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create SNS publisher: %w", err)
	}
	deps.EventPublisher = eventPublisher

	eventSubscriber, err := sharedinfra.NewSQSSubscriberAdapter(config.AWS.SQSQueueURL,
		sharedinfra.WithTopics(events.ParticipantTopics...),
		sharedinfra.WithWorkers(int32(config.Worker.Consumers)),
		sharedinfra.WithReaders(int32(config.Worker.Readers)),
		sharedinfra.WithVisibilityTimeout(int32(config.Worker.VisibilityTimeout/time.Second)),
		sharedinfra.WithSubscriberLogger(log.Named("subscriber")),
	)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create SQS subscriber: %w", err)
	}
	deps.EventSubscriber = eventSubscriber

	// Initialize participants
	deps.Participants = participants.NewSet(config.Stock, log.Named("participants"))
	registered := deps.Participants.Register(saga.NewParticipants())
	log.Info("participants registered", zap.Strings("steps", registered.Steps()))
	deps.Runner = saga.NewRunner(registered, saga.RetryPolicy{
		MaxAttempts:    config.Worker.MaxAttempts,
		InitialBackoff: config.Worker.InitialBackoff,
		MaxBackoff:     config.Worker.MaxBackoff,
	})
	deps.Worker = saga.NewWorker(deps.Runner, eventPublisher, log.Named("worker"))

	return deps, nil
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	if d.EventSubscriber != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := d.EventSubscriber.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event subscriber: %w", err))
		}
		cancel()
	}

	if d.EventPublisher != nil {
		if err := d.EventPublisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event publisher: %w", err))
		}
	}

	if d.telemetryShutdown != nil {
		d.telemetryShutdown()
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}
