package config

import (
	"context"
	"fmt"
	"time"

	"github.com/draftea/saga-system/orchestrator-service/application"
	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/draftea/saga-system/orchestrator-service/handlers"
	"github.com/draftea/saga-system/orchestrator-service/infrastructure"
	"github.com/draftea/saga-system/participants"
	"github.com/draftea/saga-system/shared/events"
	sharedinfra "github.com/draftea/saga-system/shared/infrastructure"
	"github.com/draftea/saga-system/shared/logger"
	"github.com/draftea/saga-system/shared/saga"
	"github.com/draftea/saga-system/shared/telemetry"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// DefaultStock seeds the in-process inventory participant
var DefaultStock = map[string]int64{
	"sku-1": 100,
	"sku-2": 100,
	"sku-3": 10,
}

type Dependencies struct {
	Logger *zap.Logger

	// Database, nil with the memory storage driver
	DB *sqlx.DB

	// Storage
	SagaRepository domain.SagaRepository
	Journal        events.EventStore

	// Dispatch
	Dispatcher      domain.StepDispatcher
	LocalDispatcher *infrastructure.LocalStepDispatcher
	Participants    *participants.Set

	// Use Cases
	Orchestrator    *application.Orchestrator
	TimeoutSweeper  *application.TimeoutSweeper
	GetSagaStatus   *application.GetSagaStatus
	GetSagaHistory  *application.GetSagaHistory
	GetSagaJournal  *application.GetSagaJournal
	CleanupOldSagas *application.CleanupOldSagas

	// HTTP Handlers
	SagaHandlers *handlers.SagaHandlers

	// Event Handlers
	SagaEventHandlers *handlers.SagaEventHandlers

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
		tel, shutdown, err := telemetry.InitTelemetry(ctx, telemetry.OrchestratorServiceConfig.
			WithServiceName(config.ServiceName).
			WithOTLPEndpoint(config.Telemetry.OTLPEndpoint))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		deps.Telemetry = tel
		deps.telemetryShutdown = shutdown
	}

	if err := deps.buildStorage(config); err != nil {
		deps.Close()
		return nil, err
	}

	registry, err := domain.NewRegistry(config.SagaDefinitions()...)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to build saga registry: %w", err)
	}

	if err := deps.buildDispatcher(ctx, config); err != nil {
		deps.Close()
		return nil, err
	}

	// Initialize use cases
	deps.Orchestrator = application.NewOrchestrator(
		registry,
		deps.SagaRepository,
		deps.Dispatcher,
		deps.Journal,
		log.Named("orchestrator"),
		config.OrchestratorConfig(),
	)
	deps.TimeoutSweeper = application.NewTimeoutSweeper(
		deps.SagaRepository,
		deps.Orchestrator,
		config.Orchestrator.SweepInterval,
		config.Orchestrator.SweepBatchSize,
		log.Named("sweeper"),
	)
	deps.GetSagaStatus = application.NewGetSagaStatus(deps.SagaRepository)
	deps.GetSagaHistory = application.NewGetSagaHistory(deps.SagaRepository)
	deps.GetSagaJournal = application.NewGetSagaJournal(deps.SagaRepository, deps.Journal)
	deps.CleanupOldSagas = application.NewCleanupOldSagas(deps.SagaRepository, log.Named("cleanup"))

	// Initialize handlers
	deps.SagaHandlers = handlers.NewSagaHandlers(
		deps.Orchestrator,
		deps.GetSagaStatus,
		deps.GetSagaHistory,
		deps.GetSagaJournal,
		deps.CleanupOldSagas,
	)
	deps.SagaEventHandlers = handlers.NewSagaEventHandlers(deps.Orchestrator, log.Named("events"))

	return deps, nil
}

func (d *Dependencies) buildStorage(config *Config) error {
	if config.Storage.Driver == StorageDriverMemory {
		d.SagaRepository = infrastructure.NewMemorySagaRepository()
		d.Journal = sharedinfra.NewMemoryEventStore()
		return nil
	}

	// Initialize database
	db, err := sqlx.Connect("postgres", config.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	d.DB = db

	if config.Storage.RunMigrations {
		if err := infrastructure.RunMigrations(db.DB); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	d.SagaRepository = infrastructure.NewPostgresSagaRepository(db)
	d.Journal = sharedinfra.NewPostgresEventStore(db)
	return nil
}

func (d *Dependencies) buildDispatcher(ctx context.Context, config *Config) error {
	if config.Dispatcher.Mode == DispatcherModeLocal {
		d.Participants = participants.NewSet(DefaultStock, d.Logger.Named("participants"))
		registered := d.Participants.Register(saga.NewParticipants())
		d.Logger.Info("local participants registered", zap.Strings("steps", registered.Steps()))
		runner := saga.NewRunner(registered, saga.RetryPolicy{
			MaxAttempts:    config.Dispatcher.MaxAttempts,
			InitialBackoff: config.Dispatcher.InitialBackoff,
			MaxBackoff:     config.Dispatcher.MaxBackoff,
		})
		d.LocalDispatcher = infrastructure.NewLocalStepDispatcher(runner, config.Dispatcher.Workers, d.Logger.Named("dispatcher"))
		d.Dispatcher = d.LocalDispatcher
		return nil
	}

	// Initialize AWS infrastructure
	eventPublisher, err := sharedinfra.NewSNSPublisherAdapter(ctx, config.AWS.SNSTopicArn)
	if err != nil {
		return fmt.Errorf("failed to create SNS publisher: %w", err)
	}
	d.EventPublisher = eventPublisher

	eventSubscriber, err := sharedinfra.NewSQSSubscriberAdapter(config.AWS.SQSQueueURL,
		sharedinfra.WithTopics(events.OrchestratorTopics...),
		sharedinfra.WithWorkers(int32(config.Dispatcher.Workers)),
		sharedinfra.WithSubscriberLogger(d.Logger.Named("subscriber")),
	)
	if err != nil {
		return fmt.Errorf("failed to create SQS subscriber: %w", err)
	}
	d.EventSubscriber = eventSubscriber

	d.Dispatcher = infrastructure.NewSNSStepDispatcher(eventPublisher)
	return nil
}

// StartDispatch connects the dispatcher back to the orchestrator: the local
// workers start running participants, or the SQS subscriber starts consuming
// participant outcomes.
func (d *Dependencies) StartDispatch(ctx context.Context) error {
	if d.LocalDispatcher != nil {
		return d.LocalDispatcher.Start(ctx, d.Orchestrator)
	}
	if d.EventSubscriber != nil {
		return d.EventSubscriber.Subscribe(ctx, "", d.SagaEventHandlers)
	}
	return nil
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	if d.LocalDispatcher != nil {
		if err := d.LocalDispatcher.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop dispatcher: %w", err))
		}
	}

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

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
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
