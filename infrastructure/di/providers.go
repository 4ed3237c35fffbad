package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"mentraflow-backend/application/extraction"
	"mentraflow-backend/application/ports"
	"mentraflow-backend/application/services"
	domainservices "mentraflow-backend/domain/services"
	"mentraflow-backend/infrastructure/config"
	"mentraflow-backend/infrastructure/llm"
	"mentraflow-backend/infrastructure/messaging/eventbridge"
	"mentraflow-backend/infrastructure/persistence/dynamodb"
	"mentraflow-backend/infrastructure/persistence/memory"
	"mentraflow-backend/infrastructure/persistence/sqlite"
	"mentraflow-backend/infrastructure/workers"
	"mentraflow-backend/interfaces/http/rest"
	"mentraflow-backend/interfaces/http/rest/handlers"
	"mentraflow-backend/pkg/observability"
)

const (
	metricsNamespace  = "mentraflow"
	awsClientTimeout  = 10 * time.Second
)

// ProvideLogging builds the root logger. The cleanup flushes it.
func ProvideLogging(cfg *config.Config) (*Logging, func(), error) {
	logger, level, err := observability.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger = logger.With(zap.String("service", metricsNamespace), zap.String("version", cfg.Version))
	return &Logging{Logger: logger, Level: level}, func() { _ = logger.Sync() }, nil
}

func ProvideLogger(l *Logging) *zap.Logger {
	return l.Logger
}

func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(metricsNamespace)
}

func ProvideClock() ports.Clock {
	return ports.SystemClock{}
}

// ProvideAWSConfig loads the default credential chain. No request is made,
// so this is safe when no AWS backend is selected.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
}

// ProvideDynamoDBClient creates a DynamoDB client, pointed at a local
// endpoint when one is configured.
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		o.HTTPClient = &http.Client{Timeout: awsClientTimeout}
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg, func(o *awseventbridge.Options) {
		o.HTTPClient = &http.Client{Timeout: awsClientTimeout}
	})
}

// ProvideStore opens the configured storage backend. The cleanup closes it.
func ProvideStore(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) (ports.Store, func(), error) {
	var store ports.Store
	switch cfg.StoreBackend {
	case config.StoreMemory:
		store = memory.NewStore()
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		store = s
	case config.StoreDynamoDB:
		store = dynamodb.NewStore(client, dynamodb.Config{TableName: cfg.DynamoDBTable}, logger)
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	logger.Info("Store ready", zap.String("backend", cfg.StoreBackend))
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close store", zap.Error(err))
		}
	}
	return store, cleanup, nil
}

// ProvideLanguageModel returns the chat completions client, or a model that
// is never available when no API key is configured.
func ProvideLanguageModel(cfg *config.Config, logger *zap.Logger) ports.LanguageModel {
	if cfg.LLM.APIKey == "" {
		logger.Warn("No language model API key configured, extraction runs on fallbacks only")
		return llm.Disabled{}
	}
	return llm.NewClient(llm.Config{
		BaseURL:           cfg.LLM.BaseURL,
		APIKey:            cfg.LLM.APIKey,
		Model:             cfg.LLM.Model,
		RequestTimeout:    cfg.LLM.CallTimeout,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Burst:             cfg.LLM.Burst,
		BreakerFailures:   uint32(cfg.LLM.BreakerFailures),
		BreakerTimeout:    cfg.LLM.BreakerTimeout,
	}, logger)
}

func ProvidePipeline(model ports.LanguageModel, cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) *extraction.Pipeline {
	formatter := domainservices.NewConversationFormatter(domainservices.DefaultFormatPolicy())
	return extraction.NewPipeline(model, formatter, cfg.LLM.CallTimeout, metrics, logger)
}

func ProvideRecallScheduler(store ports.Store, clock ports.Clock, metrics *observability.Collector, logger *zap.Logger) *services.RecallScheduler {
	return services.NewRecallScheduler(store, clock, metrics, logger)
}

func ProvideKnowledgeIntegration(
	store ports.Store,
	scheduler *services.RecallScheduler,
	clock ports.Clock,
	cfg *config.Config,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.KnowledgeIntegrationService {
	return services.NewKnowledgeIntegrationService(store, scheduler, clock, services.IntegrationConfig{
		LinkCandidateLimit: cfg.Integration.LinkCandidateLimit,
		MaxConnections:     cfg.Integration.MaxConnections,
	}, metrics, logger)
}

func ProvideImportProcessor(
	store ports.Store,
	pipeline *extraction.Pipeline,
	integration *services.KnowledgeIntegrationService,
	clock ports.Clock,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.ImportProcessor {
	return services.NewImportProcessor(store, pipeline, integration, clock, metrics, logger)
}

// ProvideWorkerPool builds the in-process pool. It is only started by
// binaries that use the pool transport.
func ProvideWorkerPool(cfg *config.Config, processor *services.ImportProcessor, metrics *observability.Collector, logger *zap.Logger) *workers.Pool {
	return workers.NewPool(workers.Config{
		Workers:    cfg.Workers.Count,
		QueueSize:  cfg.Workers.QueueSize,
		JobTimeout: cfg.Workers.JobTimeout,
	}, processor, metrics, logger)
}

// ProvideJobQueue selects the job transport.
func ProvideJobQueue(cfg *config.Config, pool *workers.Pool, client *awseventbridge.Client, logger *zap.Logger) (ports.JobQueue, error) {
	switch cfg.QueueBackend {
	case config.QueueWorkerPool:
		return pool, nil
	case config.QueueEventBridge:
		return eventbridge.NewQueue(client, cfg.EventBusName, logger), nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.QueueBackend)
	}
}

func ProvideIngestionGateway(
	store ports.Store,
	queue ports.JobQueue,
	clock ports.Clock,
	cfg *config.Config,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.IngestionGateway {
	return services.NewIngestionGateway(store, queue, clock, cfg.Ingestion.MaxConversations, metrics, logger)
}

func ProvideQueryService(store ports.Store, clock ports.Clock, logger *zap.Logger) *services.QueryService {
	return services.NewQueryService(store, clock, logger)
}

func ProvideMCPHandler(gateway *services.IngestionGateway, queries *services.QueryService, cfg *config.Config, logger *zap.Logger) *handlers.MCPHandler {
	return handlers.NewMCPHandler(gateway, queries, handlers.Settings{
		EnabledPlatforms: cfg.Ingestion.EnabledPlatforms,
		MaxConversations: cfg.Ingestion.MaxConversations,
		AutoQuiz:         cfg.Ingestion.AutoQuiz,
		AutoNode:         cfg.Ingestion.AutoNode,
	}, logger)
}

func ProvideRecallHandler(scheduler *services.RecallScheduler, logger *zap.Logger) *handlers.RecallHandler {
	return handlers.NewRecallHandler(scheduler, logger)
}

func ProvideRouter(
	mcp *handlers.MCPHandler,
	recall *handlers.RecallHandler,
	store ports.Store,
	metrics *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(mcp, recall, store, metrics, rest.RouterConfig{
		EnableCORS:    cfg.EnableCORS,
		CORSOrigins:   cfg.CORSOrigins,
		EnableMetrics: cfg.EnableMetrics,
	}, logger)
}

func ProvideHTTPHandler(router *rest.Router) http.Handler {
	return router.Setup()
}

// TracingSettings maps the tracing section of cfg onto the tracer setup.
func TracingSettings(cfg *config.Config) observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: metricsNamespace,
		Version:     cfg.Version,
		Environment: cfg.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
	}
}

// InitTracingFor installs the tracer provider described by cfg.
func InitTracingFor(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	return observability.InitTracing(ctx, TracingSettings(cfg))
}
