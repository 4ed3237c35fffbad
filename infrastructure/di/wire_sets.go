package di

import (
	"github.com/google/wire"
)

// ConfigProviders provides logging, metrics and the clock.
var ConfigProviders = wire.NewSet(
	ProvideLogging,
	ProvideLogger,
	ProvideMetrics,
	ProvideClock,
)

// InfrastructureProviders provides AWS clients, storage, the model and the
// job transport.
var InfrastructureProviders = wire.NewSet(
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideStore,
	ProvideLanguageModel,
	ProvideWorkerPool,
	ProvideJobQueue,
)

// ApplicationProviders provides the extraction pipeline and services.
var ApplicationProviders = wire.NewSet(
	ProvidePipeline,
	ProvideRecallScheduler,
	ProvideKnowledgeIntegration,
	ProvideImportProcessor,
	ProvideIngestionGateway,
	ProvideQueryService,
)

// InterfaceProviders provides the HTTP handlers and router.
var InterfaceProviders = wire.NewSet(
	ProvideMCPHandler,
	ProvideRecallHandler,
	ProvideRouter,
	ProvideHTTPHandler,
)

// SuperSet combines all provider sets for the complete application.
var SuperSet = wire.NewSet(
	ConfigProviders,
	InfrastructureProviders,
	ApplicationProviders,
	InterfaceProviders,
	wire.Struct(new(Container), "*"),
)
