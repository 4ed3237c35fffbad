package di

import (
	"net/http"

	"go.uber.org/zap"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/application/services"
	"mentraflow-backend/infrastructure/config"
	"mentraflow-backend/infrastructure/workers"
	"mentraflow-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logging   *Logging
	Logger    *zap.Logger
	Metrics   *observability.Collector
	Store     ports.Store
	Queue     ports.JobQueue
	Pool      *workers.Pool
	Processor *services.ImportProcessor
	Handler   http.Handler
}

// Logging pairs the root logger with the level the config watcher adjusts.
type Logging struct {
	Logger *zap.Logger
	Level  zap.AtomicLevel
}
