package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/domain/core/entities"
	"mentraflow-backend/domain/core/valueobjects"
	apperrors "mentraflow-backend/pkg/errors"
	"mentraflow-backend/pkg/observability"
	"mentraflow-backend/pkg/utils"
)

// DefaultMaxConversations caps how many conversations one export processes.
const DefaultMaxConversations = 10

// SubmitExportRequest is one export pushed by a platform integration.
type SubmitExportRequest struct {
	UserID        string                  `json:"user_id" validate:"required"`
	Conversations []entities.Conversation `json:"conversations" validate:"required,min=1,dive"`
}

// SubmitExportResult acknowledges an accepted export. The counters are zero
// because the work has not started yet.
type SubmitExportResult struct {
	Success               bool    `json:"success"`
	Message               string  `json:"message"`
	ConceptsExtracted     int     `json:"concepts_extracted"`
	QuizzesGenerated      int     `json:"quizzes_generated"`
	NodesCreated          int     `json:"nodes_created"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
	ImportID              string  `json:"import_id"`
}

// IngestionGateway accepts exports and hands them to background processing.
type IngestionGateway struct {
	imports          ports.ImportRepository
	queue            ports.JobQueue
	clock            ports.Clock
	maxConversations int
	metrics          *observability.Collector
	logger           *zap.Logger
}

func NewIngestionGateway(
	imports ports.ImportRepository,
	queue ports.JobQueue,
	clock ports.Clock,
	maxConversations int,
	metrics *observability.Collector,
	logger *zap.Logger,
) *IngestionGateway {
	if maxConversations <= 0 {
		maxConversations = DefaultMaxConversations
	}
	return &IngestionGateway{
		imports:          imports,
		queue:            queue,
		clock:            clock,
		maxConversations: maxConversations,
		metrics:          metrics,
		logger:           logger,
	}
}

// Submit validates req, records a queued import and enqueues it. It returns
// as soon as the job is queued. Conversations past the cap are dropped.
func (g *IngestionGateway) Submit(ctx context.Context, req SubmitExportRequest) (*SubmitExportResult, error) {
	start := time.Now()
	if len(req.Conversations) == 0 {
		return nil, apperrors.NewValidationError("no conversations provided")
	}
	if len(req.Conversations) > g.maxConversations {
		g.logger.Info("Export exceeds conversation cap, dropping the rest",
			zap.String("user_id", req.UserID),
			zap.Int("received", len(req.Conversations)),
			zap.Int("kept", g.maxConversations))
		req.Conversations = req.Conversations[:g.maxConversations]
	}
	// Dropped conversations are not validated either.
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	conversations := req.Conversations

	now := g.clock.Now()
	platform := conversations[0].Platform
	importID := valueobjects.NewImportID(req.UserID, platform, now)

	imp, err := entities.NewImport(importID, req.UserID, platform, len(conversations), now)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := g.imports.SaveImport(ctx, imp); err != nil {
		// The processor creates the record if it is still missing.
		g.logger.Error("Failed to record queued import",
			zap.String("import_id", importID),
			zap.Error(err))
	}

	job := ports.ImportJob{
		JobID:         ports.NewJobID(now),
		ImportID:      importID,
		UserID:        req.UserID,
		Platform:      platform,
		Conversations: conversations,
		EnqueuedAt:    now,
	}
	if err := g.queue.Enqueue(ctx, job); err != nil {
		g.markRejected(ctx, imp, err)
		return nil, apperrors.NewServiceUnavailableError("import queue").WithCause(err)
	}
	g.metrics.RecordImport(string(entities.ImportStatusQueued))

	g.logger.Info("Export accepted",
		zap.String("import_id", importID),
		zap.String("job_id", job.JobID),
		zap.String("user_id", req.UserID),
		zap.String("platform", platform),
		zap.Int("conversations", len(conversations)))

	return &SubmitExportResult{
		Success:               true,
		Message:               fmt.Sprintf("Export received. Processing %d conversations in the background.", len(conversations)),
		ProcessingTimeSeconds: time.Since(start).Seconds(),
		ImportID:              importID,
	}, nil
}

func (g *IngestionGateway) markRejected(ctx context.Context, imp *entities.Import, cause error) {
	if err := imp.Fail(fmt.Errorf("job not queued: %w", cause), g.clock.Now()); err != nil {
		return
	}
	g.metrics.RecordImport(string(entities.ImportStatusFailed))
	if err := g.imports.SaveImport(ctx, imp); err != nil {
		g.logger.Error("Failed to record rejected import",
			zap.String("import_id", imp.ID),
			zap.Error(err))
	}
}
