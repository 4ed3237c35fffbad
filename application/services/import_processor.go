package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"mentraflow-backend/application/extraction"
	"mentraflow-backend/application/ports"
	"mentraflow-backend/domain/core/entities"
	apperrors "mentraflow-backend/pkg/errors"
	"mentraflow-backend/pkg/observability"
)

// errNothingProcessed fails an import in which no conversation produced a concept.
var errNothingProcessed = errors.New("no conversation could be processed")

// conversationOutput counts what one conversation produced.
type conversationOutput struct {
	concepts int
	quizzes  int
	nodes    int
}

// ImportProcessor runs queued import jobs: for each conversation it extracts
// concepts and quizzes, stores them and integrates every concept into the
// knowledge graph. Conversations are processed one at a time.
type ImportProcessor struct {
	store       ports.Store
	pipeline    *extraction.Pipeline
	integration *KnowledgeIntegrationService
	clock       ports.Clock
	metrics     *observability.Collector
	logger      *zap.Logger
}

var _ ports.ImportJobProcessor = (*ImportProcessor)(nil)

func NewImportProcessor(
	store ports.Store,
	pipeline *extraction.Pipeline,
	integration *KnowledgeIntegrationService,
	clock ports.Clock,
	metrics *observability.Collector,
	logger *zap.Logger,
) *ImportProcessor {
	return &ImportProcessor{
		store:       store,
		pipeline:    pipeline,
		integration: integration,
		clock:       clock,
		metrics:     metrics,
		logger:      logger,
	}
}

// Process runs job to a terminal import status. A job whose import already
// finished is skipped, so redelivered jobs do no work.
func (p *ImportProcessor) Process(ctx context.Context, job ports.ImportJob) (err error) {
	ctx, span := observability.StartSpan(ctx, "import.process",
		attribute.String("import.id", job.ImportID),
		attribute.String("job.id", job.JobID),
		attribute.Int("conversations", len(job.Conversations)),
	)
	defer func() { observability.EndSpan(span, err) }()

	logger := p.logger.With(
		zap.String("import_id", job.ImportID),
		zap.String("job_id", job.JobID),
		zap.String("user_id", job.UserID))

	imp := p.loadImport(ctx, job, logger)
	if imp.Status.IsTerminal() {
		logger.Info("Import already finished, skipping job", zap.String("status", string(imp.Status)))
		return nil
	}
	if startErr := imp.Start(p.clock.Now()); startErr != nil {
		return startErr
	}
	p.saveImport(ctx, imp, logger)
	p.metrics.RecordImport(string(entities.ImportStatusRunning))

	succeeded := 0
	for i, conv := range job.Conversations {
		if ctx.Err() != nil {
			imp.RecordError(ctx.Err())
			break
		}
		if conv.ID == "" {
			conv.ID = fmt.Sprintf("%s_conv_%d", job.ImportID, i)
		}

		out, convErr := p.processConversation(ctx, job, conv, logger)
		imp.RecordConversation(out.concepts, out.quizzes, out.nodes)
		imp.RecordError(convErr)
		if out.concepts > 0 {
			succeeded++
		}
		p.saveImport(ctx, imp, logger)
	}

	now := p.clock.Now()
	if succeeded == 0 && len(job.Conversations) > 0 {
		cause := errNothingProcessed
		if imp.Error != "" {
			cause = fmt.Errorf("%w: %s", errNothingProcessed, imp.Error)
		}
		_ = imp.Fail(cause, now)
		err = cause
	} else {
		_ = imp.Succeed(now)
	}
	p.saveImport(ctx, imp, logger)
	p.metrics.RecordImport(string(imp.Status))

	logger.Info("Import finished",
		zap.String("status", string(imp.Status)),
		zap.Int("conversations", imp.ConversationsProcessed),
		zap.Int("concepts", imp.ConceptsExtracted),
		zap.Int("quizzes", imp.QuizzesGenerated),
		zap.Int("nodes", imp.NodesCreated))
	return err
}

// loadImport fetches the job's import record, creating it when the gateway
// could not store it.
func (p *ImportProcessor) loadImport(ctx context.Context, job ports.ImportJob, logger *zap.Logger) *entities.Import {
	imp, err := p.store.GetImport(ctx, job.ImportID)
	if err == nil {
		return imp
	}
	if !apperrors.IsNotFound(err) {
		logger.Error("Failed to load import, starting from a fresh record", zap.Error(err))
	}
	createdAt := job.EnqueuedAt
	if createdAt.IsZero() {
		createdAt = p.clock.Now()
	}
	return &entities.Import{
		ID:                job.ImportID,
		UserID:            job.UserID,
		Platform:          job.Platform,
		ConversationCount: len(job.Conversations),
		Status:            entities.ImportStatusQueued,
		CreatedAt:         createdAt,
	}
}

// saveImport writes progress. Failures are logged and do not stop the job.
func (p *ImportProcessor) saveImport(ctx context.Context, imp *entities.Import, logger *zap.Logger) {
	if err := p.store.SaveImport(ctx, imp); err != nil {
		logger.Error("Failed to save import progress", zap.Error(err))
	}
}

// processConversation stores the concepts and quizzes extracted from conv
// and integrates each concept independently. It returns what was produced
// and the last error met; a failed concept does not stop the others.
func (p *ImportProcessor) processConversation(ctx context.Context, job ports.ImportJob, conv entities.Conversation, logger *zap.Logger) (conversationOutput, error) {
	ctx, span := observability.StartSpan(ctx, "import.conversation", attribute.String("conversation.id", conv.ID))
	defer span.End()

	logger = logger.With(zap.String("conversation_id", conv.ID))
	result := p.pipeline.Run(ctx, conv)
	groups := extraction.AssignQuestions(result.Concepts, result.Questions)
	summary := result.Summary.JSON()

	src := entities.ConceptSource{
		ImportID:       job.ImportID,
		UserID:         job.UserID,
		ConversationID: conv.ID,
		Platform:       conv.Platform,
	}

	var out conversationOutput
	var lastErr error
	for i, text := range result.Concepts {
		concept, err := entities.NewConcept(src, text, summary, p.clock.Now())
		if err != nil {
			lastErr = err
			logger.Warn("Skipping invalid concept", zap.Int("index", i), zap.Error(err))
			continue
		}
		if err := p.store.SaveConcept(ctx, concept); err != nil {
			lastErr = apperrors.NewDatabaseError("save concept", err)
			logger.Error("Failed to save concept", zap.String("concept_id", concept.ID), zap.Error(err))
			continue
		}
		out.concepts++

		quizID := ""
		if len(groups[i]) > 0 {
			quiz, err := entities.NewQuiz(concept.ID, job.UserID, groups[i], p.clock.Now())
			if err == nil {
				err = p.store.SaveQuiz(ctx, quiz)
			}
			if err != nil {
				lastErr = apperrors.NewDatabaseError("save quiz", err)
				logger.Error("Failed to save quiz", zap.String("concept_id", concept.ID), zap.Error(err))
			} else {
				quizID = quiz.ID
				concept.MarkQuizGenerated()
				out.quizzes++
			}
		}

		integrated := p.integration.Integrate(ctx, concept, quizID)
		if integrated.Node != nil {
			concept.LinkNode(integrated.Node.ID)
			out.nodes++
		}
		if !integrated.Success() {
			lastErr = integrated.Err()
			logger.Error("Concept integration incomplete",
				zap.String("concept_id", concept.ID),
				zap.Error(lastErr))
		}

		if concept.QuizGenerated || concept.NodeCreated {
			if err := p.store.SaveConcept(ctx, concept); err != nil {
				logger.Error("Failed to update concept flags", zap.String("concept_id", concept.ID), zap.Error(err))
			}
		}
	}

	p.metrics.RecordExtraction(out.concepts, out.quizzes)
	return out, lastErr
}
