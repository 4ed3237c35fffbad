// Package extraction turns a conversation into a summary, concepts and quiz
// questions. Each stage asks the language model first and falls back to a
// deterministic heuristic, so a run always produces output.
package extraction

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/domain/core/entities"
	"mentraflow-backend/domain/services"
	"mentraflow-backend/pkg/observability"
)

// Result is everything extracted from one conversation.
type Result struct {
	Summary   Summary
	Concepts  []string
	Questions []entities.QuizQuestion
	// Origins records, per stage, whether the model or the fallback answered.
	Origins map[string]Origin
}

// UsedFallback reports whether any stage fell back.
func (r Result) UsedFallback() bool {
	for _, o := range r.Origins {
		if o == OriginFallback {
			return true
		}
	}
	return false
}

// Pipeline runs formatting and the three extraction stages in order.
type Pipeline struct {
	formatter  *services.ConversationFormatter
	summarizer *Summarizer
	extractor  *ConceptExtractor
	generator  *QuizGenerator
	logger     *zap.Logger
}

// NewPipeline wires the stages around one model. callTimeout bounds each
// model call; zero means no per-call limit.
func NewPipeline(
	model ports.LanguageModel,
	formatter *services.ConversationFormatter,
	callTimeout time.Duration,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Pipeline {
	caller := &modelCaller{
		model:   model,
		timeout: callTimeout,
		metrics: metrics,
		logger:  logger,
	}
	return &Pipeline{
		formatter:  formatter,
		summarizer: &Summarizer{caller: caller},
		extractor:  &ConceptExtractor{caller: caller},
		generator:  &QuizGenerator{caller: caller},
		logger:     logger,
	}
}

// Run extracts from conv. Stages run sequentially; none of them can fail.
func (p *Pipeline) Run(ctx context.Context, conv entities.Conversation) Result {
	ctx, span := observability.StartSpan(ctx, "extraction.pipeline",
		attribute.String("conversation.id", conv.ID),
		attribute.Int("conversation.messages", len(conv.Messages)),
	)
	defer span.End()

	text := p.formatter.FormatBounded(conv.Messages)

	summary, summaryOrigin := p.summarizer.Summarize(ctx, text)
	concepts, conceptOrigin := p.extractor.Extract(ctx, summary, conv.Title)
	questions, quizOrigin := p.generator.Generate(ctx, concepts)

	result := Result{
		Summary:   summary,
		Concepts:  concepts,
		Questions: questions,
		Origins: map[string]Origin{
			observability.StageSummarize: summaryOrigin,
			observability.StageConcepts:  conceptOrigin,
			observability.StageQuiz:      quizOrigin,
		},
	}

	p.logger.Debug("Extraction finished",
		zap.String("conversation_id", conv.ID),
		zap.Int("formatted_chars", len(text)),
		zap.Int("concepts", len(concepts)),
		zap.Int("questions", len(questions)),
		zap.Bool("fallback", result.UsedFallback()))
	return result
}
