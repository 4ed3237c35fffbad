package extraction

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/pkg/observability"
)

// Origin tells whether a stage result came from the model or the fallback.
type Origin string

const (
	OriginModel    Origin = "model"
	OriginFallback Origin = "fallback"
)

// Fallback reasons, used as metric labels.
const (
	reasonUnavailable = "unavailable"
	reasonModelError  = "model_error"
	reasonMalformed   = "malformed"
)

var errModelUnavailable = errors.New("language model unavailable")

// modelCaller wraps the language model with a per-call timeout, a span and
// metrics. It is shared by the three stages.
type modelCaller struct {
	model   ports.LanguageModel
	timeout time.Duration
	metrics *observability.Collector
	logger  *zap.Logger
}

func (c *modelCaller) complete(ctx context.Context, stage, prompt string, opts ports.CompletionOptions) (string, error) {
	if c.model == nil || !c.model.IsAvailable() {
		return "", errModelUnavailable
	}

	ctx, span := observability.StartSpan(ctx, "extraction."+stage,
		attribute.Int("prompt.chars", len(prompt)),
		attribute.Int("max_tokens", opts.MaxTokens),
	)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.model.Complete(ctx, prompt, opts)
	c.metrics.RecordModelCall(stage, err, time.Since(start))
	observability.EndSpan(span, err)
	return out, err
}

// fellBack logs and counts a stage falling back.
func (c *modelCaller) fellBack(stage string, err error) {
	reason := reasonModelError
	switch {
	case errors.Is(err, errModelUnavailable):
		reason = reasonUnavailable
	case errors.Is(err, ErrMalformedResponse):
		reason = reasonMalformed
	}
	c.metrics.RecordFallback(stage, reason)
	c.logger.Warn("Extraction stage using fallback",
		zap.String("stage", stage),
		zap.String("reason", reason),
		zap.Error(err))
}
