// Package main is the Lambda that processes import jobs delivered by an
// EventBridge rule.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"mentraflow-backend/application/services"
	"mentraflow-backend/infrastructure/config"
	"mentraflow-backend/infrastructure/di"
	"mentraflow-backend/infrastructure/messaging/eventbridge"
)

var (
	processor *services.ImportProcessor
	logger    *zap.Logger
)

func init() {
	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, _, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	if _, err := di.InitTracingFor(ctx, cfg); err != nil {
		container.Logger.Warn("Tracing disabled", zap.Error(err))
	}

	processor = container.Processor
	logger = container.Logger.With(zap.String("component", "import-worker"))
}

// HandleImportJob runs one queued import. A returned error makes Lambda
// retry the event; the processor skips imports that already finished.
func HandleImportJob(ctx context.Context, event events.CloudWatchEvent) error {
	if event.DetailType != eventbridge.DetailTypeImportJob {
		logger.Warn("Ignoring unexpected event",
			zap.String("detail_type", event.DetailType),
			zap.String("source", event.Source))
		return nil
	}

	job, err := eventbridge.DecodeJob(event.Detail)
	if err != nil {
		// Malformed events can never succeed, so they are not retried.
		logger.Error("Dropping malformed import job", zap.String("event_id", event.ID), zap.Error(err))
		return nil
	}

	if err := processor.Process(ctx, job); err != nil {
		return fmt.Errorf("process import %s: %w", job.ImportID, err)
	}
	return nil
}

func main() {
	lambda.Start(HandleImportJob)
}
