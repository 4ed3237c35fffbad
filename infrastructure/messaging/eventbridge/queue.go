// Package eventbridge carries import jobs from the API Lambda to the worker
// Lambda as EventBridge events.
package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"mentraflow-backend/application/ports"
)

const (
	// Source is the event source of queued import jobs.
	Source = "mentraflow.ingestion"
	// DetailTypeImportJob is the detail type the worker rule matches.
	DetailTypeImportJob = "ImportJobQueued"

	// EventBridge rejects entries larger than 256 KB.
	maxEntryBytes = 256 * 1024
	maxAttempts   = 3
)

// ErrJobTooLarge is returned when a job does not fit in one event.
var ErrJobTooLarge = errors.New("import job exceeds the event size limit")

// API is the subset of the EventBridge client the queue uses.
type API interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Queue is a ports.JobQueue that publishes each job as one event.
type Queue struct {
	client       API
	eventBusName string
	backoff      time.Duration
	logger       *zap.Logger
}

var _ ports.JobQueue = (*Queue)(nil)

func NewQueue(client API, eventBusName string, logger *zap.Logger) *Queue {
	return &Queue{
		client:       client,
		eventBusName: eventBusName,
		backoff:      100 * time.Millisecond,
		logger:       logger,
	}
}

// Enqueue publishes job, retrying entries EventBridge reports as failed.
func (q *Queue) Enqueue(ctx context.Context, job ports.ImportJob) error {
	detail, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal import job: %w", err)
	}
	if len(detail) > maxEntryBytes {
		return fmt.Errorf("%w: %d bytes", ErrJobTooLarge, len(detail))
	}

	entry := types.PutEventsRequestEntry{
		EventBusName: aws.String(q.eventBusName),
		Source:       aws.String(Source),
		DetailType:   aws.String(DetailTypeImportJob),
		Detail:       aws.String(string(detail)),
		Time:         aws.Time(job.EnqueuedAt),
		Resources:    []string{fmt.Sprintf("arn:aws:mentraflow::import/%s", job.ImportID)},
	}

	backoff := q.backoff
	for attempt := 1; ; attempt++ {
		err = q.put(ctx, entry)
		if err == nil {
			q.logger.Debug("Import job published",
				zap.String("job_id", job.JobID),
				zap.String("import_id", job.ImportID),
				zap.String("eventBus", q.eventBusName))
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("failed to publish import job after %d attempts: %w", maxAttempts, err)
		}

		q.logger.Warn("Retrying import job publication",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *Queue) put(ctx context.Context, entry types.PutEventsRequestEntry) error {
	result, err := q.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{entry},
	})
	if err != nil {
		return fmt.Errorf("failed to publish events to EventBridge: %w", err)
	}
	if result.FailedEntryCount > 0 {
		for _, e := range result.Entries {
			if e.ErrorCode != nil {
				return fmt.Errorf("entry rejected: %s: %s", aws.ToString(e.ErrorCode), aws.ToString(e.ErrorMessage))
			}
		}
		return fmt.Errorf("%d events failed to publish", result.FailedEntryCount)
	}
	return nil
}

// DecodeJob reads the job carried by an event detail.
func DecodeJob(detail []byte) (ports.ImportJob, error) {
	var job ports.ImportJob
	if err := json.Unmarshal(detail, &job); err != nil {
		return job, fmt.Errorf("failed to decode import job: %w", err)
	}
	if job.ImportID == "" || job.UserID == "" {
		return job, errors.New("import job is missing its import or user id")
	}
	return job, nil
}
